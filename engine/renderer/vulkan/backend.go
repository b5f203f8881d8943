package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/emberglow/ember/engine/config"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/platform"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

// VulkanRenderer is the Vulkan implementation of the renderer backend. It
// owns the instance, device and command pool; every texture operation records
// into a single-use command buffer and waits for its fence.
type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext

	debug bool
}

// vulkanTextureData is what a managed texture's InternalData points at.
type vulkanTextureData struct {
	Image *VulkanImage
}

func New(p *platform.Platform) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{GraphicsQueueIndex: -1, TransferQueueIndex: -1},
			Locks:     NewVulkanLockPool(),
		},
	}
}

func (vr *VulkanRenderer) Initialize(cfg *config.Config) error {
	vr.debug = cfg.Renderer.Validation

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		core.LogFatal("GetInstanceProcAddress is nil")
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.Application.Name),
		PEngineName:        VulkanSafeString("Ember Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	requiredValidationLayerNames := []string{}
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
		}

		for i := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == string(availableLayers[j].LayerName[:end]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", requiredValidationLayerNames[i])
				core.LogFatal(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create Vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context, cfg.Renderer.DiscreteGPU); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}

	// Destroy in the opposite order of creation.
	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.debug {
		core.LogDebug("Destroying Vulkan debugger...")
		if vr.context.debugMessenger != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		}
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)

	return nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); res != vk.Success {
		return fmt.Errorf("device wait idle failed: %s", VulkanResultString(res))
	}
	return nil
}

// singleUse records commands through fn and submits them on the graphics
// queue, blocking until the fence signals.
func (vr *VulkanRenderer) singleUse(fn func(cb *VulkanCommandBuffer) error) error {
	cb, err := AllocateAndBeginSingleUse(vr.context, vr.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	if err := fn(cb); err != nil {
		cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		return err
	}
	return cb.EndSingleUse(
		vr.context,
		vr.context.Device.GraphicsCommandPool,
		vr.context.Device.GraphicsQueue,
		uint32(vr.context.Device.GraphicsQueueIndex))
}

func textureData(texture *metadata.Texture) (*vulkanTextureData, error) {
	data, ok := texture.InternalData.(*vulkanTextureData)
	if !ok || data == nil || data.Image == nil {
		return nil, fmt.Errorf("texture '%s' has no backing image", texture.Name)
	}
	return data, nil
}

func (vr *VulkanRenderer) TextureCreate(texture *metadata.Texture) error {
	image, err := ImageCreate(vr.context, texture.Width, texture.Height, texture.Format)
	if err != nil {
		return err
	}

	// Move the fresh image out of UNDEFINED so the record starts its life
	// as a valid transfer destination.
	err = vr.singleUse(func(cb *VulkanCommandBuffer) error {
		return image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	})
	if err != nil {
		image.Destroy(vr.context)
		return err
	}

	texture.InternalData = &vulkanTextureData{Image: image}
	texture.Layout = metadata.TextureLayoutTransferDst
	return nil
}

func (vr *VulkanRenderer) TextureDestroy(texture *metadata.Texture) error {
	data, err := textureData(texture)
	if err != nil {
		// Already destroyed or never created; nothing to release.
		return nil
	}
	data.Image.Destroy(vr.context)
	texture.InternalData = nil
	return nil
}

func (vr *VulkanRenderer) TextureResize(texture *metadata.Texture, width, height uint32) error {
	data, err := textureData(texture)
	if err != nil {
		return err
	}

	image, err := ImageCreate(vr.context, width, height, texture.Format)
	if err != nil {
		return err
	}
	err = vr.singleUse(func(cb *VulkanCommandBuffer) error {
		return image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	})
	if err != nil {
		image.Destroy(vr.context)
		return err
	}

	data.Image.Destroy(vr.context)
	data.Image = image
	texture.Width = width
	texture.Height = height
	texture.Layout = metadata.TextureLayoutTransferDst
	return nil
}

func (vr *VulkanRenderer) TextureWriteData(texture *metadata.Texture, pixels []uint8) error {
	data, err := textureData(texture)
	if err != nil {
		return err
	}
	if texture.Layout != metadata.TextureLayoutTransferDst {
		return fmt.Errorf("texture '%s' is not transfer-writable: %w", texture.Name, core.ErrLayoutViolation)
	}

	expected := texture.Width * texture.Height * texture.Format.BytesPerPixel()
	if uint32(len(pixels)) < expected {
		return fmt.Errorf("pixel upload for '%s' is short: got %d bytes, want %d", texture.Name, len(pixels), expected)
	}

	staging, err := NewStagingBuffer(vr.context, pixels)
	if err != nil {
		return err
	}
	defer staging.Destroy(vr.context)

	err = vr.singleUse(func(cb *VulkanCommandBuffer) error {
		data.Image.CopyFromBuffer(cb, staging.Handle)
		return nil
	})
	if err != nil {
		return err
	}

	core.MetricsBytesUploaded(len(pixels))
	return nil
}

func (vr *VulkanRenderer) TextureTransitionLayout(texture *metadata.Texture, oldLayout, newLayout metadata.TextureLayout) error {
	data, err := textureData(texture)
	if err != nil {
		return err
	}
	if oldLayout == newLayout {
		return nil
	}
	return vr.singleUse(func(cb *VulkanCommandBuffer) error {
		return data.Image.TransitionLayout(cb,
			textureLayoutToVulkan(oldLayout),
			textureLayoutToVulkan(newLayout))
	})
}

func (vr *VulkanRenderer) TextureCopyRegion(dst, src *metadata.Texture, srcRegion, dstRegion metadata.Region) error {
	dstData, err := textureData(dst)
	if err != nil {
		return err
	}
	srcData, err := textureData(src)
	if err != nil {
		return err
	}
	if dst.Layout != metadata.TextureLayoutTransferDst {
		return fmt.Errorf("copy destination '%s' is not transfer-writable: %w", dst.Name, core.ErrLayoutViolation)
	}

	// The source is moved into TRANSFER_SRC for the duration of the copy and
	// restored afterwards; its tracked layout never changes.
	srcLayout := textureLayoutToVulkan(src.Layout)
	return vr.singleUse(func(cb *VulkanCommandBuffer) error {
		if err := srcData.Image.TransitionLayout(cb, srcLayout, vk.ImageLayoutTransferSrcOptimal); err != nil {
			return err
		}
		dstData.Image.CopyRegion(cb, srcData.Image, srcRegion, dstRegion)
		return srcData.Image.TransitionLayout(cb, vk.ImageLayoutTransferSrcOptimal, srcLayout)
	})
}

func (vr *VulkanRenderer) SamplerCreate(cfg metadata.SamplerConfig) (*metadata.Sampler, error) {
	handle, err := SamplerCreate(vr.context, cfg)
	if err != nil {
		return nil, err
	}
	return &metadata.Sampler{
		Config:       cfg,
		InternalData: handle,
	}, nil
}

func (vr *VulkanRenderer) SamplerDestroy(sampler *metadata.Sampler) {
	if sampler == nil {
		return
	}
	if handle, ok := sampler.InternalData.(vk.Sampler); ok {
		SamplerDestroy(vr.context, handle)
	}
	sampler.InternalData = nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
