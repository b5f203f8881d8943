package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

func textureFormatToVulkan(format metadata.TextureFormat) vk.Format {
	switch format {
	case metadata.TextureFormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.TextureFormatR8G8B8A8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case metadata.TextureFormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case metadata.TextureFormatR8Unorm:
		return vk.FormatR8Unorm
	default:
		return vk.FormatR8g8b8a8Unorm
	}
}

func textureLayoutToVulkan(layout metadata.TextureLayout) vk.ImageLayout {
	switch layout {
	case metadata.TextureLayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	default:
		return vk.ImageLayoutTransferDstOptimal
	}
}

// ImageCreate creates a 2D sampled image usable as both a transfer source and
// destination, allocates device-local memory for it and creates its view.
func ImageCreate(
	context *VulkanContext,
	width uint32,
	height uint32,
	format metadata.TextureFormat,
) (*VulkanImage, error) {
	image := &VulkanImage{
		Width:  width,
		Height: height,
		Format: textureFormatToVulkan(format),
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:   1,
		ArrayLayers: 1,
		Format:      image.Format,
		Tiling:      vk.ImageTilingOptimal,
		// All managed textures start their lives as transfer destinations.
		InitialLayout: vk.ImageLayoutUndefined,
		Usage: vk.ImageUsageFlags(
			vk.ImageUsageSampledBit |
				vk.ImageUsageTransferSrcBit |
				vk.ImageUsageTransferDstBit),
		Samples:     vk.SampleCount1Bit,
		SharingMode: vk.SharingModeExclusive,
	}

	var pImage vk.Image
	err := context.Locks.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &pImage); res != vk.Success {
			if VulkanResultIsOOM(res) {
				return fmt.Errorf("image creation %dx%d: %s: %w", width, height, VulkanResultString(res), core.ErrResourceExhaustion)
			}
			return fmt.Errorf("failed to create image: %s", VulkanResultString(res))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	image.Handle = pImage

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(
		memoryRequirements.MemoryTypeBits,
		uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryType < 0 {
		image.Destroy(context)
		err := fmt.Errorf("required memory type not found, image not valid")
		core.LogError(err.Error())
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &image.Memory); res != vk.Success {
		image.Destroy(context)
		if VulkanResultIsOOM(res) {
			return nil, fmt.Errorf("image memory %dx%d: %s: %w", width, height, VulkanResultString(res), core.ErrResourceExhaustion)
		}
		err := fmt.Errorf("failed to allocate image memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.Destroy(context)
		err := fmt.Errorf("failed to bind image memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if err := image.ViewCreate(context); err != nil {
		image.Destroy(context)
		return nil, err
	}

	return image, nil
}

func (vi *VulkanImage) ViewCreate(context *VulkanContext) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vi.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var pView vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &pView); res != vk.Success {
		err := fmt.Errorf("failed to create image view: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vi.View = pView
	return nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}

type layoutBarrierMasks struct {
	SrcAccess vk.AccessFlagBits
	DstAccess vk.AccessFlagBits
	SrcStage  vk.PipelineStageFlagBits
	DstStage  vk.PipelineStageFlagBits
}

type layoutPair struct {
	Old vk.ImageLayout
	New vk.ImageLayout
}

// Barrier masks for every transition the texture state machine performs.
var layoutBarriers = map[layoutPair]layoutBarrierMasks{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		SrcAccess: 0,
		DstAccess: vk.AccessTransferWriteBit,
		SrcStage:  vk.PipelineStageTopOfPipeBit,
		DstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		SrcAccess: vk.AccessTransferWriteBit,
		DstAccess: vk.AccessShaderReadBit,
		SrcStage:  vk.PipelineStageTransferBit,
		DstStage:  vk.PipelineStageFragmentShaderBit,
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal}: {
		SrcAccess: vk.AccessShaderReadBit,
		DstAccess: vk.AccessTransferWriteBit,
		SrcStage:  vk.PipelineStageFragmentShaderBit,
		DstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal}: {
		SrcAccess: vk.AccessTransferWriteBit,
		DstAccess: vk.AccessTransferReadBit,
		SrcStage:  vk.PipelineStageTransferBit,
		DstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal}: {
		SrcAccess: vk.AccessShaderReadBit,
		DstAccess: vk.AccessTransferReadBit,
		SrcStage:  vk.PipelineStageFragmentShaderBit,
		DstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutTransferDstOptimal}: {
		SrcAccess: vk.AccessTransferReadBit,
		DstAccess: vk.AccessTransferWriteBit,
		SrcStage:  vk.PipelineStageTransferBit,
		DstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		SrcAccess: vk.AccessTransferReadBit,
		DstAccess: vk.AccessShaderReadBit,
		SrcStage:  vk.PipelineStageTransferBit,
		DstStage:  vk.PipelineStageFragmentShaderBit,
	},
}

// TransitionLayout records a pipeline barrier moving the image between
// layouts on the given command buffer.
func (vi *VulkanImage) TransitionLayout(
	commandBuffer *VulkanCommandBuffer,
	oldLayout vk.ImageLayout,
	newLayout vk.ImageLayout,
) error {
	if oldLayout == newLayout {
		return nil
	}

	masks, ok := layoutBarriers[layoutPair{oldLayout, newLayout}]
	if !ok {
		err := fmt.Errorf("unsupported layout transition %d -> %d: %w", oldLayout, newLayout, core.ErrLayoutViolation)
		core.LogError(err.Error())
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SrcAccessMask:       vk.AccessFlags(masks.SrcAccess),
		DstAccessMask:       vk.AccessFlags(masks.DstAccess),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	vk.CmdPipelineBarrier(
		commandBuffer.Handle,
		vk.PipelineStageFlags(masks.SrcStage),
		vk.PipelineStageFlags(masks.DstStage),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})

	return nil
}

// CopyFromBuffer records a full-image copy of buffer contents into the image.
// The image must be in TRANSFER_DST_OPTIMAL.
func (vi *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer vk.Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  vi.Width,
			Height: vi.Height,
			Depth:  1,
		},
	}

	vk.CmdCopyBufferToImage(
		commandBuffer.Handle,
		buffer,
		vi.Handle,
		vk.ImageLayoutTransferDstOptimal,
		1,
		[]vk.BufferImageCopy{region})
}

// CopyRegion records an image-to-image copy. The source must be in
// TRANSFER_SRC_OPTIMAL and the destination in TRANSFER_DST_OPTIMAL. The copied
// extent is the destination region's extent.
func (vi *VulkanImage) CopyRegion(
	commandBuffer *VulkanCommandBuffer,
	src *VulkanImage,
	srcRegion metadata.Region,
	dstRegion metadata.Region,
) {
	copyRegion := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcOffset: vk.Offset3D{X: srcRegion.X, Y: srcRegion.Y, Z: 0},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		DstOffset: vk.Offset3D{X: dstRegion.X, Y: dstRegion.Y, Z: 0},
		Extent: vk.Extent3D{
			Width:  dstRegion.Width,
			Height: dstRegion.Height,
			Depth:  1,
		},
	}

	vk.CmdCopyImage(
		commandBuffer.Handle,
		src.Handle,
		vk.ImageLayoutTransferSrcOptimal,
		vi.Handle,
		vk.ImageLayoutTransferDstOptimal,
		1,
		[]vk.ImageCopy{copyRegion})
}
