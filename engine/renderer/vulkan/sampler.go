package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

func textureFilterToVulkan(filter metadata.TextureFilter) vk.Filter {
	if filter == metadata.TextureFilterModeNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func textureRepeatToVulkan(repeat metadata.TextureRepeat) vk.SamplerAddressMode {
	switch repeat {
	case metadata.TextureRepeatRepeat:
		return vk.SamplerAddressModeRepeat
	case metadata.TextureRepeatMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case metadata.TextureRepeatClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case metadata.TextureRepeatClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		core.LogWarn("textureRepeatToVulkan - unsupported repeat mode %d, defaulting to repeat", repeat)
		return vk.SamplerAddressModeRepeat
	}
}

func textureMipmapToVulkan(mode metadata.TextureMipmap) vk.SamplerMipmapMode {
	if mode == metadata.TextureMipmapModeNearest {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

// SamplerCreate creates a sampler object from a sampler config. Anisotropy is
// only enabled when both the config asks for it and the device supports it.
func SamplerCreate(context *VulkanContext, config metadata.SamplerConfig) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MinFilter:               textureFilterToVulkan(config.FilterMinify),
		MagFilter:               textureFilterToVulkan(config.FilterMagnify),
		AddressModeU:            textureRepeatToVulkan(config.RepeatU),
		AddressModeV:            textureRepeatToVulkan(config.RepeatV),
		AddressModeW:            textureRepeatToVulkan(config.RepeatW),
		MipmapMode:              textureMipmapToVulkan(config.MipmapMode),
		AnisotropyEnable:        vk.False,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipLodBias:              0.0,
		MinLod:                  0.0,
		MaxLod:                  0.0,
	}

	if config.Anisotropy && context.Device.Features.SamplerAnisotropy == vk.True {
		context.Device.Properties.Limits.Deref()
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = context.Device.Properties.Limits.MaxSamplerAnisotropy
	}

	var pSampler vk.Sampler
	err := context.Locks.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &pSampler); res != vk.Success {
			if VulkanResultIsOOM(res) {
				return fmt.Errorf("sampler creation: %s: %w", VulkanResultString(res), core.ErrResourceExhaustion)
			}
			return fmt.Errorf("failed to create sampler: %s", VulkanResultString(res))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return pSampler, nil
}

func SamplerDestroy(context *VulkanContext, sampler vk.Sampler) {
	if sampler == nil {
		return
	}
	context.Locks.SafeCall(SamplerManagement, func() error {
		vk.DestroySampler(context.Device.LogicalDevice, sampler, context.Allocator)
		return nil
	})
}
