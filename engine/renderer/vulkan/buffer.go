package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/emberglow/ember/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

// NewStagingBuffer creates a host-visible buffer and copies data into it.
// Used as the transfer source for pixel uploads.
func NewStagingBuffer(context *VulkanContext, data []uint8) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))

	buffer := &VulkanBuffer{Size: size}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create staging buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(
		memReqs.MemoryTypeBits,
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if memoryIndex < 0 {
		buffer.Destroy(context)
		return nil, fmt.Errorf("no host-visible memory type for staging buffer")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &buffer.Memory); res != vk.Success {
		buffer.Destroy(context)
		if VulkanResultIsOOM(res) {
			return nil, fmt.Errorf("staging buffer allocation: %s: %w", VulkanResultString(res), core.ErrResourceExhaustion)
		}
		return nil, fmt.Errorf("failed to allocate staging memory: %s", VulkanResultString(res))
	}

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, fmt.Errorf("failed to bind staging memory: %s", VulkanResultString(res))
	}

	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &pData); res != vk.Success {
		buffer.Destroy(context)
		return nil, fmt.Errorf("failed to map staging memory: %s", VulkanResultString(res))
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, buffer.Memory)

	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
}
