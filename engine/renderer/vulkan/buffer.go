package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/olivercrane/vasari/engine/core"
)

/**
 * @brief A buffer together with the device memory backing it. Creation and
 * destruction always go through BufferCreate/BufferDestroy so ownership of
 * the memory is never split from the handle.
 */
type AllocatedBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	// Total size of the allocation in bytes.
	TotalSize vk.DeviceSize
	Usage     vk.BufferUsageFlags
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryPropertyFlags vk.MemoryPropertyFlags) (*AllocatedBuffer, error) {
	buffer := &AllocatedBuffer{
		TotalSize: size,
		Usage:     usage,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer of size %d: %s", size, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(memoryPropertyFlags))
	if memoryIndex == -1 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, nil)
		err := fmt.Errorf("unable to create buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, nil, &memory); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, nil)
		err := fmt.Errorf("unable to allocate %d bytes of buffer memory: %s", requirements.Size, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		vk.FreeMemory(context.Device.LogicalDevice, buffer.Memory, nil)
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, nil)
		err := fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return buffer, nil
}

func BufferDestroy(context *VulkanContext, buffer *AllocatedBuffer) {
	if buffer == nil {
		return
	}
	if buffer.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, buffer.Memory, nil)
		buffer.Memory = vk.NullDeviceMemory
	}
	if buffer.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, nil)
		buffer.Handle = vk.NullBuffer
	}
	buffer.TotalSize = 0
}

// BufferLoadData maps the buffer memory, copies data into it at the given
// offset and unmaps again. Only valid for host-visible buffers.
func BufferLoadData(context *VulkanContext, buffer *AllocatedBuffer, offset, size vk.DeviceSize, flags vk.MemoryMapFlags, data []byte) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, offset, size, flags, &ptr); res != vk.Success {
		err := fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(context.Device.LogicalDevice, buffer.Memory)
	return nil
}

// BufferCopyTo records a region copy between two buffers into cmd. The
// caller owns submission and synchronization.
func BufferCopyTo(cmd vk.CommandBuffer, source vk.Buffer, sourceOffset vk.DeviceSize, dest vk.Buffer, destOffset, size vk.DeviceSize) {
	copyRegion := vk.BufferCopy{
		SrcOffset: sourceOffset,
		DstOffset: destOffset,
		Size:      size,
	}
	vk.CmdCopyBuffer(cmd, source, dest, 1, []vk.BufferCopy{copyRegion})
}
