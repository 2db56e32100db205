package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/renderer"
)

/**
 * @brief Everything one in-flight frame slot owns: its sync objects, its
 * command recording state and its per-object storage. Two of these rotate
 * so the CPU can record frame N+1 while the GPU works on frame N.
 */
type VulkanFrameContext struct {
	// Signaled when the swapchain image is ready to be rendered to.
	PresentSemaphore vk.Semaphore
	// Signaled when the frame's commands finish on the GPU.
	RenderSemaphore vk.Semaphore
	// Created signaled so the first wait on this slot passes.
	RenderFence *VulkanFence

	CommandPool   vk.CommandPool
	CommandBuffer *VulkanCommandBuffer

	// Host-visible storage for the frame's object matrices, plus the
	// descriptor set pointing at it.
	ObjectBuffer *AllocatedBuffer
	ObjectSet    vk.DescriptorSet
}

func NewFrameContext(context *VulkanContext, descriptors *VulkanDescriptorManager) (*VulkanFrameContext, error) {
	frame := &VulkanFrameContext{}

	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var present, render vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, &present); res != vk.Success {
		err := fmt.Errorf("failed to create present semaphore: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	frame.PresentSemaphore = present

	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, &render); res != vk.Success {
		frame.Destroy(context)
		err := fmt.Errorf("failed to create render semaphore: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	frame.RenderSemaphore = render

	fence, err := NewFence(context, true)
	if err != nil {
		frame.Destroy(context)
		return nil, err
	}
	frame.RenderFence = fence

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		frame.Destroy(context)
		err := fmt.Errorf("failed to create frame command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	frame.CommandPool = pool

	commandBuffer, err := NewVulkanCommandBuffer(context, frame.CommandPool, true)
	if err != nil {
		frame.Destroy(context)
		return nil, err
	}
	frame.CommandBuffer = commandBuffer

	objectBuffer, err := BufferCreate(context,
		objectDataSize*vk.DeviceSize(renderer.MaxObjectCount),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		frame.Destroy(context)
		return nil, err
	}
	frame.ObjectBuffer = objectBuffer

	objectSet, err := descriptors.AllocateObjectSet(context, frame.ObjectBuffer)
	if err != nil {
		frame.Destroy(context)
		return nil, err
	}
	frame.ObjectSet = objectSet

	return frame, nil
}

// WriteObjectData copies the whole object table for this frame into the
// storage buffer.
func (f *VulkanFrameContext) WriteObjectData(context *VulkanContext, objects []renderer.ObjectData) error {
	if len(objects) == 0 {
		return nil
	}
	if len(objects) > renderer.MaxObjectCount {
		return fmt.Errorf("object count %d exceeds storage capacity %d", len(objects), renderer.MaxObjectCount)
	}
	data := rawBytes(unsafe.Pointer(&objects[0]), uintptr(len(objects))*unsafe.Sizeof(objects[0]))
	return BufferLoadData(context, f.ObjectBuffer, 0, vk.DeviceSize(len(data)), 0, data)
}

// Destroy releases the slot's resources in reverse creation order. The set
// itself goes back with the pool.
func (f *VulkanFrameContext) Destroy(context *VulkanContext) {
	if f.ObjectBuffer != nil {
		BufferDestroy(context, f.ObjectBuffer)
		f.ObjectBuffer = nil
	}
	if f.CommandBuffer != nil {
		f.CommandBuffer.Free(context, f.CommandPool)
		f.CommandBuffer = nil
	}
	if f.CommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(context.Device.LogicalDevice, f.CommandPool, context.Allocator)
		f.CommandPool = vk.NullCommandPool
	}
	if f.RenderFence != nil {
		f.RenderFence.FenceDestroy(context)
		f.RenderFence = nil
	}
	if f.RenderSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, f.RenderSemaphore, context.Allocator)
		f.RenderSemaphore = vk.NullSemaphore
	}
	if f.PresentSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, f.PresentSemaphore, context.Allocator)
		f.PresentSemaphore = vk.NullSemaphore
	}
}
