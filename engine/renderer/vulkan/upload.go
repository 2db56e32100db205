package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/olivercrane/vasari/engine/core"
	gomath "github.com/olivercrane/vasari/engine/math"
)

/**
 * @brief A command pool, buffer and fence dedicated to blocking uploads,
 * kept apart from the frame pools so an asset load never trips over frame
 * recording.
 */
type VulkanUploadContext struct {
	CommandPool   vk.CommandPool
	CommandBuffer *VulkanCommandBuffer
	Fence         *VulkanFence
}

func NewUploadContext(context *VulkanContext) (*VulkanUploadContext, error) {
	upload := &VulkanUploadContext{}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create upload command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	upload.CommandPool = pool

	commandBuffer, err := NewVulkanCommandBuffer(context, upload.CommandPool, true)
	if err != nil {
		upload.Destroy(context)
		return nil, err
	}
	upload.CommandBuffer = commandBuffer

	// Unsignaled, the first wait happens after the first submit.
	fence, err := NewFence(context, false)
	if err != nil {
		upload.Destroy(context)
		return nil, err
	}
	upload.Fence = fence

	return upload, nil
}

// ImmediateSubmit records the closure into the upload command buffer,
// submits it to the graphics queue and blocks until the GPU finishes.
// Startup loading is the only caller, so fully synchronous is fine.
func (u *VulkanUploadContext) ImmediateSubmit(context *VulkanContext, record func(cmd vk.CommandBuffer) error) error {
	if err := u.CommandBuffer.Begin(true, false, false); err != nil {
		return err
	}

	if err := record(u.CommandBuffer.Handle); err != nil {
		return err
	}

	if err := u.CommandBuffer.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{u.CommandBuffer.Handle},
	}
	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, u.Fence.Handle); res != vk.Success {
		err := fmt.Errorf("failed to submit upload commands: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	u.CommandBuffer.UpdateSubmitted()

	if err := u.Fence.FenceWait(context, uploadFenceTimeout); err != nil {
		return fmt.Errorf("upload did not complete: %w", err)
	}
	if err := u.Fence.FenceReset(context); err != nil {
		return err
	}

	if res := vk.ResetCommandPool(context.Device.LogicalDevice, u.CommandPool, 0); res != vk.Success {
		err := fmt.Errorf("failed to reset upload command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	u.CommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return nil
}

// UploadMesh moves vertex data into a device-local buffer through a
// host-visible staging buffer. The staging buffer is gone by the time this
// returns.
func (u *VulkanUploadContext) UploadMesh(context *VulkanContext, vertices []gomath.Vertex3D) (*AllocatedBuffer, error) {
	if len(vertices) == 0 {
		return nil, fmt.Errorf("cannot upload a mesh with no vertices")
	}

	size := vk.DeviceSize(uintptr(len(vertices)) * unsafe.Sizeof(vertices[0]))

	staging, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer BufferDestroy(context, staging)

	data := rawBytes(unsafe.Pointer(&vertices[0]), uintptr(size))
	if err := BufferLoadData(context, staging, 0, size, 0, data); err != nil {
		return nil, err
	}

	vertexBuffer, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := u.ImmediateSubmit(context, func(cmd vk.CommandBuffer) error {
		BufferCopyTo(cmd, staging.Handle, 0, vertexBuffer.Handle, 0, size)
		return nil
	}); err != nil {
		BufferDestroy(context, vertexBuffer)
		return nil, err
	}

	return vertexBuffer, nil
}

// UploadTexture moves RGBA8 pixels into a sampled, device-local image and
// leaves it in the shader-read-only layout.
func (u *VulkanUploadContext) UploadTexture(context *VulkanContext, pixels []byte, width, height uint32) (*VulkanImage, error) {
	expected := int(width) * int(height) * 4
	if len(pixels) != expected {
		return nil, fmt.Errorf("texture pixel buffer is %d bytes, want %d for %dx%d RGBA", len(pixels), expected, width, height)
	}

	size := vk.DeviceSize(len(pixels))
	staging, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer BufferDestroy(context, staging)

	if err := BufferLoadData(context, staging, 0, size, 0, pixels); err != nil {
		return nil, err
	}

	image, err := ImageCreate(context, vk.ImageType2d, width, height,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageSampledBit)|vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	if err := u.ImmediateSubmit(context, func(cmd vk.CommandBuffer) error {
		wrapper := &VulkanCommandBuffer{Handle: cmd, State: COMMAND_BUFFER_STATE_RECORDING}
		if err := image.TransitionLayout(wrapper, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		image.CopyFromBuffer(wrapper, staging.Handle)
		return image.TransitionLayout(wrapper, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	}); err != nil {
		ImageDestroy(context, image)
		return nil, err
	}

	return image, nil
}

// CreateSampler makes the nearest-filter sampler every textured material
// shares.
func CreateSampler(context *VulkanContext) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterNearest,
		MinFilter:    vk.FilterNearest,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		err := fmt.Errorf("failed to create sampler: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullSampler, err
	}
	return sampler, nil
}

func (u *VulkanUploadContext) Destroy(context *VulkanContext) {
	if u.Fence != nil {
		u.Fence.FenceDestroy(context)
		u.Fence = nil
	}
	if u.CommandBuffer != nil {
		u.CommandBuffer.Free(context, u.CommandPool)
		u.CommandBuffer = nil
	}
	if u.CommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(context.Device.LogicalDevice, u.CommandPool, context.Allocator)
		u.CommandPool = vk.NullCommandPool
	}
}
