package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/renderer"
)

/**
 * @brief Owns the descriptor pool, the set layouts and the global uniform
 * buffer. The layout is fixed: set 0 carries the camera and scene data as
 * dynamic uniforms, set 1 the per-object storage buffer, set 2 a combined
 * image sampler per textured material.
 */
type VulkanDescriptorManager struct {
	Pool vk.DescriptorPool

	// Separate pool reserved for the UI overlay, created with the
	// free-descriptor-set flag so an overlay can churn its sets without
	// touching the static scene pool.
	OverlayPool vk.DescriptorPool

	GlobalLayout  vk.DescriptorSetLayout
	ObjectLayout  vk.DescriptorSetLayout
	TextureLayout vk.DescriptorSetLayout

	// One buffer backing both dynamic uniforms: the padded camera copies
	// for every frame slot, then the padded scene copies.
	GlobalBuffer *AllocatedBuffer
	GlobalSet    vk.DescriptorSet

	minAlignment vk.DeviceSize
}

var (
	cameraDataSize = vk.DeviceSize(unsafe.Sizeof(renderer.CameraData{}))
	sceneDataSize  = vk.DeviceSize(unsafe.Sizeof(renderer.SceneData{}))
	objectDataSize = vk.DeviceSize(unsafe.Sizeof(renderer.ObjectData{}))
)

// padUniformBufferSize rounds size up to the device's minimum uniform
// buffer offset alignment. Alignments are powers of two, so a bitmask
// does it.
func padUniformBufferSize(size, minAlignment vk.DeviceSize) vk.DeviceSize {
	if minAlignment == 0 {
		return size
	}
	return (size + minAlignment - 1) &^ (minAlignment - 1)
}

// cameraOffset is the byte offset of frame slot f's camera data inside the
// global buffer.
func cameraOffset(frame uint32, minAlignment vk.DeviceSize) vk.DeviceSize {
	return padUniformBufferSize(cameraDataSize, minAlignment) * vk.DeviceSize(frame)
}

// sceneOffset is the byte offset of frame slot f's scene data. Scene copies
// live after all camera copies.
func sceneOffset(frame uint32, minAlignment vk.DeviceSize) vk.DeviceSize {
	base := padUniformBufferSize(cameraDataSize, minAlignment) * vk.DeviceSize(renderer.MaxFramesInFlight)
	return base + padUniformBufferSize(sceneDataSize, minAlignment)*vk.DeviceSize(frame)
}

// globalBufferSize covers every camera and scene copy.
func globalBufferSize(minAlignment vk.DeviceSize) vk.DeviceSize {
	return padUniformBufferSize(cameraDataSize, minAlignment)*vk.DeviceSize(renderer.MaxFramesInFlight) +
		padUniformBufferSize(sceneDataSize, minAlignment)*vk.DeviceSize(renderer.MaxFramesInFlight)
}

func NewDescriptorManager(context *VulkanContext) (*VulkanDescriptorManager, error) {
	dm := &VulkanDescriptorManager{
		minAlignment: context.Device.MinUniformBufferOffsetAlignment(),
	}

	// Set 0: camera at binding 0 (vertex), scene at binding 1
	// (vertex+fragment), both dynamic so one set serves every frame slot.
	globalBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	globalLayout, err := createSetLayout(context, globalBindings)
	if err != nil {
		return nil, err
	}
	dm.GlobalLayout = globalLayout

	// Set 1: per-object storage buffer, read in the vertex stage.
	objectBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}
	objectLayout, err := createSetLayout(context, objectBindings)
	if err != nil {
		dm.Destroy(context)
		return nil, err
	}
	dm.ObjectLayout = objectLayout

	// Set 2: one combined image sampler per textured material.
	textureBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	textureLayout, err := createSetLayout(context, textureBindings)
	if err != nil {
		dm.Destroy(context)
		return nil, err
	}
	dm.TextureLayout = textureLayout

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: descriptorPoolCountPerType},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorPoolCountPerType},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolCountPerType},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       descriptorPoolMaxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		dm.Destroy(context)
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	dm.Pool = pool

	overlayPoolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolCountPerType},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolCountPerType},
	}
	overlayPoolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descriptorPoolMaxSets,
		PoolSizeCount: uint32(len(overlayPoolSizes)),
		PPoolSizes:    overlayPoolSizes,
	}
	var overlayPool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &overlayPoolInfo, context.Allocator, &overlayPool); res != vk.Success {
		dm.Destroy(context)
		err := fmt.Errorf("failed to create overlay descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	dm.OverlayPool = overlayPool

	// Global uniform buffer, host visible so frame updates are a map and
	// a copy.
	globalBuffer, err := BufferCreate(context, globalBufferSize(dm.minAlignment),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		dm.Destroy(context)
		return nil, err
	}
	dm.GlobalBuffer = globalBuffer

	globalSet, err := dm.allocateSet(context, dm.GlobalLayout)
	if err != nil {
		dm.Destroy(context)
		return nil, err
	}
	dm.GlobalSet = globalSet

	// Point both bindings at the buffer. The range is one element, the
	// dynamic offset picks the frame slot.
	cameraInfo := vk.DescriptorBufferInfo{
		Buffer: dm.GlobalBuffer.Handle,
		Offset: 0,
		Range:  cameraDataSize,
	}
	sceneInfo := vk.DescriptorBufferInfo{
		Buffer: dm.GlobalBuffer.Handle,
		Offset: sceneOffset(0, dm.minAlignment),
		Range:  sceneDataSize,
	}
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          dm.GlobalSet,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo:     []vk.DescriptorBufferInfo{cameraInfo},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          dm.GlobalSet,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo:     []vk.DescriptorBufferInfo{sceneInfo},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)

	return dm, nil
}

// DynamicOffsets returns the two offsets for a frame slot, in binding order.
func (dm *VulkanDescriptorManager) DynamicOffsets(frame uint32) []uint32 {
	return []uint32{
		uint32(cameraOffset(frame, dm.minAlignment)),
		uint32(sceneOffset(frame, dm.minAlignment) - sceneOffset(0, dm.minAlignment)),
	}
}

// WriteGlobalData copies the camera and scene structs into the frame slot's
// regions of the global buffer.
func (dm *VulkanDescriptorManager) WriteGlobalData(context *VulkanContext, frame uint32, camera *renderer.CameraData, scene *renderer.SceneData) error {
	if err := BufferLoadData(context, dm.GlobalBuffer, cameraOffset(frame, dm.minAlignment), cameraDataSize, 0,
		rawBytes(unsafe.Pointer(camera), unsafe.Sizeof(*camera))); err != nil {
		return err
	}
	return BufferLoadData(context, dm.GlobalBuffer, sceneOffset(frame, dm.minAlignment), sceneDataSize, 0,
		rawBytes(unsafe.Pointer(scene), unsafe.Sizeof(*scene)))
}

// AllocateObjectSet allocates a set 1 instance and points it at the frame's
// object storage buffer.
func (dm *VulkanDescriptorManager) AllocateObjectSet(context *VulkanContext, objectBuffer *AllocatedBuffer) (vk.DescriptorSet, error) {
	set, err := dm.allocateSet(context, dm.ObjectLayout)
	if err != nil {
		return nil, err
	}

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: objectBuffer.Handle,
		Offset: 0,
		Range:  objectDataSize * vk.DeviceSize(renderer.MaxObjectCount),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)

	return set, nil
}

// AllocateTextureSet allocates a set 2 instance for a material and writes
// its sampler once. Texture contents never change after upload, so the set
// is never rewritten.
func (dm *VulkanDescriptorManager) AllocateTextureSet(context *VulkanContext, view vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error) {
	set, err := dm.allocateSet(context, dm.TextureLayout)
	if err != nil {
		return nil, err
	}

	imageInfo := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)

	return set, nil
}

func (dm *VulkanDescriptorManager) allocateSet(context *VulkanContext, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     dm.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return sets[0], nil
}

func (dm *VulkanDescriptorManager) Destroy(context *VulkanContext) {
	if dm.GlobalBuffer != nil {
		BufferDestroy(context, dm.GlobalBuffer)
		dm.GlobalBuffer = nil
	}
	if dm.OverlayPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, dm.OverlayPool, context.Allocator)
		dm.OverlayPool = vk.NullDescriptorPool
	}
	// Sets go with the pool.
	if dm.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, dm.Pool, context.Allocator)
		dm.Pool = vk.NullDescriptorPool
	}
	if dm.TextureLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, dm.TextureLayout, context.Allocator)
		dm.TextureLayout = vk.NullDescriptorSetLayout
	}
	if dm.ObjectLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, dm.ObjectLayout, context.Allocator)
		dm.ObjectLayout = vk.NullDescriptorSetLayout
	}
	if dm.GlobalLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, dm.GlobalLayout, context.Allocator)
		dm.GlobalLayout = vk.NullDescriptorSetLayout
	}
}

func createSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}
