package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/olivercrane/vasari/engine/core"
	gomath "github.com/olivercrane/vasari/engine/math"
	"github.com/olivercrane/vasari/engine/platform"
	"github.com/olivercrane/vasari/engine/renderer"
)

// ShaderLoader hands the backend compiled SPIR-V by file name. The asset
// manager implements it.
type ShaderLoader interface {
	ShaderModule(name string) ([]byte, error)
}

// The pipeline variants the backend builds at startup. Material.Shader
// names one of these.
var shaderNames = []string{"flat_color", "interp_color", "lit", "textured_lit"}

// Options selects the presentation policy and whether the validation
// layers are loaded.
type Options struct {
	Debug        bool
	VSync        bool
	TripleBuffer bool
}

type VulkanRenderer struct {
	platform *platform.Platform
	shaders  ShaderLoader
	context  *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	options Options

	descriptors *VulkanDescriptorManager
	upload      *VulkanUploadContext
	frames      [renderer.MaxFramesInFlight]*VulkanFrameContext
	sampler     vk.Sampler

	pipelines    map[string]*VulkanPipeline
	meshBuffers  map[string]*AllocatedBuffer
	textures     map[string]*VulkanImage
	materialSets map[string]vk.DescriptorSet

	// Pipeline bound by the last BindMaterial, needed for push constants.
	boundPipeline *VulkanPipeline
}

func New(p *platform.Platform, shaders ShaderLoader, options Options) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		shaders:  shaders,
		context: &VulkanContext{
			FramebufferWidth:  0,
			FramebufferHeight: 0,
			Allocator:         nil,
			Deleters:          NewDeletionQueues(),
		},
		options:      options,
		pipelines:    make(map[string]*VulkanPipeline),
		meshBuffers:  make(map[string]*AllocatedBuffer),
		textures:     make(map[string]*VulkanImage),
		materialSets: make(map[string]vk.DescriptorSet),
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Vasari Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if vr.options.Debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := range requiredExtensions {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers, debug builds only.
	requiredValidationLayerNames := []string{}
	if vr.options.Debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= vk.InstanceCreateFlags(0x00000001)
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			err := fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			err := fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}

		// Verify all required layers are available.
		for _, required := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				if required == VulkanTrimString(availableLayers[j].LayerName[:]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", required)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan instance with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan instance created.")

	// Debugger
	if vr.options.Debug {
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

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed.")
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	vr.context.Device = &VulkanDevice{}
	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	// Swapchain
	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight, vr.options.VSync, vr.options.TripleBuffer)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(
		vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.2, 1.0,
		1.0,
		0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	// Swapchain framebuffers.
	vr.context.Swapchain.Framebuffers = make([]*VulkanFramebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(vr.context.Swapchain, vr.context.MainRenderpass); err != nil {
		return err
	}

	// Descriptors, upload machinery and the frame slots.
	descriptors, err := NewDescriptorManager(vr.context)
	if err != nil {
		return err
	}
	vr.descriptors = descriptors

	upload, err := NewUploadContext(vr.context)
	if err != nil {
		return err
	}
	vr.upload = upload

	for i := range vr.frames {
		frame, err := NewFrameContext(vr.context, vr.descriptors)
		if err != nil {
			return err
		}
		vr.frames[i] = frame
	}

	sampler, err := CreateSampler(vr.context)
	if err != nil {
		return err
	}
	vr.sampler = sampler
	vr.context.Deleters.PushObject(func() {
		vk.DestroySampler(vr.context.Device.LogicalDevice, vr.sampler, vr.context.Allocator)
	})

	if err := vr.createPipelines(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

// createPipelines builds the four variants off one shared builder. The
// builder is a value, so each variant copies it and only swaps what
// differs.
func (vr *VulkanRenderer) createPipelines() error {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}

	base := NewPipelineBuilder(viewport, scissor)
	base.VertexBindings = []vk.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    uint32(unsafe.Sizeof(gomath.Vertex3D{})),
			InputRate: vk.VertexInputRateVertex,
		},
	}
	base.VertexAttributes = []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(gomath.Vertex3D{}.Position))},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(gomath.Vertex3D{}.Normal))},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(gomath.Vertex3D{}.Colour))},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(gomath.Vertex3D{}.Texcoord))},
	}
	base.PushConstantRanges = []vk.PushConstantRange{
		{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       uint32(unsafe.Sizeof(gomath.Mat4{})),
		},
	}
	base.DescriptorSetLayouts = []vk.DescriptorSetLayout{
		vr.descriptors.GlobalLayout,
		vr.descriptors.ObjectLayout,
	}

	for _, name := range shaderNames {
		builder := base
		if name == "textured_lit" {
			builder.DescriptorSetLayouts = append(
				append([]vk.DescriptorSetLayout{}, base.DescriptorSetLayouts...),
				vr.descriptors.TextureLayout)
		}

		vertCode, err := vr.shaders.ShaderModule(name + ".vert.spv")
		if err != nil {
			return err
		}
		fragCode, err := vr.shaders.ShaderModule(name + ".frag.spv")
		if err != nil {
			return err
		}

		vertStage, err := NewShaderStage(vr.context, name+".vert", vertCode, vk.ShaderStageVertexBit)
		if err != nil {
			return err
		}
		fragStage, err := NewShaderStage(vr.context, name+".frag", fragCode, vk.ShaderStageFragmentBit)
		if err != nil {
			vertStage.Destroy(vr.context)
			return err
		}

		builder.ShaderStages = []vk.PipelineShaderStageCreateInfo{
			vertStage.ShaderStageCreateInfo,
			fragStage.ShaderStageCreateInfo,
		}

		pipeline, err := builder.Build(vr.context, vr.context.MainRenderpass.Handle)

		// Modules are owned by the pipeline once linked, drop them either way.
		vertStage.Destroy(vr.context)
		fragStage.Destroy(vr.context)

		if err != nil {
			return err
		}
		vr.pipelines[name] = pipeline
	}

	core.LogInfo("Built %d graphics pipelines.", len(vr.pipelines))
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		core.LogWarn("device wait idle during shutdown returned %s", VulkanResultString(res))
	}

	// Destroy in the opposite order of creation.
	for name, pipeline := range vr.pipelines {
		pipeline.Destroy(vr.context)
		delete(vr.pipelines, name)
	}

	for i := range vr.frames {
		if vr.frames[i] != nil {
			vr.frames[i].Destroy(vr.context)
			vr.frames[i] = nil
		}
	}

	if vr.upload != nil {
		vr.upload.Destroy(vr.context)
		vr.upload = nil
	}

	// Mesh buffers, texture images and the sampler were queued at
	// creation time; the device is idle, so flush them now.
	vr.context.Deleters.Flush(vr.context)

	if vr.descriptors != nil {
		vr.descriptors.Destroy(vr.context)
		vr.descriptors = nil
	}

	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
	}

	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.options.Debug {
		core.LogDebug("Destroying Vulkan debugger...")
		if vr.context.debugMessenger != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		}
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)

	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	// Bump the framebuffer size generation; the next BeginFrame notices
	// the mismatch and rebuilds the swapchain.
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
	return nil
}

func (vr *VulkanRenderer) BeginFrame(packet *renderer.RenderPacket) error {
	device := vr.context.Device

	// Check if recreating swap chain and boot out.
	if vr.context.RecreatingSwapchain {
		result := vk.DeviceWaitIdle(device.LogicalDevice)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("BeginFrame vkDeviceWaitIdle (1) failed: '%s'", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	// Check if the framebuffer has been resized. If so, a new swapchain
	// must be created before any more frames render.
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		result := vk.DeviceWaitIdle(device.LogicalDevice)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("BeginFrame vkDeviceWaitIdle (2) failed: '%s'", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}

		if err := vr.recreateSwapchain(); err != nil {
			if err != core.ErrSwapchainBooting {
				core.LogError("failed to recreate the swapchain: %s", err)
			}
			return err
		}

		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	frame := vr.frames[vr.context.CurrentFrame]

	// Wait for the execution of this slot's previous frame to complete.
	if err := frame.RenderFence.FenceWait(vr.context, frameFenceTimeout); err != nil {
		core.LogError("in-flight fence wait failure: %s", err)
		return err
	}

	// Acquire the next image from the swap chain. The present semaphore
	// signals when the image is actually available, and the queue submit
	// waits on it.
	imageIndex, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, acquireImageTimeout, frame.PresentSemaphore, vk.NullFence)
	if err != nil {
		return err
	}
	vr.context.ImageIndex = imageIndex

	// Only reset the fence once this frame is actually going to submit.
	if err := frame.RenderFence.FenceReset(vr.context); err != nil {
		return err
	}

	// Begin recording commands.
	commandBuffer := frame.CommandBuffer
	if err := commandBuffer.Reset(); err != nil {
		return err
	}
	if err := commandBuffer.Begin(true, false, false); err != nil {
		return err
	}

	// Dynamic state
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{
			Width:  vr.context.FramebufferWidth,
			Height: vr.context.FramebufferHeight,
		},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.SetRenderArea(0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight))
	vr.context.MainRenderpass.SetClearColor(packet.ClearColor.X, packet.ClearColor.Y, packet.ClearColor.Z, packet.ClearColor.W)

	// Begin the render pass.
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[vr.context.ImageIndex].Handle)

	vr.boundPipeline = nil
	return nil
}

func (vr *VulkanRenderer) EndFrame(packet *renderer.RenderPacket) error {
	frame := vr.frames[vr.context.CurrentFrame]
	commandBuffer := frame.CommandBuffer

	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return err
	}

	// VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT prevents colour
	// attachment writes from executing until the acquired image is
	// actually available.
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.RenderSemaphore},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{frame.PresentSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}

	if result := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.RenderFence.Handle); result != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed with result: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()

	// Give the image back to the swapchain. A boot here is not an error
	// for this frame, its work was already submitted; the next BeginFrame
	// picks up the recreation.
	if err := vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		frame.RenderSemaphore,
		vr.context.ImageIndex); err != nil {
		if err == core.ErrSwapchainBooting {
			core.LogInfo("Present reported an out-of-date swapchain, recreation scheduled.")
			return nil
		}
		return err
	}

	return nil
}

func (vr *VulkanRenderer) UpdateGlobalState(camera renderer.CameraData, scene renderer.SceneData) error {
	return vr.descriptors.WriteGlobalData(vr.context, vr.context.CurrentFrame, &camera, &scene)
}

func (vr *VulkanRenderer) UpdateObjectData(objects []renderer.ObjectData) error {
	return vr.frames[vr.context.CurrentFrame].WriteObjectData(vr.context, objects)
}

func (vr *VulkanRenderer) BindMaterial(material *renderer.Material) error {
	pipeline, ok := vr.pipelines[material.Shader]
	if !ok {
		return fmt.Errorf("material %q references unknown shader %q", material.Name, material.Shader)
	}

	frame := vr.frames[vr.context.CurrentFrame]
	commandBuffer := frame.CommandBuffer

	pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)

	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{vr.descriptors.GlobalSet},
		2, vr.descriptors.DynamicOffsets(vr.context.CurrentFrame))

	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout,
		1, 1, []vk.DescriptorSet{frame.ObjectSet},
		0, nil)

	if material.Textured() {
		set, ok := vr.materialSets[material.Name]
		if !ok {
			return fmt.Errorf("material %q was never registered with the backend", material.Name)
		}
		vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout,
			2, 1, []vk.DescriptorSet{set},
			0, nil)
	}

	vr.boundPipeline = pipeline
	return nil
}

func (vr *VulkanRenderer) BindMesh(mesh *renderer.Mesh) error {
	buffer, ok := vr.meshBuffers[mesh.Name]
	if !ok {
		return fmt.Errorf("mesh %q was never uploaded", mesh.Name)
	}
	commandBuffer := vr.frames[vr.context.CurrentFrame].CommandBuffer
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{buffer.Handle}, []vk.DeviceSize{0})
	return nil
}

func (vr *VulkanRenderer) PushModel(model gomath.Mat4) error {
	if vr.boundPipeline == nil {
		return fmt.Errorf("push constant recorded with no material bound")
	}
	commandBuffer := vr.frames[vr.context.CurrentFrame].CommandBuffer
	vk.CmdPushConstants(commandBuffer.Handle, vr.boundPipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0,
		uint32(unsafe.Sizeof(model)), unsafe.Pointer(&model.Data[0]))
	return nil
}

func (vr *VulkanRenderer) Draw(vertexCount, firstInstance uint32) error {
	commandBuffer := vr.frames[vr.context.CurrentFrame].CommandBuffer
	vk.CmdDraw(commandBuffer.Handle, vertexCount, 1, 0, firstInstance)
	return nil
}

func (vr *VulkanRenderer) CreateMesh(mesh *renderer.Mesh) error {
	if _, exists := vr.meshBuffers[mesh.Name]; exists {
		return fmt.Errorf("mesh %q already uploaded", mesh.Name)
	}
	buffer, err := vr.upload.UploadMesh(vr.context, mesh.Vertices)
	if err != nil {
		return err
	}
	vr.meshBuffers[mesh.Name] = buffer
	vr.context.Deleters.PushBuffer(buffer)
	core.LogDebug("Uploaded mesh %q (%d vertices).", mesh.Name, len(mesh.Vertices))
	return nil
}

func (vr *VulkanRenderer) CreateTexture(name string, pixels []byte, width, height uint32) error {
	if _, exists := vr.textures[name]; exists {
		return fmt.Errorf("texture %q already uploaded", name)
	}
	image, err := vr.upload.UploadTexture(vr.context, pixels, width, height)
	if err != nil {
		return err
	}
	vr.textures[name] = image
	vr.context.Deleters.PushImage(image)
	core.LogDebug("Uploaded texture %q (%dx%d).", name, width, height)
	return nil
}

func (vr *VulkanRenderer) CreateMaterial(material *renderer.Material) error {
	if _, ok := vr.pipelines[material.Shader]; !ok {
		return fmt.Errorf("material %q references unknown shader %q", material.Name, material.Shader)
	}
	if !material.Textured() {
		return nil
	}

	image, ok := vr.textures[material.Texture]
	if !ok {
		return fmt.Errorf("material %q references unknown texture %q", material.Name, material.Texture)
	}
	set, err := vr.descriptors.AllocateTextureSet(vr.context, image.View, vr.sampler)
	if err != nil {
		return err
	}
	vr.materialSets[material.Name] = set
	return nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("device wait idle failed: %s", VulkanResultString(res))
	}
	return nil
}

func (vr *VulkanRenderer) regenerateFramebuffers(swapchain *VulkanSwapchain, renderpass *VulkanRenderpass) error {
	for i := 0; i < int(swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, renderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

// recreateExtent picks the size for a swapchain rebuild. A size cached by a
// resize callback wins; an out of date acquire or present bumps the
// generation without one, and then the surface keeps its current dimensions.
func recreateExtent(cachedWidth, cachedHeight, currentWidth, currentHeight uint32) (uint32, uint32) {
	if cachedWidth == 0 || cachedHeight == 0 {
		return currentWidth, currentHeight
	}
	return cachedWidth, cachedHeight
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	// If already being recreated, do not try again.
	if vr.context.RecreatingSwapchain {
		return fmt.Errorf("recreateSwapchain called while already recreating")
	}

	width, height := recreateExtent(
		vr.cachedFramebufferWidth, vr.cachedFramebufferHeight,
		vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if width == 0 || height == 0 {
		// A minimized window reports zero size; stay booted until it
		// comes back.
		return core.ErrSwapchainBooting
	}

	vr.context.RecreatingSwapchain = true
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Framebuffers go before the swapchain images they view.
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
	}

	DeviceDetectDepthFormat(vr.context.Device)

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, width, height)
	if err != nil {
		vr.context.RecreatingSwapchain = false
		return err
	}
	vr.context.Swapchain = sc

	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	vr.context.MainRenderpass.SetRenderArea(0, 0, float32(width), float32(height))
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0

	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	vr.context.Swapchain.Framebuffers = make([]*VulkanFramebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(vr.context.Swapchain, vr.context.MainRenderpass); err != nil {
		vr.context.RecreatingSwapchain = false
		return err
	}

	// Clear the recreating flag.
	vr.context.RecreatingSwapchain = false
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
