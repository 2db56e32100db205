package vulkan

/**
 * @brief Queues for GPU objects whose destruction is deferred until the
 * device is known to be idle. Buffers and images keep their own typed
 * lists, everything else goes in as a closure. Per-frame resources do not
 * belong here, those are owned and destroyed by their frame context.
 */
type DeletionQueues struct {
	buffers []*AllocatedBuffer
	images  []*VulkanImage
	objects []func()
}

func NewDeletionQueues() *DeletionQueues {
	return &DeletionQueues{}
}

func (d *DeletionQueues) PushBuffer(buffer *AllocatedBuffer) {
	d.buffers = append(d.buffers, buffer)
}

func (d *DeletionQueues) PushImage(image *VulkanImage) {
	d.images = append(d.images, image)
}

func (d *DeletionQueues) PushObject(deleter func()) {
	d.objects = append(d.objects, deleter)
}

// Flush destroys everything queued, in reverse insertion order within each
// list. Buffers go first, then images, then the generic objects. Calling
// Flush on already-drained queues does nothing.
func (d *DeletionQueues) Flush(context *VulkanContext) {
	for i := len(d.buffers) - 1; i >= 0; i-- {
		BufferDestroy(context, d.buffers[i])
	}
	d.buffers = d.buffers[:0]

	for i := len(d.images) - 1; i >= 0; i-- {
		ImageDestroy(context, d.images[i])
	}
	d.images = d.images[:0]

	for i := len(d.objects) - 1; i >= 0; i-- {
		d.objects[i]()
	}
	d.objects = d.objects[:0]
}
