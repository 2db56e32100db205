package vulkan

import (
	"testing"
)

func TestDeletionFlushRunsObjectsInReverseOrder(t *testing.T) {
	queues := NewDeletionQueues()

	var order []int
	for i := 0; i < 4; i++ {
		i := i
		queues.PushObject(func() { order = append(order, i) })
	}

	queues.Flush(&VulkanContext{})

	want := []int{3, 2, 1, 0}
	if len(order) != len(want) {
		t.Fatalf("expected %d deleters to run, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("deleter order at %d: got %d, want %d", i, order[i], want[i])
		}
	}
}

func TestDeletionFlushIsIdempotent(t *testing.T) {
	queues := NewDeletionQueues()

	calls := 0
	queues.PushObject(func() { calls++ })
	queues.PushBuffer(&AllocatedBuffer{})
	queues.PushImage(&VulkanImage{})

	context := &VulkanContext{}
	queues.Flush(context)
	if calls != 1 {
		t.Fatalf("expected 1 deleter call after first flush, got %d", calls)
	}
	if len(queues.buffers) != 0 || len(queues.images) != 0 || len(queues.objects) != 0 {
		t.Fatalf("queues not drained after flush")
	}

	// A second flush must not run anything again.
	queues.Flush(context)
	if calls != 1 {
		t.Fatalf("expected deleters to run once, got %d calls", calls)
	}
}

func TestDeletionFlushDrainsBuffersAndImages(t *testing.T) {
	queues := NewDeletionQueues()

	// Zero-valued buffers and images carry null handles, so destroying
	// them touches no device.
	for i := 0; i < 3; i++ {
		queues.PushBuffer(&AllocatedBuffer{})
		queues.PushImage(&VulkanImage{})
	}

	queues.Flush(&VulkanContext{})

	if len(queues.buffers) != 0 {
		t.Fatalf("buffer queue not empty: %d left", len(queues.buffers))
	}
	if len(queues.images) != 0 {
		t.Fatalf("image queue not empty: %d left", len(queues.images))
	}
}
