package vulkan

import "time"

// Bounded waits. A frame fence that stays unsignaled for a full second means
// the GPU is wedged; uploads get longer since they move whole assets.
const (
	frameFenceTimeout   = uint64(time.Second)
	acquireImageTimeout = uint64(time.Second)
	uploadFenceTimeout  = uint64(10 * time.Second)
)

// Descriptor pool sizing. Set counts are small and static in this renderer,
// so the pool is simply sized generously.
const (
	descriptorPoolMaxSets      uint32 = 10
	descriptorPoolCountPerType uint32 = 10
)
