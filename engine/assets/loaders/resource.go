package loaders

import (
	"github.com/google/uuid"
)

// Resource is the result of a loader run. Data holds the loader's typed
// payload (ImageData, ModelData, or raw []byte for shader binaries).
type Resource struct {
	ID       uuid.UUID
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

// ImageData is a decoded image, always RGBA8 regardless of source format.
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

func newResource(name, path string, size uint64, data interface{}) *Resource {
	return &Resource{
		ID:       uuid.New(),
		Name:     name,
		FullPath: path,
		DataSize: size,
		Data:     data,
	}
}
