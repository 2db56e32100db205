package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
)

// SPIR-V binaries open with this magic number in the module's endianness.
const spirvMagic = 0x07230203

type ShaderLoader struct{}

// Load reads a compiled SPIR-V binary and sanity-checks the header before
// the bytes ever reach vkCreateShaderModule.
func (sl *ShaderLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("shader %s: %d bytes is not a whole number of SPIR-V words", path, len(data))
	}
	if binary.LittleEndian.Uint32(data[:4]) != spirvMagic {
		return nil, fmt.Errorf("shader %s: missing SPIR-V magic number", path)
	}
	return newResource("shader", path, uint64(len(data)), data), nil
}

func (sl *ShaderLoader) Unload(*Resource) error {
	return nil
}
