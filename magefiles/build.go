//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderNames = []string{"flat_color", "interp_color", "lit", "textured_lit"}

// Compiles every GLSL shader pair under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

func buildShaders() error {
	dir := filepath.Join("assets", "shaders")
	for _, name := range shaderNames {
		for _, stage := range []string{"vert", "frag"} {
			src := filepath.Join(dir, fmt.Sprintf("%s.%s", name, stage))
			out := src + ".spv"
			if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Runs the test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
