package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	gomath "github.com/olivercrane/vasari/engine/math"
)

// ModelData is a parsed model flattened into a non-indexed triangle list.
type ModelData struct {
	Vertices []gomath.Vertex3D
}

type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vertices, err := parseOBJ(data)
	if err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	return newResource("model", path, uint64(len(data)), &ModelData{Vertices: vertices}), nil
}

func (ml *ModelLoader) Unload(*Resource) error {
	return nil
}

// parseOBJ handles the position/normal/texcoord subset of Wavefront OBJ.
// Faces with more than three corners are fanned into triangles. Indices
// may be negative (relative to the end of the respective list). Vertex
// colour is fixed white; the V texture coordinate is flipped because OBJ
// puts the origin at the bottom-left.
func parseOBJ(data []byte) ([]gomath.Vertex3D, error) {
	var positions []gomath.Vec3
	var normals []gomath.Vec3
	var texcoords []gomath.Vec2
	var out []gomath.Vertex3D

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, v)
		case "vt":
			v, err := parseVec2(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			texcoords = append(texcoords, v)
		case "f":
			corners := fields[1:]
			if len(corners) < 3 {
				return nil, fmt.Errorf("line %d: face with %d corners", lineNo, len(corners))
			}
			face := make([]gomath.Vertex3D, len(corners))
			for i, corner := range corners {
				v, err := resolveCorner(corner, positions, normals, texcoords)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				face[i] = v
			}
			// Triangle fan around the first corner.
			for i := 1; i < len(face)-1; i++ {
				out = append(out, face[0], face[i], face[i+1])
			}
		}
		// Object/group/material statements are ignored.
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no faces found")
	}
	return out, nil
}

// resolveCorner turns a face corner reference (v, v/vt, v//vn or v/vt/vn)
// into a concrete vertex.
func resolveCorner(corner string, positions, normals []gomath.Vec3, texcoords []gomath.Vec2) (gomath.Vertex3D, error) {
	var vertex gomath.Vertex3D
	vertex.Colour = gomath.Vec3{X: 1, Y: 1, Z: 1}

	parts := strings.Split(corner, "/")
	if len(parts) > 3 {
		return vertex, fmt.Errorf("malformed face corner %q", corner)
	}

	posIndex, err := resolveIndex(parts[0], len(positions))
	if err != nil {
		return vertex, fmt.Errorf("face corner %q: %w", corner, err)
	}
	vertex.Position = positions[posIndex]

	if len(parts) > 1 && parts[1] != "" {
		uvIndex, err := resolveIndex(parts[1], len(texcoords))
		if err != nil {
			return vertex, fmt.Errorf("face corner %q: %w", corner, err)
		}
		uv := texcoords[uvIndex]
		vertex.Texcoord = gomath.Vec2{X: uv.X, Y: 1 - uv.Y}
	}

	if len(parts) > 2 && parts[2] != "" {
		nIndex, err := resolveIndex(parts[2], len(normals))
		if err != nil {
			return vertex, fmt.Errorf("face corner %q: %w", corner, err)
		}
		vertex.Normal = normals[nIndex]
	}

	return vertex, nil
}

// resolveIndex converts a one-based OBJ index (possibly negative) into a
// zero-based slice index.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	if n < 0 {
		n = count + n
	} else {
		n--
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("index %q out of range (%d elements)", s, count)
	}
	return n, nil
}

func parseVec3(fields []string) (gomath.Vec3, error) {
	if len(fields) < 3 {
		return gomath.Vec3{}, fmt.Errorf("want 3 components, have %d", len(fields))
	}
	var v [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return gomath.Vec3{}, fmt.Errorf("bad component %q", fields[i])
		}
		v[i] = float32(f)
	}
	return gomath.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parseVec2(fields []string) (gomath.Vec2, error) {
	if len(fields) < 2 {
		return gomath.Vec2{}, fmt.Errorf("want 2 components, have %d", len(fields))
	}
	var v [2]float32
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return gomath.Vec2{}, fmt.Errorf("bad component %q", fields[i])
		}
		v[i] = float32(f)
	}
	return gomath.Vec2{X: v[0], Y: v[1]}, nil
}
