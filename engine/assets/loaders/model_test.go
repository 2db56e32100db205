package loaders

import (
	"strings"
	"testing"

	gomath "github.com/olivercrane/vasari/engine/math"
)

const triangleOBJ = `
# simple triangle
v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
vt 0 0
vt 1 0
vt 0 1
f 1/1/1 2/2/1 3/3/1
`

func TestParseOBJTriangle(t *testing.T) {
	vertices, err := parseOBJ([]byte(triangleOBJ))
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 3 {
		t.Fatalf("got %d vertices, want 3", len(vertices))
	}

	if vertices[1].Position != (gomath.Vec3{X: 1, Y: 0, Z: 0}) {
		t.Errorf("vertex 1 position = %+v", vertices[1].Position)
	}
	for i, v := range vertices {
		if v.Normal != (gomath.Vec3{X: 0, Y: 0, Z: 1}) {
			t.Errorf("vertex %d normal = %+v", i, v.Normal)
		}
		if v.Colour != (gomath.Vec3{X: 1, Y: 1, Z: 1}) {
			t.Errorf("vertex %d colour = %+v", i, v.Colour)
		}
	}
	// V is flipped relative to the file.
	if vertices[2].Texcoord != (gomath.Vec2{X: 0, Y: 0}) {
		t.Errorf("vertex 2 texcoord = %+v, want flipped (0,0)", vertices[2].Texcoord)
	}
	if vertices[0].Texcoord != (gomath.Vec2{X: 0, Y: 1}) {
		t.Errorf("vertex 0 texcoord = %+v, want flipped (0,1)", vertices[0].Texcoord)
	}
}

func TestParseOBJQuadIsFanned(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`
	vertices, err := parseOBJ([]byte(obj))
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 6 {
		t.Fatalf("got %d vertices, want 6 (two triangles)", len(vertices))
	}
	// Fan shares the first corner: (1,2,3) then (1,3,4).
	if vertices[0].Position != vertices[3].Position {
		t.Error("fan triangles should share the first corner")
	}
	if vertices[2].Position != vertices[4].Position {
		t.Error("second triangle should start where the first ended")
	}
}

func TestParseOBJNegativeIndices(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	vertices, err := parseOBJ([]byte(obj))
	if err != nil {
		t.Fatal(err)
	}
	if vertices[0].Position != (gomath.Vec3{}) {
		t.Errorf("vertex 0 position = %+v, want origin", vertices[0].Position)
	}
	if vertices[2].Position != (gomath.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("vertex 2 position = %+v", vertices[2].Position)
	}
}

func TestParseOBJPositionOnlyCorners(t *testing.T) {
	obj := `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	vertices, err := parseOBJ([]byte(obj))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vertices {
		if v.Normal != (gomath.Vec3{}) || v.Texcoord != (gomath.Vec2{}) {
			t.Errorf("vertex %d should have zero normal/texcoord, got %+v", i, v)
		}
	}
}

func TestParseOBJErrors(t *testing.T) {
	cases := []struct {
		name string
		obj  string
	}{
		{"empty", ""},
		{"no faces", "v 0 0 0\nv 1 0 0\nv 0 1 0\n"},
		{"index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"bad component", "v a b c\nf 1 1 1\n"},
		{"short position", "v 1 2\nf 1 1 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseOBJ([]byte(tc.obj)); err == nil {
				t.Errorf("expected error for %q", strings.TrimSpace(tc.obj))
			}
		})
	}
}
