package math

import (
	"testing"
)

func almostEqual(a, b, tolerance float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func TestMat4IdentityMul(t *testing.T) {
	id := NewMat4Identity()
	m := NewMat4Translation(NewVec3(1, 2, 3))

	got := id.Mul(m)
	if got != m {
		t.Errorf("identity * m = %v, want %v", got, m)
	}
	got = m.Mul(id)
	if got != m {
		t.Errorf("m * identity = %v, want %v", got, m)
	}
}

func TestMat4TranslationMovesPoint(t *testing.T) {
	m := NewMat4Translation(NewVec3(5, -1, 2))
	p := m.MulVec4(NewVec4(1, 1, 1, 1))

	want := NewVec4(6, 0, 3, 1)
	if p != want {
		t.Errorf("translated point = %v, want %v", p, want)
	}
}

func TestMat4EulerYRotatesForwardToRight(t *testing.T) {
	// Rotating +Z by 90 degrees around Y lands on +X.
	m := NewMat4EulerY(DegToRad(90))
	p := m.MulVec4(NewVec4(0, 0, 1, 0))

	if !almostEqual(p.X, 1, 1e-6) || !almostEqual(p.Y, 0, 1e-6) || !almostEqual(p.Z, 0, 1e-6) {
		t.Errorf("rotated vector = %v, want (1, 0, 0, 0)", p)
	}
}

func TestMat4LookAtOrigin(t *testing.T) {
	// Camera at origin looking down -Z should behave as the identity view.
	view := NewMat4LookAt(NewVec3Zero(), NewVec3(0, 0, -1), NewVec3Up())
	p := view.MulVec4(NewVec4(2, 3, -4, 1))

	if !almostEqual(p.X, 2, 1e-6) || !almostEqual(p.Y, 3, 1e-6) || !almostEqual(p.Z, -4, 1e-6) {
		t.Errorf("view transformed point = %v, want (2, 3, -4, 1)", p)
	}
}

func TestMat4PerspectiveDepthRange(t *testing.T) {
	near := float32(0.1)
	far := float32(200.0)
	proj := NewMat4Perspective(DegToRad(70), 16.0/9.0, near, far)

	// A point on the near plane maps to NDC z = -1, on the far plane to +1
	// before the perspective divide flips signs (right-handed, -Z forward).
	pNear := proj.MulVec4(NewVec4(0, 0, -near, 1))
	pFar := proj.MulVec4(NewVec4(0, 0, -far, 1))

	if !almostEqual(pNear.Z/pNear.W, -1, 1e-4) {
		t.Errorf("near plane depth = %f, want -1", pNear.Z/pNear.W)
	}
	if !almostEqual(pFar.Z/pFar.W, 1, 1e-4) {
		t.Errorf("far plane depth = %f, want 1", pFar.Z/pFar.W)
	}
}

func TestVec3Normalized(t *testing.T) {
	v := NewVec3(3, 0, 4).Normalized()
	if !almostEqual(v.Length(), 1, 1e-6) {
		t.Errorf("normalized length = %f, want 1", v.Length())
	}
	// The zero vector must pass through untouched.
	zero := NewVec3Zero().Normalized()
	if zero != NewVec3Zero() {
		t.Errorf("normalized zero vector = %v, want zero", zero)
	}
}
