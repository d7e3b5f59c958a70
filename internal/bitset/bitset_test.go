package bitset

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/cfisynth/cfi"
)

func TestRegSet_AddRemove(t *testing.T) {
	var s RegSet

	if s.Contains(7) {
		t.Error("empty set should not contain 7")
	}

	s.Add(7)
	if !s.Contains(7) {
		t.Error("set should contain 7 after Add")
	}

	s.Remove(7)
	if s.Contains(7) {
		t.Error("set should not contain 7 after Remove")
	}

	s.Remove(500)
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestRegSet_Grows(t *testing.T) {
	s := Of(5)
	s.Add(130)

	if !s.Contains(130) || !s.Contains(5) {
		t.Error("set should keep members across growth")
	}
	if s.Contains(129) || s.Contains(1000) {
		t.Error("set should not contain unset registers")
	}
}

func TestRegSet_Nil(t *testing.T) {
	var s *RegSet
	if s.Contains(0) {
		t.Error("nil set should be empty")
	}
}

func TestRegSet_Regs(t *testing.T) {
	s := Of(16, 3, 7, 6, 12, 64, 3)
	want := []cfi.Reg{3, 6, 7, 12, 16, 64}
	if diff := cmp.Diff(want, s.Regs()); diff != "" {
		t.Errorf("Regs mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != len(want) {
		t.Errorf("Len = %d, want %d", s.Len(), len(want))
	}
}
