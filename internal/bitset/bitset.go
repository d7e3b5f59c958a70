// Package bitset provides a compact set of DWARF register numbers.
package bitset

import (
	"math/bits"

	"github.com/wippyai/cfisynth/cfi"
)

// RegSet is a bitmap of register numbers. The zero value is empty and
// ready to use.
type RegSet struct {
	words []uint64
}

// Of returns a set holding regs.
func Of(regs ...cfi.Reg) *RegSet {
	s := &RegSet{}
	for _, r := range regs {
		s.Add(r)
	}
	return s
}

// Add inserts r, growing the bitmap as needed.
func (s *RegSet) Add(r cfi.Reg) {
	w := int(r / 64)
	if w >= len(s.words) {
		s.words = append(s.words, make([]uint64, w+1-len(s.words))...)
	}
	s.words[w] |= 1 << (r % 64)
}

// Remove deletes r.
func (s *RegSet) Remove(r cfi.Reg) {
	if w := int(r / 64); w < len(s.words) {
		s.words[w] &^= 1 << (r % 64)
	}
}

// Contains reports whether r is in the set. A nil set is empty.
func (s *RegSet) Contains(r cfi.Reg) bool {
	if s == nil {
		return false
	}
	w := int(r / 64)
	return w < len(s.words) && s.words[w]&(1<<(r%64)) != 0
}

// Len returns the number of registers in the set.
func (s *RegSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Regs returns the members in ascending order.
func (s *RegSet) Regs() []cfi.Reg {
	out := make([]cfi.Reg, 0, s.Len())
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, cfi.Reg(i*64+b))
			w &= w - 1
		}
	}
	return out
}
