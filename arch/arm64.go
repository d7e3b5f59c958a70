package arch

import (
	"strconv"

	"github.com/wippyai/cfisynth/cfi"
)

// AArch64 DWARF register numbers with fixed roles.
const (
	ARM64X19 cfi.Reg = 19
	ARM64FP  cfi.Reg = 29
	ARM64LR  cfi.Reg = 30
	ARM64SP  cfi.Reg = 31
)

// ARM64 returns the AArch64 AAPCS64 descriptor. The return address stays in
// the link register, so the CFA starts at sp+0.
func ARM64() *Arch {
	names := make([]string, 32)
	for i := range 31 {
		names[i] = "x" + strconv.Itoa(i)
	}
	names[ARM64SP] = "sp"

	tracked := []cfi.Reg{ARM64FP, ARM64LR, ARM64SP}
	for r := ARM64X19; r < ARM64FP; r++ {
		tracked = append(tracked, r)
	}

	a := newArch("arm64", names, tracked)
	a.aliases["fp"] = ARM64FP
	a.aliases["lr"] = ARM64LR
	a.SP = ARM64SP
	a.FP = ARM64FP
	a.RA = ARM64LR
	a.InitCFAOffset = 0
	a.CodeAlign = 4
	a.DataAlign = -8
	a.PtrSize = 8
	return a
}
