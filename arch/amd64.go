package arch

import "github.com/wippyai/cfisynth/cfi"

// x86-64 DWARF register numbers.
const (
	AMD64RAX cfi.Reg = 0
	AMD64RDX cfi.Reg = 1
	AMD64RCX cfi.Reg = 2
	AMD64RBX cfi.Reg = 3
	AMD64RSI cfi.Reg = 4
	AMD64RDI cfi.Reg = 5
	AMD64RBP cfi.Reg = 6
	AMD64RSP cfi.Reg = 7
	AMD64R12 cfi.Reg = 12
	AMD64R13 cfi.Reg = 13
	AMD64R14 cfi.Reg = 14
	AMD64R15 cfi.Reg = 15
	AMD64RIP cfi.Reg = 16
)

var amd64Names = []string{
	"rax", "rdx", "rcx", "rbx", "rsi", "rdi", "rbp", "rsp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15", "rip",
}

// AMD64 returns the x86-64 System V descriptor. The call instruction leaves
// the return address on the stack, so the CFA starts at rsp+8.
func AMD64() *Arch {
	a := newArch("amd64", amd64Names, []cfi.Reg{
		AMD64RBX, AMD64RBP, AMD64RSP,
		AMD64R12, AMD64R13, AMD64R14, AMD64R15,
		AMD64RIP,
	})
	a.AsmPrefix = "%"
	a.SP = AMD64RSP
	a.FP = AMD64RBP
	a.RA = AMD64RIP
	a.InitCFAOffset = 8
	a.CodeAlign = 1
	a.DataAlign = -8
	a.PtrSize = 8
	return a
}
