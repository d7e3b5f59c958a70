package arch

import (
	"strconv"
	"strings"

	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/internal/bitset"
)

// Arch is an architecture descriptor.
type Arch struct {
	tracked *bitset.RegSet
	aliases map[string]cfi.Reg
	Name    string
	// AsmPrefix precedes register names in assembler directives.
	AsmPrefix string
	Names     []string
	NumRegs   int
	// InitCFAOffset is the CFA offset from SP at the function begin marker.
	InitCFAOffset int32
	// DataAlign is the DWARF data alignment factor used when encoding offsets.
	DataAlign int32
	// PtrSize is the size of a stack slot in bytes.
	PtrSize int32
	// CodeAlign is the DWARF code alignment factor.
	CodeAlign uint32
	SP        cfi.Reg
	FP        cfi.Reg
	RA        cfi.Reg
}

func newArch(name string, names []string, tracked []cfi.Reg) *Arch {
	a := &Arch{
		Name:    name,
		Names:   names,
		NumRegs: len(names),
		tracked: bitset.Of(tracked...),
		aliases: make(map[string]cfi.Reg, len(names)),
	}
	for i, n := range names {
		a.aliases[n] = cfi.Reg(i)
	}
	return a
}

// CFA returns the synthetic register number of the canonical frame address.
func (a *Arch) CFA() cfi.Reg {
	return cfi.Reg(a.NumRegs)
}

// NewState returns the function-entry unwind state for this architecture.
func (a *Arch) NewState() *cfi.State {
	return cfi.NewState(a.NumRegs)
}

// Tracked reports whether reg matters for unwinding.
func (a *Arch) Tracked(reg cfi.Reg) bool {
	return a.tracked.Contains(reg)
}

// TrackedRegs returns the tracked registers in ascending order.
func (a *Arch) TrackedRegs() []cfi.Reg {
	return a.tracked.Regs()
}

// RegName returns the assembler name of reg without the % prefix.
func (a *Arch) RegName(reg cfi.Reg) string {
	if reg == a.CFA() {
		return "cfa"
	}
	if int(reg) < len(a.Names) {
		return a.Names[reg]
	}
	return "r" + strconv.FormatUint(uint64(reg), 10)
}

// AsmName returns the register name as written in assembler directives.
func (a *Arch) AsmName(reg cfi.Reg) string {
	return a.AsmPrefix + a.RegName(reg)
}

// Reg resolves an assembler register name, with or without the % prefix.
// Numeric "rN" names are accepted for registers without a symbolic name.
func (a *Arch) Reg(name string) (cfi.Reg, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, "%"))
	if r, ok := a.aliases[name]; ok {
		return r, true
	}
	if n, ok := strings.CutPrefix(name, "r"); ok {
		v, err := strconv.ParseUint(n, 10, 32)
		if err == nil && int(v) < a.NumRegs {
			return cfi.Reg(v), true
		}
	}
	return 0, false
}

// Lookup returns the descriptor for an architecture name.
func Lookup(name string) (*Arch, error) {
	switch strings.ToLower(name) {
	case "amd64", "x86_64", "x86-64":
		return AMD64(), nil
	case "arm64", "aarch64":
		return ARM64(), nil
	default:
		return nil, errors.NotFound(errors.PhaseConfig, "architecture", name)
	}
}
