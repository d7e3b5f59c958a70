package arch

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"amd64", "amd64"},
		{"x86_64", "amd64"},
		{"X86-64", "amd64"},
		{"arm64", "arm64"},
		{"aarch64", "arm64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Lookup(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if a.Name != tt.want {
				t.Errorf("Name = %q, want %q", a.Name, tt.want)
			}
		})
	}

	if _, err := Lookup("mips"); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("unknown arch error = %v", err)
	}
}

func TestAMD64(t *testing.T) {
	a := AMD64()
	if a.SP != 7 || a.FP != 6 || a.RA != 16 {
		t.Errorf("roles sp=%d fp=%d ra=%d", a.SP, a.FP, a.RA)
	}
	if a.CFA() != 17 || a.NewState().CFA() != 17 {
		t.Errorf("CFA = %d", a.CFA())
	}
	want := []cfi.Reg{3, 6, 7, 12, 13, 14, 15, 16}
	if diff := cmp.Diff(want, a.TrackedRegs()); diff != "" {
		t.Errorf("tracked mismatch (-want +got):\n%s", diff)
	}
	if a.Tracked(AMD64RAX) {
		t.Error("rax is caller-saved")
	}
	if a.AsmName(AMD64RBP) != "%rbp" {
		t.Errorf("AsmName = %q", a.AsmName(AMD64RBP))
	}
}

func TestARM64(t *testing.T) {
	a := ARM64()
	if a.NumRegs != 32 || a.CFA() != 32 {
		t.Errorf("NumRegs = %d", a.NumRegs)
	}
	if a.InitCFAOffset != 0 || a.CodeAlign != 4 {
		t.Errorf("init offset %d, code align %d", a.InitCFAOffset, a.CodeAlign)
	}
	for _, r := range []cfi.Reg{19, 28, ARM64FP, ARM64LR, ARM64SP} {
		if !a.Tracked(r) {
			t.Errorf("x%d should be tracked", r)
		}
	}
	if a.Tracked(18) {
		t.Error("x18 should not be tracked")
	}
	if a.AsmName(ARM64SP) != "sp" {
		t.Errorf("AsmName = %q", a.AsmName(ARM64SP))
	}
}

func TestReg(t *testing.T) {
	amd, arm := AMD64(), ARM64()
	tests := []struct {
		a    *Arch
		name string
		want cfi.Reg
		ok   bool
	}{
		{amd, "%rsp", 7, true},
		{amd, "RBX", 3, true},
		{amd, "r12", 12, true},
		{amd, "r99", 0, false},
		{amd, "eax", 0, false},
		{arm, "fp", 29, true},
		{arm, "lr", 30, true},
		{arm, "x19", 19, true},
		{arm, "sp", 31, true},
		{arm, "w0", 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.a.Reg(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s.Reg(%q) = %d, %v; want %d, %v", tt.a.Name, tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRegName(t *testing.T) {
	a := AMD64()
	if a.RegName(a.CFA()) != "cfa" || a.RegName(3) != "rbx" || a.RegName(40) != "r40" {
		t.Error("RegName mismatch")
	}
}
