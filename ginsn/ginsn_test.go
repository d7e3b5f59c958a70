package ginsn

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/cfisynth/cfi"
)

func TestInsn_Markers(t *testing.T) {
	tests := []struct {
		name  string
		insn  *Insn
		begin bool
		end   bool
		label bool
	}{
		{"func begin", NewFuncBegin("f"), true, false, false},
		{"func end", NewFuncEnd("f.end"), false, true, false},
		{"user label", NewLabel(".L1"), false, false, true},
		{"ret", NewReturn(), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.insn.IsFuncBegin(); got != tt.begin {
				t.Errorf("IsFuncBegin = %v, want %v", got, tt.begin)
			}
			if got := tt.insn.IsFuncEnd(); got != tt.end {
				t.Errorf("IsFuncEnd = %v, want %v", got, tt.end)
			}
			if got := tt.insn.IsUserLabel(); got != tt.label {
				t.Errorf("IsUserLabel = %v, want %v", got, tt.label)
			}
		})
	}
}

func TestInsn_Ops(t *testing.T) {
	i := NewLoad(3)
	i.AppendOp(cfi.Op{Reg: 3, Opcode: cfi.OpRestore})
	i.AppendOp(cfi.Op{Reg: 17, Opcode: cfi.OpDefCfaOffset})
	i.PrependOp(cfi.RestoreState())

	want := []cfi.Opcode{cfi.OpRestoreState, cfi.OpRestore, cfi.OpDefCfaOffset}
	var got []cfi.Opcode
	for _, op := range i.Ops {
		got = append(got, op.Opcode)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("op order mismatch (-want +got):\n%s", diff)
	}
}

func TestInsn_Format(t *testing.T) {
	names := map[cfi.Reg]string{3: "rbx", 6: "rbp", 7: "rsp"}
	namer := func(r cfi.Reg) string { return names[r] }

	tests := []struct {
		insn *Insn
		want string
	}{
		{NewFuncBegin("foo"), "begin foo"},
		{NewFuncEnd("foo"), "end foo"},
		{NewLabel(".L2"), ".L2:"},
		{NewArith(TypeSub, Reg(7), Imm(8), DstRegister(7)), "sub %rsp, $8 -> %rsp"},
		{NewStore(6), "store %rbp -> stack"},
		{NewLoad(3), "load stack -> %rbx"},
		{NewMov(Reg(7), DstRegister(6)), "mov %rsp -> %rbp"},
		{NewMov(Reg(3), DstIndirectAt(7, 16)), "mov %rbx -> 16(%rsp)"},
		{NewMov(Indirect(6, -8), DstRegister(3)), "mov -8(%rbp) -> %rbx"},
		{NewMov(Indirect(6, 0), DstRegister(3)), "mov (%rbp) -> %rbx"},
		{NewBranch(TypeJumpCond, ".L2"), "jcc .L2"},
		{NewReturn(), "ret"},
		{NewOther(Src{Type: SrcMem}, Src{}, Dst{Type: DstMem}), "other mem -> mem"},
	}

	for _, tt := range tests {
		if got := tt.insn.Format(namer); got != tt.want {
			t.Errorf("Format = %q, want %q", got, tt.want)
		}
	}

	if got := NewStore(6).String(); got != "store %r6 -> stack" {
		t.Errorf("String = %q", got)
	}
}

func TestType_String(t *testing.T) {
	if TypeStore.String() != "store" {
		t.Errorf("TypeStore = %q", TypeStore.String())
	}
	if Type(200).String() != "Type(200)" {
		t.Errorf("out of range = %q", Type(200).String())
	}
}

func TestCFG_Build(t *testing.T) {
	g := NewCFG()
	if g.Root() != nil {
		t.Fatal("empty graph has no root")
	}

	entry := g.NewBlock("entry", NewFuncBegin("f"), NewBranch(TypeJumpCond, "L1"))
	body := g.NewBlock("body", NewReturn())
	l1 := g.NewBlock("L1", NewLabel("L1"), NewReturn())
	g.Connect(entry, body)
	g.Connect(entry, l1)

	if g.Root() != entry {
		t.Error("first block should be the root")
	}
	if g.Len() != 3 {
		t.Errorf("Len = %d, want 3", g.Len())
	}
	if entry.First().Type != TypeSymbol || entry.Last().Type != TypeJumpCond {
		t.Error("First/Last mismatch")
	}
	if (&Block{}).First() != nil || (&Block{}).Last() != nil {
		t.Error("empty block First/Last should be nil")
	}

	var ids []uint64
	for _, insn := range g.Insns() {
		ids = append(ids, insn.ID)
	}
	if diff := cmp.Diff([]uint64{1, 2, 3, 4, 5}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	if len(entry.Out) != 2 || entry.Out[0].Dst != body || entry.Out[1].Dst != l1 {
		t.Error("edges should keep insertion order")
	}
	if l1.ID != 3 {
		t.Errorf("block id = %d, want 3", l1.ID)
	}
}

func TestCFG_Reset(t *testing.T) {
	g := NewCFG()
	a := g.NewBlock("a", NewFuncBegin("f"))
	b := g.NewBlock("b", NewReturn())
	e := g.Connect(a, b)

	a.Visited, b.Visited, e.Visited = true, true, true
	a.Entry, a.Exit = cfi.NewState(4), cfi.NewState(4)
	a.First().AppendOp(cfi.RememberState())

	g.Reset()

	if a.Visited || b.Visited || e.Visited {
		t.Error("Reset should clear visited flags")
	}
	if a.Entry != nil || a.Exit != nil {
		t.Error("Reset should drop snapshots")
	}
	if len(a.First().Ops) != 0 {
		t.Error("Reset should drop ops")
	}
}

func TestInsn_End(t *testing.T) {
	i := NewReturn()
	i.Addr, i.Size = 0x10, 1
	if i.End() != 0x11 {
		t.Errorf("End = %#x, want 0x11", i.End())
	}
}
