package handler

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

const (
	rax = arch.AMD64RAX
	rbx = arch.AMD64RBX
	rbp = arch.AMD64RBP
	rsp = arch.AMD64RSP
)

func push(r cfi.Reg) []*ginsn.Insn {
	return []*ginsn.Insn{
		ginsn.NewArith(ginsn.TypeSub, ginsn.Reg(rsp), ginsn.Imm(8), ginsn.DstRegister(rsp)),
		ginsn.NewStore(r),
	}
}

func pop(r cfi.Reg) []*ginsn.Insn {
	return []*ginsn.Insn{
		ginsn.NewLoad(r),
		ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rsp), ginsn.Imm(8), ginsn.DstRegister(rsp)),
	}
}

func seq(parts ...any) []*ginsn.Insn {
	var out []*ginsn.Insn
	for _, p := range parts {
		switch v := p.(type) {
		case *ginsn.Insn:
			out = append(out, v)
		case []*ginsn.Insn:
			out = append(out, v...)
		}
	}
	return out
}

func run(insns []*ginsn.Insn) (*Context, int, error) {
	a := arch.AMD64()
	ctx := NewContext(a, "f", a.NewState())
	x, err := NewExecutor(nil)
	if err != nil {
		return ctx, 0, err
	}
	for i, insn := range insns {
		insn.Line = i + 1
		if err := x.Execute(ctx, insn); err != nil {
			return ctx, i, err
		}
	}
	return ctx, len(insns), nil
}

func opStrings(insns []*ginsn.Insn) [][]string {
	out := make([][]string, len(insns))
	for i, insn := range insns {
		out[i] = []string{}
		for _, op := range insn.Ops {
			out[i] = append(out[i], op.String())
		}
	}
	return out
}

func TestExecute_FuncBegin(t *testing.T) {
	insns := seq(ginsn.NewFuncBegin("f"))
	ctx, _, err := run(insns)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]string{{"def_cfa r7, 8"}}, opStrings(insns)); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if ctx.State.StackSize != 8 {
		t.Errorf("StackSize = %d, want 8", ctx.State.StackSize)
	}
}

func TestExecute_PushPop(t *testing.T) {
	insns := seq(
		ginsn.NewFuncBegin("f"),
		push(rbp), push(rbx),
		pop(rbx), pop(rbp),
		ginsn.NewReturn(),
	)
	ctx, _, err := run(insns)
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"def_cfa r7, 8"},
		{"def_cfa_offset 16"}, {"offset r6, -16"},
		{"def_cfa_offset 24"}, {"offset r3, -24"},
		{"restore r3"}, {"def_cfa_offset 16"},
		{"restore r6"}, {"def_cfa_offset 8"},
		{},
	}
	if diff := cmp.Diff(want, opStrings(insns)); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if ctx.State.StackSize != 8 || ctx.State.CFALoc().Offset != 8 {
		t.Errorf("stack = %d, cfa = %s", ctx.State.StackSize, ctx.State.CFALoc())
	}
	if ctx.State.Regs[rbx].State != cfi.InReg || ctx.State.Regs[rbp].State != cfi.InReg {
		t.Error("saved registers should be restored")
	}
}

func TestExecute_FramePointerPrologueEpilogue(t *testing.T) {
	insns := seq(
		ginsn.NewFuncBegin("f"),
		push(rbp),
		ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rbp)),
		push(rbx),
		ginsn.NewArith(ginsn.TypeSub, ginsn.Reg(rsp), ginsn.Imm(8), ginsn.DstRegister(rsp)),
		ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rbp), ginsn.Imm(-8), ginsn.DstRegister(rsp)),
		pop(rbx),
		pop(rbp),
		ginsn.NewReturn(),
	)
	ctx, _, err := run(insns)
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"def_cfa r7, 8"},
		{"def_cfa_offset 16"}, {"offset r6, -16"},
		{"def_cfa_register r6"},
		{}, {"offset r3, -24"},
		{},
		{},
		{"restore r3"}, {},
		{"def_cfa_register r7", "restore r6"}, {"def_cfa_offset 8"},
		{},
	}
	if diff := cmp.Diff(want, opStrings(insns)); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if !ctx.State.Traceable {
		t.Error("state should be traceable after the epilogue")
	}
}

func TestExecute_MovFPToSP(t *testing.T) {
	insns := seq(
		ginsn.NewFuncBegin("f"),
		push(rbp),
		ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rbp)),
		ginsn.NewArith(ginsn.TypeSub, ginsn.Reg(rsp), ginsn.Imm(32), ginsn.DstRegister(rsp)),
		ginsn.NewMov(ginsn.Reg(rbp), ginsn.DstRegister(rsp)),
	)
	ctx, _, err := run(insns)
	if err != nil {
		t.Fatal(err)
	}
	if got := insns[len(insns)-1].Ops; len(got) != 1 || got[0].String() != "def_cfa_register r7" {
		t.Errorf("ops = %v", got)
	}
	if ctx.State.StackSize != 16 {
		t.Errorf("StackSize = %d, want 16", ctx.State.StackSize)
	}
}

func TestExecute_IndirectSaveRestore(t *testing.T) {
	insns := seq(
		ginsn.NewFuncBegin("f"),
		ginsn.NewArith(ginsn.TypeSub, ginsn.Reg(rsp), ginsn.Imm(24), ginsn.DstRegister(rsp)),
		ginsn.NewMov(ginsn.Reg(rbx), ginsn.DstIndirectAt(rsp, 8)),
		ginsn.NewMov(ginsn.Indirect(rsp, 8), ginsn.DstRegister(rbx)),
	)
	_, _, err := run(insns)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"def_cfa r7, 8"},
		{"def_cfa_offset 32"},
		{"offset r3, -24"},
		{"restore r3"},
	}
	if diff := cmp.Diff(want, opStrings(insns)); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_UnknownSPAdjustment(t *testing.T) {
	bad := ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rsp), ginsn.Reg(rax), ginsn.DstRegister(rsp))
	insns := seq(ginsn.NewFuncBegin("f"), push(rbx), bad)

	_, at, err := run(insns)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !stderrors.Is(err, errors.ErrUnsupported) {
		t.Errorf("error = %v, want unsupported pattern", err)
	}
	if at != len(insns)-1 {
		t.Errorf("failed at insn %d, want %d", at, len(insns)-1)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Line != bad.Line || e.Func != "f" {
		t.Errorf("error location = %+v", e)
	}
	if len(bad.Ops) != 0 {
		t.Errorf("rejected instruction has ops %v", bad.Ops)
	}
}

func TestExecute_StackRealignUnderFP(t *testing.T) {
	prologue := seq(
		ginsn.NewFuncBegin("f"),
		push(rbp),
		ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rbp)),
		ginsn.NewArith(ginsn.TypeAnd, ginsn.Reg(rsp), ginsn.Imm(-16), ginsn.DstRegister(rsp)),
	)

	t.Run("save via frame pointer", func(t *testing.T) {
		save := ginsn.NewMov(ginsn.Reg(rbx), ginsn.DstIndirectAt(rbp, -8))
		ctx, _, err := run(seq(prologue, save))
		if err != nil {
			t.Fatal(err)
		}
		if ctx.State.Traceable {
			t.Error("realignment should make the stack untraceable")
		}
		if len(save.Ops) != 1 || save.Ops[0].String() != "offset r3, -24" {
			t.Errorf("ops = %v", save.Ops)
		}
	})

	t.Run("push after realign", func(t *testing.T) {
		_, _, err := run(seq(prologue, push(rbx)))
		if !stderrors.Is(err, errors.ErrUnsupported) {
			t.Errorf("error = %v, want unsupported pattern", err)
		}
	})

	t.Run("restore sp from fp", func(t *testing.T) {
		ctx, _, err := run(seq(prologue, ginsn.NewMov(ginsn.Reg(rbp), ginsn.DstRegister(rsp)), pop(rbp)))
		if err != nil {
			t.Fatal(err)
		}
		if !ctx.State.Traceable || ctx.State.CFABase() != rsp || ctx.State.CFALoc().Offset != 8 {
			t.Errorf("state after epilogue: traceable=%v cfa=%s", ctx.State.Traceable, ctx.State.CFALoc())
		}
	})
}

func TestExecute_FramePointerScratch(t *testing.T) {
	prologue := seq(
		ginsn.NewFuncBegin("f"),
		push(rbp),
		ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rbp)),
	)

	tests := []struct {
		name    string
		insn    *ginsn.Insn
		wantErr bool
	}{
		{"overwrite", ginsn.NewMov(ginsn.Reg(rax), ginsn.DstRegister(rbp)), true},
		{"computed", ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rbp), ginsn.Reg(rax), ginsn.DstRegister(rbp)), true},
		{"other", ginsn.NewOther(ginsn.Reg(rbp), ginsn.Src{}, ginsn.DstRegister(rbp)), true},
		{"adjust by immediate", ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rbp), ginsn.Imm(16), ginsn.DstRegister(rbp)), false},
		{"store through fp", ginsn.NewMov(ginsn.Reg(rax), ginsn.DstIndirectAt(rbp, -8)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(seq(prologue, tt.insn))
			if tt.wantErr {
				if !stderrors.Is(err, errors.ErrUnsupported) {
					t.Errorf("error = %v, want unsupported pattern", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExecute_AdjustFPKeepsCFA(t *testing.T) {
	adj := ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rbp), ginsn.Imm(16), ginsn.DstRegister(rbp))
	ctx, _, err := run(seq(
		ginsn.NewFuncBegin("f"),
		push(rbp),
		ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rbp)),
		adj,
	))
	if err != nil {
		t.Fatal(err)
	}
	if got := ctx.State.CFALoc(); got.Base != rbp || got.Offset != 0 {
		t.Errorf("cfa = %s, want r6+0", got)
	}
	if len(adj.Ops) != 1 || adj.Ops[0].Opcode != cfi.OpDefCfaOffset {
		t.Errorf("ops = %v", adj.Ops)
	}
}

func TestExecute_AsymmetricRestore(t *testing.T) {
	restore := ginsn.NewMov(ginsn.Indirect(rsp, 8), ginsn.DstRegister(rbx))
	ctx, _, err := run(seq(
		ginsn.NewFuncBegin("f"),
		ginsn.NewArith(ginsn.TypeSub, ginsn.Reg(rsp), ginsn.Imm(8), ginsn.DstRegister(rsp)),
		ginsn.NewStore(rbx),
		restore,
	))
	if err != nil {
		t.Fatalf("asymmetric restore must not fail: %v", err)
	}
	if len(restore.Ops) != 0 {
		t.Errorf("no restore op expected, got %v", restore.Ops)
	}
	if got := ctx.State.Regs[rbx]; got.State != cfi.OnStack || got.Offset != -16 {
		t.Errorf("rbx = %s, want still saved at -16", got)
	}

	want := []Warning{{
		Func:     "f",
		Line:     4,
		Message:  "asymmetrical register restore",
		Reg:      rbx,
		Expected: -8,
		Recorded: -16,
	}}
	if diff := cmp.Diff(want, ctx.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_RestoreMatchesOffsetOnly(t *testing.T) {
	// Known soundness gap: a restore is recognized by its stack offset alone.
	// The slot holding rbx is overwritten before the load, yet the load from
	// that offset still marks rbx as restored.
	clobber := ginsn.NewMov(ginsn.Imm(0), ginsn.DstIndirectAt(rsp, 0))
	load := ginsn.NewMov(ginsn.Indirect(rsp, 0), ginsn.DstRegister(rbx))
	ctx, _, err := run(seq(
		ginsn.NewFuncBegin("f"),
		push(rbx),
		clobber,
		load,
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(clobber.Ops) != 0 {
		t.Errorf("store of an immediate should emit nothing, got %v", clobber.Ops)
	}
	if len(load.Ops) != 1 || load.Ops[0].Opcode != cfi.OpRestore || load.Ops[0].Reg != rbx {
		t.Errorf("load from the save slot should restore rbx, got %v", load.Ops)
	}
	if got := ctx.State.Regs[rbx]; got.State == cfi.OnStack {
		t.Errorf("rbx = %s, want restored", got)
	}
	if len(ctx.Warnings) != 0 {
		t.Errorf("no warning expected, got %v", ctx.Warnings)
	}
}

func TestExecute_ScratchCopyOfSP(t *testing.T) {
	t.Run("restore depth", func(t *testing.T) {
		back := ginsn.NewMov(ginsn.Reg(rax), ginsn.DstRegister(rsp))
		ctx, _, err := run(seq(
			ginsn.NewFuncBegin("f"),
			ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rax)),
			ginsn.NewArith(ginsn.TypeSub, ginsn.Reg(rsp), ginsn.Imm(32), ginsn.DstRegister(rsp)),
			back,
		))
		if err != nil {
			t.Fatal(err)
		}
		if ctx.State.StackSize != 8 {
			t.Errorf("StackSize = %d, want 8", ctx.State.StackSize)
		}
		if len(back.Ops) != 1 || back.Ops[0].String() != "def_cfa_offset 8" {
			t.Errorf("ops = %v", back.Ops)
		}
	})

	t.Run("clobbered copy", func(t *testing.T) {
		_, _, err := run(seq(
			ginsn.NewFuncBegin("f"),
			ginsn.NewMov(ginsn.Reg(rsp), ginsn.DstRegister(rax)),
			ginsn.NewArith(ginsn.TypeAdd, ginsn.Reg(rax), ginsn.Imm(8), ginsn.DstRegister(rax)),
			ginsn.NewMov(ginsn.Reg(rax), ginsn.DstRegister(rsp)),
		))
		if !stderrors.Is(err, errors.ErrUnsupported) {
			t.Errorf("error = %v, want unsupported pattern", err)
		}
	})
}

func TestExecute_IgnoresUntrackedRegisters(t *testing.T) {
	store := ginsn.NewStore(rax)
	_, _, err := run(seq(ginsn.NewFuncBegin("f"), push(rax)[0], store))
	if err != nil {
		t.Fatal(err)
	}
	if len(store.Ops) != 0 {
		t.Errorf("caller-saved register produced ops %v", store.Ops)
	}
}

func TestExecute_SecondSaveIsIgnored(t *testing.T) {
	again := ginsn.NewStore(rbx)
	_, _, err := run(seq(ginsn.NewFuncBegin("f"), push(rbx), push(rax)[0], again))
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Ops) != 0 {
		t.Errorf("register already on stack produced ops %v", again.Ops)
	}
}
