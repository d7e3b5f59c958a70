package loader

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

// Document is the YAML input format.
type Document struct {
	Arch      string     `yaml:"arch"`
	File      string     `yaml:"file"`
	Functions []FuncDesc `yaml:"functions"`
}

// FuncDesc describes one function.
type FuncDesc struct {
	Name   string      `yaml:"name"`
	Blocks []BlockDesc `yaml:"blocks"`
}

// BlockDesc describes a basic block. A nil Succ means inferred successors.
type BlockDesc struct {
	Label string     `yaml:"label"`
	Insns []InsnDesc `yaml:"insns"`
	Succ  []string   `yaml:"succ"`
}

// InsnDesc describes one instruction.
type InsnDesc struct {
	Addr *uint64  `yaml:"addr"`
	Size *uint32  `yaml:"size"`
	Op   Op       `yaml:"op"`
	Sym  string   `yaml:"sym"`
	Dst  string   `yaml:"dst"`
	Src  Operands `yaml:"src"`
	Line int      `yaml:"line"`
}

// Options adjusts loading.
type Options struct {
	// Arch overrides the document's arch key.
	Arch *arch.Arch
}

// Program is a loaded document.
type Program struct {
	Arch      *arch.Arch
	File      string
	Functions []*ginsn.Function
}

// Func returns the function called name, or nil.
func (p *Program) Func(name string) *ginsn.Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// LoadFile reads and builds the document at path.
func LoadFile(path string, opts Options) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read "+path)
	}
	p, err := Parse(data, opts)
	if err != nil {
		return nil, err
	}
	if p.File == "" {
		p.File = path
		for _, fn := range p.Functions {
			fn.File = path
			for _, insn := range fn.CFG.Insns() {
				insn.File = path
			}
		}
	}
	return p, nil
}

// Load reads a document from r.
func Load(r io.Reader, opts Options) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInternal, err, "read input")
	}
	return Parse(data, opts)
}

// Parse builds the document in data.
func Parse(data []byte, opts Options) (*Program, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "decode yaml")
	}
	return Build(&doc, opts)
}

// Build converts a decoded document into graphs.
func Build(doc *Document, opts Options) (*Program, error) {
	a := opts.Arch
	if a == nil {
		name := doc.Arch
		if name == "" {
			name = "amd64"
		}
		var err error
		if a, err = arch.Lookup(name); err != nil {
			return nil, err
		}
	}

	b := &builder{arch: a, file: doc.File}
	p := &Program{Arch: a, File: doc.File}
	seen := make(map[string]bool, len(doc.Functions))
	for i := range doc.Functions {
		fd := &doc.Functions[i]
		if fd.Name == "" {
			return nil, errors.InvalidInput(errors.PhaseLoad, []string{"functions", strconv.Itoa(i)}, "function without name")
		}
		if seen[fd.Name] {
			return nil, errors.InvalidInput(errors.PhaseLoad, []string{"functions", fd.Name}, "duplicate function")
		}
		seen[fd.Name] = true

		fn, err := b.function(fd)
		if err != nil {
			return nil, err
		}
		p.Functions = append(p.Functions, fn)
	}
	return p, nil
}

type builder struct {
	arch *arch.Arch
	file string
	addr uint64
}

func (b *builder) function(fd *FuncDesc) (*ginsn.Function, error) {
	path := []string{"functions", fd.Name}
	if len(fd.Blocks) == 0 || len(fd.Blocks[0].Insns) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, path, "function has no instructions")
	}
	if fd.Blocks[0].Insns[0].Op != OpBegin {
		return nil, errors.InvalidInput(errors.PhaseLoad, path, "first instruction must be begin")
	}

	g := ginsn.NewCFG()
	labels := make(map[string]*ginsn.Block, len(fd.Blocks))
	for i := range fd.Blocks {
		bd := &fd.Blocks[i]
		blk := g.NewBlock(bd.Label)
		if bd.Label != "" {
			if labels[bd.Label] != nil {
				return nil, errors.InvalidInput(errors.PhaseLoad, append(path, "blocks", bd.Label), "duplicate block label")
			}
			labels[bd.Label] = blk
		}
		for j := range bd.Insns {
			ipath := append(path[:2:2], "blocks", strconv.Itoa(i), "insns", strconv.Itoa(j))
			insns, err := b.insn(fd.Name, bd, &bd.Insns[j], ipath)
			if err != nil {
				return nil, err
			}
			g.Add(blk, insns...)
		}
	}

	for i := range fd.Blocks {
		if err := connect(g, labels, fd.Blocks, i, path); err != nil {
			return nil, err
		}
	}
	return &ginsn.Function{Name: fd.Name, File: b.file, CFG: g}, nil
}

// connect adds the out edges of block i.
func connect(g *ginsn.CFG, labels map[string]*ginsn.Block, blocks []BlockDesc, i int, path []string) error {
	src := g.Blocks[i]
	bd := &blocks[i]

	if bd.Succ != nil {
		for _, l := range bd.Succ {
			dst := labels[l]
			if dst == nil {
				return errors.InvalidInput(errors.PhaseLoad, append(path[:2:2], "blocks", strconv.Itoa(i), "succ"), "unknown block "+l)
			}
			g.Connect(src, dst)
		}
		return nil
	}

	var next *ginsn.Block
	if i+1 < len(g.Blocks) {
		next = g.Blocks[i+1]
	}
	last := src.Last()
	typ := ginsn.TypeOther
	if last != nil {
		typ = last.Type
	}

	switch typ {
	case ginsn.TypeReturn:
	case ginsn.TypeJump:
		if dst := labels[last.Src1().Sym]; dst != nil {
			g.Connect(src, dst)
		}
	case ginsn.TypeJumpCond:
		if next != nil {
			g.Connect(src, next)
		}
		if dst := labels[last.Src1().Sym]; dst != nil && dst != next {
			g.Connect(src, dst)
		}
	default:
		if next != nil {
			g.Connect(src, next)
		}
	}
	return nil
}

func (b *builder) insn(fn string, bd *BlockDesc, d *InsnDesc, path []string) ([]*ginsn.Insn, error) {
	fail := func(err error) ([]*ginsn.Insn, error) {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Func(fn).
			At(b.file, d.Line).
			Path(path...).
			Value(d.Op.String()).
			Detail("%s", err.Error()).
			Build()
	}

	insns, err := b.expand(fn, bd, d)
	if err != nil {
		return fail(err)
	}

	size := uint32(1)
	if d.Op.isSymbol() {
		size = 0
	}
	if d.Size != nil {
		size = *d.Size
	}
	if d.Addr != nil {
		b.addr = *d.Addr
	}

	// The first generic instruction spans the machine instruction; the rest
	// of an expansion sits at its end so all ops land after it.
	for k, insn := range insns {
		insn.File, insn.Line = b.file, d.Line
		insn.Addr = b.addr
		if k == 0 {
			insn.Size = size
			b.addr += uint64(size)
		}
	}
	return insns, nil
}

func (b *builder) expand(fn string, bd *BlockDesc, d *InsnDesc) ([]*ginsn.Insn, error) {
	a := b.arch
	src := func(i int) (ginsn.Src, error) {
		if i >= len(d.Src) {
			return ginsn.Src{}, nil
		}
		return parseSrc(a, d.Src[i])
	}
	want := func(n int) error {
		if len(d.Src) != n {
			return operandError(d.Op.String() + " takes " + strconv.Itoa(n) + " source operand(s)")
		}
		return nil
	}
	sym := func(def string) string {
		if d.Sym != "" {
			return d.Sym
		}
		return def
	}
	sp := ginsn.Reg(a.SP)
	slot := ginsn.Imm(a.PtrSize)

	switch d.Op {
	case OpBegin:
		return []*ginsn.Insn{ginsn.NewFuncBegin(sym(fn))}, nil
	case OpEnd:
		return []*ginsn.Insn{ginsn.NewFuncEnd(sym(fn + ".end"))}, nil
	case OpLabel:
		l := sym(bd.Label)
		if l == "" {
			return nil, operandError("label needs sym or a block label")
		}
		return []*ginsn.Insn{ginsn.NewLabel(l)}, nil
	case OpRet:
		return []*ginsn.Insn{ginsn.NewReturn()}, nil
	case OpCall, OpJmp, OpJcc:
		target := d.Sym
		if target == "" && len(d.Src) == 1 {
			target = d.Src[0]
		}
		if target == "" {
			return nil, operandError(d.Op.String() + " needs a target symbol")
		}
		return []*ginsn.Insn{ginsn.NewBranch(d.Op.insnType(), target)}, nil
	}

	dst, err := parseDst(a, d.Dst)
	if err != nil {
		return nil, err
	}

	switch d.Op {
	case OpAdd, OpSub, OpAnd:
		if err := want(2); err != nil {
			return nil, err
		}
		s1, err := src(0)
		if err != nil {
			return nil, err
		}
		s2, err := src(1)
		if err != nil {
			return nil, err
		}
		if dst.Type == ginsn.DstUnknown {
			return nil, operandError(d.Op.String() + " needs a destination")
		}
		return []*ginsn.Insn{ginsn.NewArith(d.Op.insnType(), s1, s2, dst)}, nil
	case OpMov:
		if err := want(1); err != nil {
			return nil, err
		}
		s, err := src(0)
		if err != nil {
			return nil, err
		}
		if dst.Type == ginsn.DstUnknown {
			return nil, operandError("mov needs a destination")
		}
		return []*ginsn.Insn{ginsn.NewMov(s, dst)}, nil
	case OpStore, OpPush:
		if err := want(1); err != nil {
			return nil, err
		}
		s, err := src(0)
		if err != nil {
			return nil, err
		}
		if s.Type != ginsn.SrcReg {
			return nil, operandError(d.Op.String() + " source must be a register")
		}
		store := ginsn.NewStore(s.Reg)
		if dst.Type == ginsn.DstStack {
			store.Dst = dst
		}
		if d.Op == OpStore {
			return []*ginsn.Insn{store}, nil
		}
		return []*ginsn.Insn{
			ginsn.NewArith(ginsn.TypeSub, sp, slot, ginsn.DstRegister(a.SP)),
			store,
		}, nil
	case OpLoad, OpPop:
		if dst.Type != ginsn.DstReg {
			return nil, operandError(d.Op.String() + " destination must be a register")
		}
		load := ginsn.NewLoad(dst.Reg)
		if d.Op == OpLoad {
			return []*ginsn.Insn{load}, nil
		}
		return []*ginsn.Insn{
			load,
			ginsn.NewArith(ginsn.TypeAdd, sp, slot, ginsn.DstRegister(a.SP)),
		}, nil
	case OpOther:
		if len(d.Src) > 2 {
			return nil, operandError("other takes at most 2 source operands")
		}
		s1, err := src(0)
		if err != nil {
			return nil, err
		}
		s2, err := src(1)
		if err != nil {
			return nil, err
		}
		return []*ginsn.Insn{ginsn.NewOther(s1, s2, dst)}, nil
	default:
		return nil, operandError("missing op")
	}
}
