package ginsn

import "github.com/wippyai/cfisynth/cfi"

// Block is a basic block of generic instructions.
//
// Entry and Exit are the unwind state snapshots recorded by the forward pass
// on the first visit; nothing may modify them afterwards.
type Block struct {
	Label   string
	Entry   *cfi.State
	Exit    *cfi.State
	Insns   []*Insn
	Out     []*Edge
	ID      int64
	Visited bool
}

// Edge is a control flow edge to Dst.
type Edge struct {
	Dst     *Block
	Visited bool
}

// First returns the first instruction of the block, or nil if it is empty.
func (b *Block) First() *Insn {
	if len(b.Insns) == 0 {
		return nil
	}
	return b.Insns[0]
}

// Last returns the last instruction of the block, or nil if it is empty.
func (b *Block) Last() *Insn {
	if len(b.Insns) == 0 {
		return nil
	}
	return b.Insns[len(b.Insns)-1]
}

// Append adds instructions to the end of the block.
func (b *Block) Append(insns ...*Insn) *Block {
	b.Insns = append(b.Insns, insns...)
	return b
}

// CFG is the control flow graph of one function. Blocks are kept in program
// order; the first block added is the root.
type CFG struct {
	Blocks []*Block
	nextID uint64
}

// NewCFG creates an empty graph.
func NewCFG() *CFG {
	return &CFG{}
}

// NewBlock appends a new block in program order and adds insns to it.
func (g *CFG) NewBlock(label string, insns ...*Insn) *Block {
	b := &Block{Label: label, ID: int64(len(g.Blocks)) + 1}
	g.Blocks = append(g.Blocks, b)
	g.Add(b, insns...)
	return b
}

// Add appends instructions to b, numbering them in program order.
func (g *CFG) Add(b *Block, insns ...*Insn) {
	for _, insn := range insns {
		g.nextID++
		insn.ID = g.nextID
	}
	b.Append(insns...)
}

// Connect adds an edge from src to dst. Edge order is the traversal order.
func (g *CFG) Connect(src, dst *Block) *Edge {
	e := &Edge{Dst: dst}
	src.Out = append(src.Out, e)
	return e
}

// Root returns the entry block, or nil for an empty graph.
func (g *CFG) Root() *Block {
	if len(g.Blocks) == 0 {
		return nil
	}
	return g.Blocks[0]
}

// Len returns the number of blocks.
func (g *CFG) Len() int {
	return len(g.Blocks)
}

// ProgramOrder returns the blocks in source order.
func (g *CFG) ProgramOrder() []*Block {
	return g.Blocks
}

// Insns returns every instruction in program order.
func (g *CFG) Insns() []*Insn {
	var out []*Insn
	for _, b := range g.Blocks {
		out = append(out, b.Insns...)
	}
	return out
}

// Reset clears visited flags, snapshots and synthesized operations so the
// graph can be analyzed again.
func (g *CFG) Reset() {
	for _, b := range g.Blocks {
		b.Visited = false
		b.Entry = nil
		b.Exit = nil
		for _, e := range b.Out {
			e.Visited = false
		}
		for _, insn := range b.Insns {
			insn.Ops = nil
		}
	}
}

// Function is a named CFG.
type Function struct {
	Name string
	File string
	CFG  *CFG
}
