package handler

import "github.com/wippyai/cfisynth/ginsn"

// Handler executes one instruction type against the unwind state.
//
// Handlers are stateless and can be shared across functions. All mutable
// state lives in the Context.
type Handler interface {
	Handle(ctx *Context, insn *ginsn.Insn) error
}

// Registry maps instruction types to their handlers.
type Registry struct {
	handlers [ginsn.NumTypes]Handler
	names    [ginsn.NumTypes]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handler for a single instruction type, replacing any
// previous one. The name shows up in the engine's per-instruction debug log.
func (r *Registry) Register(typ ginsn.Type, h Handler, name string) {
	r.handlers[typ] = h
	r.names[typ] = name
}

// RegisterBulk registers the same handler for several types.
func (r *Registry) RegisterBulk(types []ginsn.Type, h Handler, name string) {
	for _, t := range types {
		r.Register(t, h, name)
	}
}

// Get returns the handler for typ, or nil if none is registered.
func (r *Registry) Get(typ ginsn.Type) Handler {
	if typ >= ginsn.NumTypes {
		return nil
	}
	return r.handlers[typ]
}

// Has reports whether a handler is registered for typ.
func (r *Registry) Has(typ ginsn.Type) bool {
	return r.Get(typ) != nil
}

// Name returns the name the handler for typ was registered with.
func (r *Registry) Name(typ ginsn.Type) string {
	if typ >= ginsn.NumTypes {
		return ""
	}
	return r.names[typ]
}

// MissingHandlers returns the types in types that have no handler.
func (r *Registry) MissingHandlers(types []ginsn.Type) []ginsn.Type {
	var missing []ginsn.Type
	for _, t := range types {
		if !r.Has(t) {
			missing = append(missing, t)
		}
	}
	return missing
}

// AllTypes lists every generic instruction type.
func AllTypes() []ginsn.Type {
	types := make([]ginsn.Type, 0, ginsn.NumTypes)
	for t := ginsn.Type(0); t < ginsn.NumTypes; t++ {
		types = append(types, t)
	}
	return types
}

// Default returns a registry with the standard handlers installed.
func Default() *Registry {
	r := NewRegistry()
	r.Register(ginsn.TypeSymbol, MarkerHandler{}, "marker")
	r.Register(ginsn.TypeMov, MovHandler{}, "mov")
	r.RegisterBulk([]ginsn.Type{ginsn.TypeAdd, ginsn.TypeSub}, ArithHandler{}, "arith")
	r.Register(ginsn.TypeStore, StoreHandler{}, "store")
	r.Register(ginsn.TypeLoad, LoadHandler{}, "load")
	r.RegisterBulk([]ginsn.Type{
		ginsn.TypeAnd,
		ginsn.TypeCall,
		ginsn.TypeJump,
		ginsn.TypeJumpCond,
		ginsn.TypeReturn,
		ginsn.TypeOther,
	}, NopHandler{}, "nop")
	return r
}

// NopHandler leaves the state untouched. Instructions of these types can
// still be rejected by the stack heuristics before dispatch.
type NopHandler struct{}

func (NopHandler) Handle(*Context, *ginsn.Insn) error { return nil }
