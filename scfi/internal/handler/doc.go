// Package handler implements the symbolic executor: the per-instruction
// transition function over the unwind state.
//
// Each generic instruction type has a Handler registered in a Registry.
// The Executor runs the two stack heuristics before dispatching:
//
//   - a stack-pointer-based CFA must have a known depth, so changing SP by
//     an unknown amount is rejected (or makes the stack untraceable when
//     the CFA is frame-pointer-based);
//   - while the CFA is frame-pointer-based the frame pointer must not be
//     used as a scratch register.
//
// Handlers append unwind operations to the instruction they execute and
// record non-fatal asymmetric restores in the Context.
package handler
