// Package engine drives unwind synthesis for one function.
//
// Pipeline:
//  1. Anchor the CFA at the function begin marker (initial state)
//  2. Forward pass: depth-first walk from the entry block, executing each
//     block once and checking that every merge point sees one unwind state
//  3. Backward pass: reverse program order walk inserting remember_state /
//     restore_state where a block's entry differs from its layout
//     predecessor's exit
package engine
