// Package compiler orchestrates the compiler pipeline: a dialect-specific
// front end produces either a structural IR tree or a linear IR program
// directly, an optional SIR optimization pass runs, SIR lowers to LIR,
// the LIR variable inliner resolves every declaration/assignment
// against the alt stack, and one of the three emitters in package emit
// renders the result.
//
// # Compilation process
//
//  1. Source text is lexed and parsed by the dialect named by the Source
//     field: TxScript through lexer/parser into an ast.Script, ASM
//     through asmlexer/asmparser straight into []lir.Node, byte-script
//     through bytescript.DecodeHex straight into []lir.Node.
//  2. TxScript's ast.Script is converted to a sir.Script by toSIR, which
//     also builds the symbol table every later stage reads.
//  3. sir.Optimize runs when Options.OptLevel is above OptNone.
//  4. lowering.Lower turns the (possibly optimized) SIR tree into an
//     initial, un-resolved LIR instruction list.
//  5. lir.Inline resolves every declaration and assignment against the
//     alt stack, re-running the peephole optimizer and contextualizer to
//     a fixed point as it goes; this step runs unconditionally since it
//     isn't optional constant-folding, it's how named values ever become
//     concrete stack operations. Deletion markers are left in place and
//     every emitter rejects them; sir.Optimize drops del statements
//     before lowering, so only an OptNone compile reaches that point.
//  6. A final standalone lir.Peephole pass runs when Options.OptLevel is
//     above OptNone, cleaning up anything the fixed point in step 5 left
//     for a reason other than inlining mechanics.
//
// ASM and byte-script sources skip steps 2-6 entirely: both dialects are
// already flat instruction lists with no structural nesting to recover,
// so they're parsed directly into []lir.Node, which is returned as
// parsed, with no inlining or peephole pass.
package compiler

import (
	"fmt"

	"github.com/dr8co/txsc/ast"
	"github.com/dr8co/txsc/asmparser"
	"github.com/dr8co/txsc/bytescript"
	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/emit"
	"github.com/dr8co/txsc/lexer"
	"github.com/dr8co/txsc/lir"
	"github.com/dr8co/txsc/lowering"
	"github.com/dr8co/txsc/parser"
	"github.com/dr8co/txsc/sir"
	"github.com/dr8co/txsc/txscerr"
)

// Dialect names one of the three source/target script representations.
type Dialect string

const (
	// TxScript is the C-like source language defined in ast/parser.
	TxScript Dialect = "txscript"
	// ASM is symbolic assembly: one whitespace-separated token per
	// opcode or push operand.
	ASM Dialect = "asm"
	// ByteScript is raw serialized script, hex-encoded.
	ByteScript Dialect = "bytescript"
)

// Result holds every representation a compilation produced. SIR is nil
// unless Source was TxScript, since ASM and byte-script never pass
// through structural IR.
type Result struct {
	SIR    *sir.Script
	Symtab *sir.SymbolTable
	LIR    []lir.Node

	// Warnings holds non-fatal type-check findings from sir.Optimize,
	// e.g. a byte array used in an arithmetic operation. Empty unless
	// Source was TxScript and OptLevel was above OptNone.
	Warnings []string
}

// Compile runs src (written in the src dialect) through the full
// pipeline described in the package doc and returns every intermediate
// representation a caller might want to emit from.
func Compile(src string, srcDialect Dialect, opts config.Options) (*Result, error) {
	switch srcDialect {
	case TxScript:
		return compileTxScript(src, opts)
	case ASM:
		instructions, err := asmparser.Parse(src)
		if err != nil {
			return nil, err
		}
		return &Result{LIR: instructions}, nil
	case ByteScript:
		instructions, err := bytescript.DecodeHex(src)
		if err != nil {
			return nil, err
		}
		return &Result{LIR: instructions}, nil
	default:
		return nil, fmt.Errorf("compiler: unknown source dialect %q", srcDialect)
	}
}

func compileTxScript(src string, opts config.Options) (*Result, error) {
	l := lexer.New(src)
	p := parser.New(l)
	script := p.ParseScript()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, txscerr.New(txscerr.ParsingError, 0, "%s", joinErrors(errs))
	}

	symtab := sir.NewSymbolTable()
	sirScript, err := toSIR(script, symtab, opts)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if opts.OptLevel > config.OptNone {
		sirScript, warnings, err = sir.Optimize(sirScript, symtab, opts)
		if err != nil {
			return nil, err
		}
	}

	instructions, err := lowering.Lower(sirScript, symtab, opts)
	if err != nil {
		return nil, err
	}

	altstack := lir.NewAltStackManager(opts)
	instructions = lir.Inline(instructions, symtab, altstack)

	if opts.OptLevel > config.OptNone {
		instructions = lir.Peephole(instructions)
	}
	lir.Contextualize(instructions)

	return &Result{SIR: sirScript, Symtab: symtab, LIR: instructions, Warnings: warnings}, nil
}

// Emit renders r in the target dialect. TxScript output is only
// available when r carries a SIR tree, i.e. the source was TxScript
// itself: ASM and byte-script sources never reconstruct one (see the
// package doc and DESIGN.md's note on why decompiling flat instructions
// back into structural IR is out of scope).
func Emit(r *Result, target Dialect) (string, error) {
	switch target {
	case TxScript:
		if r.SIR == nil {
			return "", fmt.Errorf("compiler: cannot emit TxScript from a source that never produced structural IR")
		}
		return emit.TxScript(r.SIR), nil
	case ASM:
		return emit.ASM(r.LIR)
	case ByteScript:
		return emit.ByteScriptHex(r.LIR)
	default:
		return "", fmt.Errorf("compiler: unknown target dialect %q", target)
	}
}

func joinErrors(errs []string) string {
	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}
	return out
}
