// Package config holds the compiler's option surface and the directive
// mechanism that lets a source file override those options inline.
package config

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/dr8co/txsc/txscerr"
)

// OptLevel selects how aggressively the optimizers run.
type OptLevel int

const (
	// OptNone skips sir.Optimize and the final standalone peephole
	// pass. lir.Inline still applies the peephole rules while it
	// resolves variables, at every level.
	OptNone OptLevel = iota
	// OptBasic runs sir.Optimize (constant folding, commutative
	// rewriting, type checking, function inlining) and the final
	// peephole pass.
	OptBasic
	// OptFull runs the same passes as OptBasic; the compiler does not
	// distinguish the two levels.
	OptFull
)

// Options controls every optional behavior of the compiler.
type Options struct {
	// OptLevel selects the optimization level (0, 1 or 2).
	OptLevel OptLevel

	// Verbose enables warning-level diagnostics (e.g. implicit
	// pushes or oversized literals that are permitted but unusual).
	Verbose bool

	// StrictNum requires every numeric literal, including the
	// results of constant folding, to fit in 4 bytes.
	StrictNum bool

	// ImplicitPushes allows a bare expression statement whose value
	// isn't wrapped in an explicit push to be pushed implicitly.
	// When false, such a statement is an IRImplicitPushError.
	ImplicitPushes bool

	// AllowInvalidComparisons is set by the allow_invalid_comparisons
	// directive and carried in Options. No compiler stage reads it:
	// there is no hash-length validation of literals compared against
	// a Hash160/RipeMD160/Hash256/Sha256 result.
	AllowInvalidComparisons bool

	// UseAltStackForAssumptions forces every assumed stack item to be
	// moved to the alt stack during compilation, even ones that never
	// need it for correctness.
	UseAltStackForAssumptions bool

	// OpcodeSet names the opcode descriptor table to compile against.
	// "default" is the only set built in.
	OpcodeSet string
}

// Default returns the option set used when no directives or flags
// override anything.
func Default() Options {
	return Options{
		OptLevel:       OptFull,
		StrictNum:      true,
		ImplicitPushes: true,
		OpcodeSet:      "default",
	}
}

// ParseDirectives scans src for directive comments and returns the
// Options they produce, starting from base. A directive line has the
// form:
//
//	# txsc: key=value
//
// Directive lines are recognized line by line throughout the file,
// not only at its start.
func ParseDirectives(src string, base Options) (Options, error) {
	opts := base
	scanner := bufio.NewScanner(strings.NewReader(src))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
		if !strings.HasPrefix(line, "txsc:") {
			continue
		}
		directive := strings.TrimSpace(strings.TrimPrefix(line, "txsc:"))
		if directive == "" {
			continue
		}
		parts := strings.SplitN(directive, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}
		if err := applyDirective(&opts, key, value, lineno); err != nil {
			return base, err
		}
	}
	return opts, nil
}

func applyDirective(opts *Options, key, value string, line int) error {
	switch key {
	case "opt_level":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 2 {
			return txscerr.New(txscerr.DirectiveError, line, "opt_level must be 0, 1 or 2, got %q", value)
		}
		opts.OptLevel = OptLevel(n)
	case "strict_num":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return txscerr.New(txscerr.DirectiveError, line, "strict_num must be a bool, got %q", value)
		}
		opts.StrictNum = b
	case "implicit_pushes":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return txscerr.New(txscerr.DirectiveError, line, "implicit_pushes must be a bool, got %q", value)
		}
		opts.ImplicitPushes = b
	case "allow_invalid_comparisons":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return txscerr.New(txscerr.DirectiveError, line, "allow_invalid_comparisons must be a bool, got %q", value)
		}
		opts.AllowInvalidComparisons = b
	case "use_altstack_for_assumptions":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return txscerr.New(txscerr.DirectiveError, line, "use_altstack_for_assumptions must be a bool, got %q", value)
		}
		opts.UseAltStackForAssumptions = b
	case "opcode_set":
		opts.OpcodeSet = value
	default:
		return txscerr.New(txscerr.DirectiveError, line, "unrecognized directive %q", key)
	}
	return nil
}
