package compiler

import (
	"github.com/dr8co/txsc/ast"
	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/sir"
	"github.com/dr8co/txsc/txscerr"
)

// unaryOps maps a PrefixExpression operator to the opcode it lowers to,
// grounded on script_transformer.py's unary_ops table.
var unaryOps = map[string]string{
	"-": "OP_NEGATE",
	"~": "OP_INVERT",
	"!": "OP_NOT",
}

// binaryOps maps an InfixExpression operator to the opcode it lowers
// to, grounded on script_transformer.py's binary_ops table. "!=" has no
// entry here: script_transformer.py lowers NotEq to OP_EQUAL followed
// by OP_NOT, not a numeric-comparison opcode, so it is special-cased
// below rather than given its own table row.
var binaryOps = map[string]string{
	"+":   "OP_ADD",
	"-":   "OP_SUB",
	"*":   "OP_MUL",
	"/":   "OP_DIV",
	"%":   "OP_MOD",
	"<<":  "OP_LSHIFT",
	">>":  "OP_RSHIFT",
	"==":  "OP_EQUAL",
	"<":   "OP_LESSTHAN",
	">":   "OP_GREATERTHAN",
	"<=":  "OP_LESSTHANOREQUAL",
	">=":  "OP_GREATERTHANOREQUAL",
	"and": "OP_BOOLAND",
	"or":  "OP_BOOLOR",
}

type builtinArity int

const (
	arityUnary builtinArity = iota
	arityBinary
	arityVariadic
)

type builtin struct {
	opcode string
	arity  builtinArity
	nargs  int // expected argument count; -1 means any
}

// opFunctions maps a builtin TxScript function name to its opcode,
// grounded on script_transformer.py's op_functions table.
var opFunctions = map[string]builtin{
	"incr":          {"OP_1ADD", arityUnary, 1},
	"decr":          {"OP_1SUB", arityUnary, 1},
	"abs":           {"OP_ABS", arityUnary, 1},
	"size":          {"OP_SIZE", arityUnary, 1},
	"ripemd160":     {"OP_RIPEMD160", arityUnary, 1},
	"sha1":          {"OP_SHA1", arityUnary, 1},
	"sha256":        {"OP_SHA256", arityUnary, 1},
	"hash160":       {"OP_HASH160", arityUnary, 1},
	"hash256":       {"OP_HASH256", arityUnary, 1},
	"min":           {"OP_MIN", arityBinary, 2},
	"max":           {"OP_MAX", arityBinary, 2},
	"concat":        {"OP_CAT", arityBinary, 2},
	"left":          {"OP_LEFT", arityBinary, 2},
	"right":         {"OP_RIGHT", arityBinary, 2},
	"checkSig":      {"OP_CHECKSIG", arityBinary, 2},
	"substr":        {"OP_SUBSTR", arityVariadic, 3},
	"within":        {"OP_WITHIN", arityVariadic, 3},
	"checkMultiSig": {"OP_CHECKMULTISIG", arityVariadic, -1},
}

// toSIR walks an ast.Script and builds the equivalent sir.Script,
// resolving declarations, assignments, and stack assumptions against
// symtab as it goes. This mirrors script_transformer.py's role, but
// splits cleanly from the parser (which stays a pure syntax step) per
// the teacher's Compile(ast.Node) shape: a single recursive, type-switch
// function threading a symbol table, returning error rather than
// panicking.
func toSIR(script *ast.Script, symtab *sir.SymbolTable, opts config.Options) (*sir.Script, error) {
	out := &sir.Script{}
	for i, stmt := range script.Statements {
		if _, ok := stmt.(*ast.AssumeStatement); ok && i != 0 {
			return nil, txscerr.New(txscerr.ParsingError, stmt.Line(),
				"assume must be the first statement in the script")
		}
		node, err := toSIRStmt(stmt, symtab, opts)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out.Statements = append(out.Statements, node)
		}
	}
	return out, nil
}

func toSIRStmt(stmt ast.Statement, symtab *sir.SymbolTable, opts config.Options) (sir.Node, error) {
	switch n := stmt.(type) {
	case *ast.AssumeStatement:
		symtab.AddStackAssumptions(n.Names)
		names := make([]sir.Node, len(n.Names))
		for i, name := range n.Names {
			names[i] = sir.NewSymbol(n.Line(), name)
		}
		return &sir.Declaration{
			Name:    "_stack",
			Value:   &sir.Script{Statements: names},
			Type:    sir.TypeExpr,
			Mutable: false,
		}, nil

	case *ast.LetStatement:
		val, err := toSIRExpr(n.Value, symtab, opts)
		if err != nil {
			return nil, err
		}
		typ := sirTypeOf(val)
		if err := symtab.Declare(sir.Symbol{Name: n.Name, Value: val, Type: typ, Mutable: n.Mutable}); err != nil {
			return nil, txscerr.Wrap(n.Line(), err)
		}
		return &sir.Declaration{Name: n.Name, Value: val, Type: typ, Mutable: n.Mutable}, nil

	case *ast.AssignStatement:
		val, err := toSIRExpr(n.Value, symtab, opts)
		if err != nil {
			return nil, err
		}
		if err := symtab.Assign(n.Name, val); err != nil {
			return nil, txscerr.Wrap(n.Line(), err)
		}
		return &sir.Assignment{Name: n.Name, Value: val}, nil

	case *ast.DelStatement:
		if err := symtab.Delete(n.Name); err != nil {
			return nil, txscerr.Wrap(n.Line(), err)
		}
		return &sir.Deletion{Name: n.Name}, nil

	case *ast.VerifyStatement:
		val, err := toSIRExpr(n.Value, symtab, opts)
		if err != nil {
			return nil, err
		}
		return &sir.VerifyOpCode{OpCode: sir.OpCode{Name: "OP_VERIFY"}, Test: val}, nil

	case *ast.PushStatement:
		val, err := toSIRExpr(n.Value, symtab, opts)
		if err != nil {
			return nil, err
		}
		return &sir.Push{Expr: val}, nil

	case *ast.IfStatement:
		test, err := toSIRExpr(n.Condition, symtab, opts)
		if err != nil {
			return nil, err
		}
		symtab.BeginScope(sir.ScopeConditional)
		trueBranch, err := toSIRBlock(n.Consequence, symtab, opts)
		symtab.EndScope()
		if err != nil {
			return nil, err
		}
		var falseBranch []sir.Node
		if n.Alternative != nil {
			symtab.BeginScope(sir.ScopeConditional)
			falseBranch, err = toSIRBlock(n.Alternative, symtab, opts)
			symtab.EndScope()
			if err != nil {
				return nil, err
			}
		}
		return &sir.If{Test: test, TrueBranch: trueBranch, FalseBranch: falseBranch}, nil

	case *ast.FuncStatement:
		if !symtab.IsGlobalScope() {
			return nil, txscerr.New(txscerr.IRError, n.Line(), "function %q must be defined in the global scope", n.Name)
		}
		if len(n.Body) == 0 {
			return nil, txscerr.New(txscerr.IRError, n.Line(), "function %q has an empty body", n.Name)
		}
		symtab.BeginScope(sir.ScopeFunction)
		for _, p := range n.Params {
			if err := symtab.Declare(sir.Symbol{Name: p, Type: sir.TypeExpr, Mutable: false}); err != nil {
				symtab.EndScope()
				return nil, txscerr.Wrap(n.Line(), err)
			}
		}
		body, err := toSIRBlock(n.Body, symtab, opts)
		symtab.EndScope()
		if err != nil {
			return nil, err
		}
		fn := &sir.Function{Name: n.Name, ReturnType: sir.TypeExpr, Args: n.Params, Body: body}
		if err := symtab.AddFunctionDef(n.Name, fn); err != nil {
			return nil, txscerr.Wrap(n.Line(), err)
		}
		return fn, nil

	case *ast.ReturnStatement:
		val, err := toSIRExpr(n.Value, symtab, opts)
		if err != nil {
			return nil, err
		}
		return &sir.Return{Value: val}, nil

	case *ast.ExpressionStatement:
		val, err := toSIRExpr(n.Expression, symtab, opts)
		if err != nil {
			return nil, err
		}
		if !opts.ImplicitPushes {
			return nil, txscerr.New(txscerr.IRImplicitPushError, n.Line(),
				"bare expression statement is an implicit push; enable ImplicitPushes or wrap it in push(...)")
		}
		return &sir.Push{Expr: val}, nil

	default:
		return nil, txscerr.New(txscerr.ParsingError, stmt.Line(), "unhandled statement type %T", stmt)
	}
}

func toSIRBlock(stmts []ast.Statement, symtab *sir.SymbolTable, opts config.Options) ([]sir.Node, error) {
	out := make([]sir.Node, 0, len(stmts))
	for _, s := range stmts {
		node, err := toSIRStmt(s, symtab, opts)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

func toSIRExpr(expr ast.Expression, symtab *sir.SymbolTable, opts config.Options) (sir.Node, error) {
	switch n := expr.(type) {
	case *ast.IntegerLiteral:
		return sir.NewInt(n.Line(), n.Value), nil

	case *ast.BytesLiteral:
		return sir.NewBytes(n.Line(), n.Value), nil

	case *ast.Identifier:
		if _, ok := symtab.Lookup(n.Value); !ok {
			return nil, txscerr.New(txscerr.ParsingError, n.Line(), "undeclared name %q", n.Value)
		}
		return sir.NewSymbol(n.Line(), n.Value), nil

	case *ast.PrefixExpression:
		opName, ok := unaryOps[n.Operator]
		if !ok {
			return nil, txscerr.New(txscerr.ParsingError, n.Line(), "unknown unary operator %q", n.Operator)
		}
		operand, err := toSIRExpr(n.Right, symtab, opts)
		if err != nil {
			return nil, err
		}
		return &sir.UnaryOpCode{OpCode: sir.OpCode{Name: opName}, Operand: operand}, nil

	case *ast.InfixExpression:
		left, err := toSIRExpr(n.Left, symtab, opts)
		if err != nil {
			return nil, err
		}
		right, err := toSIRExpr(n.Right, symtab, opts)
		if err != nil {
			return nil, err
		}

		if n.Operator == "!=" {
			eq := &sir.BinOpCode{OpCode: sir.OpCode{Name: "OP_EQUAL"}, Left: left, Right: right}
			return &sir.UnaryOpCode{OpCode: sir.OpCode{Name: "OP_NOT"}, Operand: eq}, nil
		}

		opName, ok := binaryOps[n.Operator]
		if !ok {
			return nil, txscerr.New(txscerr.ParsingError, n.Line(), "unknown binary operator %q", n.Operator)
		}
		return &sir.BinOpCode{OpCode: sir.OpCode{Name: opName}, Left: left, Right: right}, nil

	case *ast.CastExpression:
		val, err := toSIRExpr(n.Value, symtab, opts)
		if err != nil {
			return nil, err
		}
		asType := sir.TypeInteger
		if n.AsType == "bytes" {
			asType = sir.TypeByteArray
		}
		return &sir.Cast{Value: val, AsType: asType}, nil

	case *ast.InnerScriptLiteral:
		symtab.BeginScope(sir.ScopeGeneral)
		stmts, err := toSIRBlock(n.Statements, symtab, opts)
		symtab.EndScope()
		if err != nil {
			return nil, err
		}
		return &sir.InnerScript{Statements: stmts}, nil

	case *ast.CallExpression:
		return toSIRCall(n, symtab, opts)

	default:
		return nil, txscerr.New(txscerr.ParsingError, expr.Line(), "unhandled expression type %T", expr)
	}
}

func toSIRCall(n *ast.CallExpression, symtab *sir.SymbolTable, opts config.Options) (sir.Node, error) {
	args := make([]sir.Node, len(n.Arguments))
	for i, a := range n.Arguments {
		val, err := toSIRExpr(a, symtab, opts)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	if b, ok := opFunctions[n.Function]; ok {
		if b.nargs >= 0 && len(args) != b.nargs {
			return nil, txscerr.New(txscerr.ParsingError, n.Line(),
				"%s expects %d argument(s), got %d", n.Function, b.nargs, len(args))
		}
		switch b.arity {
		case arityUnary:
			return &sir.UnaryOpCode{OpCode: sir.OpCode{Name: b.opcode}, Operand: args[0]}, nil
		case arityBinary:
			return &sir.BinOpCode{OpCode: sir.OpCode{Name: b.opcode}, Left: args[0], Right: args[1]}, nil
		default:
			return &sir.VariableArgsOpCode{OpCode: sir.OpCode{Name: b.opcode}, Operands: args}, nil
		}
	}

	if _, ok := symtab.Lookup(n.Function); !ok {
		return nil, txscerr.New(txscerr.ParsingError, n.Line(), "call to undeclared function %q", n.Function)
	}
	return &sir.FunctionCall{Name: n.Function, Args: args}, nil
}

// sirTypeOf infers a Declaration's symbol-table Type from its already-
// converted initializer, falling back to TypeExpr for anything not
// trivially an Int or Bytes literal.
func sirTypeOf(node sir.Node) sir.Type {
	switch node.(type) {
	case *sir.Int:
		return sir.TypeInteger
	case *sir.Bytes:
		return sir.TypeByteArray
	default:
		return sir.TypeExpr
	}
}
