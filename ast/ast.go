// Package ast defines the pre-SIR abstract syntax tree the TxScript
// parser produces. It mirrors the sir node set almost one-for-one
// (sir.Script <-> ast.Script, sir.If <-> ast.If, ...) since TxScript
// has no syntax the structural IR can't already represent directly;
// the split exists so the parser stays a pure syntax-to-tree step and
// symbol resolution (declare vs. assign, builtin dispatch, stack
// assumption registration) happens in one place, in compiler's toSIR.
package ast

import "github.com/dr8co/txsc/token"

// Node is the base interface for every AST node.
type Node interface {
	TokenLiteral() string
	Line() int
}

// Statement is a node that produces no value.
type Statement interface {
	Node
	statementNode()
}

// Expression is a node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// Script is the root node: an ordered list of top-level statements.
type Script struct {
	Statements []Statement
}

func (s *Script) TokenLiteral() string {
	if len(s.Statements) > 0 {
		return s.Statements[0].TokenLiteral()
	}
	return ""
}
func (s *Script) Line() int {
	if len(s.Statements) > 0 {
		return s.Statements[0].Line()
	}
	return 0
}

// Identifier references a name.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Line() int            { return i.Token.Line }

// IntegerLiteral is a decimal integer literal.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (i *IntegerLiteral) expressionNode()      {}
func (i *IntegerLiteral) TokenLiteral() string { return i.Token.Literal }
func (i *IntegerLiteral) Line() int            { return i.Token.Line }

// BytesLiteral is a hex or quoted-string byte-array literal.
type BytesLiteral struct {
	Token token.Token
	Value []byte
}

func (b *BytesLiteral) expressionNode()      {}
func (b *BytesLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BytesLiteral) Line() int            { return b.Token.Line }

// PrefixExpression is a unary operator applied to Right ("-x", "~x", "!x").
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (p *PrefixExpression) expressionNode()      {}
func (p *PrefixExpression) TokenLiteral() string { return p.Token.Literal }
func (p *PrefixExpression) Line() int            { return p.Token.Line }

// InfixExpression is a binary operator applied to Left and Right.
type InfixExpression struct {
	Token    token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (n *InfixExpression) expressionNode()      {}
func (n *InfixExpression) TokenLiteral() string { return n.Token.Literal }
func (n *InfixExpression) Line() int            { return n.Token.Line }

// CallExpression invokes a builtin or user-defined function by name.
type CallExpression struct {
	Token     token.Token
	Function  string
	Arguments []Expression
}

func (c *CallExpression) expressionNode()      {}
func (c *CallExpression) TokenLiteral() string { return c.Token.Literal }
func (c *CallExpression) Line() int            { return c.Token.Line }

// CastExpression is "value as int" / "value as bytes".
type CastExpression struct {
	Token  token.Token
	Value  Expression
	AsType string
}

func (c *CastExpression) expressionNode()      {}
func (c *CastExpression) TokenLiteral() string { return c.Token.Literal }
func (c *CastExpression) Line() int            { return c.Token.Line }

// InnerScriptLiteral is a nested "{ ... }" script literal, pushed as a
// single serialized data blob (a P2SH redeem script expressed inline).
type InnerScriptLiteral struct {
	Token      token.Token
	Statements []Statement
}

func (i *InnerScriptLiteral) expressionNode()      {}
func (i *InnerScriptLiteral) TokenLiteral() string { return i.Token.Literal }
func (i *InnerScriptLiteral) Line() int            { return i.Token.Line }

// AssumeStatement declares the names of the assumed initial stack
// items, from bottom to top (the first name is the deepest).
type AssumeStatement struct {
	Token token.Token
	Names []string
}

func (a *AssumeStatement) statementNode()      {}
func (a *AssumeStatement) TokenLiteral() string { return a.Token.Literal }
func (a *AssumeStatement) Line() int            { return a.Token.Line }

// LetStatement introduces a new name bound to Value.
type LetStatement struct {
	Token   token.Token
	Name    string
	Value   Expression
	Mutable bool
}

func (l *LetStatement) statementNode()      {}
func (l *LetStatement) TokenLiteral() string { return l.Token.Literal }
func (l *LetStatement) Line() int            { return l.Token.Line }

// AssignStatement rebinds an existing name.
type AssignStatement struct {
	Token token.Token
	Name  string
	Value Expression
}

func (a *AssignStatement) statementNode()      {}
func (a *AssignStatement) TokenLiteral() string { return a.Token.Literal }
func (a *AssignStatement) Line() int            { return a.Token.Line }

// DelStatement removes a symbol table entry.
type DelStatement struct {
	Token token.Token
	Name  string
}

func (d *DelStatement) statementNode()      {}
func (d *DelStatement) TokenLiteral() string { return d.Token.Literal }
func (d *DelStatement) Line() int            { return d.Token.Line }

// VerifyStatement evaluates Value then appends a verifying opcode.
type VerifyStatement struct {
	Token token.Token
	Value Expression
}

func (v *VerifyStatement) statementNode()      {}
func (v *VerifyStatement) TokenLiteral() string { return v.Token.Literal }
func (v *VerifyStatement) Line() int            { return v.Token.Line }

// PushStatement explicitly marks Value as something pushed to the stack.
type PushStatement struct {
	Token token.Token
	Value Expression
}

func (p *PushStatement) statementNode()      {}
func (p *PushStatement) TokenLiteral() string { return p.Token.Literal }
func (p *PushStatement) Line() int            { return p.Token.Line }

// IfStatement is a conditional with optional else branch.
type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence []Statement
	Alternative []Statement
}

func (i *IfStatement) statementNode()      {}
func (i *IfStatement) TokenLiteral() string { return i.Token.Literal }
func (i *IfStatement) Line() int            { return i.Token.Line }

// FuncStatement is a function definition.
type FuncStatement struct {
	Token  token.Token
	Name   string
	Params []string
	Body   []Statement
}

func (f *FuncStatement) statementNode()      {}
func (f *FuncStatement) TokenLiteral() string { return f.Token.Literal }
func (f *FuncStatement) Line() int            { return f.Token.Line }

// ReturnStatement is a function's return statement.
type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (r *ReturnStatement) statementNode()      {}
func (r *ReturnStatement) TokenLiteral() string { return r.Token.Literal }
func (r *ReturnStatement) Line() int            { return r.Token.Line }

// ExpressionStatement is a bare expression statement (an implicit
// push, permitted only when config.Options.ImplicitPushes is set).
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (e *ExpressionStatement) statementNode()      {}
func (e *ExpressionStatement) TokenLiteral() string { return e.Token.Literal }
func (e *ExpressionStatement) Line() int            { return e.Token.Line }
