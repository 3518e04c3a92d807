// Package parser implements a Pratt parser for TxScript, producing an
// ast.Script. It follows the teacher's parser package shape exactly:
// a recursive-descent statement dispatcher plus precedence-climbing
// expression parsing driven by prefix/infix function tables.
package parser

import (
	"fmt"
	"strconv"

	"github.com/dr8co/txsc/ast"
	"github.com/dr8co/txsc/lexer"
	"github.com/dr8co/txsc/token"
)

const (
	_ int = iota
	Lowest
	Or          // or
	And         // and
	Equals      // == !=
	LessGreater // < > <= >=
	Shift       // << >>
	Sum         // + -
	Product     // * / %
	Prefix      // -x ~x !x
	Cast        // x as int
	Call        // f(x)
)

var precedences = map[token.Type]int{
	token.Or:      Or,
	token.And:     And,
	token.Eq:      Equals,
	token.NotEq:   Equals,
	token.Lt:      LessGreater,
	token.Lte:     LessGreater,
	token.Gt:      LessGreater,
	token.Gte:     LessGreater,
	token.LShift:  Shift,
	token.RShift:  Shift,
	token.Plus:    Sum,
	token.Minus:   Sum,
	token.Asterisk: Product,
	token.Slash:   Product,
	token.Percent: Product,
	token.As:      Cast,
	token.Lparen:  Call,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser parses a token stream from lexer.Lexer into an ast.Script.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser over l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.Ident, p.parseIdentifier)
	p.registerPrefix(token.Int, p.parseIntegerLiteral)
	p.registerPrefix(token.Hex, p.parseHexLiteral)
	p.registerPrefix(token.String, p.parseStringLiteral)
	p.registerPrefix(token.Minus, p.parsePrefixExpression)
	p.registerPrefix(token.Tilde, p.parsePrefixExpression)
	p.registerPrefix(token.Bang, p.parsePrefixExpression)
	p.registerPrefix(token.Lparen, p.parseGroupedExpression)
	p.registerPrefix(token.Lbrace, p.parseInnerScriptLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{
		token.Plus, token.Minus, token.Asterisk, token.Slash, token.Percent,
		token.LShift, token.RShift, token.Eq, token.NotEq,
		token.Lt, token.Lte, token.Gt, token.Gte, token.And, token.Or,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.As, p.parseCastExpression)
	p.registerInfix(token.Lparen, p.parseCallExpression)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns the list of parse errors encountered so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) currentTokenIs(t token.Type) bool { return p.currentToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool     { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: expected next token to be %s, got %s instead",
		p.peekToken.Line, t, p.peekToken.Type))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.currentToken.Type]; ok {
		return pr
	}
	return Lowest
}

// ParseScript parses a complete TxScript program.
func (p *Parser) ParseScript() *ast.Script {
	script := &ast.Script{}
	for !p.currentTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			script.Statements = append(script.Statements, stmt)
		}
		p.nextToken()
	}
	return script
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.currentToken.Type {
	case token.Assume:
		return p.parseAssumeStatement()
	case token.Let:
		return p.parseLetStatement()
	case token.Del:
		return p.parseDelStatement()
	case token.Verify:
		return p.parseVerifyStatement()
	case token.Push:
		return p.parsePushStatement()
	case token.If:
		return p.parseIfStatement()
	case token.Func:
		return p.parseFuncStatement()
	case token.Return:
		return p.parseReturnStatement()
	case token.Ident:
		if p.peekTokenIs(token.Assign) {
			return p.parseAssignStatement()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseAssumeStatement() ast.Statement {
	stmt := &ast.AssumeStatement{Token: p.currentToken}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Names = append(stmt.Names, p.currentToken.Literal)
	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		stmt.Names = append(stmt.Names, p.currentToken.Literal)
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.currentToken}
	if p.peekTokenIs(token.Mut) {
		p.nextToken()
		stmt.Mutable = true
	}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = p.currentToken.Literal
	if !p.expectPeek(token.Assign) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseAssignStatement() ast.Statement {
	stmt := &ast.AssignStatement{Token: p.currentToken, Name: p.currentToken.Literal}
	if !p.expectPeek(token.Assign) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseDelStatement() ast.Statement {
	stmt := &ast.DelStatement{Token: p.currentToken}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = p.currentToken.Literal
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseVerifyStatement() ast.Statement {
	stmt := &ast.VerifyStatement{Token: p.currentToken}
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parsePushStatement() ast.Statement {
	stmt := &ast.PushStatement{Token: p.currentToken}
	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.currentToken}
	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Consequence = p.parseBlock()
	if p.peekTokenIs(token.Else) {
		p.nextToken()
		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		stmt.Alternative = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseBlock() []ast.Statement {
	var stmts []ast.Statement
	p.nextToken()
	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.nextToken()
	}
	return stmts
}

func (p *Parser) parseFuncStatement() ast.Statement {
	stmt := &ast.FuncStatement{Token: p.currentToken}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = p.currentToken.Literal
	if !p.expectPeek(token.Lparen) {
		return nil
	}
	stmt.Params = p.parseIdentList(token.Rparen)
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlock()
	return stmt
}

func (p *Parser) parseIdentList(end token.Type) []string {
	var names []string
	if p.peekTokenIs(end) {
		p.nextToken()
		return names
	}
	p.nextToken()
	names = append(names, p.currentToken.Literal)
	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		names = append(names, p.currentToken.Literal)
	}
	if !p.expectPeek(end) {
		return nil
	}
	return names
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.currentToken}
	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.currentToken}
	stmt.Expression = p.parseExpression(Lowest)
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Type]
	if prefix == nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: no prefix parse function for %s found",
			p.currentToken.Line, p.currentToken.Type))
		return nil
	}
	leftExp := prefix()
	for !p.peekTokenIs(token.Semicolon) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.currentToken}
	v, err := strconv.ParseInt(p.currentToken.Literal, 10, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: could not parse %q as integer",
			p.currentToken.Line, p.currentToken.Literal))
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parseHexLiteral() ast.Expression {
	lit := p.currentToken.Literal
	data, err := hexLiteralToBytes(lit)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.currentToken.Line, err))
		return nil
	}
	return &ast.BytesLiteral{Token: p.currentToken, Value: data}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	s := p.currentToken.Literal
	if isAddressLiteral(s) {
		data, err := decodeAddressLiteral(s)
		if err != nil {
			p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.currentToken.Line, err))
			return nil
		}
		return &ast.BytesLiteral{Token: p.currentToken, Value: data}
	}
	return &ast.BytesLiteral{Token: p.currentToken, Value: []byte(s)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.currentToken, Operator: p.currentToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(Prefix)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.currentToken, Operator: p.currentToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseCastExpression(left ast.Expression) ast.Expression {
	expr := &ast.CastExpression{Token: p.currentToken, Value: left}
	if !p.peekTokenIs(token.IntType) && !p.peekTokenIs(token.BytesType) {
		p.errors = append(p.errors, fmt.Sprintf("line %d: expected \"int\" or \"bytes\" after \"as\", got %s instead",
			p.peekToken.Line, p.peekToken.Type))
		return nil
	}
	p.nextToken()
	switch p.currentToken.Type {
	case token.IntType:
		expr.AsType = "int"
	case token.BytesType:
		expr.AsType = "bytes"
	}
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return exp
}

func (p *Parser) parseInnerScriptLiteral() ast.Expression {
	lit := &ast.InnerScriptLiteral{Token: p.currentToken}
	lit.Statements = p.parseBlock()
	return lit
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	ident, ok := fn.(*ast.Identifier)
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf("line %d: function call target must be a name",
			p.currentToken.Line))
		return nil
	}
	exp := &ast.CallExpression{Token: p.currentToken, Function: ident.Value}
	exp.Arguments = p.parseExpressionList(token.Rparen)
	return exp
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(Lowest))
	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}
