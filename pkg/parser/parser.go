package parser

import (
	"errors"
	"strconv"

	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/lexer"
	"github.com/xplshn/minic/pkg/token"
	"github.com/xplshn/minic/pkg/util"
)

// ErrSyntax is returned by Parse when the token stream is not a valid program.
var ErrSyntax = errors.New("syntax error")

type bailout struct{}

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	rep      *util.Reporter
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, rep *util.Reporter) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0], rep: rep}
}

// ParseSource scans and parses src. Lexical errors are reported to rep but
// do not stop parsing.
func ParseSource(src []rune, cfg *config.Config, rep *util.Reporter) (*ast.Node, error) {
	return NewParser(lexer.Tokenize(src, cfg, rep), rep).Parse()
}

// Parse builds the Program node. Parsing stops at the first syntax error,
// which is reported to the Reporter and returned as ErrSyntax.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			root, err = nil, ErrSyntax
		}
	}()
	tok := p.current
	var decls []*ast.Node
	for !p.check(token.EOF) {
		decls = append(decls, p.parseTopLevel())
	}
	return ast.NewProgram(tok, decls), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool { return p.current.Type == tokType }

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	p.rep.Error(tok, format, args...)
	panic(bailout{})
}

func (p *Parser) expect(tokType token.Type, what string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.unexpected(what)
	return token.Token{}
}

func (p *Parser) unexpected(what string) {
	if p.check(token.EOF) {
		p.fail(p.current, "syntax error: unexpected end of input, expected %s", what)
	}
	text := p.current.Value
	if text == "" {
		text = p.current.Type.String()
	}
	p.fail(p.current, "syntax error at '%s', expected %s", text, what)
}

func (p *Parser) isTypeStart() bool {
	return p.current.Type.IsTypeKeyword() || (p.check(token.Ident) && p.peek().Type == token.Ident)
}

// Declarations
func (p *Parser) parseTopLevel() *ast.Node {
	if p.match(token.Const) {
		nameTok := p.expect(token.Ident, "a constant name")
		p.expect(token.Eq, "'='")
		value := p.parseExpr()
		p.expect(token.Semi, "';'")
		return ast.NewConstDeclaration(nameTok, nameTok.Value, value)
	}
	if !p.isTypeStart() {
		p.unexpected("a declaration")
	}
	dataType := p.parseTypeSpec()
	nameTok := p.expect(token.Ident, "a name")
	switch {
	case p.match(token.LParen):
		return p.parseFuncDecl(nameTok, dataType)
	case p.check(token.LBracket):
		size := p.parseArraySize()
		p.expect(token.Semi, "';'")
		return ast.NewArrayDeclaration(nameTok, nameTok.Value, dataType, size)
	}
	var value *ast.Node
	if p.match(token.Eq) {
		value = p.parseExpr()
	}
	p.expect(token.Semi, "';'")
	return ast.NewVarDeclaration(nameTok, nameTok.Value, dataType, value)
}

func (p *Parser) parseTypeSpec() *ast.Node {
	tok := p.current
	if tok.Type.IsTypeKeyword() || tok.Type == token.Ident {
		p.advance()
		return ast.NewSimpleType(tok, tok.Value)
	}
	p.unexpected("a type name")
	return nil
}

func (p *Parser) parseArraySize() *ast.Node {
	p.expect(token.LBracket, "'['")
	sizeTok := p.expect(token.IntLit, "an array size")
	p.expect(token.RBracket, "']'")
	val, _ := strconv.ParseInt(sizeTok.Value, 10, 64)
	return ast.NewIntegerLiteral(sizeTok, val)
}

func (p *Parser) parseFuncDecl(nameTok token.Token, dataType *ast.Node) *ast.Node {
	var params []*ast.Node
	if p.check(token.Void) && p.peek().Type == token.RParen {
		p.advance()
	} else if !p.check(token.RParen) {
		for {
			pType := p.parseTypeSpec()
			pTok := p.expect(token.Ident, "a parameter name")
			params = append(params, ast.NewFuncParameter(pTok, pTok.Value, pType))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "')'")
	body := p.parseCompound()
	return ast.NewFuncDeclaration(nameTok, nameTok.Value, params, dataType, body)
}

func (p *Parser) parseLocalDecl() *ast.Node {
	dataType := p.parseTypeSpec()
	nameTok := p.expect(token.Ident, "a name")
	if p.check(token.LBracket) {
		size := p.parseArraySize()
		if p.check(token.Eq) {
			p.fail(p.current, "syntax error: array '%s' cannot have an initializer", nameTok.Value)
		}
		p.expect(token.Semi, "';'")
		return ast.NewArrayLocalDeclaration(nameTok, nameTok.Value, dataType, size)
	}
	var value *ast.Node
	if p.match(token.Eq) {
		value = p.parseExpr()
	}
	p.expect(token.Semi, "';'")
	return ast.NewLocalDeclaration(nameTok, nameTok.Value, dataType, value)
}

// Statements
func (p *Parser) parseCompound() *ast.Node {
	tok := p.expect(token.LBrace, "'{'")
	var decls, stmts []*ast.Node
	for p.isTypeStart() {
		decls = append(decls, p.parseLocalDecl())
	}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "'}'")
	return ast.NewCompoundStatement(tok, decls, stmts)
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Semi):
		return ast.NewNullStatement(tok)
	case p.check(token.LBrace):
		return p.parseCompound()
	case p.match(token.If):
		p.expect(token.LParen, "'(' after 'if'")
		cond := p.parseExpr()
		p.expect(token.RParen, "')' after if condition")
		thenStmt := p.parseStmt()
		var elseStmt *ast.Node
		if p.match(token.Else) {
			elseStmt = p.parseStmt()
		}
		return ast.NewIfStatement(tok, cond, thenStmt, elseStmt)
	case p.match(token.While):
		p.expect(token.LParen, "'(' after 'while'")
		cond := p.parseExpr()
		p.expect(token.RParen, "')' after while condition")
		return ast.NewWhileStatement(tok, cond, p.parseStmt())
	case p.match(token.Return):
		var value *ast.Node
		if !p.check(token.Semi) {
			value = p.parseExpr()
		}
		p.expect(token.Semi, "';' after return")
		return ast.NewReturnStatement(tok, value)
	case p.match(token.Break):
		p.expect(token.Semi, "';' after break")
		return ast.NewBreakStatement(tok)
	}
	if p.isTypeStart() {
		p.fail(p.current, "syntax error: declarations must precede statements in a block")
	}

	expr := p.parseExpr()
	if p.match(token.Eq) {
		if expr.Type != ast.ReadLocation {
			p.fail(p.previous, "syntax error: invalid target for assignment")
		}
		value := p.parseExpr()
		p.expect(token.Semi, "';'")
		return ast.NewWriteLocation(tok, expr.Data.(ast.ReadLocationNode).Loc, value)
	}
	p.expect(token.Semi, "';'")
	return ast.NewExprStatement(tok, expr)
}

// Expressions
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash:
		return 6
	case token.Plus, token.Minus:
		return 5
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 4
	case token.EqEq, token.Neq:
		return 3
	case token.AndAnd:
		return 2
	case token.OrOr:
		return 1
	default:
		return -1
	}
}

func (p *Parser) parseExpr() *ast.Node { return p.parseBinaryExpr(1) }

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		prec := getBinaryOpPrecedence(p.current.Type)
		if prec < minPrec {
			break
		}
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = ast.NewBinOp(opTok, opTok.Type.String(), left, right)
	}
	return left
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Not) || p.match(token.Minus) || p.match(token.Plus) {
		return ast.NewUnaryOp(tok, tok.Type.String(), p.parseUnaryExpr())
	}
	return p.parsePrimaryExpr()
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.IntLit):
		val, _ := strconv.ParseInt(tok.Value, 10, 64)
		return ast.NewIntegerLiteral(tok, val)
	case p.match(token.FloatLit):
		val, _ := strconv.ParseFloat(tok.Value, 64)
		return ast.NewFloatLiteral(tok, val)
	case p.match(token.CharLit):
		return ast.NewCharLiteral(tok, []rune(tok.Value)[0])
	case p.match(token.True):
		return ast.NewBoolLiteral(tok, true)
	case p.match(token.False):
		return ast.NewBoolLiteral(tok, false)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "')' after expression")
		return expr
	case p.match(token.Ident):
		if p.match(token.LParen) {
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.parseExpr())
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "')' after function arguments")
			return ast.NewFuncCall(tok, tok.Value, args)
		}
		if p.match(token.LBracket) {
			index := p.parseExpr()
			p.expect(token.RBracket, "']' after array index")
			return ast.NewReadLocation(tok, ast.NewArraySimpleLocation(tok, tok.Value, index))
		}
		return ast.NewReadLocation(tok, ast.NewSimpleLocation(tok, tok.Value))
	}
	p.unexpected("an expression")
	return nil
}
