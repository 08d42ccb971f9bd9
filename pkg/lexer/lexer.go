package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/token"
	"github.com/xplshn/minic/pkg/util"
)

type Lexer struct {
	source []rune
	pos    int
	line   int
	column int
	cfg    *config.Config
	rep    *util.Reporter
}

func NewLexer(source []rune, cfg *config.Config, rep *util.Reporter) *Lexer {
	return &Lexer{source: source, line: 1, column: 1, cfg: cfg, rep: rep}
}

// Tokenize scans the whole source and returns its tokens, terminated by EOF.
func Tokenize(source []rune, cfg *config.Config, rep *util.Reporter) []token.Token {
	l := NewLexer(source, cfg, rep)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespaceAndComments()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		ch := l.peek()
		if unicode.IsLetter(ch) || ch == '_' {
			l.advance()
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peekNext())) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
		case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
		case '[': return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
		case ']': return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
		case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
		case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
		case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
		case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine)
		case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
		case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
		case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
		case '=': return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine)
		case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
		case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
		case '&':
			if l.match('&') {
				return l.makeToken(token.AndAnd, "", startPos, startCol, startLine)
			}
		case '|':
			if l.match('|') {
				return l.makeToken(token.OrOr, "", startPos, startCol, startLine)
			}
		case '"', '\'':
			if tok, ok := l.charLiteral(ch, startPos, startCol, startLine); ok {
				return tok
			}
			continue
		}

		l.rep.Error(l.makeToken(token.Ident, string(ch), startPos, startCol, startLine), "illegal character '%c'", ch)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			switch {
			case l.peekNext() == '*':
				l.blockComment()
			case l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatCComments):
				for !l.isAtEnd() && l.peek() != '\n' {
					l.advance()
				}
			default:
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	start := l.makeToken(token.Ident, "", l.pos, l.column, l.line)
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.rep.Error(token.Token{Type: token.EOF, Line: start.Line}, "unterminated comment starting on line %d", start.Line)
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, value, startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

func isRadixDigit(c rune, base int) bool {
	switch base {
	case 2: return c == '0' || c == '1'
	case 8: return c >= '0' && c <= '7'
	case 16: return unicode.IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
	return unicode.IsDigit(c)
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	if l.peek() == '0' && l.cfg.IsFeatureEnabled(config.FeatRadixLiterals) {
		base := 0
		switch l.peekNext() {
		case 'x', 'X': base = 16
		case 'o', 'O': base = 8
		case 'b', 'B': base = 2
		}
		if base != 0 {
			l.advance()
			l.advance()
			for isRadixDigit(l.peek(), base) || l.peek() == '_' {
				l.advance()
			}
			return l.intToken(startPos, startCol, startLine, 0)
		}
	}

	isFloat := false
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		isFloat = true
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if (l.peek() == 'e' || l.peek() == 'E') && (unicode.IsDigit(l.peekNext()) || l.peekNext() == '+' || l.peekNext() == '-') {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !unicode.IsDigit(l.peek()) {
			l.rep.Error(l.makeToken(token.FloatLit, "", startPos, startCol, startLine), "malformed float literal: exponent has no digits")
		}
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	if isFloat {
		valueStr := string(l.source[startPos:l.pos])
		tok := l.makeToken(token.FloatLit, valueStr, startPos, startCol, startLine)
		if _, err := strconv.ParseFloat(valueStr, 64); err != nil {
			l.rep.Error(tok, "invalid float literal '%s'", valueStr)
			tok.Value = "0"
		}
		return tok
	}
	return l.intToken(startPos, startCol, startLine, 10)
}

// intToken converts the scanned literal; base 0 honours a 0x/0o/0b prefix.
func (l *Lexer) intToken(startPos, startCol, startLine, base int) token.Token {
	valueStr := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.IntLit, "", startPos, startCol, startLine)
	val, err := strconv.ParseInt(valueStr, base, 64)
	if err != nil {
		if e, ok := err.(*strconv.NumError); ok && e.Err == strconv.ErrRange {
			l.rep.Error(tok, "integer literal '%s' out of range", valueStr)
		} else {
			l.rep.Error(tok, "invalid integer literal '%s'", valueStr)
		}
		tok.Value = "0"
		return tok
	}
	tok.Value = strconv.FormatInt(val, 10)
	return tok
}

var escapes = map[rune]rune{
	'n': '\n', 't': '\t', 'r': '\r', '0': 0, '\\': '\\', '\'': '\'', '"': '"',
}

// charLiteral scans 'c' or "c". A literal must hold exactly one character.
func (l *Lexer) charLiteral(quote rune, startPos, startCol, startLine int) (token.Token, bool) {
	var sb strings.Builder
	for !l.isAtEnd() && l.peek() != quote && l.peek() != '\n' {
		c := l.advance()
		if c == '\\' {
			e := l.advance()
			val, ok := escapes[e]
			if !ok {
				l.rep.Error(l.makeToken(token.CharLit, "", startPos, startCol, startLine), "unknown escape sequence '\\%c'", e)
				val = e
			}
			c = val
		}
		sb.WriteRune(c)
	}
	tok := l.makeToken(token.CharLit, sb.String(), startPos, startCol, startLine)
	if !l.match(quote) {
		l.rep.Error(tok, "unterminated character literal")
		return tok, false
	}
	tok.Len = l.pos - startPos
	if n := len([]rune(sb.String())); n != 1 {
		l.rep.Error(tok, "character literal must contain exactly one character, got %d", n)
		return tok, false
	}
	return tok, true
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}
