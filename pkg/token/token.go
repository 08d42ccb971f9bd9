package token

type Type int

const (
	EOF Type = iota
	Ident
	IntLit
	FloatLit
	CharLit
	Int
	Float
	Char
	Bool
	Void
	Const
	If
	Else
	While
	Return
	Break
	True
	False
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Eq
	Plus
	Minus
	Star
	Slash
	EqEq
	Neq
	Lt
	Gt
	Gte
	Lte
	AndAnd
	OrOr
	Not
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"float":  Float,
	"char":   Char,
	"bool":   Bool,
	"void":   Void,
	"const":  Const,
	"if":     If,
	"else":   Else,
	"while":  While,
	"return": Return,
	"break":  Break,
	"true":   True,
	"false":  False,
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

var punctStrings = map[Type]string{
	EOF: "EOF", Ident: "identifier", IntLit: "integer literal", FloatLit: "float literal", CharLit: "char literal",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Semi: ";", Comma: ",", Eq: "=", Plus: "+", Minus: "-", Star: "*", Slash: "/",
	EqEq: "==", Neq: "!=", Lt: "<", Gt: ">", Gte: ">=", Lte: "<=", AndAnd: "&&", OrOr: "||", Not: "!",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punctStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown"
}

// IsTypeKeyword reports whether t starts a type specifier.
func (t Type) IsTypeKeyword() bool {
	switch t {
	case Int, Float, Char, Bool, Void:
		return true
	}
	return false
}

type Token struct {
	Type   Type
	Value  string
	Line   int
	Column int
	Len    int
}

// At returns a synthetic token carrying only a line number, for nodes built
// outside the parser.
func At(line int) Token { return Token{Type: Ident, Line: line} }
