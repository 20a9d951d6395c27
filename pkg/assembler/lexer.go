// Package assembler implements the two-pass textual assembler that turns
// dashvm assembly source into a program.Program: component C of the VM
// design. The lexer below follows the teacher's pkg/lexer structural
// pattern (position/readPosition/ch/line/column fields, readChar/peekChar,
// skipWhitespace, a switch-driven NextToken) adapted to a much simpler,
// whitespace-delimited token grammar: opcodes, label definitions and
// references, and scalar literals.
package assembler

import (
	"fmt"
	"strings"
)

// TokenType identifies a lexical token kind.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenWord     // a fixed keyword that is itself a complete instruction, e.g. +, bt, rgb, halt
	TokenParamOp  // name:<u8>, e.g. drop:3, call:1
	TokenLabelDef // name:
	TokenLabelRef // #name
	TokenInt
	TokenFloat
	TokenString
	TokenTrue
	TokenFalse
)

func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenWord:
		return "WORD"
	case TokenParamOp:
		return "PARAM_OP"
	case TokenLabelDef:
		return "LABEL_DEF"
	case TokenLabelRef:
		return "LABEL_REF"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenString:
		return "STRING"
	case TokenTrue:
		return "TRUE"
	case TokenFalse:
		return "FALSE"
	default:
		return fmt.Sprintf("TokenType(%d)", int(tt))
	}
}

// Token is a single lexed unit, with its source position for error messages.
// Param carries the u8 digit run of a TokenParamOp token (e.g. "3" in
// drop:3); it is empty for every other token type.
type Token struct {
	Type    TokenType
	Literal string
	Param   string
	Line    int
	Column  int
}

// Lexer scans dashvm assembly source into a token stream.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

// NewLexer constructs a Lexer over the given source text.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// NextToken returns the next token from the input, or a TokenEOF token once
// exhausted.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	for l.ch == ';' {
		l.skipComment()
		l.skipWhitespace()
	}

	line, col := l.line, l.column
	var tok Token
	tok.Line, tok.Column = line, col

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
	case l.ch == '#':
		l.readChar()
		name := l.readBareWord()
		tok.Type = TokenLabelRef
		tok.Literal = name
	case l.ch == '"':
		tok.Type = TokenString
		tok.Literal = l.readString()
	case isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())):
		tok.Type, tok.Literal = l.readNumber()
	default:
		word := l.readBareWord()
		if word == "" {
			tok.Type = TokenIllegal
			tok.Literal = string(l.ch)
			l.readChar()
			return tok
		}
		switch {
		case l.ch == ':' && isDigit(l.peekChar()):
			l.readChar() // consume ':'
			start := l.position
			for isDigit(l.ch) {
				l.readChar()
			}
			tok.Type = TokenParamOp
			tok.Literal = word
			tok.Param = l.input[start:l.position]
		case l.ch == ':':
			l.readChar() // consume ':'
			tok.Type = TokenLabelDef
			tok.Literal = word
		case word == "true":
			tok.Type = TokenTrue
			tok.Literal = word
		case word == "false":
			tok.Type = TokenFalse
			tok.Literal = word
		default:
			tok.Type = TokenWord
			tok.Literal = word
		}
	}
	return tok
}

func (l *Lexer) readBareWord() string {
	start := l.position
	for isWordChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() (TokenType, string) {
	start := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	tt := TokenInt
	if l.ch == '.' && isDigit(l.peekChar()) {
		tt = TokenFloat
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return tt, l.input[start:l.position]
}

func (l *Lexer) readString() string {
	var b strings.Builder
	l.readChar() // consume opening quote
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' && l.peekChar() == '"' {
			b.WriteByte('"')
			l.readChar()
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return b.String()
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isWordChar(ch byte) bool {
	return ch != 0 && ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' &&
		ch != ':' && ch != '#' && ch != '"' && ch != ';'
}
