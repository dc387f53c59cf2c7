// Package lexer implements the uytin language tokenizer.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokSemicolon TokenType = iota // IM
	TokPrint                      // NOILIENTUC
	TokEqual                      // UYTIN
	TokLess                       // ITHON
	TokGreater                    // NHIEUHON
	TokLessEq                     // ITBANG
	TokGreaterEq                  // NHIEUBANG
	TokLBrace                     // ME
	TokRBrace                     // MAY
	TokIf                         // NEU
	TokElse                       // KOTHI
	TokFunction                   // THE
	TokReturn                     // TRA

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen // (
	TokRParen // )
	TokComma  // ,
	TokAssign // =

	// Arithmetic operators
	TokPlus  // +
	TokMinus // -
	TokStar  // *
	TokSlash // /

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type   TokenType
	Value  string
	Offset int
	Span   ast.Span
}

// Keywords maps each reserved upper-case word to its token type.
var Keywords = map[string]TokenType{
	"IM":         TokSemicolon,
	"NOILIENTUC": TokPrint,
	"UYTIN":      TokEqual,
	"ITHON":      TokLess,
	"NHIEUHON":   TokGreater,
	"ITBANG":     TokLessEq,
	"NHIEUBANG":  TokGreaterEq,
	"ME":         TokLBrace,
	"MAY":        TokRBrace,
	"NEU":        TokIf,
	"KOTHI":      TokElse,
	"THE":        TokFunction,
	"TRA":        TokReturn,
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= TokSemicolon && t <= TokReturn
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

// advance consumes one character. Columns count runes, not bytes.
func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	if ch >= utf8.RuneSelf {
		_, size := utf8.DecodeRuneInString(s.source[s.pos:])
		s.pos += size
		s.col++
		return ch
	}
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '/' && s.peekAt(1) == '/' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isLower(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || ch == '_'
}

func isUpper(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordChar(ch byte) bool {
	return isLower(ch) || isUpper(ch) || isDigit(ch)
}

// keywordAhead reports whether the input at the current position is an
// upper-case keyword that ends the word, as in the IM of "x = 5IM".
func (s *scanner) keywordAhead() bool {
	end := s.pos
	for end < len(s.source) && isUpper(s.source[end]) {
		end++
	}
	if end == s.pos {
		return false
	}
	if end < len(s.source) && isWordChar(s.source[end]) {
		return false
	}
	_, ok := Keywords[s.source[s.pos:end]]
	return ok
}

// scanString keeps the quotes in the token value; the evaluator strips them.
func (s *scanner) scanString() (Token, error) {
	startLine, startCol, startPos := s.line, s.col, s.pos
	s.advance() // consume opening '

	for !s.atEnd() {
		ch := s.peek()
		if ch == '\'' {
			s.advance() // consume closing '
			return Token{
				Type:   TokString,
				Value:  s.source[startPos:s.pos],
				Offset: startPos,
				Span:   s.span(startLine, startCol),
			}, nil
		}
		if ch == '\n' {
			break
		}
		s.advance()
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal", "strings are single-quoted and end on the same line")
}

func (s *scanner) scanNumber() Token {
	startLine, startCol, startPos := s.line, s.col, s.pos
	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}
	return Token{
		Type:   TokNumber,
		Value:  s.source[startPos:s.pos],
		Offset: startPos,
		Span:   s.span(startLine, startCol),
	}
}

func (s *scanner) scanWord() (Token, error) {
	startLine, startCol, startPos := s.line, s.col, s.pos
	if isLower(s.peek()) {
		for !s.atEnd() && (isLower(s.peek()) || isDigit(s.peek())) {
			s.advance()
		}
		if s.atEnd() || !isWordChar(s.peek()) || s.keywordAhead() {
			return Token{Type: TokIdent, Value: s.source[startPos:s.pos], Offset: startPos, Span: s.span(startLine, startCol)}, nil
		}
	}

	hasUpper, hasLower := false, s.pos > startPos
	for !s.atEnd() && isWordChar(s.peek()) {
		ch := s.advance()
		if isUpper(ch) {
			hasUpper = true
		} else if isLower(ch) {
			hasLower = true
		}
	}
	text := s.source[startPos:s.pos]

	if hasUpper && !hasLower {
		if tokType, ok := Keywords[text]; ok {
			return Token{Type: tokType, Value: text, Offset: startPos, Span: s.span(startLine, startCol)}, nil
		}
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unknown keyword '%s'", text), "upper-case words are reserved for keywords")
	}
	if hasUpper {
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid identifier '%s'", text), "identifiers use lower-case letters, digits and '_'")
	}
	return Token{Type: TokIdent, Value: text, Offset: startPos, Span: s.span(startLine, startCol)}, nil
}

func (s *scanner) lexError(line, col int, msg, hint string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		hint,
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:   TokEOF,
			Value:  "",
			Offset: s.pos,
			Span:   s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol, startPos := s.line, s.col, s.pos

	var typ TokenType
	switch ch {
	case '(':
		typ = TokLParen
	case ')':
		typ = TokRParen
	case ',':
		typ = TokComma
	case '=':
		typ = TokAssign
	case '+':
		typ = TokPlus
	case '-':
		typ = TokMinus
	case '*':
		typ = TokStar
	case '/':
		typ = TokSlash
	default:
		switch {
		case isDigit(ch):
			tok := s.scanNumber()
			if !s.atEnd() && isWordChar(s.peek()) && !s.keywordAhead() {
				// "1abc" is neither a number nor an identifier
				for !s.atEnd() && isWordChar(s.peek()) {
					s.advance()
				}
				return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid identifier '%s'", s.source[startPos:s.pos]), "identifiers cannot start with a digit")
			}
			return tok, nil
		case ch == '\'':
			return s.scanString()
		case isWordChar(ch):
			return s.scanWord()
		}
		r, _ := utf8.DecodeRuneInString(s.source[startPos:])
		s.advance()
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", r), "")
	}

	s.advance()
	return Token{Type: typ, Value: string(ch), Offset: startPos, Span: s.span(startLine, startCol)}, nil
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
