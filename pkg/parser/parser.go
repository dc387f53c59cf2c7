// Package parser implements the uytin language parser.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/uytin/pkg/ast"
	"github.com/thomasrohde/uytin/pkg/diagnostics"
	"github.com/thomasrohde/uytin/pkg/lexer"
)

// SyntaxError reports the first grammar violation found in a token stream.
type SyntaxError struct {
	Diag     diagnostics.Diagnostic
	Expected []string
	Found    string
}

func (e *SyntaxError) Error() string {
	return e.Diag.Message
}

// AtEOF reports whether the parser ran out of input. The REPL uses it to
// keep reading continuation lines.
func (e *SyntaxError) AtEOF() bool {
	return e.Found == tokenName(lexer.TokEOF)
}

type parser struct {
	tokens []lexer.Token
	pos    int
	err    *SyntaxError
}

// Parse tokenizes source and parses it into an AST. Lex failures are
// returned as *lexer.LexError, grammar failures as *SyntaxError.
func Parse(source, filename string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens, filename)
}

// ParseTokens parses an already scanned token stream. A missing trailing
// EOF token is tolerated; running out of tokens is reported as reaching
// end of file.
func ParseTokens(tokens []lexer.Token, filename string) (*ast.Program, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		eof := lexer.Token{Type: lexer.TokEOF, Span: ast.Span{File: filename, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}}
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1]
			eof.Offset = last.Offset + len(last.Value)
			eof.Span = ast.Span{File: last.Span.File, StartLine: last.Span.EndLine, StartCol: last.Span.EndCol, EndLine: last.Span.EndLine, EndCol: last.Span.EndCol}
		}
		tokens = append(append([]lexer.Token(nil), tokens...), eof)
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram(filename)
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.fail(tok, tokenName(typ))
		return tok, false
	}
	return p.advance(), true
}

// fail records the first syntax error; later ones are ignored because
// parsing stops as soon as a production returns nil.
func (p *parser) fail(tok lexer.Token, expected ...string) {
	if p.err != nil {
		return
	}
	found := foundName(tok)
	msg := fmt.Sprintf("expected %s, found %s", strings.Join(expected, " or "), found)
	p.failWith(tok, msg, expected, "")
}

func (p *parser) failWith(tok lexer.Token, msg string, expected []string, hint string) {
	if p.err != nil {
		return
	}
	span := tok.Span
	p.err = &SyntaxError{
		Diag:     diagnostics.MakeDiag(diagnostics.ESyntax, msg, &span, hint),
		Expected: expected,
		Found:    foundName(tok),
	}
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

var keywordNames = func() map[lexer.TokenType]string {
	m := make(map[lexer.TokenType]string, len(lexer.Keywords))
	for text, typ := range lexer.Keywords {
		m[typ] = text
	}
	return m
}()

func tokenName(t lexer.TokenType) string {
	if lexer.IsKeyword(t) {
		return "'" + keywordNames[t] + "'"
	}
	switch t {
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokComma:
		return "','"
	case lexer.TokAssign:
		return "'='"
	case lexer.TokPlus:
		return "'+'"
	case lexer.TokMinus:
		return "'-'"
	case lexer.TokStar:
		return "'*'"
	case lexer.TokSlash:
		return "'/'"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokString:
		return "string"
	case lexer.TokNumber:
		return "number"
	case lexer.TokEOF:
		return "end of file"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

func foundName(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return tokenName(lexer.TokEOF)
	}
	return "'" + tok.Value + "'"
}

// --- Program ---

func (p *parser) parseProgram(filename string) *ast.Program {
	startSpan := p.current().Span
	if startSpan.File == "" {
		startSpan.File = filename
	}

	var stmts []ast.Node
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	span := p.spanFromTo(startSpan, p.current().Span)
	return &ast.Program{
		Span: span,
		Body: &ast.Block{Span: span, Statements: stmts},
	}
}

// --- Statements ---

func (p *parser) parseStatement() ast.Node {
	switch p.peek() {
	case lexer.TokFunction:
		return p.selfDelimited(p.parseFunctionDeclaration())
	case lexer.TokReturn:
		return p.selfDelimited(p.parseReturn())
	case lexer.TokIf:
		return p.selfDelimited(p.parseIf())
	case lexer.TokPrint:
		return p.terminated(p.parsePrint())
	default:
		return p.terminated(p.parseAssignmentOrFormula())
	}
}

// selfDelimited accepts an optional trailing IM.
func (p *parser) selfDelimited(n ast.Node) ast.Node {
	if n == nil {
		return nil
	}
	if p.peek() == lexer.TokSemicolon {
		p.advance()
	}
	return n
}

// terminated requires a trailing IM.
func (p *parser) terminated(n ast.Node) ast.Node {
	if n == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}
	return n
}

func (p *parser) parseFunctionDeclaration() ast.Node {
	start := p.advance() // consume THE

	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var params []string
	seen := make(map[string]bool)
	if p.peek() != lexer.TokRParen {
		for {
			paramTok, ok := p.expect(lexer.TokIdent)
			if !ok {
				return nil
			}
			if seen[paramTok.Value] {
				p.failWith(paramTok,
					fmt.Sprintf("duplicate parameter '%s' in function '%s'", paramTok.Value, nameTok.Value),
					[]string{tokenName(lexer.TokIdent)},
					"parameter names must be unique")
				return nil
			}
			seen[paramTok.Value] = true
			params = append(params, paramTok.Value)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	if p.peek() != lexer.TokRParen {
		p.fail(p.current(), tokenName(lexer.TokComma), tokenName(lexer.TokRParen))
		return nil
	}
	p.advance()

	body := p.parseBlock()
	if body == nil {
		return nil
	}

	return &ast.FunctionDeclaration{
		Span:   p.spanFromTo(start.Span, body.Span),
		Name:   nameTok.Value,
		Params: params,
		Body:   body,
	}
}

func (p *parser) parseReturn() ast.Node {
	start := p.advance() // consume TRA
	value := p.parseFormula()
	if value == nil {
		return nil
	}
	return &ast.Return{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Value: value,
	}
}

func (p *parser) parsePrint() ast.Node {
	start := p.advance() // consume NOILIENTUC
	operand := p.parseFormula()
	if operand == nil {
		return nil
	}
	return &ast.UnaryOp{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      ast.OpPrint,
		Operand: operand,
	}
}

// parseIf handles NEU cond ME ... MAY with an optional KOTHI branch that is
// either another NEU (else-if) or a plain block.
func (p *parser) parseIf() ast.Node {
	start := p.advance() // consume NEU

	cond := p.parseFormula()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}

	node := &ast.If{
		Span: p.spanFromTo(start.Span, then.Span),
		Cond: cond,
		Then: then,
	}

	if p.peek() != lexer.TokElse {
		return node
	}
	p.advance() // consume KOTHI

	switch p.peek() {
	case lexer.TokIf:
		elseIf := p.parseIf()
		if elseIf == nil {
			return nil
		}
		node.Else = elseIf
		node.Span = p.spanFromTo(start.Span, elseIf.NodeSpan())
	case lexer.TokLBrace:
		elseBlock := p.parseBlock()
		if elseBlock == nil {
			return nil
		}
		node.Else = elseBlock
		node.Span = p.spanFromTo(start.Span, elseBlock.Span)
	default:
		p.fail(p.current(), tokenName(lexer.TokIf), tokenName(lexer.TokLBrace))
		return nil
	}
	return node
}

func (p *parser) parseAssignmentOrFormula() ast.Node {
	left := p.parseFormula()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokAssign {
		return left
	}
	p.advance() // consume =
	right := p.parseFormula()
	if right == nil {
		return nil
	}
	return &ast.BinaryOp{
		Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Op:    ast.OpAssign,
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseBlock() *ast.Block {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}

	var stmts []ast.Node
	for p.peek() != lexer.TokRBrace {
		if p.peek() == lexer.TokEOF {
			p.fail(p.current(), tokenName(lexer.TokRBrace))
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	end := p.advance() // consume MAY

	return &ast.Block{
		Span:       p.spanFromTo(start.Span, end.Span),
		Statements: stmts,
	}
}

// --- Formulas ---

func (p *parser) parseFormula() ast.Node {
	return p.parseComparison()
}

func (p *parser) parseComparison() ast.Node {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokEqual:
			op = ast.OpEqual
		case lexer.TokLess:
			op = ast.OpLess
		case lexer.TokGreater:
			op = ast.OpGreater
		case lexer.TokLessEq:
			op = ast.OpLessEq
		case lexer.TokGreaterEq:
			op = ast.OpGreaterEq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseAdditive() ast.Node {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Node {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		default:
			return left
		}
		p.advance()
		right := p.parsePrimary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parsePrimary() ast.Node {
	switch p.peek() {
	case lexer.TokLParen:
		// Grouped formula
		p.advance()
		expr := p.parseFormula()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokNumber:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.failWith(tok, fmt.Sprintf("integer literal %s is out of range", tok.Value),
				[]string{tokenName(lexer.TokNumber)}, "integers are signed 64-bit")
			return nil
		}
		return &ast.NumberLiteral{Span: tok.Span, Value: val}

	case lexer.TokString:
		tok := p.advance()
		return &ast.StringLiteral{Span: tok.Span, Raw: tok.Value}

	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokLParen {
			return p.parseCall()
		}
		tok := p.advance()
		return &ast.Variable{Span: tok.Span, Name: tok.Value}

	default:
		p.fail(p.current(), tokenName(lexer.TokNumber), tokenName(lexer.TokString), tokenName(lexer.TokIdent), tokenName(lexer.TokLParen))
		return nil
	}
}

func (p *parser) parseCall() ast.Node {
	nameTok := p.advance()
	p.advance() // consume (

	var args []ast.Node
	if p.peek() != lexer.TokRParen {
		for {
			arg := p.parseFormula()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	end := p.current()
	if end.Type != lexer.TokRParen {
		p.fail(end, tokenName(lexer.TokComma), tokenName(lexer.TokRParen))
		return nil
	}
	p.advance()

	return &ast.FunctionCall{
		Span: p.spanFromTo(nameTok.Span, end.Span),
		Name: nameTok.Value,
		Args: args,
	}
}
