// internal/parser/parser.go
package parser

import (
	"fmt"

	"grotsky/internal/errors"
	"grotsky/internal/lexer"
)

// precedence mirrors the teacher's compregister-adjacent parser: a flat
// table consulted by a single precedence-climbing loop.
var precedence = map[lexer.TokenType]int{
	lexer.TokenOr:          1,
	lexer.TokenAnd:         2,
	lexer.TokenDoubleEqual: 3,
	lexer.TokenNotEqual:    3,
	lexer.TokenLT:          3,
	lexer.TokenGT:          3,
	lexer.TokenLE:          3,
	lexer.TokenGE:          3,
	lexer.TokenPlus:        4,
	lexer.TokenMinus:       4,
	lexer.TokenStar:        5,
	lexer.TokenSlash:       5,
	lexer.TokenPercent:     5,
	lexer.TokenCaret:       6,
}

type Parser struct {
	tokens  []lexer.Token
	current int
	file    string
}

func NewParser(tokens []lexer.Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file}
}

// Parse runs to completion or panics with a *errors.CompileError, matching
// the teacher's panic/recover discipline around parsing.
func (p *Parser) Parse() []Stmt {
	var stmts []Stmt
	for !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	return stmts
}

func (p *Parser) declaration() Stmt {
	var s Stmt
	switch {
	case p.match(lexer.TokenFn):
		s = p.function()
	case p.match(lexer.TokenClass):
		s = p.classDecl()
	default:
		s = p.statement()
	}
	// A `;` may separate statements that share a line.
	for p.match(lexer.TokenSemicolon) {
	}
	return s
}

func (p *Parser) statement() Stmt {
	line := p.peek().Line
	switch {
	case p.match(lexer.TokenImport):
		return p.importStatement(line)
	case p.match(lexer.TokenExport):
		name := p.consume(lexer.TokenIdent, "expected name after export").Lexeme
		return &ExportStmt{stmtBase{line}, name}
	case p.match(lexer.TokenIf):
		return p.ifStatement(line)
	case p.match(lexer.TokenWhile):
		return p.whileStatement(line)
	case p.match(lexer.TokenFor):
		return p.forStatement(line)
	case p.match(lexer.TokenTry):
		return p.tryStatement(line)
	case p.match(lexer.TokenThrow):
		v := p.expression()
		return &ThrowStmt{stmtBase{line}, v}
	case p.match(lexer.TokenLet):
		name := p.consume(lexer.TokenIdent, "expected variable name").Lexeme
		p.consume(lexer.TokenEqual, "expected '=' after variable name")
		expr := p.expression()
		return &LetStmt{stmtBase{line}, name, expr}
	case p.match(lexer.TokenReturn):
		var value Expr
		if !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
			value = p.expression()
		}
		return &ReturnStmt{stmtBase{line}, value}
	case p.match(lexer.TokenBreak):
		return &BreakStmt{stmtBase{line}}
	case p.match(lexer.TokenContinue):
		return &ContinueStmt{stmtBase{line}}
	}
	return p.assignmentOrExpression(line)
}

// assignmentOrExpression disambiguates `name = expr`, `o[k] = expr`,
// `o.f = expr` from a plain expression statement by parsing a postfix
// expression first and inspecting what it landed on.
func (p *Parser) assignmentOrExpression(line int) Stmt {
	expr := p.expression()
	if p.match(lexer.TokenEqual) {
		value := p.expression()
		switch target := expr.(type) {
		case *Variable:
			return &AssignStmt{stmtBase{line}, target.Name, value}
		case *Index:
			return &IndexAssignStmt{stmtBase{line}, target.Object, target.Key, value}
		case *Property:
			return &PropertyAssignStmt{stmtBase{line}, target.Object, target.Name, value}
		default:
			p.fail(line, "invalid assignment target")
		}
	}
	return &ExpressionStmt{stmtBase{line}, expr}
}

func (p *Parser) ifStatement(line int) Stmt {
	cond := p.expression()
	p.consume(lexer.TokenLBrace, "expected '{' before if body")
	then := p.blockStatements()
	p.consume(lexer.TokenRBrace, "expected '}' after if body")
	var elseB []Stmt
	if p.match(lexer.TokenElse) {
		if p.match(lexer.TokenIf) {
			elseB = []Stmt{p.ifStatement(p.previous().Line)}
		} else {
			p.consume(lexer.TokenLBrace, "expected '{' before else body")
			elseB = p.blockStatements()
			p.consume(lexer.TokenRBrace, "expected '}' after else body")
		}
	}
	return &IfStmt{stmtBase{line}, cond, then, elseB}
}

func (p *Parser) whileStatement(line int) Stmt {
	cond := p.expression()
	p.consume(lexer.TokenLBrace, "expected '{' before while body")
	body := p.blockStatements()
	p.consume(lexer.TokenRBrace, "expected '}' after while body")
	return &WhileStmt{stmtBase{line}, cond, body}
}

func (p *Parser) forStatement(line int) Stmt {
	if p.checkNext(lexer.TokenIn) || (p.check(lexer.TokenIdent) && p.checkAt(1, lexer.TokenComma)) {
		var idents []string
		idents = append(idents, p.consume(lexer.TokenIdent, "expected identifier").Lexeme)
		for p.match(lexer.TokenComma) {
			idents = append(idents, p.consume(lexer.TokenIdent, "expected identifier").Lexeme)
		}
		p.consume(lexer.TokenIn, "expected 'in'")
		coll := p.expression()
		p.consume(lexer.TokenLBrace, "expected '{' before for body")
		body := p.blockStatements()
		p.consume(lexer.TokenRBrace, "expected '}' after for body")
		return &ForInStmt{stmtBase{line}, idents, coll, body}
	}

	p.consume(lexer.TokenLParen, "expected '(' after 'for'")
	var init Stmt
	if !p.check(lexer.TokenSemicolon) {
		if p.match(lexer.TokenLet) {
			name := p.consume(lexer.TokenIdent, "expected variable name").Lexeme
			p.consume(lexer.TokenEqual, "expected '='")
			init = &LetStmt{stmtBase{line}, name, p.expression()}
		} else {
			init = p.assignmentOrExpression(line)
		}
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after for initializer")
	var cond Expr
	if !p.check(lexer.TokenSemicolon) {
		cond = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "expected ';' after for condition")
	var update Stmt
	if !p.check(lexer.TokenRParen) {
		update = p.assignmentOrExpression(line)
	}
	p.consume(lexer.TokenRParen, "expected ')' after for clauses")
	p.consume(lexer.TokenLBrace, "expected '{' before for body")
	body := p.blockStatements()
	p.consume(lexer.TokenRBrace, "expected '}' after for body")
	return &ForStmt{stmtBase{line}, init, cond, update, body}
}

func (p *Parser) tryStatement(line int) Stmt {
	p.consume(lexer.TokenLBrace, "expected '{' before try body")
	tryBody := p.blockStatements()
	p.consume(lexer.TokenRBrace, "expected '}' after try body")
	p.consume(lexer.TokenCatch, "expected 'catch'")
	catchVar := p.consume(lexer.TokenIdent, "expected catch variable name").Lexeme
	p.consume(lexer.TokenLBrace, "expected '{' before catch body")
	catchBody := p.blockStatements()
	p.consume(lexer.TokenRBrace, "expected '}' after catch body")
	return &TryStmt{stmtBase{line}, tryBody, catchVar, catchBody}
}

func (p *Parser) importStatement(line int) Stmt {
	var path, alias string
	if p.check(lexer.TokenString) {
		path = p.advance().Lexeme
	} else {
		path = p.consume(lexer.TokenIdent, "expected module path").Lexeme
	}
	if p.match(lexer.TokenAs) {
		alias = p.consume(lexer.TokenIdent, "expected alias").Lexeme
	}
	return &ImportStmt{stmtBase{line}, path, alias}
}

func (p *Parser) blockStatements() []Stmt {
	var stmts []Stmt
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	return stmts
}

func (p *Parser) function() Stmt {
	line := p.previous().Line
	name := p.consume(lexer.TokenIdent, "expected function name").Lexeme
	return p.functionRest(line, name)
}

func (p *Parser) functionRest(line int, name string) *FunctionStmt {
	p.consume(lexer.TokenLParen, "expected '(' after function name")
	var params []string
	if !p.check(lexer.TokenRParen) {
		params = append(params, p.consume(lexer.TokenIdent, "expected parameter name").Lexeme)
		for p.match(lexer.TokenComma) {
			params = append(params, p.consume(lexer.TokenIdent, "expected parameter name").Lexeme)
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after parameters")
	p.consume(lexer.TokenLBrace, "expected '{' before function body")
	body := p.blockStatements()
	p.consume(lexer.TokenRBrace, "expected '}' after function body")
	return &FunctionStmt{stmtBase{line}, name, params, body}
}

func (p *Parser) classDecl() Stmt {
	line := p.previous().Line
	name := p.consume(lexer.TokenIdent, "expected class name").Lexeme
	var super string
	if p.match(lexer.TokenLT) {
		super = p.consume(lexer.TokenIdent, "expected superclass name").Lexeme
	}
	p.consume(lexer.TokenLBrace, "expected '{' before class body")
	var methods, staticMethods []*FunctionStmt
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		static := p.matchIdentLexeme("static")
		p.consume(lexer.TokenFn, "expected method declaration")
		mline := p.previous().Line
		mname := p.consume(lexer.TokenIdent, "expected method name").Lexeme
		fn := p.functionRest(mline, mname)
		if static {
			staticMethods = append(staticMethods, fn)
		} else {
			methods = append(methods, fn)
		}
	}
	p.consume(lexer.TokenRBrace, "expected '}' after class body")
	return &ClassStmt{stmtBase{line}, name, super, methods, staticMethods}
}

// matchIdentLexeme consumes an identifier token with the given lexeme
// (used for the soft keyword "static"), leaving position unchanged if it
// doesn't match.
func (p *Parser) matchIdentLexeme(lexeme string) bool {
	if p.check(lexer.TokenIdent) && p.peek().Lexeme == lexeme {
		p.advance()
		return true
	}
	return false
}

// --- Expressions ---

func (p *Parser) expression() Expr { return p.parseBinary(1) }

func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		if tok.Type == lexer.TokenAnd || tok.Type == lexer.TokenOr {
			left = &Logical{exprBase{tok.Line}, left, tok.Lexeme, right}
		} else {
			left = &Binary{exprBase{tok.Line}, left, tok.Lexeme, right}
		}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.check(lexer.TokenNot) || p.check(lexer.TokenMinus) {
		tok := p.advance()
		operand := p.parseUnary()
		return &Unary{exprBase{tok.Line}, tok.Lexeme, operand}
	}
	return p.parseCall()
}

func (p *Parser) parseCall() Expr {
	expr := p.parsePrimary()
	for {
		switch {
		case p.match(lexer.TokenLParen):
			expr = p.finishCall(expr)
		case p.match(lexer.TokenDot):
			name := p.consume(lexer.TokenIdent, "expected property name after '.'").Lexeme
			expr = &Property{exprBase{p.previous().Line}, expr, name}
		case p.match(lexer.TokenLBracket):
			expr = p.finishIndexOrSlice(expr)
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee Expr) Expr {
	line := p.previous().Line
	var args []Expr
	if !p.check(lexer.TokenRParen) {
		args = append(args, p.expression())
		for p.match(lexer.TokenComma) {
			args = append(args, p.expression())
		}
	}
	p.consume(lexer.TokenRParen, "expected ')' after arguments")
	return &Call{exprBase{line}, callee, args}
}

// finishIndexOrSlice parses `[expr]` or `[a:b:c]` (any segment optional)
// after the opening bracket has been consumed.
func (p *Parser) finishIndexOrSlice(object Expr) Expr {
	line := p.previous().Line
	var first, second, third Expr
	isSlice := false
	if !p.check(lexer.TokenColon) && !p.check(lexer.TokenRBracket) {
		first = p.expression()
	}
	if p.match(lexer.TokenColon) {
		isSlice = true
		if !p.check(lexer.TokenColon) && !p.check(lexer.TokenRBracket) {
			second = p.expression()
		}
		if p.match(lexer.TokenColon) {
			if !p.check(lexer.TokenRBracket) {
				third = p.expression()
			}
		}
	}
	p.consume(lexer.TokenRBracket, "expected ']'")
	if isSlice {
		return &Slice{exprBase{line}, object, first, second, third}
	}
	return &Index{exprBase{line}, object, first}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenString:
		return NewLiteral(tok.Line, tok.Lexeme)
	case lexer.TokenNumber:
		var val float64
		fmt.Sscanf(tok.Lexeme, "%f", &val)
		return NewLiteral(tok.Line, val)
	case lexer.TokenTrue:
		return NewLiteral(tok.Line, true)
	case lexer.TokenFalse:
		return NewLiteral(tok.Line, false)
	case lexer.TokenNil:
		return NewLiteral(tok.Line, nil)
	case lexer.TokenThis:
		return &This{exprBase{tok.Line}}
	case lexer.TokenSuper:
		p.consume(lexer.TokenDot, "expected '.' after 'super'")
		name := p.consume(lexer.TokenIdent, "expected method name after 'super.'").Lexeme
		return &Super{exprBase{tok.Line}, name}
	case lexer.TokenIdent:
		return NewVariable(tok.Line, tok.Lexeme)
	case lexer.TokenLBracket:
		return p.finishListLiteral(tok.Line)
	case lexer.TokenLBrace:
		return p.finishDictLiteral(tok.Line)
	case lexer.TokenLParen:
		expr := p.expression()
		p.consume(lexer.TokenRParen, "expected ')' after expression")
		return expr
	}
	p.fail(tok.Line, fmt.Sprintf("unexpected token %q in expression", tok.Lexeme))
	return nil
}

func (p *Parser) finishListLiteral(line int) Expr {
	var elems []Expr
	for !p.check(lexer.TokenRBracket) && !p.isAtEnd() {
		elems = append(elems, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBracket, "expected ']' after list elements")
	return &ListExpr{exprBase{line}, elems}
}

func (p *Parser) finishDictLiteral(line int) Expr {
	var keys, values []Expr
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		keys = append(keys, p.expression())
		p.consume(lexer.TokenColon, "expected ':' after dict key")
		values = append(values, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.consume(lexer.TokenRBrace, "expected '}' after dict elements")
	return &DictExpr{exprBase{line}, keys, values}
}

// --- utility ---

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	cur := p.peek()
	p.fail(cur.Line, fmt.Sprintf("%s (got %q)", msg, cur.Lexeme))
	return lexer.Token{}
}

func (p *Parser) fail(line int, msg string) {
	panic(errors.NewCompileError(errors.KindSyntax, msg, p.file, line, p.peek().Lexeme))
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool { return p.checkAt(1, t) }

func (p *Parser) checkAt(offset int, t lexer.TokenType) bool {
	idx := p.current + offset
	if idx >= len(p.tokens) {
		return false
	}
	return p.tokens[idx].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) previous() lexer.Token { return p.tokens[p.current-1] }
func (p *Parser) peek() lexer.Token     { return p.tokens[p.current] }
func (p *Parser) isAtEnd() bool         { return p.peek().Type == lexer.TokenEOF }
