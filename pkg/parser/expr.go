package parser

import (
	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/lexer"
)

// parseExpression parses a full comma-free expression (the "expression"
// production used in statement and declaration-initializer position).
func (p *Parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

var assignOps = map[lexer.TokenType]string{
	lexer.TokenAssign:        "=",
	lexer.TokenPlusAssign:    "+=",
	lexer.TokenMinusAssign:   "-=",
	lexer.TokenStarAssign:    "*=",
	lexer.TokenSlashAssign:   "/=",
	lexer.TokenPercentAssign: "%=",
	lexer.TokenAndAssign:     "&=",
	lexer.TokenOrAssign:      "|=",
	lexer.TokenXorAssign:     "^=",
	lexer.TokenShlAssign:     "<<=",
	lexer.TokenShrAssign:     ">>=",
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseTernary()
	if op, ok := assignOps[p.tok.Type]; ok {
		pos := p.pos()
		p.next()
		right := p.parseAssignment()
		e := &ast.BinaryOp{Op: op, Left: left, Right: right}
		e.Pos = pos
		return e
	}
	return left
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseLogicalOr()
	if p.tok.Type == lexer.TokenQuestion {
		pos := p.pos()
		p.next()
		then := p.parseExpression()
		p.expect(lexer.TokenColon)
		els := p.parseAssignment()
		e := &ast.Ternary{Cond: cond, Then: then, Else: els}
		e.Pos = pos
		return e
	}
	return cond
}

func (p *Parser) binaryLevel(next func() ast.Expr, ops map[lexer.TokenType]string) ast.Expr {
	left := next()
	for {
		op, ok := ops[p.tok.Type]
		if !ok {
			return left
		}
		pos := p.pos()
		p.next()
		right := next()
		e := &ast.BinaryOp{Op: op, Left: left, Right: right}
		e.Pos = pos
		left = e
	}
}

func (p *Parser) parseLogicalOr() ast.Expr {
	return p.binaryLevel(p.parseLogicalAnd, map[lexer.TokenType]string{lexer.TokenOr: "||"})
}
func (p *Parser) parseLogicalAnd() ast.Expr {
	return p.binaryLevel(p.parseBitOr, map[lexer.TokenType]string{lexer.TokenAnd: "&&"})
}
func (p *Parser) parseBitOr() ast.Expr {
	return p.binaryLevel(p.parseBitXor, map[lexer.TokenType]string{lexer.TokenPipe: "|"})
}
func (p *Parser) parseBitXor() ast.Expr {
	return p.binaryLevel(p.parseBitAnd, map[lexer.TokenType]string{lexer.TokenCaret: "^"})
}
func (p *Parser) parseBitAnd() ast.Expr {
	return p.binaryLevel(p.parseEquality, map[lexer.TokenType]string{lexer.TokenAmpersand: "&"})
}
func (p *Parser) parseEquality() ast.Expr {
	return p.binaryLevel(p.parseRelational, map[lexer.TokenType]string{
		lexer.TokenEq: "==", lexer.TokenNe: "!=",
	})
}
func (p *Parser) parseRelational() ast.Expr {
	return p.binaryLevel(p.parseShift, map[lexer.TokenType]string{
		lexer.TokenLt: "<", lexer.TokenLe: "<=", lexer.TokenGt: ">", lexer.TokenGe: ">=",
	})
}
func (p *Parser) parseShift() ast.Expr {
	return p.binaryLevel(p.parseAdditive, map[lexer.TokenType]string{
		lexer.TokenShl: "<<", lexer.TokenShr: ">>",
	})
}
func (p *Parser) parseAdditive() ast.Expr {
	return p.binaryLevel(p.parseMultiplicative, map[lexer.TokenType]string{
		lexer.TokenPlus: "+", lexer.TokenMinus: "-",
	})
}
func (p *Parser) parseMultiplicative() ast.Expr {
	return p.binaryLevel(p.parseCast, map[lexer.TokenType]string{
		lexer.TokenStar: "*", lexer.TokenSlash: "/", lexer.TokenPercent: "%",
	})
}

// parseCast handles "(type)expr"; a parenthesised expression that is not
// followed by a type specifier falls through to parseUnary's primary
// parsing of "(expr)".
func (p *Parser) parseCast() ast.Expr {
	if p.tok.Type == lexer.TokenLParen && p.startsType(p.peekTok.Type) {
		pos := p.pos()
		p.next()
		ty, _ := p.tryParseTypeSpecifier()
		ty = p.parsePointerSuffixes(ty)
		p.expect(lexer.TokenRParen)
		operand := p.parseCast()
		e := &ast.Cast{Operand: operand}
		e.Pos = pos
		e.Typ = ty
		return e
	}
	return p.parseUnary()
}

func (p *Parser) startsType(tt lexer.TokenType) bool {
	switch tt {
	case lexer.TokenVoid, lexer.TokenChar, lexer.TokenShort, lexer.TokenInt_,
		lexer.TokenLong, lexer.TokenFloat, lexer.TokenDouble, lexer.TokenBool,
		lexer.TokenSigned, lexer.TokenUnsigned, lexer.TokenConst, lexer.TokenVolatile:
		return true
	default:
		return false
	}
}

var unaryOps = map[lexer.TokenType]string{
	lexer.TokenMinus:     "-",
	lexer.TokenNot:       "!",
	lexer.TokenTilde:     "~",
	lexer.TokenAmpersand: "&",
	lexer.TokenStar:      "*",
	lexer.TokenPlus:      "+",
}

func (p *Parser) parseUnary() ast.Expr {
	if op, ok := unaryOps[p.tok.Type]; ok {
		pos := p.pos()
		p.next()
		operand := p.parseCast()
		e := &ast.UnaryOp{Op: op, Operand: operand}
		e.Pos = pos
		return e
	}
	if p.tok.Type == lexer.TokenIncrement || p.tok.Type == lexer.TokenDecrement {
		pos := p.pos()
		op := "++pre"
		if p.tok.Type == lexer.TokenDecrement {
			op = "--pre"
		}
		p.next()
		operand := p.parseUnary()
		e := &ast.UnaryOp{Op: op, Operand: operand}
		e.Pos = pos
		return e
	}
	if p.tok.Type == lexer.TokenSizeof {
		pos := p.pos()
		p.next()
		operand := p.parseUnary()
		e := &ast.UnaryOp{Op: "sizeof", Operand: operand}
		e.Pos = pos
		return e
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch p.tok.Type {
		case lexer.TokenLBracket:
			pos := p.pos()
			p.next()
			idx := p.parseExpression()
			p.expect(lexer.TokenRBracket)
			ix := &ast.Index{Base: e, Idx: idx}
			ix.Pos = pos
			e = ix
		case lexer.TokenLParen:
			pos := p.pos()
			p.next()
			var args []ast.Expr
			for p.tok.Type != lexer.TokenRParen && p.tok.Type != lexer.TokenEOF {
				args = append(args, p.parseAssignment())
				if p.tok.Type == lexer.TokenComma {
					p.next()
				}
			}
			p.expect(lexer.TokenRParen)
			c := &ast.Call{Callee: e, Args: args}
			c.Pos = pos
			e = c
		case lexer.TokenIncrement, lexer.TokenDecrement:
			pos := p.pos()
			op := "++post"
			if p.tok.Type == lexer.TokenDecrement {
				op = "--post"
			}
			p.next()
			u := &ast.UnaryOp{Op: op, Operand: e}
			u.Pos = pos
			e = u
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.tok.Type {
	case lexer.TokenInt:
		pos := p.pos()
		lit := p.tok.Literal
		p.next()
		e := &ast.IntLit{Value: parseIntLiteral(lit)}
		e.Pos = pos
		return e
	case lexer.TokenCharLit:
		pos := p.pos()
		lit := p.tok.Literal
		p.next()
		v := int64(0)
		if len(lit) > 0 {
			v = int64(lit[0])
		}
		e := &ast.IntLit{Value: v}
		e.Pos = pos
		return e
	case lexer.TokenString:
		pos := p.pos()
		lit := p.tok.Literal
		p.next()
		e := &ast.StringLit{Value: lit}
		e.Pos = pos
		return e
	case lexer.TokenIdent:
		pos := p.pos()
		name := p.tok.Literal
		p.next()
		e := &ast.Ident{Name: name}
		e.Pos = pos
		return e
	case lexer.TokenLParen:
		p.next()
		e := p.parseExpression()
		p.expect(lexer.TokenRParen)
		return e
	default:
		p.errorf("expected expression, got %q", p.tok.Literal)
		pos := p.pos()
		p.next()
		e := &ast.IntLit{Value: 0}
		e.Pos = pos
		return e
	}
}

func parseIntLiteral(lit string) int64 {
	var v int64
	base := int64(10)
	i := 0
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		base = 16
		i = 2
	} else if len(lit) > 1 && lit[0] == '0' {
		base = 8
		i = 1
	}
	for ; i < len(lit); i++ {
		c := lit[i]
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return v // trailing suffix (u/l/U/L)
		}
		if d >= base {
			return v
		}
		v = v*base + d
	}
	return v
}
