package parser

import (
	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/lexer"
)

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok.Type {
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenDo:
		return p.parseDoWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenBreak:
		pos := p.pos()
		p.next()
		p.expect(lexer.TokenSemicolon)
		s := &ast.Break{}
		s.Pos = pos
		return s
	case lexer.TokenContinue:
		pos := p.pos()
		p.next()
		p.expect(lexer.TokenSemicolon)
		s := &ast.Continue{}
		s.Pos = pos
		return s
	case lexer.TokenGoto:
		pos := p.pos()
		p.next()
		label := p.expect(lexer.TokenIdent).Literal
		p.expect(lexer.TokenSemicolon)
		s := &ast.Goto{Label: label}
		s.Pos = pos
		return s
	case lexer.TokenSwitch:
		return p.parseSwitch()
	case lexer.TokenAsm:
		return p.parseInlineAsm()
	case lexer.TokenSemicolon:
		pos := p.pos()
		p.next()
		s := &ast.ExprStmt{}
		s.Pos = pos
		return s
	case lexer.TokenIdent:
		if p.peekTok.Type == lexer.TokenColon {
			pos := p.pos()
			label := p.tok.Literal
			p.next()
			p.next()
			s := &ast.LabeledStmt{Label: label, Stmt: p.parseStmt()}
			s.Pos = pos
			return s
		}
		return p.parseExprOrDeclStmt()
	default:
		return p.parseExprOrDeclStmt()
	}
}

func (p *Parser) parseExprOrDeclStmt() ast.Stmt {
	if ty, ok := p.tryParseTypeSpecifier(); ok {
		ty = p.parsePointerSuffixes(ty)
		pos := p.pos()
		name := p.expect(lexer.TokenIdent).Literal
		ty = p.parseArraySuffixes(ty)
		var init ast.Expr
		if p.tok.Type == lexer.TokenAssign {
			p.next()
			init = p.parseAssignment()
		}
		p.expect(lexer.TokenSemicolon)
		s := &ast.VarDecl{Name: name, Type: ty, Init: init}
		s.Pos = pos
		return s
	}
	pos := p.pos()
	e := p.parseExpression()
	p.expect(lexer.TokenSemicolon)
	s := &ast.ExprStmt{Expr: e}
	s.Pos = pos
	return s
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.pos()
	p.next()
	p.expect(lexer.TokenLParen)
	cond := p.parseExpression()
	p.expect(lexer.TokenRParen)
	then := p.parseStmt()
	var els ast.Stmt
	if p.tok.Type == lexer.TokenElse {
		p.next()
		els = p.parseStmt()
	}
	s := &ast.If{Cond: cond, Then: then, Else: els}
	s.Pos = pos
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := p.pos()
	p.next()
	p.expect(lexer.TokenLParen)
	cond := p.parseExpression()
	p.expect(lexer.TokenRParen)
	body := p.parseStmt()
	s := &ast.While{Cond: cond, Body: body}
	s.Pos = pos
	return s
}

func (p *Parser) parseDoWhile() ast.Stmt {
	pos := p.pos()
	p.next()
	body := p.parseStmt()
	p.expect(lexer.TokenWhile)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpression()
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenSemicolon)
	s := &ast.DoWhile{Body: body, Cond: cond}
	s.Pos = pos
	return s
}

func (p *Parser) parseFor() ast.Stmt {
	pos := p.pos()
	p.next()
	p.expect(lexer.TokenLParen)
	var init ast.Stmt
	if p.tok.Type != lexer.TokenSemicolon {
		init = p.parseExprOrDeclStmt()
	} else {
		p.next()
	}
	var cond ast.Expr
	if p.tok.Type != lexer.TokenSemicolon {
		cond = p.parseExpression()
	}
	p.expect(lexer.TokenSemicolon)
	var step ast.Expr
	if p.tok.Type != lexer.TokenRParen {
		step = p.parseExpression()
	}
	p.expect(lexer.TokenRParen)
	body := p.parseStmt()
	s := &ast.For{Init: init, Cond: cond, Step: step, Body: body}
	s.Pos = pos
	return s
}

func (p *Parser) parseReturn() ast.Stmt {
	pos := p.pos()
	p.next()
	var e ast.Expr
	if p.tok.Type != lexer.TokenSemicolon {
		e = p.parseExpression()
	}
	p.expect(lexer.TokenSemicolon)
	s := &ast.Return{Expr: e}
	s.Pos = pos
	return s
}

func (p *Parser) parseSwitch() ast.Stmt {
	pos := p.pos()
	p.next()
	p.expect(lexer.TokenLParen)
	tag := p.parseExpression()
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenLBrace)
	sw := &ast.Switch{Tag: tag}
	sw.Pos = pos
	for p.tok.Type != lexer.TokenRBrace && p.tok.Type != lexer.TokenEOF {
		var c ast.SwitchCase
		switch p.tok.Type {
		case lexer.TokenCase:
			p.next()
			c.Value = p.parseExpression()
			p.expect(lexer.TokenColon)
		case lexer.TokenDefault:
			p.next()
			c.IsDefault = true
			p.expect(lexer.TokenColon)
		default:
			p.errorf("expected 'case' or 'default', got %q", p.tok.Literal)
			p.next()
			continue
		}
		for p.tok.Type != lexer.TokenCase && p.tok.Type != lexer.TokenDefault &&
			p.tok.Type != lexer.TokenRBrace && p.tok.Type != lexer.TokenEOF {
			c.Body = append(c.Body, p.parseStmt())
		}
		sw.Cases = append(sw.Cases, c)
	}
	p.expect(lexer.TokenRBrace)
	return sw
}

// parseInlineAsm parses `__asm__("template" : outputs : inputs : clobbers);`
// (§4.6). Only the verbatim-template form (no operand lists) and the
// full GCC form are both supported.
func (p *Parser) parseInlineAsm() ast.Stmt {
	pos := p.pos()
	p.next() // __asm / __asm__
	p.expect(lexer.TokenLParen)
	tmpl := p.expect(lexer.TokenString).Literal
	asm := &ast.InlineAsm{Template: tmpl}
	asm.Pos = pos
	if p.tok.Type == lexer.TokenColon {
		p.next()
		asm.Outputs = p.parseAsmOperandList()
		if p.tok.Type == lexer.TokenColon {
			p.next()
			asm.Inputs = p.parseAsmOperandList()
			if p.tok.Type == lexer.TokenColon {
				p.next()
				for p.tok.Type == lexer.TokenString {
					asm.Clobbers = append(asm.Clobbers, p.tok.Literal)
					p.next()
					if p.tok.Type == lexer.TokenComma {
						p.next()
					}
				}
			}
		}
	}
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenSemicolon)
	return asm
}

func (p *Parser) parseAsmOperandList() []ast.InlineAsmOperand {
	var out []ast.InlineAsmOperand
	for p.tok.Type == lexer.TokenString || p.tok.Type == lexer.TokenLBracket {
		var op ast.InlineAsmOperand
		if p.tok.Type == lexer.TokenLBracket {
			p.next()
			op.Name = p.expect(lexer.TokenIdent).Literal
			p.expect(lexer.TokenRBracket)
		}
		op.Constraint = p.expect(lexer.TokenString).Literal
		p.expect(lexer.TokenLParen)
		op.Expr = p.parseExpression()
		p.expect(lexer.TokenRParen)
		out = append(out, op)
		if p.tok.Type == lexer.TokenComma {
			p.next()
		} else {
			break
		}
	}
	return out
}
