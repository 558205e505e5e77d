// Package parser implements a recursive-descent parser for the C subset
// spec.md's lowering stage consumes: function definitions, the statement
// forms of §4.5, and the usual C expression grammar. It is original code
// (no parser file exists in the retrieval pack) written in the teacher's
// constructor-heavy, no-magic style.
package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/robotman2412/lily-cc-go/pkg/ast"
	"github.com/robotman2412/lily-cc-go/pkg/ctypes"
	"github.com/robotman2412/lily-cc-go/pkg/lexer"
)

// Parser turns a token stream from pkg/lexer into a pkg/ast.Program.
type Parser struct {
	l        *lexer.Lexer
	tok      lexer.Token
	peekTok  lexer.Token
	filename string
	types    *ctypes.Interner
	errs     []error
}

// New creates a Parser for source, reporting positions against filename
// and interning types through in.
func New(source, filename string, in *ctypes.Interner) *Parser {
	p := &Parser{l: lexer.New(source), filename: filename, types: in}
	p.next()
	p.next()
	return p
}

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) next() {
	p.tok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{File: p.filename, Line: p.tok.Line, Column: p.tok.Column}
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, errors.Errorf("%s:%d:%d: %s", p.filename, p.tok.Line, p.tok.Column, fmt.Sprintf(format, args...)))
}

func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	tok := p.tok
	if p.tok.Type != tt {
		p.errorf("expected %s, got %s (%q)", tt, p.tok.Type, p.tok.Literal)
	}
	p.next()
	return tok
}

// ParseProgram parses a whole translation unit: a sequence of top-level
// variable and function declarations.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.tok.Type != lexer.TokenEOF {
		isStatic := false
		if p.tok.Type == lexer.TokenStatic {
			isStatic = true
			p.next()
		}
		baseType, ok := p.tryParseTypeSpecifier()
		if !ok {
			p.errorf("expected type specifier at top level, got %q", p.tok.Literal)
			p.next()
			continue
		}
		ty := p.parsePointerSuffixes(baseType)
		namePos := p.pos()
		name := p.expect(lexer.TokenIdent).Literal

		if p.tok.Type == lexer.TokenLParen {
			fn := p.parseFuncRest(namePos, name, ty, isStatic)
			prog.Funcs = append(prog.Funcs, fn)
			continue
		}

		ty = p.parseArraySuffixes(ty)
		var init ast.Expr
		if p.tok.Type == lexer.TokenAssign {
			p.next()
			init = p.parseAssignment()
		}
		p.expect(lexer.TokenSemicolon)
		prog.Globals = append(prog.Globals, &ast.GlobalVar{
			Pos: namePos, Name: name, Type: ty, Init: init, IsStatic: isStatic,
		})
	}
	return prog
}

// tryParseTypeSpecifier consumes a C type-specifier sequence (qualifiers
// are accepted and discarded — this backend has no const/volatile
// distinct code paths beyond suppressing hoisting, handled in pkg/lower).
func (p *Parser) tryParseTypeSpecifier() (*ctypes.Type, bool) {
	signed := true
	haveSign := false
	kind := ctypes.Int
	haveKind := false
loop:
	for {
		switch p.tok.Type {
		case lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict, lexer.TokenRegister:
			p.next()
		case lexer.TokenSigned:
			signed, haveSign = true, true
			p.next()
		case lexer.TokenUnsigned:
			signed, haveSign = false, true
			p.next()
		case lexer.TokenVoid:
			kind, haveKind = ctypes.Void, true
			p.next()
			break loop
		case lexer.TokenBool:
			kind, haveKind = ctypes.Bool, true
			p.next()
		case lexer.TokenChar:
			kind, haveKind = ctypes.Char, true
			p.next()
		case lexer.TokenShort:
			kind, haveKind = ctypes.Short, true
			p.next()
		case lexer.TokenInt_:
			if !haveKind {
				kind = ctypes.Int
			}
			haveKind = true
			p.next()
		case lexer.TokenLong:
			kind, haveKind = ctypes.Long, true
			p.next()
		case lexer.TokenFloat:
			kind, haveKind = ctypes.Float, true
			p.next()
		case lexer.TokenDouble:
			kind, haveKind = ctypes.Double, true
			p.next()
		default:
			break loop
		}
	}
	if !haveKind && !haveSign {
		return nil, false
	}
	if !signed {
		switch kind {
		case ctypes.Char:
			kind = ctypes.UChar
		case ctypes.Short:
			kind = ctypes.UShort
		case ctypes.Int:
			kind = ctypes.UInt
		case ctypes.Long:
			kind = ctypes.ULong
		}
	}
	return p.types.Simple(kind), true
}

func (p *Parser) parsePointerSuffixes(base *ctypes.Type) *ctypes.Type {
	t := base
	for p.tok.Type == lexer.TokenStar {
		p.next()
		for p.tok.Type == lexer.TokenConst || p.tok.Type == lexer.TokenVolatile {
			p.next()
		}
		t = p.types.PointerTo(t)
	}
	return t
}

func (p *Parser) parseArraySuffixes(t *ctypes.Type) *ctypes.Type {
	if p.tok.Type != lexer.TokenLBracket {
		return t
	}
	p.next()
	length := -1
	if p.tok.Type == lexer.TokenInt {
		length = atoi(p.tok.Literal)
		p.next()
	}
	p.expect(lexer.TokenRBracket)
	return p.types.ArrayOf(t, length)
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func (p *Parser) parseFuncRest(pos ast.Pos, name string, retType *ctypes.Type, isStatic bool) *ast.FuncDef {
	p.expect(lexer.TokenLParen)
	fn := &ast.FuncDef{Pos: pos, Name: name, ReturnType: retType, IsStatic: isStatic}
	if p.tok.Type == lexer.TokenVoid && p.peekTok.Type == lexer.TokenRParen {
		p.next()
	} else {
		for p.tok.Type != lexer.TokenRParen && p.tok.Type != lexer.TokenEOF {
			if p.tok.Type == lexer.TokenEllipsis {
				fn.Variadic = true
				p.next()
				break
			}
			pty, ok := p.tryParseTypeSpecifier()
			if !ok {
				p.errorf("expected parameter type, got %q", p.tok.Literal)
				p.next()
				continue
			}
			pty = p.parsePointerSuffixes(pty)
			pname := ""
			if p.tok.Type == lexer.TokenIdent {
				pname = p.tok.Literal
				p.next()
			}
			fn.Params = append(fn.Params, ast.Param{Name: pname, Type: pty})
			if p.tok.Type == lexer.TokenComma {
				p.next()
			}
		}
	}
	p.expect(lexer.TokenRParen)
	for p.tok.Type == lexer.TokenAttribute {
		p.skipAttribute()
	}
	if p.tok.Type == lexer.TokenSemicolon {
		p.next() // prototype only, no body
		return fn
	}
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) skipAttribute() {
	p.next() // __attribute__
	depth := 0
	for {
		switch p.tok.Type {
		case lexer.TokenLParen:
			depth++
		case lexer.TokenRParen:
			depth--
		case lexer.TokenEOF:
			return
		}
		p.next()
		if depth == 0 {
			return
		}
	}
}

// parseBlock parses a "{ ... }" compound statement into a Multi.
func (p *Parser) parseBlock() *ast.Multi {
	pos := p.pos()
	p.expect(lexer.TokenLBrace)
	m := &ast.Multi{}
	m.Pos = pos
	for p.tok.Type != lexer.TokenRBrace && p.tok.Type != lexer.TokenEOF {
		m.Stmts = append(m.Stmts, p.parseStmt())
	}
	p.expect(lexer.TokenRBrace)
	return m
}
