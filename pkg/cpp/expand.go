// expand.go implements macro expansion: object-like and function-like
// replacement, argument substitution, the '#' stringize and '##' paste
// operators, and rescan of the resulting token sequence so a pasted or
// substituted identifier that itself names a macro expands in turn.
package cpp

import (
	"fmt"
	"strings"
)

// IncludeKind distinguishes <angled> from "quoted" #include forms.
type IncludeKind int

const (
	IncludeQuoted IncludeKind = iota
	IncludeAngled
)

// IncludeResolver locates the file text for an #include directive. The
// Preprocessor searches it for #include (after first trying the including
// file's own directory for a quoted include), and ConditionalProcessor
// consults it for __has_include.
type IncludeResolver struct {
	// Paths is searched in order for both quoted and angled includes;
	// a real driver would keep separate quote/system search lists, but
	// the two ISAs this backend targets have no standard system headers
	// of their own, so one list suffices.
	Paths  []string
	Exists func(path string) bool
}

// Resolve reports whether name can be found via r's search path,
// returning the resolved path on success.
func (r *IncludeResolver) Resolve(name string, kind IncludeKind) (string, error) {
	exists := r.Exists
	if exists == nil {
		exists = defaultExists
	}
	for _, dir := range r.Paths {
		candidate := dir + "/" + name
		if exists(candidate) {
			return candidate, nil
		}
	}
	if exists(name) {
		return name, nil
	}
	return "", fmt.Errorf("cannot find include file %q", name)
}

func defaultExists(string) bool { return false }

// Expander performs macro replacement over a token sequence (C11 6.10.3).
type Expander struct {
	macros *MacroTable
	// expanding is the hide set of the macro invocations currently being
	// expanded on the call stack, keyed by macro name, so a macro body
	// that mentions its own name is left unexpanded rather than looping
	// (C11 6.10.3.4's "painted blue" rule).
	expanding map[string]bool
}

// NewExpander creates an Expander reading definitions from macros.
func NewExpander(macros *MacroTable) *Expander {
	return &Expander{macros: macros, expanding: make(map[string]bool)}
}

// Expand fully macro-expands tokens, recursively rescanning the result of
// every replacement.
func (e *Expander) Expand(tokens []Token) ([]Token, error) {
	var out []Token
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok.Type != PP_IDENTIFIER {
			out = append(out, tok)
			i++
			continue
		}
		m := e.macros.Lookup(tok.Text)
		if m == nil || e.expanding[tok.Text] {
			out = append(out, tok)
			i++
			continue
		}
		switch m.Kind {
		case MacroBuiltin:
			repl := e.expandBuiltin(m, tok)
			out = append(out, repl...)
			i++
		case MacroObject:
			e.expanding[tok.Text] = true
			rescanned, err := e.Expand(m.Replacement)
			delete(e.expanding, tok.Text)
			if err != nil {
				return nil, err
			}
			out = append(out, rescanned...)
			i++
		case MacroFunction:
			args, consumed, ok := scanCallArgs(tokens, i+1)
			if !ok {
				out = append(out, tok)
				i++
				continue
			}
			replaced, err := e.expandFunctionLike(m, args)
			if err != nil {
				return nil, err
			}
			e.expanding[tok.Text] = true
			rescanned, err := e.Expand(replaced)
			delete(e.expanding, tok.Text)
			if err != nil {
				return nil, err
			}
			out = append(out, rescanned...)
			i = consumed
		}
	}
	return out, nil
}

// Name is a convenience accessor so callers that treat a Token generically
// can still pattern-match on identifier text without a type assertion.
func (t Token) Name() string { return t.Text }

func (e *Expander) expandBuiltin(m *Macro, tok Token) []Token {
	switch tok.Text {
	case "__FILE__":
		return e.macros.GetFileToken(tok.Loc)
	case "__LINE__":
		return e.macros.GetLineToken(tok.Loc)
	default:
		if m.BuiltinFunc != nil {
			return m.BuiltinFunc(tok.Loc)
		}
		return nil
	}
}

// scanCallArgs looks for a parenthesized, comma-separated (honoring
// nested parens) argument list starting at tokens[start] (skipping
// leading whitespace), returning the raw argument token slices, the
// index just past the closing ')', and whether a call was actually
// found (a function-like macro used without '(' is left untouched).
func scanCallArgs(tokens []Token, start int) (args [][]Token, next int, ok bool) {
	i := start
	for i < len(tokens) && tokens[i].Type == PP_WHITESPACE {
		i++
	}
	if i >= len(tokens) || tokens[i].Type != PP_PUNCTUATOR || tokens[i].Text != "(" {
		return nil, start, false
	}
	i++
	depth := 1
	var cur []Token
	for i < len(tokens) {
		t := tokens[i]
		if t.Type == PP_PUNCTUATOR && t.Text == "(" {
			depth++
			cur = append(cur, t)
			i++
			continue
		}
		if t.Type == PP_PUNCTUATOR && t.Text == ")" {
			depth--
			i++
			if depth == 0 {
				args = append(args, trimWS(cur))
				return args, i, true
			}
			cur = append(cur, t)
			continue
		}
		if depth == 1 && t.Type == PP_PUNCTUATOR && t.Text == "," {
			args = append(args, trimWS(cur))
			cur = nil
			i++
			continue
		}
		cur = append(cur, t)
		i++
	}
	return nil, start, false
}

func trimWS(toks []Token) []Token {
	start, end := 0, len(toks)
	for start < end && toks[start].Type == PP_WHITESPACE {
		start++
	}
	for end > start && toks[end-1].Type == PP_WHITESPACE {
		end--
	}
	return toks[start:end]
}

// expandFunctionLike substitutes args into m's replacement list, applying
// '#' stringize and '##' paste before the caller rescans the result.
func (e *Expander) expandFunctionLike(m *Macro, args [][]Token) ([]Token, error) {
	named := m.Params
	if len(args) < len(named) {
		return nil, fmt.Errorf("macro %q requires %d arguments, got %d", m.Name, len(named), len(args))
	}
	argFor := func(name string) ([]Token, bool) {
		for i, p := range named {
			if p == name {
				return args[i], true
			}
		}
		if m.IsVariadic && name == "__VA_ARGS__" {
			if len(args) <= len(named) {
				return nil, true
			}
			var va []Token
			for i := len(named); i < len(args); i++ {
				if i > len(named) {
					va = append(va, Token{Type: PP_PUNCTUATOR, Text: ","})
				}
				va = append(va, args[i]...)
			}
			return va, true
		}
		return nil, false
	}

	repl := m.Replacement
	var out []Token
	for i := 0; i < len(repl); i++ {
		t := repl[i]

		if (t.Type == PP_HASH || t.Type == PP_PUNCTUATOR) && t.Text == "#" && i+1 < len(repl) {
			j := i + 1
			for j < len(repl) && repl[j].Type == PP_WHITESPACE {
				j++
			}
			if j < len(repl) && repl[j].Type == PP_IDENTIFIER {
				if arg, ok := argFor(repl[j].Text); ok {
					out = append(out, Token{Type: PP_STRING, Text: stringize(arg), Loc: t.Loc})
					i = j
					continue
				}
			}
		}

		if t.Type == PP_IDENTIFIER {
			if arg, ok := argFor(t.Text); ok {
				expanded, err := e.Expand(arg)
				if err != nil {
					return nil, err
				}
				out = append(out, expanded...)
				continue
			}
		}
		out = append(out, t)
	}

	return pasteTokens(out), nil
}

// stringize renders arg as a C string literal, collapsing internal
// whitespace runs to a single space (C11 6.10.3.2).
func stringize(arg []Token) string {
	var b strings.Builder
	b.WriteByte('"')
	lastWasSpace := false
	for _, t := range arg {
		if t.Type == PP_WHITESPACE {
			if !lastWasSpace && b.Len() > 1 {
				b.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		}
		lastWasSpace = false
		text := t.Text
		if t.Type == PP_STRING || t.Type == PP_CHAR_CONST {
			text = strings.ReplaceAll(text, `\`, `\\`)
			text = strings.ReplaceAll(text, `"`, `\"`)
		}
		b.WriteString(text)
	}
	b.WriteByte('"')
	return b.String()
}

// pasteTokens resolves every '##' operator in toks by concatenating the
// text of its neighbours into one new token, which is then re-lexed (the
// paste result must itself be a single valid token per C11 6.10.3.3,
// though this implementation is permissive and simply re-lexes it as
// whatever token type the merged text forms).
func pasteTokens(toks []Token) []Token {
	var out []Token
	for i := 0; i < len(toks); i++ {
		if toks[i].Type == PP_PUNCTUATOR && toks[i].Text == "##" {
			for len(out) > 0 && out[len(out)-1].Type == PP_WHITESPACE {
				out = out[:len(out)-1]
			}
			j := i + 1
			for j < len(toks) && toks[j].Type == PP_WHITESPACE {
				j++
			}
			if len(out) > 0 && j < len(toks) {
				left := out[len(out)-1]
				right := toks[j]
				merged := left.Text + right.Text
				out[len(out)-1] = relex(merged, left.Loc)
				i = j
				continue
			}
		}
		out = append(out, toks[i])
	}
	return out
}

// relex tokenizes merged text (the result of a '##' paste) back into a
// single token, defaulting to PP_IDENTIFIER if the lexer's first token
// doesn't consume the whole string (an ill-formed paste, tolerated here
// rather than rejected).
func relex(merged string, loc SourceLoc) Token {
	l := NewLexer(merged, loc.File)
	tok := l.NextToken()
	if tok.Text == merged {
		tok.Loc = loc
		return tok
	}
	return Token{Type: PP_IDENTIFIER, Text: merged, Loc: loc}
}

// ExpandString tokenizes src, fully macro-expands it, and renders the
// result back to text, primarily for tests that assert on string output
// rather than token slices.
func (e *Expander) ExpandString(src string) (string, error) {
	var toks []Token
	l := NewLexer(src, "<string>")
	for {
		tok := l.NextToken()
		if tok.Type == PP_EOF {
			break
		}
		toks = append(toks, tok)
	}
	expanded, err := e.Expand(toks)
	if err != nil {
		return "", err
	}
	return TokensToString(expanded), nil
}
