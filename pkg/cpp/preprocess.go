// preprocess.go ties the tokenizer, macro table, directive parser, and
// conditional-compilation processor into a line-driven preprocessing
// driver: it is the piece none of the other files provide on their own,
// since macro.go/directive.go/conditional.go are building blocks rather
// than a full "run over one source file" entry point.
package cpp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxIncludeDepth = 200

// Options configures one run of the preprocessor.
type Options struct {
	IncludePaths []string          // -I directories, searched in order
	Defines      map[string]string // -D macros (name -> value, "" for a bare define)
	Undefines    []string          // -U macros
}

// Preprocessor runs the full textual preprocessing pass over a C source
// file: directive recognition, conditional-compilation, and macro
// expansion of the surviving text.
type Preprocessor struct {
	macros     *MacroTable
	expander   *Expander
	cond       *ConditionalProcessor
	resolver   *IncludeResolver
	depth      int
	pragmaOnce map[string]bool
}

// NewPreprocessor creates a Preprocessor with its own fresh macro table
// (built-ins already registered for the gr8cpu-r3 target) and the given
// include search path. Prefer NewPreprocessorForTarget once the backend
// target is known.
func NewPreprocessor(includePaths []string) *Preprocessor {
	return NewPreprocessorForTarget(includePaths, "gr8cpu-r3", 1)
}

// NewPreprocessorForTarget creates a Preprocessor whose macro table's
// target-identifying and type-size builtins describe targetName/wordBytes
// (see NewMacroTableForTarget), so that conditional compilation in C
// sources sees the selected backend target.
func NewPreprocessorForTarget(includePaths []string, targetName string, wordBytes int) *Preprocessor {
	macros := NewMacroTableForTarget(targetName, wordBytes)
	p := &Preprocessor{
		macros:     macros,
		expander:   NewExpander(macros),
		cond:       NewConditionalProcessor(macros),
		pragmaOnce: make(map[string]bool),
	}
	resolver := &IncludeResolver{
		Paths: includePaths,
		Exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
	p.resolver = resolver
	p.cond.SetIncludeResolver(resolver)
	return p
}

// applyOptions seeds the macro table from opts before the first file is
// processed, matching a compiler driver's -D/-U command-line handling.
func (p *Preprocessor) applyOptions(opts *Options) error {
	if opts == nil {
		return nil
	}
	for name, value := range opts.Defines {
		if err := p.macros.DefineSimple(name, value, SourceLoc{File: "<command-line>", Line: 1}); err != nil {
			return err
		}
	}
	for _, name := range opts.Undefines {
		p.macros.Undefine(name)
	}
	if len(opts.IncludePaths) > 0 {
		p.resolver.Paths = append(p.resolver.Paths, opts.IncludePaths...)
	}
	return nil
}

// ProcessFile preprocesses the named file and returns the resulting text.
func (p *Preprocessor) ProcessFile(filename string, opts *Options) (string, error) {
	if err := p.applyOptions(opts); err != nil {
		return "", err
	}
	src, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("preprocess: %w", err)
	}
	var out strings.Builder
	if err := p.processSource(string(src), filename, &out); err != nil {
		return "", err
	}
	if err := p.cond.CheckBalanced(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// ProcessString preprocesses source text that is attributed to filename
// for __FILE__/diagnostics purposes but need not exist on disk.
func (p *Preprocessor) ProcessString(source, filename string, opts *Options) (string, error) {
	if err := p.applyOptions(opts); err != nil {
		return "", err
	}
	var out strings.Builder
	if err := p.processSource(source, filename, &out); err != nil {
		return "", err
	}
	if err := p.cond.CheckBalanced(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// processSource runs one file's physical lines through directive
// recognition and, where the conditional stack is active, macro
// expansion, appending surviving output to out. It recurses into
// processSource for each #include.
func (p *Preprocessor) processSource(source, filename string, out *strings.Builder) error {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxIncludeDepth {
		return fmt.Errorf("%s: #include nested too deeply (possible cycle)", filename)
	}

	lines := splitLogicalLines(source)
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			if err := p.processDirectiveLine(trimmed, filename, lineNo, out); err != nil {
				return err
			}
			continue
		}
		if !p.cond.IsActive() {
			continue
		}
		toks := tokenizeLine(line, filename, lineNo)
		expanded, err := p.expander.Expand(toks)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", filename, lineNo, err)
		}
		out.WriteString(TokensToString(expanded))
		out.WriteByte('\n')
	}
	return nil
}

// splitLogicalLines splits source into physical lines after splicing
// away backslash-newline continuations (C11 5.1.1.2 phase 2).
func splitLogicalLines(source string) []string {
	joined := strings.ReplaceAll(source, "\\\r\n", "")
	joined = strings.ReplaceAll(joined, "\\\n", "")
	return strings.Split(joined, "\n")
}

func tokenizeLine(line, filename string, lineNo int) []Token {
	l := NewLexer(line, filename)
	var out []Token
	for {
		tok := l.NextToken()
		if tok.Type == PP_EOF || tok.Type == PP_NEWLINE {
			break
		}
		tok.Loc.Line = lineNo
		out = append(out, tok)
	}
	return out
}

func (p *Preprocessor) processDirectiveLine(line, filename string, lineNo int, out *strings.Builder) error {
	toks := tokenizeLine(line, filename, lineNo)
	// ParseDirective expects tokens starting after the '#' itself.
	if len(toks) > 0 && toks[0].Type == PP_HASH {
		toks = toks[1:]
	}
	loc := SourceLoc{File: filename, Line: lineNo, Column: 1}
	dir, err := ParseDirectiveFromTokens(toks, loc)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", filename, lineNo, err)
	}

	// Conditional directives are always processed, active or not, so the
	// #if/#endif stack stays correct even inside a dead branch.
	switch dir.Type {
	case DIR_IF:
		return p.cond.ProcessIf(dir.Expression)
	case DIR_IFDEF:
		return p.cond.ProcessIfdef(dir.Identifier)
	case DIR_IFNDEF:
		return p.cond.ProcessIfndef(dir.Identifier)
	case DIR_ELIF:
		return p.cond.ProcessElif(dir.Expression)
	case DIR_ELSE:
		return p.cond.ProcessElse()
	case DIR_ENDIF:
		return p.cond.ProcessEndif()
	}

	if !p.cond.IsActive() {
		return nil
	}

	switch dir.Type {
	case DIR_DEFINE:
		return p.macros.DefineFromDirective(dir)
	case DIR_UNDEF:
		p.macros.Undefine(dir.Identifier)
		return nil
	case DIR_INCLUDE:
		return p.processInclude(dir, filename, out)
	case DIR_ERROR:
		return fmt.Errorf("%s:%d: #error %s", filename, lineNo, dir.Message)
	case DIR_PRAGMA:
		if dir.IsPragmaOnce() {
			p.pragmaOnce[filename] = true
		}
		return nil
	case DIR_WARNING, DIR_LINE, DIR_LINEMARKER, DIR_EMPTY:
		return nil
	default:
		return nil
	}
}

func (p *Preprocessor) processInclude(dir *Directive, fromFile string, out *strings.Builder) error {
	kind := IncludeQuoted
	if dir.IsSystemIncl {
		kind = IncludeAngled
	}
	name := strings.Trim(dir.HeaderName, "\"<>")
	path, err := p.resolveInclude(name, fromFile, kind)
	if err != nil {
		return err
	}
	if p.pragmaOnce[path] {
		return nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read include file %q: %w", path, err)
	}
	return p.processSource(string(src), path, out)
}

// resolveInclude searches the including file's own directory first for a
// quoted include (C11 6.10.2p3), then falls back to the resolver's search
// path, which covers both angled and quoted forms.
func (p *Preprocessor) resolveInclude(name, fromFile string, kind IncludeKind) (string, error) {
	if kind == IncludeQuoted {
		candidate := filepath.Join(filepath.Dir(fromFile), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return p.resolver.Resolve(name, kind)
}

// NeedsPreprocessing reports whether filename's extension indicates it
// still needs preprocessing; .i/.p files are already-preprocessed input
// (CompCert's convention, kept so the CLI's fast path matches spec).
func NeedsPreprocessing(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext != ".i" && ext != ".p"
}
