package asm

import (
	"fmt"
	"io"
)

// SourceSpan is one line-number record for the addr2line sidecar: the
// instruction range [StartAddr, EndAddr) corresponds to (File, Line) at
// the given source column range.
type SourceSpan struct {
	AbsPath, RelPath   string
	StartAddr, EndAddr int
	StartCol, EndCol   int
	Line               int
}

// WriteSidecar dumps spec.md §4.7's optional third pass: one line per
// section, one per label, and one per recorded source span, in the
// line-oriented ASCII format consumed by pkg/addr2line.
func WriteSidecar(w io.Writer, l *Linked, spans []SourceSpan) {
	for _, s := range l.Sections {
		fmt.Fprintf(w, "section %s %d %d %d\n", s.Name, s.Address, s.Size, s.Align)
	}
	for name, info := range l.Labels {
		fmt.Fprintf(w, "label %s %d\n", name, info.Address)
	}
	for _, sp := range spans {
		fmt.Fprintf(w, "pos %s %s %d %d,%d %d,%d\n",
			sp.AbsPath, sp.RelPath, sp.StartAddr, sp.StartCol, sp.Line, sp.EndCol, sp.Line)
	}
}
