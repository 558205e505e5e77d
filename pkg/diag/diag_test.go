package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestHasErrors(t *testing.T) {
	b := NewBag()
	if b.HasErrors() {
		t.Fatalf("expected empty bag to have no errors")
	}
	b.Warnf(KindSemantic, Position{File: "a.c", Line: 1, Col: 1}, "use of uninitialised variable %q", "x")
	if b.HasErrors() {
		t.Fatalf("expected warnings not to count as errors")
	}
	b.Errorf(KindBackend, Position{File: "a.c", Line: 2, Col: 3}, "no addressing mode for operand")
	if !b.HasErrors() {
		t.Fatalf("expected error to be detected")
	}
}

func TestEmitIncludesPositionAndCaret(t *testing.T) {
	b := NewBag()
	b.Report(Diagnostic{
		Severity: Error,
		Kind:     KindSemantic,
		Pos:      Position{File: "a.c", Line: 5, Col: 3, Span: 1, Source: "  x = y;"},
		Message:  "undeclared identifier 'y'",
	})
	var buf bytes.Buffer
	b.Emit(&buf)
	out := buf.String()
	if !strings.Contains(out, "a.c:5:3") {
		t.Fatalf("expected position in output, got %q", out)
	}
	if !strings.Contains(out, "undeclared identifier 'y'") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("expected caret in output, got %q", out)
	}
}

func TestSortStable(t *testing.T) {
	b := NewBag()
	b.Errorf(KindSemantic, Position{File: "b.c", Line: 1, Col: 1}, "second file")
	b.Errorf(KindSemantic, Position{File: "a.c", Line: 5, Col: 1}, "first file, later line")
	b.Errorf(KindSemantic, Position{File: "a.c", Line: 1, Col: 1}, "first file, first line")
	b.SortStable()
	items := b.Items()
	if items[0].Message != "first file, first line" {
		t.Fatalf("expected sort by file then line, got %v", items)
	}
}

func TestBugPanicsWithBugError(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected Bug to panic")
		}
		be, ok := r.(*BugError)
		if !ok {
			t.Fatalf("expected *BugError, got %T", r)
		}
		if be.Error() == "" {
			t.Fatalf("expected non-empty message")
		}
	}()
	Bug("selector invoked with impossible location combination: %s", "Void+Void")
}
