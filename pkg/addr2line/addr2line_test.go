package addr2line

import (
	"strings"
	"testing"
)

func TestParseAndLookup(t *testing.T) {
	sidecar := strings.Join([]string{
		"section .text 0 6 1",
		"label main 0",
		"pos /abs/test.c test.c 0 1,3 10,3",
		"pos /abs/test.c test.c 4 1,4 20,4",
	}, "\n") + "\n"

	table, err := Parse(strings.NewReader(sidecar))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(table.Sections) != 1 || table.Sections[0].Name != ".text" {
		t.Fatalf("expected one .text section, got %+v", table.Sections)
	}
	if len(table.Labels) != 1 || table.Labels[0].Name != "main" {
		t.Fatalf("expected one main label, got %+v", table.Labels)
	}

	rel, line, ok := table.Lookup(2)
	if !ok || rel != "test.c" || line != 3 {
		t.Fatalf("Lookup(2) = %q, %d, %v; want test.c, 3, true", rel, line, ok)
	}

	rel, line, ok = table.Lookup(5)
	if !ok || rel != "test.c" || line != 4 {
		t.Fatalf("Lookup(5) = %q, %d, %v; want test.c, 4, true", rel, line, ok)
	}
}

func TestLookupBeforeFirstPositionFails(t *testing.T) {
	table := &Table{Positions: []Pos{{Addr: 10, RelPath: "test.c", Line: 1}}}
	_, _, ok := table.Lookup(0)
	if ok {
		t.Fatalf("expected lookup before first recorded position to fail")
	}
}

func TestFormatResult(t *testing.T) {
	if got := FormatResult("test.c", 7, true); got != "test.c:7" {
		t.Fatalf("got %q", got)
	}
	if got := FormatResult("", 0, false); got != "??:0" {
		t.Fatalf("got %q", got)
	}
}

func TestParseRejectsUnknownRecordKind(t *testing.T) {
	_, err := Parse(strings.NewReader("bogus 1 2 3\n"))
	if err == nil {
		t.Fatalf("expected error for unknown record kind")
	}
}
