// Package addr2line reads the line-number sidecar written by
// pkg/asm.WriteSidecar and answers address-to-source-line queries for the
// --mode=addr2line CLI surface (spec.md §6). No teacher analogue exists
// for this (the teacher backend never emits real addresses), so the
// reader is written fresh in the same plain parser-struct style as
// pkg/cpp's directive parser.
package addr2line

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Section is one "section" sidecar record.
type Section struct {
	Name            string
	Address, Size   int
	Align           int
}

// Label is one "label" sidecar record.
type Label struct {
	Name    string
	Address int
}

// Pos is one "pos" sidecar record: the source position that starts at
// Addr and holds until the next Pos record's Addr; the last record covers
// every higher address.
type Pos struct {
	AbsPath, RelPath string
	Addr             int
	StartCol, Line   int
	EndCol           int
}

// Table is a parsed sidecar, ready for address lookups.
type Table struct {
	Sections  []Section
	Labels    []Label
	Positions []Pos // sorted by Addr ascending
}

// Parse reads a sidecar written by pkg/asm.WriteSidecar.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "section":
			s, err := parseSection(fields)
			if err != nil {
				return nil, fmt.Errorf("sidecar:%d: %w", lineNo, err)
			}
			t.Sections = append(t.Sections, s)
		case "label":
			l, err := parseLabel(fields)
			if err != nil {
				return nil, fmt.Errorf("sidecar:%d: %w", lineNo, err)
			}
			t.Labels = append(t.Labels, l)
		case "pos":
			p, err := parsePos(fields)
			if err != nil {
				return nil, fmt.Errorf("sidecar:%d: %w", lineNo, err)
			}
			t.Positions = append(t.Positions, p)
		default:
			return nil, fmt.Errorf("sidecar:%d: unknown record kind %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.Slice(t.Positions, func(i, j int) bool { return t.Positions[i].Addr < t.Positions[j].Addr })
	return t, nil
}

func parseSection(f []string) (Section, error) {
	if len(f) != 5 {
		return Section{}, fmt.Errorf("malformed section record")
	}
	addr, err := strconv.Atoi(f[2])
	if err != nil {
		return Section{}, err
	}
	size, err := strconv.Atoi(f[3])
	if err != nil {
		return Section{}, err
	}
	align, err := strconv.Atoi(f[4])
	if err != nil {
		return Section{}, err
	}
	return Section{Name: f[1], Address: addr, Size: size, Align: align}, nil
}

func parseLabel(f []string) (Label, error) {
	if len(f) != 3 {
		return Label{}, fmt.Errorf("malformed label record")
	}
	addr, err := strconv.Atoi(f[2])
	if err != nil {
		return Label{}, err
	}
	return Label{Name: f[1], Address: addr}, nil
}

func parsePos(f []string) (Pos, error) {
	if len(f) != 6 {
		return Pos{}, fmt.Errorf("malformed pos record")
	}
	addr, err := strconv.Atoi(f[3])
	if err != nil {
		return Pos{}, err
	}
	start, err := splitPair(f[4])
	if err != nil {
		return Pos{}, err
	}
	end, err := splitPair(f[5])
	if err != nil {
		return Pos{}, err
	}
	return Pos{AbsPath: f[1], RelPath: f[2], Addr: addr, StartCol: start[0], Line: start[1], EndCol: end[0]}, nil
}

func splitPair(s string) ([2]int, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("malformed col,line pair %q", s)
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return [2]int{}, err
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{a, b}, nil
}

// Lookup finds the source position covering addr: the last Positions
// entry whose Addr is <= addr. Returns ok=false if addr precedes every
// recorded position.
func (t *Table) Lookup(addr int) (relPath string, line int, ok bool) {
	best := -1
	for i, p := range t.Positions {
		if p.Addr <= addr {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return "", 0, false
	}
	p := t.Positions[best]
	return p.RelPath, p.Line, true
}

// FormatResult renders one addr2line answer in the "rel_path:line" form,
// or "??:0" when the address could not be resolved.
func FormatResult(relPath string, line int, ok bool) string {
	if !ok {
		return "??:0"
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}
