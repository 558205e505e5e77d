package asm

import (
	"fmt"
	"io"
)

// Dumper renders a Linked program similarly to the teacher's -dmach
// printer: one line per section header, one per resolved label, and a
// byte-count summary per section (spec.md names no canonical -dasm
// format, so this follows pkg/mach/printer.go's layout).
type Dumper struct{ w io.Writer }

// NewDumper creates a Dumper writing to w.
func NewDumper(w io.Writer) *Dumper { return &Dumper{w: w} }

// DumpLinked prints every section's address/size and every label's
// address, grouped by section in output order.
func (d *Dumper) DumpLinked(l *Linked) {
	byLabelSection := make(map[string][]string)
	for name, info := range l.Labels {
		byLabelSection[info.Section] = append(byLabelSection[info.Section], name)
	}
	for _, s := range l.Sections {
		fmt.Fprintf(d.w, "%s: addr=0x%x size=%d align=%d\n", s.Name, s.Address, s.Size, s.Align)
		for _, name := range byLabelSection[s.Name] {
			fmt.Fprintf(d.w, "  %s:\n", name)
		}
	}
}
