// Package xref builds and parses classic PDF cross-reference tables.
package xref

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Table is a classic xref table over one contiguous subsection starting at
// object 0. Entry 0 is the head of the free list.
type Table struct {
	offsets []int64 // offsets[i] belongs to object number i+1
}

// NewTable returns a table containing only the free list head.
func NewTable() *Table { return &Table{} }

// Add records the byte offset of the next object, numbered from 1 upward in
// call order.
func (t *Table) Add(offset int64) { t.offsets = append(t.offsets, offset) }

// Len returns the number of entries including the free head, which is the
// value the trailer /Size must carry.
func (t *Table) Len() int { return len(t.offsets) + 1 }

// Lookup returns the offset and generation of an in-use object.
func (t *Table) Lookup(objNum int) (offset int64, gen int, found bool) {
	if objNum < 1 || objNum > len(t.offsets) {
		return 0, 0, false
	}
	return t.offsets[objNum-1], 0, true
}

// Encode serializes the table. Every entry line is exactly 20 bytes as the
// format requires.
func (t *Table) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "xref\n0 %d\n", t.Len())
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range t.offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	return buf.Bytes()
}

// Parse locates the xref table of a complete PDF through its startxref
// pointer and returns the table together with the pointer value. Only
// single-section classic tables starting at object 0 are understood, which
// is the only shape this package writes.
func Parse(data []byte) (*Table, int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return nil, 0, errors.New("startxref not found")
	}
	var start int64 = -1
	lines := bufio.NewScanner(bytes.NewReader(data[idx+len("startxref"):]))
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("parse startxref: %w", err)
		}
		start = val
		break
	}
	if start < 0 || start >= int64(len(data)) {
		return nil, 0, fmt.Errorf("xref offset out of range: %d", start)
	}

	sc := bufio.NewScanner(bytes.NewReader(data[start:]))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "xref" {
		return nil, 0, errors.New("xref keyword not found at offset")
	}
	if !sc.Scan() {
		return nil, 0, errors.New("missing xref subsection header")
	}
	parts := strings.Fields(strings.TrimSpace(sc.Text()))
	if len(parts) != 2 || parts[0] != "0" {
		return nil, 0, fmt.Errorf("invalid xref subsection header: %q", sc.Text())
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, 0, fmt.Errorf("parse xref count: %w", err)
	}

	t := NewTable()
	for i := 0; i < count; i++ {
		if !sc.Scan() {
			return nil, 0, errors.New("unexpected end of xref section")
		}
		fields := strings.Fields(strings.TrimSpace(sc.Text()))
		if len(fields) < 3 {
			return nil, 0, fmt.Errorf("invalid xref entry: %q", sc.Text())
		}
		offset, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("parse xref offset: %w", err)
		}
		switch {
		case i == 0 && fields[2] == "f":
		case fields[2] == "n":
			t.Add(offset)
		default:
			return nil, 0, fmt.Errorf("invalid xref entry type: %q", fields[2])
		}
	}
	return t, start, nil
}
