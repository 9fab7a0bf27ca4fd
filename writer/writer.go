// Package writer serializes a registry of PDF objects into a complete file
// with a classic cross-reference table.
package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/gcoppex/papdf/ir/raw"
	"github.com/gcoppex/papdf/xref"
)

// DefaultVersion is the header version written when Config leaves it empty.
const DefaultVersion = "1.4"

// Config controls file-level serialization.
type Config struct {
	// Version is the PDF version in the header, e.g. "1.4".
	Version string
}

// DanglingReferenceError reports indirect references that point at reserved
// but never filled, or out of range, object numbers.
type DanglingReferenceError struct {
	Refs []raw.ObjectRef
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%d dangling object references, first is %d %d R",
		len(e.Refs), e.Refs[0].Num, e.Refs[0].Gen)
}

// Serialize writes every object of reg in ascending number order and closes
// the file with xref table and trailer. root must reference the document
// catalog; info may be the zero ref when there is no info dictionary.
func Serialize(reg *raw.Registry, root, info raw.ObjectRef, cfg Config) ([]byte, error) {
	if refs := reg.Unresolved(); len(refs) > 0 {
		return nil, &DanglingReferenceError{Refs: refs}
	}
	if _, ok := reg.Get(root); !ok {
		return nil, &DanglingReferenceError{Refs: []raw.ObjectRef{root}}
	}

	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	// Bytes above 127 mark the file as binary for transfer tools.
	buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	table := xref.NewTable()
	for i, obj := range reg.Objects() {
		table.Add(int64(buf.Len()))
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := buf.Len()
	buf.Write(table.Encode())

	trailer := raw.Dict()
	trailer.Set("Size", raw.Int(int64(table.Len())))
	trailer.Set("Root", raw.Ref(root))
	if info.Num != 0 {
		trailer.Set("Info", raw.Ref(info))
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes(), nil
}

func writeObject(buf *bytes.Buffer, obj raw.Object) {
	switch o := obj.(type) {
	case raw.NullObj:
		buf.WriteString("null")
	case raw.BoolObj:
		buf.WriteString(strconv.FormatBool(o.V))
	case raw.NumberObj:
		writeNumber(buf, o)
	case raw.StringObj:
		writeString(buf, o.Bytes)
	case raw.NameObj:
		buf.WriteByte('/')
		buf.WriteString(o.Val)
	case raw.RefObj:
		fmt.Fprintf(buf, "%d %d R", o.R.Num, o.R.Gen)
	case *raw.ArrayObj:
		buf.WriteByte('[')
		for i, item := range o.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case *raw.DictObj:
		writeDict(buf, o)
	case *raw.StreamObj:
		o.Dict.Set("Length", raw.Int(int64(len(o.Data))))
		writeDict(buf, o.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(o.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

// writeDict emits keys in sorted order so the same object graph always
// produces the same bytes.
func writeDict(buf *bytes.Buffer, d *raw.DictObj) {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteString(" /")
		buf.WriteString(k)
		buf.WriteByte(' ')
		writeObject(buf, d.KV[k])
	}
	buf.WriteString(" >>")
}

func writeNumber(buf *bytes.Buffer, n raw.NumberObj) {
	if n.IsInt {
		buf.WriteString(strconv.FormatInt(n.I, 10))
		return
	}
	s := strconv.FormatFloat(n.F, 'f', 6, 64)
	s = trimFraction(s)
	if s == "-0" {
		s = "0"
	}
	buf.WriteString(s)
}

func trimFraction(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '0':
			continue
		case '.':
			return s[:i]
		default:
			return s[:i+1]
		}
	}
	return s
}

func writeString(buf *bytes.Buffer, b []byte) {
	buf.WriteByte('(')
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}
