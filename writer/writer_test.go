package writer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gcoppex/papdf/ir/raw"
	"github.com/gcoppex/papdf/xref"
)

func minimalRegistry() (*raw.Registry, raw.ObjectRef) {
	reg := raw.NewRegistry()
	pages := raw.Dict()
	pages.Set("Type", raw.Name("Pages"))
	pages.Set("Kids", raw.Array())
	pages.Set("Count", raw.Int(0))
	pagesRef := reg.Add(pages)

	catalog := raw.Dict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(pagesRef))
	return reg, reg.Add(catalog)
}

func TestSerializeMinimalFile(t *testing.T) {
	reg, root := minimalRegistry()
	out, err := Serialize(reg, root, raw.ObjectRef{}, Config{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF-1.4\n")) {
		t.Fatalf("file starts with %q", out[:16])
	}
	if out[9] != '%' || out[10] < 0x80 {
		t.Fatal("binary comment line missing")
	}
	if !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Fatalf("file ends with %q", out[len(out)-16:])
	}
	for _, want := range []string{"1 0 obj", "2 0 obj", "/Type /Catalog", "/Root 2 0 R", "/Size 3"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("output lacks %q", want)
		}
	}
	if bytes.Contains(out, []byte("/Info")) {
		t.Fatal("trailer has /Info although none was given")
	}
}

func TestSerializeXrefOffsets(t *testing.T) {
	reg, root := minimalRegistry()
	info := reg.Add(raw.Dict())
	out, err := Serialize(reg, root, info, Config{Version: "1.5"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-1.5\n")) {
		t.Fatal("version override ignored")
	}

	table, _, err := xref.Parse(out)
	if err != nil {
		t.Fatalf("parse emitted xref: %v", err)
	}
	if table.Len() != reg.Len()+1 {
		t.Fatalf("xref size = %d, want %d", table.Len(), reg.Len()+1)
	}
	for num := 1; num <= reg.Len(); num++ {
		offset, _, ok := table.Lookup(num)
		if !ok {
			t.Fatalf("object %d missing from xref", num)
		}
		marker := fmt.Sprintf("%d 0 obj\n", num)
		if !bytes.HasPrefix(out[offset:], []byte(marker)) {
			t.Fatalf("offset %d of object %d lands on %q", offset, num, out[offset:offset+12])
		}
	}
	if !bytes.Contains(out, []byte("/Info 3 0 R")) {
		t.Fatal("trailer lacks /Info")
	}
}

func TestSerializeDeterministic(t *testing.T) {
	build := func() []byte {
		reg, root := minimalRegistry()
		dict := raw.Dict()
		// Insertion order must not leak into the output.
		for _, k := range []string{"Zebra", "Apple", "Mango", "Kiwi"} {
			dict.Set(k, raw.Name(k))
		}
		reg.Add(dict)
		out, err := Serialize(reg, root, raw.ObjectRef{}, Config{})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		return out
	}
	if diff := cmp.Diff(build(), build()); diff != "" {
		t.Fatalf("two runs differ:\n%s", diff)
	}
	if !bytes.Contains(build(), []byte("<< /Apple /Apple /Kiwi /Kiwi /Mango /Mango /Zebra /Zebra >>")) {
		t.Fatal("dictionary keys not sorted")
	}
}

func TestSerializePrimitives(t *testing.T) {
	reg, root := minimalRegistry()
	dict := raw.Dict()
	dict.Set("B", raw.Bool(true))
	dict.Set("I", raw.Int(-7))
	dict.Set("R", raw.Real(2.5))
	dict.Set("Rounded", raw.Real(3.0))
	dict.Set("S", raw.Text("a(b)\\c"))
	dict.Set("N", raw.NullObj{})
	dict.Set("A", raw.Array(raw.Int(1), raw.Int(2)))
	reg.Add(dict)

	out, err := Serialize(reg, root, raw.ObjectRef{}, Config{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := `<< /A [1 2] /B true /I -7 /N null /R 2.5 /Rounded 3 /S (a\(b\)\\c) >>`
	if !bytes.Contains(out, []byte(want)) {
		t.Fatalf("output lacks %q", want)
	}
}

func TestSerializeStreamLength(t *testing.T) {
	reg, root := minimalRegistry()
	payload := []byte("BT /F1 12 Tf ET")
	reg.Add(raw.Stream(raw.Dict(), payload))

	out, err := Serialize(reg, root, raw.ObjectRef{}, Config{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(payload), payload)
	if !bytes.Contains(out, []byte(want)) {
		t.Fatalf("output lacks %q", want)
	}
}

func TestSerializeDanglingReference(t *testing.T) {
	reg, root := minimalRegistry()
	dict := raw.Dict()
	dict.Set("Broken", raw.Ref(raw.ObjectRef{Num: 17}))
	reg.Add(dict)

	_, err := Serialize(reg, root, raw.ObjectRef{}, Config{})
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("Serialize = %v, want DanglingReferenceError", err)
	}
	if len(dangling.Refs) != 1 || dangling.Refs[0].Num != 17 {
		t.Fatalf("dangling refs = %v", dangling.Refs)
	}

	reg2 := raw.NewRegistry()
	reg2.Reserve()
	if _, err := Serialize(reg2, raw.ObjectRef{Num: 1}, raw.ObjectRef{}, Config{}); err == nil {
		t.Fatal("unfilled reservation serialized")
	}
}
