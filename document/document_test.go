package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gcoppex/papdf/filters"
	"github.com/gcoppex/papdf/resources"
	"github.com/gcoppex/papdf/xref"
)

func TestEmptyDocument(t *testing.T) {
	doc := New(Options{})
	if err := doc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	for _, want := range []string{"/Type /Pages", "/Count 0", "/Type /Catalog", "%%EOF"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("output lacks %q", want)
		}
	}
	if bytes.Contains(out, []byte("/Type /Page ")) || bytes.Contains(out, []byte("OpenAction")) {
		t.Fatal("empty document contains page objects")
	}
	if _, _, err := xref.Parse(out); err != nil {
		t.Fatalf("emitted xref unparseable: %v", err)
	}
}

func TestCloseOnce(t *testing.T) {
	doc := New(Options{})
	if err := doc.AddText(10, 10, "hi"); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := doc.Close(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("second Close = %v, want ErrAlreadyFinalized", err)
	}
	if err := doc.AddText(10, 10, "late"); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("AddText after Close = %v", err)
	}
	if err := doc.AddPage(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("AddPage after Close = %v", err)
	}
	if err := doc.SetFontSize(14); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("SetFontSize after Close = %v", err)
	}
	if err := doc.SetLineThickness(0.5); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("SetLineThickness after Close = %v", err)
	}
	if err := doc.SetDrawColor("#ff0000"); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("SetDrawColor after Close = %v", err)
	}
	if err := doc.SetFillColor("#00ff00"); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("SetFillColor after Close = %v", err)
	}
	if _, err := doc.Bytes(); err != nil {
		t.Fatalf("Bytes after Close: %v", err)
	}
}

func TestBuiltinTextContent(t *testing.T) {
	doc := New(Options{ContentFilter: filters.None})
	if err := doc.AddText(20, 30, "Hello"); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	for _, want := range []string{
		"BT\n/F1 10 Tf\n56.693 85.039 Td\n(Hello) Tj\nET",
		"/Subtype /Type1",
		"/BaseFont /Helvetica",
		"/Encoding /WinAnsiEncoding",
		"/MediaBox [0 0 595.28 841.89]",
		"/Count 1",
		"/FitH",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("output lacks %q", want)
		}
	}
}

func TestLazyFirstPage(t *testing.T) {
	doc := New(Options{})
	if doc.PageCount() != 0 {
		t.Fatalf("PageCount before drawing = %d", doc.PageCount())
	}
	if err := doc.AddLine(0, 0, 10, 10); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("PageCount after first draw = %d, want 1", doc.PageCount())
	}
	if err := doc.AddPage(); err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", doc.PageCount())
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(out, []byte("/Count 2")) {
		t.Fatal("page tree does not count 2 pages")
	}
}

func TestPageFormats(t *testing.T) {
	doc := New(Options{Format: "letter"})
	if doc.Width() != 215.9 || doc.Height() != 279.4 {
		t.Fatalf("letter = %gx%g mm", doc.Width(), doc.Height())
	}
	doc = New(Options{Format: "unheard-of"})
	if doc.Width() != 210.0 {
		t.Fatalf("unknown format width = %g, want A4 fallback", doc.Width())
	}
	doc = New(Options{Width: 100, Height: 50})
	if doc.Width() != 100 || doc.Height() != 50 {
		t.Fatalf("explicit size = %gx%g", doc.Width(), doc.Height())
	}
}

func TestReproducibleOutput(t *testing.T) {
	build := func() []byte {
		doc := New(Options{Title: "same"})
		if err := doc.AddTrueTypeFont("Go", goregular.TTF); err != nil {
			t.Fatalf("AddTrueTypeFont: %v", err)
		}
		if err := doc.SetFont("Go"); err != nil {
			t.Fatalf("SetFont: %v", err)
		}
		if err := doc.AddText(15, 250, "deterministic"); err != nil {
			t.Fatalf("AddText: %v", err)
		}
		if err := doc.AddEAN13(20, 100, "4006381333931", true); err != nil {
			t.Fatalf("AddEAN13: %v", err)
		}
		out, err := doc.Bytes()
		if err != nil {
			t.Fatalf("Bytes: %v", err)
		}
		return out
	}
	if diff := cmp.Diff(build(), build()); diff != "" {
		t.Fatalf("two identical documents differ:\n%s", diff)
	}
}

func TestCreationDate(t *testing.T) {
	when := time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)
	doc := New(Options{CreationTime: &when})
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(out, []byte("/CreationDate (D:20240517083000)")) {
		t.Fatal("configured creation date missing")
	}

	doc = New(Options{})
	out, err = doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if bytes.Contains(out, []byte("/CreationDate")) {
		t.Fatal("creation date present without configuration")
	}
}

func TestTrueTypeEmbedding(t *testing.T) {
	doc := New(Options{ContentFilter: filters.None})
	if err := doc.AddTrueTypeFont("Go", goregular.TTF); err != nil {
		t.Fatalf("AddTrueTypeFont: %v", err)
	}
	if err := doc.SetFont("Go"); err != nil {
		t.Fatalf("SetFont: %v", err)
	}
	if err := doc.AddText(20, 200, "Hej"); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	for _, want := range []string{
		"/Subtype /Type0",
		"/Encoding /Identity-H",
		"/Subtype /CIDFontType2",
		"/BaseFont /PAPFAB+",
		"/FontDescriptor",
		"/CIDToGIDMap",
		"/ToUnicode",
		"/Length1",
		"/FontFile2",
		"/F2 ",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("output lacks %q", want)
		}
	}
	// Identity-H text is written as UTF-16BE bytes.
	if !bytes.Contains(out, []byte{0, 'H', 0, 'e', 0, 'j'}) {
		t.Fatal("content stream lacks two byte encoded text")
	}

	table, _, err := xref.Parse(out)
	if err != nil {
		t.Fatalf("parse xref: %v", err)
	}
	for num := 1; ; num++ {
		offset, _, ok := table.Lookup(num)
		if !ok {
			break
		}
		marker := fmt.Sprintf("%d 0 obj\n", num)
		if !bytes.HasPrefix(out[offset:], []byte(marker)) {
			t.Fatalf("xref offset of object %d lands on %q", num, out[offset:offset+12])
		}
	}
}

func TestSharedFontFile(t *testing.T) {
	doc := New(Options{})
	for _, name := range []string{"GoA", "GoB"} {
		if err := doc.AddTrueTypeFont(name, goregular.TTF); err != nil {
			t.Fatalf("AddTrueTypeFont(%s): %v", name, err)
		}
		if err := doc.SetFont(name); err != nil {
			t.Fatalf("SetFont(%s): %v", name, err)
		}
		if err := doc.AddText(20, 100, "shared"); err != nil {
			t.Fatalf("AddText: %v", err)
		}
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if got := bytes.Count(out, []byte("/Length1")); got != 1 {
		t.Fatalf("found %d embedded font files, want 1 shared", got)
	}
	if got := bytes.Count(out, []byte("/Subtype /Type0")); got != 2 {
		t.Fatalf("found %d Type0 fonts, want 2", got)
	}
}

func TestSeparateFontFilesForDistinctUsage(t *testing.T) {
	doc := New(Options{})
	for name, text := range map[string]string{"GoA": "abc", "GoB": "xyz"} {
		if err := doc.AddTrueTypeFont(name, goregular.TTF); err != nil {
			t.Fatalf("AddTrueTypeFont(%s): %v", name, err)
		}
		if err := doc.SetFont(name); err != nil {
			t.Fatalf("SetFont(%s): %v", name, err)
		}
		if err := doc.AddText(20, 100, text); err != nil {
			t.Fatalf("AddText: %v", err)
		}
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if got := bytes.Count(out, []byte("/Length1")); got != 2 {
		t.Fatalf("found %d embedded font files, want 2 distinct subsets", got)
	}
	if got := bytes.Count(out, []byte("/Subtype /Type0")); got != 2 {
		t.Fatalf("found %d Type0 fonts, want 2", got)
	}
}

func TestSetFontUnknown(t *testing.T) {
	doc := New(Options{})
	err := doc.SetFont("nope")
	var notFound *resources.ResourceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("SetFont(nope) = %v, want ResourceNotFoundError", err)
	}
}

func TestColors(t *testing.T) {
	doc := New(Options{ContentFilter: filters.None})
	if err := doc.SetDrawColor("#FF8000"); err != nil {
		t.Fatalf("SetDrawColor: %v", err)
	}
	if err := doc.SetDrawColor("no-color"); err == nil {
		t.Fatal("bad color accepted")
	}
	if err := doc.AddLine(0, 0, 10, 0); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(out, []byte("1 0.502 0 RG")) {
		t.Fatal("stroke color missing from content")
	}
}

func TestEAN13Validation(t *testing.T) {
	doc := New(Options{})
	if err := doc.AddEAN13(10, 10, "4006381333930", true); err == nil {
		t.Fatal("wrong check digit accepted")
	}
	if err := doc.AddEAN13(10, 10, "4006381333930", false); err != nil {
		t.Fatalf("AddEAN13 without validation: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestImageEmbedding(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	src.SetNRGBA(1, 1, color.NRGBA{B: 200, A: 120})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	doc := New(Options{ContentFilter: filters.None})
	if err := doc.AddPNG(buf.Bytes(), 10, 10, 40, 40); err != nil {
		t.Fatalf("AddPNG: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	for _, want := range []string{
		"/Im1 Do",
		"/Subtype /Image",
		"/ColorSpace /DeviceRGB",
		"/SMask",
		"/XObject << /Im1 ",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("output lacks %q", want)
		}
	}
}

func TestAddPar(t *testing.T) {
	doc := New(Options{ContentFilter: filters.None})
	if err := doc.AddPar(10, 100, "one\ntwo"); err != nil {
		t.Fatalf("AddPar: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(out, []byte("(one) Tj")) || !bytes.Contains(out, []byte("(two) Tj")) {
		t.Fatal("paragraph lines missing")
	}
	if got := bytes.Count(out, []byte(" Td\n")); got != 2 {
		t.Fatalf("found %d text positions, want 2", got)
	}
}
