package fonts

import (
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadTrueTypeMetrics(t *testing.T) {
	font, err := LoadTrueType("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("LoadTrueType: %v", err)
	}
	if font.BaseFont == "" {
		t.Fatal("BaseFont is empty")
	}
	if font.UnitsPerEm <= 0 {
		t.Fatalf("UnitsPerEm = %d", font.UnitsPerEm)
	}
	if font.Ascent <= 0 {
		t.Fatalf("Ascent = %g, want positive", font.Ascent)
	}
	if font.Descent <= 0 {
		t.Fatalf("Descent = %g, want positive (stored negated)", font.Descent)
	}
	if font.CapHeight <= 0 {
		t.Fatalf("CapHeight = %g", font.CapHeight)
	}
	if font.Flags&descFlagNonsymbolic == 0 {
		t.Fatalf("Flags = %#x, nonsymbolic bit missing", font.Flags)
	}
	if font.Flags&descFlagItalic != 0 {
		t.Fatalf("Flags = %#x, italic bit set on an upright font", font.Flags)
	}
	if font.StemV < 50 {
		t.Fatalf("StemV = %g, want at least 50", font.StemV)
	}
	if font.FontBBox[2] <= font.FontBBox[0] || font.FontBBox[3] <= font.FontBBox[1] {
		t.Fatalf("degenerate FontBBox %v", font.FontBBox)
	}
}

func TestLoadTrueTypeEmpty(t *testing.T) {
	var malformedErr *MalformedFontError
	if _, err := LoadTrueType("x", nil); !errors.As(err, &malformedErr) {
		t.Fatalf("LoadTrueType(nil) = %v, want MalformedFontError", err)
	}
}

func TestFontUsage(t *testing.T) {
	font, err := LoadTrueType("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("LoadTrueType: %v", err)
	}
	if font.HasUsage() {
		t.Fatal("fresh font reports usage")
	}
	font.Use("Hello")
	if !font.HasUsage() {
		t.Fatal("font does not report usage after Use")
	}

	subset, err := font.Subset()
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	// H, e, l, o.
	if len(subset.GlyphMap) != 4 {
		t.Fatalf("GlyphMap has %d entries, want 4", len(subset.GlyphMap))
	}

	again, err := font.Subset()
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if again != subset {
		t.Fatal("unchanged usage rebuilt the subset")
	}

	font.Use("!")
	rebuilt, err := font.Subset()
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if rebuilt == subset {
		t.Fatal("new usage did not invalidate the cached subset")
	}
	if _, ok := rebuilt.GlyphMap['!']; !ok {
		t.Fatal("rebuilt subset misses the new character")
	}
}

func TestFontUsageKey(t *testing.T) {
	a, _ := LoadTrueType("A", goregular.TTF)
	b, _ := LoadTrueType("B", goregular.TTF)

	a.Use("olleH")
	b.Use("Hello")
	if a.UsageKey() != b.UsageKey() {
		t.Fatal("same data and character set produced different keys")
	}

	b.Use("?")
	if a.UsageKey() == b.UsageKey() {
		t.Fatal("different character sets produced the same key")
	}
}

func TestFontNonBMPUsage(t *testing.T) {
	font, err := LoadTrueType("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("LoadTrueType: %v", err)
	}
	font.Use("A\U0001F600")
	subset, err := font.Subset()
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	found := false
	for _, r := range subset.Missing {
		if r == '\U0001F600' {
			found = true
		}
	}
	if !found {
		t.Fatalf("Missing = %v, want it to include U+1F600", subset.Missing)
	}
	if _, ok := subset.GlyphMap['\U0001F600']; ok {
		t.Fatal("non-BMP rune present in GlyphMap")
	}
}

func TestFontNonBMPUsageInvalidatesCache(t *testing.T) {
	font, err := LoadTrueType("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatalf("LoadTrueType: %v", err)
	}
	font.Use("A")
	subset, err := font.Subset()
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}

	font.Use("\U0001F600")
	rebuilt, err := font.Subset()
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if rebuilt == subset {
		t.Fatal("non-BMP usage did not invalidate the cached subset")
	}
	found := false
	for _, r := range rebuilt.Missing {
		if r == '\U0001F600' {
			found = true
		}
	}
	if !found {
		t.Fatalf("Missing = %v, want the non-BMP code point reported", rebuilt.Missing)
	}
}
