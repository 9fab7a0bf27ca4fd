package fonts

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font descriptor flag bits.
const (
	descFlagFixedPitch  = 1 << 0
	descFlagNonsymbolic = 1 << 5
	descFlagItalic      = 1 << 6
	descFlagForceBold   = 1 << 18
)

// Font is an embeddable TrueType font together with the set of code points
// drawn with it so far. Metric fields are in 1/1000 em.
type Font struct {
	// Name is the caller-supplied registration name.
	Name string
	// BaseFont is the PostScript name recorded in the font, or Name when
	// the font carries none.
	BaseFont string
	// Data is the raw sfnt file as loaded.
	Data []byte

	UnitsPerEm  int
	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	FontBBox    [4]float64
	Flags       int
	StemV       float64

	used    map[rune]bool
	nonBMP  map[rune]bool
	dataSum [sha256.Size]byte

	subset    *Subset
	subsetErr error
	subsetSet bool
}

// LoadTrueType parses a TrueType font, extracts the descriptor metrics a PDF
// embedding needs, and returns a Font ready for Type0 Identity-H usage.
// No glyphs are kept yet; call Use as text is drawn and Subset once the
// usage is complete.
func LoadTrueType(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, malformed("truetype font data is empty")
	}
	parsed, err := parseFont(data)
	if err != nil {
		return nil, err
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, malformed("parse truetype: %v", err)
	}
	unitsPerEm := font.UnitsPerEm()
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := font.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}

	metrics, err := font.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, malformed("font metrics: %v", err)
	}
	bounds, err := font.Bounds(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, malformed("font bounds: %v", err)
	}

	italic := 0.0
	if post := font.PostTable(); post != nil {
		italic = post.ItalicAngle
	}

	weightClass, capHeight, haveCapHeight := parsed.os2Metrics()
	ascent := scaleFixed(metrics.Ascent, unitsPerEm)
	if !haveCapHeight {
		capHeight = ascent
	} else {
		capHeight = parsed.scale(capHeight)
	}

	flags := descFlagNonsymbolic
	if italic != 0 {
		flags |= descFlagItalic
	}
	if parsed.postFixedPitch() {
		flags |= descFlagFixedPitch
	}
	if weightClass >= 700 {
		flags |= descFlagForceBold
	}
	stemWeight := float64(weightClass) / 65.0

	return &Font{
		Name:        name,
		BaseFont:    baseName,
		Data:        data,
		UnitsPerEm:  int(unitsPerEm),
		Ascent:      ascent,
		Descent:     -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight:   capHeight,
		ItalicAngle: italic,
		FontBBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			scaleFixed(bounds.Min.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			scaleFixed(bounds.Max.Y, unitsPerEm),
		},
		Flags:   flags,
		StemV:   50 + stemWeight*stemWeight,
		used:    make(map[rune]bool),
		nonBMP:  make(map[rune]bool),
		dataSum: sha256.Sum256(data),
	}, nil
}

// Use records the code points of text for inclusion in the subset. Code
// points outside the Basic Multilingual Plane cannot be addressed by the
// two byte identity encoding and are reported through Subset's Missing list
// instead.
func (f *Font) Use(text string) {
	for _, r := range text {
		f.subsetSet = false
		if r > 0xFFFF {
			f.nonBMP[r] = true
			continue
		}
		f.used[r] = true
	}
}

// HasUsage reports whether any text has been drawn with the font.
func (f *Font) HasUsage() bool {
	return len(f.used) > 0 || len(f.nonBMP) > 0
}

// UsageKey identifies the pair of font data and used code point set. Two
// fonts with equal keys produce byte-identical subsets and can share one
// embedded font file.
func (f *Font) UsageKey() string {
	runes := make([]int, 0, len(f.used))
	for r := range f.used {
		runes = append(runes, int(r))
	}
	sort.Ints(runes)
	h := sha256.New()
	h.Write(f.dataSum[:])
	for _, r := range runes {
		h.Write([]byte{byte(r >> 8), byte(r)})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Subset builds (or returns the cached) glyph subset covering every code
// point recorded with Use.
func (f *Font) Subset() (*Subset, error) {
	if f.subsetSet {
		return f.subset, f.subsetErr
	}
	subset, err := SubsetTrueType(f.Data, f.used)
	if err == nil && len(f.nonBMP) > 0 {
		for r := range f.nonBMP {
			subset.Missing = append(subset.Missing, r)
		}
		sort.Slice(subset.Missing, func(i, j int) bool {
			return subset.Missing[i] < subset.Missing[j]
		})
	}
	f.subset, f.subsetErr, f.subsetSet = subset, err, true
	return subset, err
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}
