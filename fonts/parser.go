package fonts

import "encoding/binary"

// Tags of tables that must be present before a font is accepted for
// embedding.
var requiredTables = []string{"head", "hhea", "hmtx", "maxp", "cmap", "glyf", "loca", "name"}

type tableSpan struct {
	offset uint32
	length uint32
}

// parsedFont is the bounds-checked view of a TrueType file that the
// subsetter works from. All offsets have been validated against the file
// length during parsing.
type parsedFont struct {
	data             []byte
	tables           map[string]tableSpan
	numGlyphs        int
	unitsPerEm       int
	indexToLocFormat int
	numberOfHMetrics int
	loca             []uint32 // byte offsets into glyf, numGlyphs+1 entries
	glyf             []byte
	hmtx             []byte
}

const (
	sfntVersionTrueType = 0x00010000
	sfntVersionAppleTT  = 0x74727565 // 'true'
	headMagic           = 0x5F0F3CF5
)

func parseFont(data []byte) (*parsedFont, error) {
	c := newCursor(data)
	version := c.u32()
	numTables := int(c.u16())
	c.skip(6) // searchRange, entrySelector, rangeShift
	if c.err != nil {
		return nil, c.err
	}
	if version != sfntVersionTrueType && version != sfntVersionAppleTT {
		return nil, malformed("not an sfnt TrueType file (version 0x%08X)", version)
	}
	if 12+16*numTables > len(data) {
		return nil, malformed("table directory declares %d tables but file has %d bytes", numTables, len(data))
	}

	f := &parsedFont{data: data, tables: make(map[string]tableSpan, numTables)}
	for i := 0; i < numTables; i++ {
		tag := c.tag()
		c.u32() // stored checksum, not verified
		offset := c.u32()
		length := c.u32()
		if c.err != nil {
			return nil, c.err
		}
		if uint64(offset)+uint64(length) > uint64(len(data)) {
			return nil, malformed("table %q extends past end of file", tag)
		}
		f.tables[tag] = tableSpan{offset: offset, length: length}
	}
	for _, tag := range requiredTables {
		if _, ok := f.tables[tag]; !ok {
			return nil, malformed("missing mandatory table %q", tag)
		}
	}

	if err := f.parseHead(); err != nil {
		return nil, err
	}
	if err := f.parseMaxp(); err != nil {
		return nil, err
	}
	if err := f.parseHhea(); err != nil {
		return nil, err
	}
	if err := f.parseHmtx(); err != nil {
		return nil, err
	}
	if err := f.parseLoca(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *parsedFont) table(tag string) ([]byte, bool) {
	span, ok := f.tables[tag]
	if !ok {
		return nil, false
	}
	return f.data[span.offset : span.offset+span.length], true
}

func (f *parsedFont) parseHead() error {
	head, _ := f.table("head")
	if len(head) < 54 {
		return malformed("head table too short (%d bytes)", len(head))
	}
	if magic := binary.BigEndian.Uint32(head[12:16]); magic != headMagic {
		return malformed("bad head magic number 0x%08X", magic)
	}
	f.unitsPerEm = int(binary.BigEndian.Uint16(head[18:20]))
	if f.unitsPerEm == 0 {
		return malformed("unitsPerEm is zero")
	}
	f.indexToLocFormat = int(int16(binary.BigEndian.Uint16(head[50:52])))
	if f.indexToLocFormat != 0 && f.indexToLocFormat != 1 {
		return unsupported("indexToLocFormat %d", f.indexToLocFormat)
	}
	return nil
}

func (f *parsedFont) parseMaxp() error {
	maxp, _ := f.table("maxp")
	if len(maxp) < 6 {
		return malformed("maxp table too short (%d bytes)", len(maxp))
	}
	f.numGlyphs = int(binary.BigEndian.Uint16(maxp[4:6]))
	if f.numGlyphs == 0 {
		return malformed("font declares zero glyphs")
	}
	return nil
}

func (f *parsedFont) parseHhea() error {
	hhea, _ := f.table("hhea")
	if len(hhea) < 36 {
		return malformed("hhea table too short (%d bytes)", len(hhea))
	}
	f.numberOfHMetrics = int(binary.BigEndian.Uint16(hhea[34:36]))
	if f.numberOfHMetrics < 1 || f.numberOfHMetrics > f.numGlyphs {
		return malformed("numberOfHMetrics %d out of range for %d glyphs", f.numberOfHMetrics, f.numGlyphs)
	}
	return nil
}

func (f *parsedFont) parseHmtx() error {
	hmtx, _ := f.table("hmtx")
	need := f.numberOfHMetrics*4 + (f.numGlyphs-f.numberOfHMetrics)*2
	if len(hmtx) < need {
		return malformed("hmtx table has %d bytes, need %d for %d glyphs", len(hmtx), need, f.numGlyphs)
	}
	f.hmtx = hmtx
	return nil
}

func (f *parsedFont) parseLoca() error {
	loca, _ := f.table("loca")
	glyf, _ := f.table("glyf")
	f.glyf = glyf

	entrySize := 4
	if f.indexToLocFormat == 0 {
		entrySize = 2
	}
	if len(loca) < (f.numGlyphs+1)*entrySize {
		return malformed("loca table has %d bytes, need %d", len(loca), (f.numGlyphs+1)*entrySize)
	}
	f.loca = make([]uint32, f.numGlyphs+1)
	for i := range f.loca {
		if entrySize == 2 {
			f.loca[i] = uint32(binary.BigEndian.Uint16(loca[i*2:])) * 2
		} else {
			f.loca[i] = binary.BigEndian.Uint32(loca[i*4:])
		}
		if f.loca[i] > uint32(len(glyf)) {
			return malformed("loca entry %d points past glyf table", i)
		}
		if i > 0 && f.loca[i] < f.loca[i-1] {
			return malformed("loca entries not monotonic at glyph %d", i)
		}
	}
	return nil
}

// glyphData returns the raw outline bytes of a glyph; empty glyphs return a
// zero-length slice.
func (f *parsedFont) glyphData(gid int) []byte {
	if gid < 0 || gid >= f.numGlyphs {
		return nil
	}
	return f.glyf[f.loca[gid]:f.loca[gid+1]]
}

// metrics returns the advance width and left side bearing of a glyph in font
// units. Glyphs past numberOfHMetrics inherit the last explicit advance.
func (f *parsedFont) metrics(gid int) (advance uint16, lsb int16) {
	if gid < f.numberOfHMetrics {
		advance = binary.BigEndian.Uint16(f.hmtx[gid*4:])
		lsb = int16(binary.BigEndian.Uint16(f.hmtx[gid*4+2:]))
		return advance, lsb
	}
	advance = binary.BigEndian.Uint16(f.hmtx[(f.numberOfHMetrics-1)*4:])
	lsbOff := f.numberOfHMetrics*4 + (gid-f.numberOfHMetrics)*2
	lsb = int16(binary.BigEndian.Uint16(f.hmtx[lsbOff:]))
	return advance, lsb
}

// scale converts a font-unit value to 1000-unit glyph space.
func (f *parsedFont) scale(v float64) float64 {
	return v * 1000.0 / float64(f.unitsPerEm)
}

// os2Metrics extracts the weight class and cap height from the optional OS/2
// table. Fonts without one (or with a version 0/1 table lacking sCapHeight)
// report ok accordingly.
func (f *parsedFont) os2Metrics() (weightClass int, capHeight float64, haveCapHeight bool) {
	weightClass = 500
	os2, ok := f.table("OS/2")
	if !ok || len(os2) < 6 {
		return weightClass, 0, false
	}
	version := binary.BigEndian.Uint16(os2[0:2])
	weightClass = int(binary.BigEndian.Uint16(os2[4:6]))
	if version > 1 && len(os2) >= 90 {
		capHeight = f.scale(float64(int16(binary.BigEndian.Uint16(os2[88:90]))))
		return weightClass, capHeight, true
	}
	return weightClass, 0, false
}

// postFixedPitch reports whether the post table marks the font monospaced.
func (f *parsedFont) postFixedPitch() bool {
	post, ok := f.table("post")
	if !ok || len(post) < 16 {
		return false
	}
	return binary.BigEndian.Uint32(post[12:16]) != 0
}
