package fonts

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// Subset is a rebuilt TrueType font containing only the glyphs needed for a
// set of code points, plus everything a PDF embedding needs to know about it.
type Subset struct {
	// Data is the complete serialized sfnt file.
	Data []byte
	// GlyphMap maps each covered code point to its glyph index in Data.
	GlyphMap map[rune]int
	// Widths maps glyph indices in Data to advance widths in 1/1000 em.
	Widths map[int]int
	// Missing lists requested code points the source font has no glyph for,
	// in ascending order.
	Missing []rune
	// NumGlyphs is the glyph count of the rebuilt font.
	NumGlyphs  int
	UnitsPerEm int
}

// optionalTables are carried over verbatim when the source font has them.
// Hinting tables keep rasterizers happy and OS/2 and name keep the subset
// identifiable.
var optionalTables = []string{"OS/2", "cvt ", "fpgm", "gasp", "name", "prep"}

// SubsetTrueType rebuilds font data so that it contains only the glyphs for
// chars, their composite components, and the .notdef glyph. Glyph 0 stays
// glyph 0 and the remaining kept glyphs are renumbered in ascending order of
// their original index, so the same glyph set always produces the same
// renumbering regardless of the order chars were collected in.
func SubsetTrueType(data []byte, chars map[rune]bool) (*Subset, error) {
	f, err := parseFont(data)
	if err != nil {
		return nil, err
	}
	charmap, err := f.parseCmap()
	if err != nil {
		return nil, err
	}

	keep := map[int]bool{0: true}
	var missing []rune
	covered := make(map[rune]int, len(chars))
	for r := range chars {
		gid, ok := charmap[r]
		if !ok {
			missing = append(missing, r)
			continue
		}
		covered[r] = gid
		keep[gid] = true
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	if err := f.closure(keep); err != nil {
		return nil, err
	}

	oldGIDs := make([]int, 0, len(keep))
	for gid := range keep {
		oldGIDs = append(oldGIDs, gid)
	}
	sort.Ints(oldGIDs)
	newOf := make(map[int]int, len(oldGIDs))
	for newGID, oldGID := range oldGIDs {
		newOf[oldGID] = newGID
	}

	glyf, loca, err := f.rebuildGlyf(oldGIDs, newOf)
	if err != nil {
		return nil, err
	}

	numGlyphs := len(oldGIDs)
	hmtx := make([]byte, 0, numGlyphs*4)
	widths := make(map[int]int, numGlyphs)
	for newGID, oldGID := range oldGIDs {
		advance, lsb := f.metrics(oldGID)
		hmtx = append(hmtx, byte(advance>>8), byte(advance), byte(lsb>>8), byte(lsb))
		widths[newGID] = int(f.scale(float64(advance)) + 0.5)
	}

	glyphMap := make(map[rune]int, len(covered))
	for r, oldGID := range covered {
		glyphMap[r] = newOf[oldGID]
	}

	w := &fontWriter{}
	w.addTable("cmap", buildCmapFormat4(glyphMap))
	w.addTable("glyf", glyf)
	w.addTable("head", f.rebuildHead())
	w.addTable("hhea", f.rebuildHhea(numGlyphs))
	w.addTable("hmtx", hmtx)
	w.addTable("loca", loca)
	w.addTable("maxp", f.rebuildMaxp(numGlyphs))
	w.addTable("post", f.rebuildPost())
	for _, tag := range optionalTables {
		if table, ok := f.table(tag); ok {
			w.addTable(tag, table)
		}
	}

	return &Subset{
		Data:       w.bytes(),
		GlyphMap:   glyphMap,
		Widths:     widths,
		Missing:    missing,
		NumGlyphs:  numGlyphs,
		UnitsPerEm: f.unitsPerEm,
	}, nil
}

// rebuildGlyf copies the kept glyph records in their new order, remapping
// composite component references, and builds a matching long-format loca.
// Each record is padded to a 4 byte boundary.
func (f *parsedFont) rebuildGlyf(oldGIDs []int, newOf map[int]int) (glyf, loca []byte, err error) {
	var buf bytes.Buffer
	locaBuf := bytes.Buffer{}
	for _, oldGID := range oldGIDs {
		writeU32(&locaBuf, uint32(buf.Len()))
		data := f.glyphData(oldGID)
		if len(data) == 0 {
			continue
		}
		if len(data) < 10 {
			return nil, nil, malformed("glyph %d record is %d bytes, need 10 for the header", oldGID, len(data))
		}
		record := make([]byte, len(data))
		copy(record, data)
		if int16(binary.BigEndian.Uint16(record)) < 0 {
			err := forEachComponent(record, func(gidOffset int) error {
				component := int(binary.BigEndian.Uint16(record[gidOffset:]))
				newGID, ok := newOf[component]
				if !ok {
					return malformed("glyph %d component %d missing from closure", oldGID, component)
				}
				binary.BigEndian.PutUint16(record[gidOffset:], uint16(newGID))
				return nil
			})
			if err != nil {
				return nil, nil, err
			}
		}
		buf.Write(record)
		for buf.Len()%4 != 0 {
			buf.WriteByte(0)
		}
	}
	writeU32(&locaBuf, uint32(buf.Len()))
	return buf.Bytes(), locaBuf.Bytes(), nil
}

// rebuildHead returns a copy of head with indexToLocFormat forced to long
// and checkSumAdjustment cleared for later fixup.
func (f *parsedFont) rebuildHead() []byte {
	src, _ := f.table("head")
	head := make([]byte, len(src))
	copy(head, src)
	binary.BigEndian.PutUint32(head[8:12], 0)
	binary.BigEndian.PutUint16(head[50:52], 1)
	return head
}

func (f *parsedFont) rebuildHhea(numGlyphs int) []byte {
	src, _ := f.table("hhea")
	hhea := make([]byte, len(src))
	copy(hhea, src)
	binary.BigEndian.PutUint16(hhea[34:36], uint16(numGlyphs))
	return hhea
}

func (f *parsedFont) rebuildMaxp(numGlyphs int) []byte {
	src, _ := f.table("maxp")
	maxp := make([]byte, len(src))
	copy(maxp, src)
	binary.BigEndian.PutUint16(maxp[4:6], uint16(numGlyphs))
	return maxp
}

// rebuildPost truncates post to a version 3 header. Glyph names are of no
// use inside a CID-keyed embedding and dropping them saves the entire name
// index.
func (f *parsedFont) rebuildPost() []byte {
	post := make([]byte, 32)
	binary.BigEndian.PutUint32(post[0:4], 0x00030000)
	if src, ok := f.table("post"); ok && len(src) >= 32 {
		copy(post[4:32], src[4:32])
	}
	return post
}
