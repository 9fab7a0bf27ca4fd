package fonts

import (
	"encoding/binary"
	"sort"
)

// parseCmap builds the Unicode code point to glyph index mapping from the
// font's cmap table. Format 12 subtables are preferred over format 4; other
// formats are skipped. Missing support for any Unicode subtable fails the
// font with UnsupportedFontFeature.
func (f *parsedFont) parseCmap() (map[rune]int, error) {
	cmap, _ := f.table("cmap")
	c := newCursor(cmap)
	c.u16() // version
	subtableCount := int(c.u16())
	if c.err != nil {
		return nil, c.err
	}

	var format4, format12 []int
	for i := 0; i < subtableCount; i++ {
		platformID := c.u16()
		encodingID := c.u16()
		offset := int(c.u32())
		if c.err != nil {
			return nil, c.err
		}
		if offset+2 > len(cmap) {
			return nil, malformed("cmap subtable %d offset out of range", i)
		}
		format := binary.BigEndian.Uint16(cmap[offset:])
		switch {
		case platformID == 0 && format == 12,
			platformID == 3 && encodingID == 10 && format == 12:
			format12 = append(format12, offset)
		case platformID == 0 && format == 4,
			platformID == 3 && encodingID == 1 && format == 4:
			format4 = append(format4, offset)
		}
	}

	switch {
	case len(format12) > 0:
		return f.parseCmapFormat12(cmap, format12[0])
	case len(format4) > 0:
		return f.parseCmapFormat4(cmap, format4[0])
	default:
		return nil, unsupported("no format 4 or format 12 cmap subtable")
	}
}

func (f *parsedFont) parseCmapFormat4(cmap []byte, offset int) (map[rune]int, error) {
	c := newCursor(cmap)
	c.seek(offset)
	c.u16() // format, already checked
	length := int(c.u16())
	c.u16() // language
	segCount := int(c.u16()) / 2
	c.skip(6) // searchRange, entrySelector, rangeShift
	if c.err != nil {
		return nil, c.err
	}
	if segCount == 0 {
		return nil, malformed("cmap format 4 subtable with zero segments")
	}
	end := offset + length
	if end > len(cmap) {
		return nil, malformed("cmap format 4 subtable length out of range")
	}

	endCodes := make([]int, segCount)
	for i := range endCodes {
		endCodes[i] = int(c.u16())
	}
	if pad := c.u16(); c.err == nil && pad != 0 {
		return nil, malformed("cmap format 4 reservedPad is %d", pad)
	}
	startCodes := make([]int, segCount)
	for i := range startCodes {
		startCodes[i] = int(c.u16())
	}
	deltas := make([]int, segCount)
	for i := range deltas {
		deltas[i] = int(c.i16())
	}
	rangeOffsetBase := c.off
	rangeOffsets := make([]int, segCount)
	for i := range rangeOffsets {
		rangeOffsets[i] = int(c.u16())
	}
	if c.err != nil {
		return nil, c.err
	}

	mapping := make(map[rune]int)
	for seg := 0; seg < segCount; seg++ {
		if startCodes[seg] > endCodes[seg] {
			return nil, malformed("cmap format 4 segment %d start exceeds end", seg)
		}
		for code := startCodes[seg]; code <= endCodes[seg]; code++ {
			if code == 0xFFFF {
				continue
			}
			var gid int
			if rangeOffsets[seg] == 0 {
				gid = (code + deltas[seg]) & 0xFFFF
			} else {
				idx := rangeOffsetBase + 2*seg + rangeOffsets[seg] + 2*(code-startCodes[seg])
				if idx+2 > end {
					continue
				}
				gid = int(binary.BigEndian.Uint16(cmap[idx:]))
				if gid != 0 {
					gid = (gid + deltas[seg]) & 0xFFFF
				}
			}
			if gid != 0 && gid < f.numGlyphs {
				mapping[rune(code)] = gid
			}
		}
	}
	return mapping, nil
}

func (f *parsedFont) parseCmapFormat12(cmap []byte, offset int) (map[rune]int, error) {
	c := newCursor(cmap)
	c.seek(offset)
	c.u16() // format
	c.u16() // reserved
	c.u32() // length
	c.u32() // language
	groupCount := int(c.u32())
	if c.err != nil {
		return nil, c.err
	}
	if offset+16+groupCount*12 > len(cmap) {
		return nil, malformed("cmap format 12 declares %d groups beyond table end", groupCount)
	}

	mapping := make(map[rune]int)
	for g := 0; g < groupCount; g++ {
		start := int(c.u32())
		endCode := int(c.u32())
		startGID := int(c.u32())
		if c.err != nil {
			return nil, c.err
		}
		if start > endCode {
			return nil, malformed("cmap format 12 group %d start exceeds end", g)
		}
		for code := start; code <= endCode && code <= 0x10FFFF; code++ {
			gid := startGID + (code - start)
			if gid > 0 && gid < f.numGlyphs {
				mapping[rune(code)] = gid
			}
		}
	}
	return mapping, nil
}

// buildCmapFormat4 serializes a complete cmap table (version header plus a
// single Windows BMP format 4 subtable) mapping the given code points to
// their new glyph indices. Every segment addresses its glyphs through the
// glyph index array: the new indices follow ascending-original-glyph order,
// so they are not contiguous within a run of consecutive code points.
func buildCmapFormat4(mapping map[rune]int) []byte {
	codes := make([]int, 0, len(mapping))
	for r := range mapping {
		if r <= 0xFFFE {
			codes = append(codes, int(r))
		}
	}
	sort.Ints(codes)

	type segment struct {
		start, end int
		gids       []int
	}
	var segments []segment
	for _, code := range codes {
		gid := mapping[rune(code)]
		if n := len(segments); n > 0 && segments[n-1].end == code-1 {
			segments[n-1].end = code
			segments[n-1].gids = append(segments[n-1].gids, gid)
			continue
		}
		segments = append(segments, segment{start: code, end: code, gids: []int{gid}})
	}

	// The sentinel 0xFFFF segment uses idDelta 1 / idRangeOffset 0.
	segCount := len(segments) + 1
	glyphIDCount := 0
	for _, s := range segments {
		glyphIDCount += len(s.gids)
	}
	length := 16 + 8*segCount + 2*glyphIDCount

	searchRange := 2
	entrySelector := 0
	for searchRange*2 <= 2*segCount {
		searchRange *= 2
		entrySelector++
	}
	rangeShift := 2*segCount - searchRange

	out := make([]byte, 0, 12+length)
	put16 := func(v int) { out = append(out, byte(v>>8), byte(v)) }

	// cmap header: version 0, one subtable, platform 3 encoding 1 at offset 12.
	put16(0)
	put16(1)
	put16(3)
	put16(1)
	out = append(out, 0, 0, 0, 12)

	put16(4)
	put16(length)
	put16(0) // language
	put16(2 * segCount)
	put16(searchRange)
	put16(entrySelector)
	put16(rangeShift)
	for _, s := range segments {
		put16(s.end)
	}
	put16(0xFFFF)
	put16(0) // reservedPad
	for _, s := range segments {
		put16(s.start)
	}
	put16(0xFFFF)
	for range segments {
		put16(0) // idDelta unused; glyphs come from the index array
	}
	put16(1)
	cum := 0
	for i, s := range segments {
		put16(2 * ((segCount - i) + cum))
		cum += len(s.gids)
	}
	put16(0)
	for _, s := range segments {
		for _, gid := range s.gids {
			put16(gid)
		}
	}
	return out
}
