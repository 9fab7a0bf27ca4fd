package fonts

import "encoding/binary"

// Composite glyph component flags.
const (
	flagArgsAreWords   = 0x0001
	flagWeHaveAScale   = 0x0008
	flagMoreComponents = 0x0020
	flagXAndYScale     = 0x0040
	flagTwoByTwo       = 0x0080
	flagWeHaveInstr    = 0x0100
)

// forEachComponent walks the component records of a composite glyph and
// calls fn with the byte offset of each component glyph index within data.
// data must be a full glyph record with a negative contour count.
func forEachComponent(data []byte, fn func(gidOffset int) error) error {
	off := 10
	for {
		if off+4 > len(data) {
			return malformed("composite glyph record truncated at offset %d", off)
		}
		flags := binary.BigEndian.Uint16(data[off:])
		if err := fn(off + 2); err != nil {
			return err
		}
		off += 4
		if flags&flagArgsAreWords != 0 {
			off += 4
		} else {
			off += 2
		}
		switch {
		case flags&flagWeHaveAScale != 0:
			off += 2
		case flags&flagXAndYScale != 0:
			off += 4
		case flags&flagTwoByTwo != 0:
			off += 8
		}
		if flags&flagMoreComponents == 0 {
			return nil
		}
	}
}

// closure expands the seed glyph set with every glyph reachable through
// composite component references.
func (f *parsedFont) closure(glyphs map[int]bool) error {
	work := make([]int, 0, len(glyphs))
	for gid := range glyphs {
		work = append(work, gid)
	}
	for len(work) > 0 {
		gid := work[len(work)-1]
		work = work[:len(work)-1]

		data := f.glyphData(gid)
		if len(data) == 0 {
			continue
		}
		if len(data) < 10 {
			return malformed("glyph %d record is %d bytes, need 10 for the header", gid, len(data))
		}
		if int16(binary.BigEndian.Uint16(data)) >= 0 {
			continue
		}
		err := forEachComponent(data, func(gidOffset int) error {
			component := int(binary.BigEndian.Uint16(data[gidOffset:]))
			if component >= f.numGlyphs {
				return malformed("composite glyph %d references glyph %d of %d", gid, component, f.numGlyphs)
			}
			if !glyphs[component] {
				glyphs[component] = true
				work = append(work, component)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
