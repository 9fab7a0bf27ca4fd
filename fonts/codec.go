package fonts

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// cursor reads big-endian values from a byte buffer with explicit bounds
// checks. The first failed read latches the error; subsequent reads return
// zero values so callers can check err once per parsing unit.
type cursor struct {
	data []byte
	off  int
	err  error
}

func newCursor(data []byte) *cursor { return &cursor{data: data} }

func (c *cursor) fail(what string) {
	if c.err == nil {
		c.err = malformed("%s at offset %d (length %d)", what, c.off, len(c.data))
	}
}

func (c *cursor) seek(off int) {
	if c.err != nil {
		return
	}
	if off < 0 || off > len(c.data) {
		c.off = off
		c.fail("seek out of range")
		return
	}
	c.off = off
}

func (c *cursor) skip(n int) { c.seek(c.off + n) }

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.data) {
		c.fail("truncated read")
		return nil
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8() uint8 {
	b := c.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() uint16 {
	b := c.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *cursor) i16() int16 { return int16(c.u16()) }

func (c *cursor) u32() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (c *cursor) tag() string {
	b := c.bytes(4)
	if b == nil {
		return ""
	}
	return string(b)
}

// checksum sums a table as big-endian 32-bit words, padding the tail with
// zeros, per the sfnt checksum rule.
func checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(data); i += 4 {
		sum += binary.BigEndian.Uint32(data[i : i+4])
	}
	if rem := len(data) % 4; rem != 0 {
		var tail [4]byte
		copy(tail[:], data[len(data)-rem:])
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

// fontWriter assembles an sfnt file from finished tables: offset subtable,
// sorted table directory with per-table checksums, 4-byte aligned table data,
// and the head checkSumAdjustment fixup.
type fontWriter struct {
	tables []fontTable
}

type fontTable struct {
	tag  string
	data []byte
}

func (w *fontWriter) addTable(tag string, data []byte) {
	w.tables = append(w.tables, fontTable{tag: tag, data: data})
}

const headAdjustmentMagic = 0xB1B0AFBA

func (w *fontWriter) bytes() []byte {
	sort.Slice(w.tables, func(i, j int) bool { return w.tables[i].tag < w.tables[j].tag })

	numTables := len(w.tables)
	entrySelector := 0
	for 1<<(entrySelector+1) <= numTables {
		entrySelector++
	}
	searchRange := (1 << entrySelector) * 16
	rangeShift := numTables*16 - searchRange

	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01, 0x00, 0x00})
	writeU16(&buf, uint16(numTables))
	writeU16(&buf, uint16(searchRange))
	writeU16(&buf, uint16(entrySelector))
	writeU16(&buf, uint16(rangeShift))

	offset := 12 + 16*numTables
	headOffset := -1
	headIndex := -1
	for i, t := range w.tables {
		if t.tag == "head" {
			headOffset = offset
			headIndex = i
		}
		padded := append(append([]byte(nil), t.data...), 0, 0, 0)
		padded = padded[:(len(t.data)+3)&^3]
		buf.WriteString(t.tag)
		writeU32(&buf, checksum(padded))
		writeU32(&buf, uint32(offset))
		writeU32(&buf, uint32(len(t.data)))
		offset += len(padded)
	}
	for _, t := range w.tables {
		buf.Write(t.data)
		for pad := (4 - len(t.data)%4) % 4; pad > 0; pad-- {
			buf.WriteByte(0)
		}
	}

	out := buf.Bytes()
	if headOffset >= 0 && headOffset+12 <= len(out) {
		// checkSumAdjustment must be zero while both the head table checksum
		// and the whole-file checksum are computed.
		for i := 0; i < 4; i++ {
			out[headOffset+8+i] = 0
		}
		dirEntry := 12 + 16*headIndex
		length := int(binary.BigEndian.Uint32(out[dirEntry+12 : dirEntry+16]))
		paddedLen := (length + 3) &^ 3
		binary.BigEndian.PutUint32(out[dirEntry+4:], checksum(out[headOffset:headOffset+paddedLen]))
		binary.BigEndian.PutUint32(out[headOffset+8:], headAdjustmentMagic-checksum(out))
	}
	return out
}

func writeU16(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func writeU32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}
