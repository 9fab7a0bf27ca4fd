package contentstream

import (
	"bytes"
	"strconv"

	"github.com/gcoppex/papdf/coords"
)

// Builder accumulates page content stream operators. Coordinates are in
// PDF units with the origin at the lower left corner of the page. The
// builder records which named font and XObject resources the stream refers
// to so the page's resource dictionary can be limited to what it uses.
type Builder struct {
	buf    bytes.Buffer
	fonts  map[string]bool
	xobjs  map[string]bool
	inText bool
}

// NewBuilder returns an empty content stream builder.
func NewBuilder() *Builder {
	return &Builder{
		fonts: make(map[string]bool),
		xobjs: make(map[string]bool),
	}
}

// Len returns the current stream length in bytes.
func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns the serialized operator stream.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

// UsedFonts returns the font resource names referenced by Tf, sorted order
// is the caller's concern.
func (b *Builder) UsedFonts() map[string]bool { return b.fonts }

// UsedXObjects returns the XObject resource names referenced by Do.
func (b *Builder) UsedXObjects() map[string]bool { return b.xobjs }

// fmtNum renders a coordinate or scalar with up to three decimals and no
// trailing zeros, which keeps output byte stable across runs.
func fmtNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = trimZeros(s)
	if s == "-0" {
		s = "0"
	}
	return s
}

func trimZeros(s string) string {
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

func (b *Builder) op(operator string, operands ...float64) {
	for _, v := range operands {
		b.buf.WriteString(fmtNum(v))
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(operator)
	b.buf.WriteByte('\n')
}

// Save pushes the graphics state (q).
func (b *Builder) Save() { b.op("q") }

// Restore pops the graphics state (Q).
func (b *Builder) Restore() { b.op("Q") }

// Concat appends a cm operator with the given matrix.
func (b *Builder) Concat(m coords.Matrix) {
	b.op("cm", m[0], m[1], m[2], m[3], m[4], m[5])
}

// SetLineWidth appends a w operator.
func (b *Builder) SetLineWidth(width float64) { b.op("w", width) }

// SetLineCap appends a J operator.
func (b *Builder) SetLineCap(style LineCap) { b.op("J", float64(style)) }

// SetLineJoin appends a j operator.
func (b *Builder) SetLineJoin(join LineJoin) { b.op("j", float64(join)) }

// SetDash appends a d operator.
func (b *Builder) SetDash(pattern []float64, phase float64) {
	b.buf.WriteByte('[')
	for i, v := range pattern {
		if i > 0 {
			b.buf.WriteByte(' ')
		}
		b.buf.WriteString(fmtNum(v))
	}
	b.buf.WriteString("] ")
	b.buf.WriteString(fmtNum(phase))
	b.buf.WriteString(" d\n")
}

// SetStrokeColor appends an RG operator with components in [0, 1].
func (b *Builder) SetStrokeColor(r, g, bl float64) { b.op("RG", r, g, bl) }

// SetFillColor appends an rg operator with components in [0, 1].
func (b *Builder) SetFillColor(r, g, bl float64) { b.op("rg", r, g, bl) }

// SetStrokeGray appends a G operator.
func (b *Builder) SetStrokeGray(gray float64) { b.op("G", gray) }

// SetFillGray appends a g operator.
func (b *Builder) SetFillGray(gray float64) { b.op("g", gray) }

// MoveTo appends an m operator.
func (b *Builder) MoveTo(x, y float64) { b.op("m", x, y) }

// LineTo appends an l operator.
func (b *Builder) LineTo(x, y float64) { b.op("l", x, y) }

// CurveTo appends a c operator.
func (b *Builder) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	b.op("c", c1x, c1y, c2x, c2y, x, y)
}

// Rect appends a re operator.
func (b *Builder) Rect(x, y, width, height float64) { b.op("re", x, y, width, height) }

// ClosePath appends an h operator.
func (b *Builder) ClosePath() { b.op("h") }

// Stroke appends an S operator.
func (b *Builder) Stroke() { b.op("S") }

// Fill appends an f operator (nonzero winding).
func (b *Builder) Fill() { b.op("f") }

// FillStroke appends a B operator.
func (b *Builder) FillStroke() { b.op("B") }

// DrawPath emits the segments of path followed by the requested painting
// operator.
func (b *Builder) DrawPath(path *Path, fill, stroke bool) {
	for _, sub := range path.Subpaths {
		for _, pt := range sub.Points {
			switch pt.Type {
			case PathMoveTo:
				b.MoveTo(pt.X, pt.Y)
			case PathLineTo:
				b.LineTo(pt.X, pt.Y)
			case PathCurveTo:
				b.CurveTo(pt.Control1X, pt.Control1Y, pt.Control2X, pt.Control2Y, pt.X, pt.Y)
			}
		}
		if sub.Closed {
			b.ClosePath()
		}
	}
	switch {
	case fill && stroke:
		b.FillStroke()
	case fill:
		b.Fill()
	default:
		b.Stroke()
	}
}

// BeginText appends a BT operator.
func (b *Builder) BeginText() {
	b.op("BT")
	b.inText = true
}

// EndText appends an ET operator.
func (b *Builder) EndText() {
	b.op("ET")
	b.inText = false
}

// InText reports whether a BT block is open.
func (b *Builder) InText() bool { return b.inText }

// SetFont appends a Tf operator and records the resource name.
func (b *Builder) SetFont(name string, size float64) {
	b.fonts[name] = true
	b.buf.WriteByte('/')
	b.buf.WriteString(name)
	b.buf.WriteByte(' ')
	b.buf.WriteString(fmtNum(size))
	b.buf.WriteString(" Tf\n")
}

// TextPosition appends a Td operator.
func (b *Builder) TextPosition(x, y float64) { b.op("Td", x, y) }

// ShowText appends a Tj operator with raw as a literal string. raw is the
// already encoded byte form of the text for the active font.
func (b *Builder) ShowText(raw []byte) {
	b.buf.WriteByte('(')
	for _, c := range raw {
		switch c {
		case '\\', '(', ')':
			b.buf.WriteByte('\\')
			b.buf.WriteByte(c)
		case '\r':
			b.buf.WriteString(`\r`)
		default:
			b.buf.WriteByte(c)
		}
	}
	b.buf.WriteString(") Tj\n")
}

// DrawXObject appends a Do operator and records the resource name.
func (b *Builder) DrawXObject(name string) {
	b.xobjs[name] = true
	b.buf.WriteByte('/')
	b.buf.WriteString(name)
	b.buf.WriteString(" Do\n")
}
