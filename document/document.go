// Package document is the top level API for building PDF files: pages,
// text, vector graphics, images and barcodes, with TrueType fonts subset to
// the glyphs actually drawn.
package document

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gcoppex/papdf/barcode"
	"github.com/gcoppex/papdf/contentstream"
	"github.com/gcoppex/papdf/coords"
	"github.com/gcoppex/papdf/filters"
	"github.com/gcoppex/papdf/images"
	"github.com/gcoppex/papdf/observability"
	"github.com/gcoppex/papdf/resources"
)

// ErrAlreadyFinalized is returned by drawing and registration calls after
// Close, and by a second Close.
var ErrAlreadyFinalized = errors.New("document already finalized")

// PageFormats maps format names to page sizes in millimeters.
var PageFormats = map[string][2]float64{
	"A3":     {297.0, 420.0},
	"A4":     {210.0, 297.0},
	"A5":     {148.5, 210.0},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

// Options configures a new document. The zero value produces an A4 document
// with flate compressed content streams and no info metadata beyond the
// producer line.
type Options struct {
	// Format selects a named page size; ignored when Width and Height are
	// both set. Unknown names fall back to A4.
	Format string
	// Width and Height are the page size in millimeters.
	Width  float64
	Height float64
	// Title is stored in the document info dictionary when non-empty.
	Title string
	// Producer overrides the default producer line.
	Producer string
	// CreationTime, when non-nil, is written as /CreationDate. Leaving it
	// nil keeps output byte for byte reproducible.
	CreationTime *time.Time
	// ContentFilter compresses page content streams. Defaults to
	// FlateDecode; filters.None stores them uncompressed for debugging.
	ContentFilter filters.Name
	Logger        observability.Logger
}

const defaultProducer = "papdf"

type state int

const (
	stateOpen state = iota
	stateFinalizing
	stateClosed
)

// page collects the content of one page while the document is open.
type page struct {
	content *contentstream.Builder
}

// Document accumulates pages and resources and serializes them on Close.
// It is not safe for concurrent use.
type Document struct {
	opts     Options
	log      observability.Logger
	res      *resources.Registry
	pages    []*page
	widthMM  float64
	heightMM float64

	fontName      string
	fontSize      float64
	lineThickness float64
	drawColor     [3]float64
	fillColor     [3]float64

	state state
	out   []byte
}

// New creates an empty document.
func New(opts Options) *Document {
	log := opts.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		format, ok := PageFormats[strings.ToUpper(opts.Format)]
		if !ok {
			format = PageFormats["A4"]
		}
		w, h = format[0], format[1]
	}
	if opts.ContentFilter == "" {
		opts.ContentFilter = filters.Flate
	}
	return &Document{
		opts:          opts,
		log:           log,
		res:           resources.NewRegistry(),
		widthMM:       w,
		heightMM:      h,
		fontName:      resources.BuiltinFont,
		fontSize:      10,
		lineThickness: 1,
	}
}

// Width returns the page width in millimeters.
func (d *Document) Width() float64 { return d.widthMM }

// Height returns the page height in millimeters.
func (d *Document) Height() float64 { return d.heightMM }

func (d *Document) open() error {
	if d.state != stateOpen {
		return ErrAlreadyFinalized
	}
	return nil
}

// currentPage returns the page being drawn on, creating the first page on
// demand so that a document nothing was drawn on stays empty.
func (d *Document) currentPage() *page {
	if len(d.pages) == 0 {
		d.pages = append(d.pages, &page{content: contentstream.NewBuilder()})
	}
	return d.pages[len(d.pages)-1]
}

// AddPage starts a new page.
func (d *Document) AddPage() error {
	if err := d.open(); err != nil {
		return err
	}
	d.pages = append(d.pages, &page{content: contentstream.NewBuilder()})
	return nil
}

// PageCount returns the number of pages so far. A document drawn on has at
// least one.
func (d *Document) PageCount() int { return len(d.pages) }

// AddTrueTypeFont parses and registers font data under name for use with
// SetFont. Only the glyphs drawn with the font end up in the file.
func (d *Document) AddTrueTypeFont(name string, data []byte) error {
	if err := d.open(); err != nil {
		return err
	}
	entry, err := d.res.AddFont(name, data)
	if err != nil {
		return err
	}
	d.log.Debug("font registered",
		observability.String("font", name),
		observability.String("label", entry.Label),
	)
	return nil
}

// SetFont selects a registered font (or the builtin Helvetica) for
// subsequent text.
func (d *Document) SetFont(name string) error {
	if err := d.open(); err != nil {
		return err
	}
	if _, err := d.res.Font(name); err != nil {
		return err
	}
	d.fontName = name
	return nil
}

// SetFontSize sets the text size in points.
func (d *Document) SetFontSize(size float64) error {
	if err := d.open(); err != nil {
		return err
	}
	d.fontSize = size
	return nil
}

// FontSize returns the current text size in points.
func (d *Document) FontSize() float64 { return d.fontSize }

// SetLineThickness sets the stroke width in millimeters.
func (d *Document) SetLineThickness(mm float64) error {
	if err := d.open(); err != nil {
		return err
	}
	d.lineThickness = mm
	return nil
}

// LineThickness returns the stroke width in millimeters.
func (d *Document) LineThickness() float64 { return d.lineThickness }

// SetDrawColor sets the stroke color from a #rrggbb string.
func (d *Document) SetDrawColor(hex string) error {
	if err := d.open(); err != nil {
		return err
	}
	rgb, err := parseHexColor(hex)
	if err != nil {
		return err
	}
	d.drawColor = rgb
	return nil
}

// SetFillColor sets the fill color from a #rrggbb string.
func (d *Document) SetFillColor(hex string) error {
	if err := d.open(); err != nil {
		return err
	}
	rgb, err := parseHexColor(hex)
	if err != nil {
		return err
	}
	d.fillColor = rgb
	return nil
}

func parseHexColor(s string) (rgb [3]float64, err error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return rgb, fmt.Errorf("color %q: want #rrggbb", s)
	}
	for i := 0; i < 3; i++ {
		var v int
		if _, err := fmt.Sscanf(hex[2*i:2*i+2], "%02x", &v); err != nil {
			return rgb, fmt.Errorf("color %q: want #rrggbb", s)
		}
		rgb[i] = float64(v) / 255.0
	}
	return rgb, nil
}

// AddText draws a single line of text with the current font and size. The
// coordinates are in millimeters from the lower left page corner.
func (d *Document) AddText(x, y float64, text string) error {
	if err := d.open(); err != nil {
		return err
	}
	entry, err := d.res.Font(d.fontName)
	if err != nil {
		return err
	}

	var raw []byte
	if entry.Font == nil {
		raw = encodeWinAnsi(text)
	} else {
		entry.Font.Use(text)
		raw = encodeUTF16BE(text)
	}

	b := d.currentPage().content
	b.BeginText()
	b.SetFont(entry.Label, d.fontSize)
	b.TextPosition(coords.MM(x), coords.MM(y))
	b.ShowText(raw)
	b.EndText()
	return nil
}

// AddPar draws a multi line paragraph: the text is split on newlines and
// each line is placed one leading below the previous. There is no width
// based wrapping.
func (d *Document) AddPar(x, y float64, text string) error {
	leading := coords.ToMM(d.fontSize * 1.2)
	for i, line := range strings.Split(text, "\n") {
		if err := d.AddText(x, y-float64(i)*leading, line); err != nil {
			return err
		}
	}
	return nil
}

// encodeUTF16BE produces the two byte big endian form used by the identity
// encoded embedded fonts. Code points beyond the BMP have no two byte form
// and map to glyph 0.
func encodeUTF16BE(text string) []byte {
	out := make([]byte, 0, 2*len(text))
	for _, r := range text {
		if r > 0xFFFF {
			out = append(out, 0, 0)
			continue
		}
		u := utf16.Encode([]rune{r})
		out = append(out, byte(u[0]>>8), byte(u[0]))
	}
	return out
}

// AddLine draws a stroked line between two points, in millimeters.
func (d *Document) AddLine(x0, y0, x1, y1 float64) error {
	if err := d.open(); err != nil {
		return err
	}
	b := d.currentPage().content
	b.SetLineWidth(coords.MM(d.lineThickness))
	b.SetLineCap(contentstream.LineCapButt)
	b.SetStrokeColor(d.drawColor[0], d.drawColor[1], d.drawColor[2])
	b.MoveTo(coords.MM(x0), coords.MM(y0))
	b.LineTo(coords.MM(x1), coords.MM(y1))
	b.Stroke()
	return nil
}

// AddRect draws a rectangle, in millimeters. fill paints the interior with
// the fill color, stroke outlines it; with both false only the outline is
// drawn.
func (d *Document) AddRect(x, y, w, h float64, fill, stroke bool) error {
	if err := d.open(); err != nil {
		return err
	}
	if !fill && !stroke {
		stroke = true
	}
	b := d.currentPage().content
	b.SetLineWidth(coords.MM(d.lineThickness))
	b.SetStrokeColor(d.drawColor[0], d.drawColor[1], d.drawColor[2])
	b.SetFillColor(d.fillColor[0], d.fillColor[1], d.fillColor[2])
	b.Rect(coords.MM(x), coords.MM(y), coords.MM(w), coords.MM(h))
	switch {
	case fill && stroke:
		b.FillStroke()
	case fill:
		b.Fill()
	default:
		b.Stroke()
	}
	return nil
}

// AddImage places a prepared image with its lower left corner at (x, y),
// scaled to w by h millimeters.
func (d *Document) AddImage(img *images.Image, x, y, w, h float64) error {
	if err := d.open(); err != nil {
		return err
	}
	entry := d.res.AddImage(img)
	b := d.currentPage().content
	b.Save()
	b.Concat(coords.Matrix{coords.MM(w), 0, 0, coords.MM(h), coords.MM(x), coords.MM(y)})
	b.DrawXObject(entry.Label)
	b.Restore()
	return nil
}

// AddJPEG embeds JPEG data without recompression.
func (d *Document) AddJPEG(data []byte, x, y, w, h float64) error {
	img, err := images.DecodeJPEG(data)
	if err != nil {
		return err
	}
	return d.AddImage(img, x, y, w, h)
}

// AddPNG decodes PNG data and embeds it, with a soft mask when the image
// has transparency.
func (d *Document) AddPNG(data []byte, x, y, w, h float64) error {
	img, err := images.DecodePNG(data)
	if err != nil {
		return err
	}
	return d.AddImage(img, x, y, w, h)
}

// AddEAN13 draws an EAN-13 barcode with its lower left corner at (x0, y0)
// millimeters, including the human readable digit line. When
// validateChecksum is set, a wrong final digit is an error; otherwise it is
// silently corrected.
func (d *Document) AddEAN13(x0, y0 float64, code string, validateChecksum bool) error {
	if err := d.open(); err != nil {
		return err
	}
	sym, err := barcode.EncodeEAN13(code, validateChecksum)
	if err != nil {
		return err
	}

	const (
		longBarHeight        = 22.85
		barWidth             = 0.33
		smallBarsBottomSpace = 1.5
		textBottomSpace      = 2.33
		leftMargin           = 1.6
	)

	oldThickness := d.lineThickness
	d.lineThickness = barWidth
	x := x0 + leftMargin + barWidth/2.0
	for i := 0; i < barcode.ModuleCount; i++ {
		if sym.Modules[i] {
			y := y0 + textBottomSpace
			h := longBarHeight
			if !barcode.GuardBar(i) {
				y += smallBarsBottomSpace
				h -= smallBarsBottomSpace
			}
			if err := d.AddLine(x, y, x, y+h); err != nil {
				d.lineThickness = oldThickness
				return err
			}
		}
		x += barWidth
	}
	d.lineThickness = oldThickness

	oldSize := d.fontSize
	d.fontSize = 8
	defer func() { d.fontSize = oldSize }()
	if err := d.AddText(x0, y0, sym.Digits[:1]); err != nil {
		return err
	}
	x = x0 + leftMargin + 1 + 3*barWidth
	for i := 1; i < 13; i++ {
		if err := d.AddText(x, y0, sym.Digits[i:i+1]); err != nil {
			return err
		}
		x += 7 * barWidth
		if i == 6 {
			x += 2 * barWidth
		}
	}
	return nil
}

// Close finalizes the document: fonts are subset, the object graph is
// built and serialized. Further drawing calls and a second Close return
// ErrAlreadyFinalized.
func (d *Document) Close() error {
	if d.state != stateOpen {
		return ErrAlreadyFinalized
	}
	d.state = stateFinalizing
	out, err := d.finalize()
	d.state = stateClosed
	if err != nil {
		return err
	}
	d.out = out
	d.log.Info("document finalized",
		observability.Int(observability.MetricPageCount, len(d.pages)),
		observability.Int(observability.MetricDocumentBytes, len(out)),
	)
	return nil
}

// Bytes returns the serialized file. It closes the document first when the
// caller has not done so.
func (d *Document) Bytes() ([]byte, error) {
	if d.state == stateOpen {
		if err := d.Close(); err != nil {
			return nil, err
		}
	}
	if d.out == nil {
		return nil, ErrAlreadyFinalized
	}
	return d.out, nil
}

// WriteTo serializes the document to w, closing it first if needed.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
