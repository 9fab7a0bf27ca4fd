package document

import (
	"fmt"
	"math"
	"sort"

	"github.com/gcoppex/papdf/coords"
	"github.com/gcoppex/papdf/filters"
	"github.com/gcoppex/papdf/fonts"
	"github.com/gcoppex/papdf/images"
	"github.com/gcoppex/papdf/ir/raw"
	"github.com/gcoppex/papdf/observability"
	"github.com/gcoppex/papdf/resources"
	"github.com/gcoppex/papdf/writer"
)

const toUnicodeCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo
<< /Registry (Adobe)
/Ordering (UCS)
/Supplement 0
>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0000> <FFFF> <0000>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

// finalize builds the object graph and serializes it. Object numbering is a
// pure function of the drawing calls: pages tree first, then per page the
// content stream and page dictionary, then fonts, images, info and catalog.
func (d *Document) finalize() ([]byte, error) {
	reg := raw.NewRegistry()
	pagesRef := reg.Reserve()

	var codec filters.Codec
	if d.opts.ContentFilter != filters.None {
		var err error
		codec, err = filters.ForName(d.opts.ContentFilter)
		if err != nil {
			return nil, err
		}
	}

	kids := raw.Array()
	pageDicts := make([]*raw.DictObj, 0, len(d.pages))
	contentBytes := 0
	for _, p := range d.pages {
		data := p.content.Bytes()
		contentBytes += len(data)
		streamDict := raw.Dict()
		if codec != nil {
			encoded, err := codec.Encode(data)
			if err != nil {
				return nil, err
			}
			streamDict.Set("Filter", raw.Name(string(codec.Name())))
			data = encoded
		}
		contentRef := reg.Add(raw.Stream(streamDict, data))

		pageDict := raw.Dict()
		pageDict.Set("Type", raw.Name("Page"))
		pageDict.Set("Parent", raw.Ref(pagesRef))
		pageDict.Set("Contents", raw.Ref(contentRef))
		pageRef := reg.Add(pageDict)
		kids.Append(raw.Ref(pageRef))
		pageDicts = append(pageDicts, pageDict)
	}

	fontRefs, err := d.emitFonts(reg)
	if err != nil {
		return nil, err
	}
	imageRefs, err := d.emitImages(reg)
	if err != nil {
		return nil, err
	}

	for i, p := range d.pages {
		res, err := d.pageResources(p, fontRefs, imageRefs)
		if err != nil {
			return nil, err
		}
		pageDicts[i].Set("Resources", res)
	}

	pagesDict := raw.Dict()
	pagesDict.Set("Type", raw.Name("Pages"))
	pagesDict.Set("Kids", kids)
	pagesDict.Set("Count", raw.Int(int64(len(d.pages))))
	pagesDict.Set("MediaBox", raw.Array(
		raw.Int(0), raw.Int(0),
		raw.Real(round2(coords.MM(d.widthMM))),
		raw.Real(round2(coords.MM(d.heightMM))),
	))
	if err := reg.Fill(pagesRef, pagesDict); err != nil {
		return nil, err
	}

	infoRef := d.emitInfo(reg)

	catalog := raw.Dict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(pagesRef))
	if kids.Len() > 0 {
		catalog.Set("OpenAction", raw.Array(kids.Items[0], raw.Name("FitH"), raw.NullObj{}))
		catalog.Set("PageLayout", raw.Name("OneColumn"))
	}
	catalogRef := reg.Add(catalog)

	d.log.Debug("object graph built",
		observability.Int(observability.MetricObjectCount, reg.Len()),
		observability.Int(observability.MetricContentBytes, contentBytes),
	)

	return writer.Serialize(reg, catalogRef, infoRef, writer.Config{Version: "1.4"})
}

// emitFonts writes one font object graph per registered font and returns
// the resource label to object mapping. A font nothing was drawn with
// shrinks to a notdef-only subset. Fonts sharing identical data and usage
// share one embedded font file.
func (d *Document) emitFonts(reg *raw.Registry) (map[string]raw.ObjectRef, error) {
	refs := make(map[string]raw.ObjectRef)
	shared := make(map[string]raw.ObjectRef)
	for i, entry := range d.res.Fonts() {
		if entry.Font == nil {
			builtin := raw.Dict()
			builtin.Set("Type", raw.Name("Font"))
			builtin.Set("Subtype", raw.Name("Type1"))
			builtin.Set("BaseFont", raw.Name(entry.Name))
			builtin.Set("Encoding", raw.Name("WinAnsiEncoding"))
			refs[entry.Label] = reg.Add(builtin)
			continue
		}
		ref, err := d.emitTrueType(reg, entry, subsetTag(i), shared)
		if err != nil {
			return nil, err
		}
		refs[entry.Label] = ref
	}
	return refs, nil
}

// subsetTag builds the six letter prefix that marks a subset font. Readers
// merge identically named fonts unless the tags differ, so the tag encodes
// the registration index.
func subsetTag(fontIndex int) string {
	suffix := []byte{'A', 'A'}
	for pos := 1; pos >= 0 && fontIndex > 0; pos-- {
		suffix[pos] = byte('A' + fontIndex%26)
		fontIndex /= 26
	}
	return "PAPF" + string(suffix)
}

func (d *Document) emitTrueType(reg *raw.Registry, entry *resources.FontEntry, tag string, shared map[string]raw.ObjectRef) (raw.ObjectRef, error) {
	font := entry.Font
	subset, err := font.Subset()
	if err != nil {
		return raw.ObjectRef{}, fmt.Errorf("subset font %q: %w", entry.Name, err)
	}
	if len(subset.Missing) > 0 {
		d.log.Warn("font lacks glyphs for some characters",
			observability.String("font", entry.Name),
			observability.Int("missing", len(subset.Missing)),
		)
	}
	d.log.Debug("font subset built",
		observability.String("font", entry.Name),
		observability.Int(observability.MetricSubsetGlyphs, subset.NumGlyphs),
		observability.Int(observability.MetricSubsetBytes, len(subset.Data)),
	)

	flate, err := filters.ForName(filters.Flate)
	if err != nil {
		return raw.ObjectRef{}, err
	}

	fileRef, ok := shared[font.UsageKey()]
	if !ok {
		compressed, err := flate.Encode(subset.Data)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		fileDict := raw.Dict()
		fileDict.Set("Filter", raw.Name("FlateDecode"))
		fileDict.Set("Length1", raw.Int(int64(len(subset.Data))))
		fileRef = reg.Add(raw.Stream(fileDict, compressed))
		shared[font.UsageKey()] = fileRef
	}

	baseFont := tag + "+" + font.BaseFont
	defaultWidth := subset.Widths[0]
	if defaultWidth == 0 {
		defaultWidth = 1000
	}

	type0Ref := reg.Reserve()
	cidRef := reg.Reserve()
	toUniRef := reg.Reserve()
	sysRef := reg.Reserve()
	descRef := reg.Reserve()
	ctgRef := reg.Reserve()

	type0 := raw.Dict()
	type0.Set("Type", raw.Name("Font"))
	type0.Set("Subtype", raw.Name("Type0"))
	type0.Set("BaseFont", raw.Name(baseFont))
	type0.Set("Encoding", raw.Name("Identity-H"))
	type0.Set("DescendantFonts", raw.Array(raw.Ref(cidRef)))
	type0.Set("ToUnicode", raw.Ref(toUniRef))
	if err := reg.Fill(type0Ref, type0); err != nil {
		return raw.ObjectRef{}, err
	}

	cid := raw.Dict()
	cid.Set("Type", raw.Name("Font"))
	cid.Set("Subtype", raw.Name("CIDFontType2"))
	cid.Set("BaseFont", raw.Name(baseFont))
	cid.Set("CIDSystemInfo", raw.Ref(sysRef))
	cid.Set("FontDescriptor", raw.Ref(descRef))
	cid.Set("DW", raw.Int(int64(defaultWidth)))
	cid.Set("W", widthArray(subset))
	cid.Set("CIDToGIDMap", raw.Ref(ctgRef))
	if err := reg.Fill(cidRef, cid); err != nil {
		return raw.ObjectRef{}, err
	}

	toUniData, err := flate.Encode([]byte(toUnicodeCMap))
	if err != nil {
		return raw.ObjectRef{}, err
	}
	toUniDict := raw.Dict()
	toUniDict.Set("Filter", raw.Name("FlateDecode"))
	if err := reg.Fill(toUniRef, raw.Stream(toUniDict, toUniData)); err != nil {
		return raw.ObjectRef{}, err
	}

	sys := raw.Dict()
	sys.Set("Registry", raw.Text("Adobe"))
	sys.Set("Ordering", raw.Text("UCS"))
	sys.Set("Supplement", raw.Int(0))
	if err := reg.Fill(sysRef, sys); err != nil {
		return raw.ObjectRef{}, err
	}

	desc := raw.Dict()
	desc.Set("Type", raw.Name("FontDescriptor"))
	desc.Set("FontName", raw.Name(baseFont))
	desc.Set("Flags", raw.Int(int64(font.Flags)))
	desc.Set("ItalicAngle", raw.Real(round2(font.ItalicAngle)))
	desc.Set("Ascent", raw.Real(round2(font.Ascent)))
	desc.Set("Descent", raw.Real(round2(font.Descent)))
	desc.Set("CapHeight", raw.Real(round2(font.CapHeight)))
	desc.Set("StemV", raw.Real(round2(font.StemV)))
	desc.Set("MissingWidth", raw.Int(int64(defaultWidth)))
	desc.Set("FontBBox", raw.Array(
		raw.Real(round2(font.FontBBox[0])),
		raw.Real(round2(font.FontBBox[1])),
		raw.Real(round2(font.FontBBox[2])),
		raw.Real(round2(font.FontBBox[3])),
	))
	desc.Set("FontFile2", raw.Ref(fileRef))
	if err := reg.Fill(descRef, desc); err != nil {
		return raw.ObjectRef{}, err
	}

	ctgData, err := flate.Encode(cidToGIDMap(subset))
	if err != nil {
		return raw.ObjectRef{}, err
	}
	ctgDict := raw.Dict()
	ctgDict.Set("Filter", raw.Name("FlateDecode"))
	if err := reg.Fill(ctgRef, raw.Stream(ctgDict, ctgData)); err != nil {
		return raw.ObjectRef{}, err
	}

	return type0Ref, nil
}

// widthArray groups consecutive CIDs into c [w ...] runs. The CID of a
// character is its code point under the identity encoding.
func widthArray(subset *fonts.Subset) *raw.ArrayObj {
	cids := make([]int, 0, len(subset.GlyphMap))
	for r := range subset.GlyphMap {
		cids = append(cids, int(r))
	}
	sort.Ints(cids)

	w := raw.Array()
	var run *raw.ArrayObj
	prev := -2
	for _, cid := range cids {
		width := subset.Widths[subset.GlyphMap[rune(cid)]]
		if cid != prev+1 {
			run = raw.Array()
			w.Append(raw.Int(int64(cid)), run)
		}
		run.Append(raw.Int(int64(width)))
		prev = cid
	}
	return w
}

// cidToGIDMap serializes the two byte per CID glyph index table covering the
// full two byte CID range.
func cidToGIDMap(subset *fonts.Subset) []byte {
	table := make([]byte, 2*65536)
	for r, gid := range subset.GlyphMap {
		table[2*int(r)] = byte(gid >> 8)
		table[2*int(r)+1] = byte(gid)
	}
	return table
}

// emitImages writes each image XObject (and its soft mask) and returns the
// label to object mapping.
func (d *Document) emitImages(reg *raw.Registry) (map[string]raw.ObjectRef, error) {
	flate, err := filters.ForName(filters.Flate)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]raw.ObjectRef)
	imageBytes := 0
	for _, entry := range d.res.Images() {
		img := entry.Image
		var smaskRef raw.ObjectRef
		if img.SMask != nil {
			data, err := flate.Encode(img.SMask.Data)
			if err != nil {
				return nil, err
			}
			smaskRef = reg.Add(raw.Stream(imageDict(img.SMask, filters.Flate), data))
			imageBytes += len(data)
		}

		data := img.Data
		filter := img.Filter
		if filter == filters.None || filter == "" {
			if data, err = flate.Encode(data); err != nil {
				return nil, err
			}
			filter = filters.Flate
		}
		dict := imageDict(img, filter)
		if img.SMask != nil {
			dict.Set("SMask", raw.Ref(smaskRef))
		}
		refs[entry.Label] = reg.Add(raw.Stream(dict, data))
		imageBytes += len(data)
	}
	if len(refs) > 0 {
		d.log.Debug("images embedded",
			observability.Int("images", len(refs)),
			observability.Int(observability.MetricImageBytes, imageBytes),
		)
	}
	return refs, nil
}

func imageDict(img *images.Image, filter filters.Name) *raw.DictObj {
	dict := raw.Dict()
	dict.Set("Type", raw.Name("XObject"))
	dict.Set("Subtype", raw.Name("Image"))
	dict.Set("Width", raw.Int(int64(img.Width)))
	dict.Set("Height", raw.Int(int64(img.Height)))
	dict.Set("ColorSpace", raw.Name(img.ColorSpace))
	dict.Set("BitsPerComponent", raw.Int(int64(img.BitsPerComponent)))
	dict.Set("Filter", raw.Name(string(filter)))
	return dict
}

// pageResources builds the resource dictionary listing exactly the fonts
// and XObjects the page's content stream refers to.
func (d *Document) pageResources(p *page, fontRefs, imageRefs map[string]raw.ObjectRef) (*raw.DictObj, error) {
	res := raw.Dict()
	res.Set("ProcSet", raw.Array(
		raw.Name("PDF"), raw.Name("Text"),
		raw.Name("ImageB"), raw.Name("ImageC"), raw.Name("ImageI"),
	))
	if used := p.content.UsedFonts(); len(used) > 0 {
		fontDict := raw.Dict()
		for label := range used {
			ref, ok := fontRefs[label]
			if !ok {
				return nil, fmt.Errorf("font resource %s has no object", label)
			}
			fontDict.Set(label, raw.Ref(ref))
		}
		res.Set("Font", fontDict)
	}
	if used := p.content.UsedXObjects(); len(used) > 0 {
		xobjDict := raw.Dict()
		for label := range used {
			ref, ok := imageRefs[label]
			if !ok {
				return nil, fmt.Errorf("xobject resource %s has no object", label)
			}
			xobjDict.Set(label, raw.Ref(ref))
		}
		res.Set("XObject", xobjDict)
	}
	return res, nil
}

// emitInfo writes the document information dictionary. The creation date is
// only present when the caller configured one, leaving default output
// reproducible.
func (d *Document) emitInfo(reg *raw.Registry) raw.ObjectRef {
	info := raw.Dict()
	producer := d.opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	info.Set("Producer", raw.Text(producer))
	if d.opts.Title != "" {
		info.Set("Title", raw.Text(d.opts.Title))
	}
	if d.opts.CreationTime != nil {
		info.Set("CreationDate", raw.Text(d.opts.CreationTime.Format("D:20060102150405")))
	}
	return reg.Add(info)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
