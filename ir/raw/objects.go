// Package raw holds the low-level PDF object model: the typed variants a PDF
// body is made of, and the registry that assigns indirect object numbers.
package raw

// ObjectRef identifies an indirect object by number and generation.
type ObjectRef struct {
	Num int
	Gen int
}

// Object is implemented by every PDF object variant.
type Object interface {
	Type() string
}

// NullObj is the PDF null object.
type NullObj struct{}

func (NullObj) Type() string { return "null" }

// BoolObj is a PDF boolean.
type BoolObj struct{ V bool }

func (BoolObj) Type() string { return "boolean" }

// NumberObj is a PDF numeric object, integer or real.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (NumberObj) Type() string { return "number" }

func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

// StringObj is a PDF literal string.
type StringObj struct{ Bytes []byte }

func (StringObj) Type() string { return "string" }

// NameObj is a PDF name.
type NameObj struct{ Val string }

func (NameObj) Type() string { return "name" }

// ArrayObj is an ordered sequence of objects.
type ArrayObj struct{ Items []Object }

func (*ArrayObj) Type() string { return "array" }

func (a *ArrayObj) Append(items ...Object) { a.Items = append(a.Items, items...) }
func (a *ArrayObj) Len() int               { return len(a.Items) }

// DictObj maps names to objects. Serialization sorts keys, so insertion order
// does not affect the produced bytes.
type DictObj struct{ KV map[string]Object }

func (*DictObj) Type() string { return "dict" }

func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}

func (d *DictObj) Len() int { return len(d.KV) }

// StreamObj is a dictionary plus a raw byte payload. The Length entry is
// filled in by the serializer.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (*StreamObj) Type() string { return "stream" }

// RefObj is an indirect reference to a registered object.
type RefObj struct{ R ObjectRef }

func (RefObj) Type() string { return "ref" }

// Constructor helpers.

func Bool(v bool) BoolObj             { return BoolObj{V: v} }
func Int(i int64) NumberObj           { return NumberObj{I: i, IsInt: true} }
func Real(f float64) NumberObj        { return NumberObj{F: f} }
func Str(b []byte) StringObj          { return StringObj{Bytes: b} }
func Text(s string) StringObj         { return StringObj{Bytes: []byte(s)} }
func Name(v string) NameObj           { return NameObj{Val: v} }
func Array(items ...Object) *ArrayObj { return &ArrayObj{Items: items} }
func Dict() *DictObj                  { return &DictObj{KV: make(map[string]Object)} }
func Ref(r ObjectRef) RefObj          { return RefObj{R: r} }

// Stream builds a stream object around dict; a nil dict gets a fresh one.
func Stream(dict *DictObj, data []byte) *StreamObj {
	if dict == nil {
		dict = Dict()
	}
	return &StreamObj{Dict: dict, Data: data}
}
