// Package resources tracks the named font and image resources of a document
// and assigns their content stream labels.
package resources

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gcoppex/papdf/fonts"
	"github.com/gcoppex/papdf/images"
)

// Kind identifies a resource dictionary category.
type Kind string

const (
	KindFont  Kind = "Font"
	KindImage Kind = "XObject"
)

// BuiltinFont is the name of the default font, available without
// registration and rendered with the viewer's own Helvetica.
const BuiltinFont = "Helvetica"

// ResourceNotFoundError reports a lookup of an unregistered resource name.
type ResourceNotFoundError struct {
	Kind Kind
	Name string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s /%s", e.Kind, e.Name)
}

// FontEntry pairs a registered font with its resource label. Font is nil
// for the builtin entry.
type FontEntry struct {
	// Name is the registration name used by SetFont.
	Name string
	// Label is the content stream resource name, F1, F2 and so on in
	// registration order.
	Label string
	Font  *fonts.Font
}

// ImageEntry pairs image data with its resource label (Im1, Im2, ...).
type ImageEntry struct {
	Label string
	Image *images.Image
}

// Registry holds a document's fonts and images. The builtin Helvetica is
// always present as F1.
type Registry struct {
	fonts    []*FontEntry
	byName   map[string]*FontEntry
	imgs     []*ImageEntry
	imgBySum map[[sha256.Size]byte]*ImageEntry
}

func NewRegistry() *Registry {
	r := &Registry{
		byName:   make(map[string]*FontEntry),
		imgBySum: make(map[[sha256.Size]byte]*ImageEntry),
	}
	builtin := &FontEntry{Name: BuiltinFont, Label: "F1"}
	r.fonts = append(r.fonts, builtin)
	r.byName[BuiltinFont] = builtin
	return r
}

// AddFont parses and registers a TrueType font under name. Registering the
// same name twice is an error; registering over the builtin name is too.
func (r *Registry) AddFont(name string, data []byte) (*FontEntry, error) {
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("font %q already registered", name)
	}
	font, err := fonts.LoadTrueType(name, data)
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", name, err)
	}
	entry := &FontEntry{
		Name:  name,
		Label: fmt.Sprintf("F%d", len(r.fonts)+1),
		Font:  font,
	}
	r.fonts = append(r.fonts, entry)
	r.byName[name] = entry
	return entry, nil
}

// Font looks up a font by registration name.
func (r *Registry) Font(name string) (*FontEntry, error) {
	entry, ok := r.byName[name]
	if !ok {
		return nil, &ResourceNotFoundError{Kind: KindFont, Name: name}
	}
	return entry, nil
}

// AddImage registers an image, or returns the existing entry when the same
// pixel data was registered before.
func (r *Registry) AddImage(img *images.Image) *ImageEntry {
	sum := imageSum(img)
	if entry, ok := r.imgBySum[sum]; ok {
		return entry
	}
	entry := &ImageEntry{
		Label: fmt.Sprintf("Im%d", len(r.imgs)+1),
		Image: img,
	}
	r.imgs = append(r.imgs, entry)
	r.imgBySum[sum] = entry
	return entry
}

// Fonts returns all font entries in registration order, builtin first.
func (r *Registry) Fonts() []*FontEntry { return r.fonts }

// Images returns all image entries in registration order.
func (r *Registry) Images() []*ImageEntry { return r.imgs }

func imageSum(img *images.Image) [sha256.Size]byte {
	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], uint32(img.Width))
	binary.BigEndian.PutUint32(dims[4:8], uint32(img.Height))
	h.Write(dims[:])
	h.Write([]byte(img.ColorSpace))
	h.Write([]byte(img.Filter))
	h.Write(img.Data)
	if img.SMask != nil {
		h.Write(img.SMask.Data)
	}
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}
