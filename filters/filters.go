// Package filters implements the PDF stream filters this library writes:
// FlateDecode, LZWDecode, ASCIIHexDecode and ASCII85Decode. Each codec
// carries the matching decoder so tests can round-trip produced streams.
package filters

import (
	"bytes"
	"compress/zlib"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/hhrutter/lzw"
)

// Name identifies a filter by its PDF name.
type Name string

const (
	// None stores streams uncompressed. It is distinct from the zero Name so
	// that a zero-valued configuration can still pick a default.
	None     Name = "None"
	Flate    Name = "FlateDecode"
	LZW      Name = "LZWDecode"
	ASCIIHex Name = "ASCIIHexDecode"
	ASCII85  Name = "ASCII85Decode"
	// DCT marks pass-through JPEG payloads; there is no encoder for it.
	DCT Name = "DCTDecode"
)

// Codec encodes and decodes one stream filter.
type Codec interface {
	Name() Name
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// ForName returns the codec for a filter name, or an error for filters this
// library cannot encode (including DCTDecode, which is pass-through only).
func ForName(n Name) (Codec, error) {
	switch n {
	case Flate:
		return flateCodec{}, nil
	case LZW:
		return lzwCodec{}, nil
	case ASCIIHex:
		return asciiHexCodec{}, nil
	case ASCII85:
		return ascii85Codec{}, nil
	default:
		return nil, fmt.Errorf("no codec for filter %q", string(n))
	}
}

type flateCodec struct{}

func (flateCodec) Name() Name { return Flate }

func (flateCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (flateCodec) Decode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type lzwCodec struct{}

func (lzwCodec) Name() Name { return LZW }

// PDF LZWDecode defaults to EarlyChange 1, which is what the hhrutter writer
// implements when earlyChange is true.
func (lzwCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, true)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lzwCodec) Decode(data []byte) ([]byte, error) {
	r := lzw.NewReader(bytes.NewReader(data), true)
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type asciiHexCodec struct{}

func (asciiHexCodec) Name() Name { return ASCIIHex }

func (asciiHexCodec) Encode(data []byte) ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(data)), hex.EncodedLen(len(data))+1)
	hex.Encode(out, data)
	return append(out, '>'), nil
}

func (asciiHexCodec) Decode(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if i := bytes.IndexByte(trimmed, '>'); i >= 0 {
		trimmed = trimmed[:i]
	}
	// An odd final digit is treated as if followed by 0.
	if len(trimmed)%2 == 1 {
		trimmed = append(append([]byte(nil), trimmed...), '0')
	}
	out := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(out, trimmed)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

type ascii85Codec struct{}

func (ascii85Codec) Name() Name { return ASCII85 }

func (ascii85Codec) Encode(data []byte) ([]byte, error) {
	out := make([]byte, stdascii85.MaxEncodedLen(len(data)), stdascii85.MaxEncodedLen(len(data))+2)
	n := stdascii85.Encode(out, data)
	return append(out[:n], '~', '>'), nil
}

func (ascii85Codec) Decode(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("~>"))
	out := make([]byte, len(trimmed)*4)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
