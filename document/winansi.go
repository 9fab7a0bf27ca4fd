package document

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// encodeWinAnsi converts text to the single byte encoding of the builtin
// font. Characters outside Windows-1252 become the encoder's substitute
// byte rather than failing the draw call.
func encodeWinAnsi(text string) []byte {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return out
}
