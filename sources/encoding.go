package sources

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func decodeUTF16(data []byte) (string, bool) {
	var dec transform.Transformer
	switch {
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	default:
		return "", false
	}
	r := transform.NewReader(bytes.NewReader(data), dec)
	b, err := io.ReadAll(r)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func decodeLatin1(data []byte) string {
	r := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	b, err := io.ReadAll(r)
	if err != nil {
		// Every byte sequence is valid Latin-1, so this should not happen;
		// fall back to the raw bytes rather than dropping the page.
		return string(data)
	}
	return string(b)
}
