package scanner

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// errNotText marks files that cannot be decoded as text.
var errNotText = errors.New("not a text file")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
)

// readLines reads path and splits it into lines on "\r\n", "\n" or "\r".
// Files starting with a UTF-16 or UTF-32 byte order mark are decoded first;
// other content must be recognised as text, else errNotText is returned.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := decode(data)
	if err != nil {
		return nil, err
	}
	return splitLines(text), nil
}

// decode returns data as UTF-8 text without a byte order mark.
func decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if enc := bomEncoding(data); enc != nil {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", errNotText
		}
		return string(out), nil
	}
	if !isText(data) {
		return "", errNotText
	}
	return string(bytes.TrimPrefix(data, bomUTF8)), nil
}

// bomEncoding returns the wide encoding announced by a leading byte order
// mark, or nil. The decoders consume the mark.
func bomEncoding(data []byte) encoding.Encoding {
	switch {
	case bytes.HasPrefix(data, bomUTF32LE):
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM)
	case bytes.HasPrefix(data, bomUTF32BE):
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM)
	case bytes.HasPrefix(data, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(data, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}
	return nil
}

// isText reports whether data is text: either its sniffed MIME type descends
// from text/plain, or it is valid UTF-8 without NUL bytes. The second rule
// accepts text formats with their own MIME type, such as PostScript.
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

// splitLines splits text on "\r\n", "\n" and "\r". A terminator at the very
// end does not start another line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
