package record

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/illarion/upm/internal/crypto"
)

// DefaultLegacyCharset is used for the text of version 2 containers.
// Those were written with the platform charset of the JVM that created them,
// which for the desktop clients that produced most of them was windows-1252.
const DefaultLegacyCharset = "windows-1252"

// LookupCharset resolves a charset name (any WHATWG label) to an encoding
func LookupCharset(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return charmap.Windows1252, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}

// decodeText converts bytes in enc to a Go string. A nil encoding means UTF-8.
func decodeText(b []byte, enc encoding.Encoding) (string, error) {
	if enc == nil || enc == unicode.UTF8 {
		if !utf8.Valid(b) {
			return strings.ToValidUTF8(string(b), string(utf8.RuneError)), nil
		}
		return string(b), nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(out), nil
}

// transcode converts b from enc to UTF-8. A nil or UTF-8 encoding returns b
// unchanged.
func transcode(b []byte, enc encoding.Encoding) ([]byte, error) {
	if enc == nil || enc == unicode.UTF8 {
		return b, nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	crypto.ClearBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}
