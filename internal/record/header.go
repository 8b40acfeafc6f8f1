package record

import (
	"io"
)

// Versions carried by the header of pre-header containers
const (
	HeaderVersion100 = "1.0.0" // Accounts only
	HeaderVersion110 = "1.1.0" // Revision and options precede the accounts
)

// EncodeHeader writes a legacy database header
func EncodeHeader(w io.Writer, version string) error {
	return WriteField(w, []byte(version))
}

// DecodeHeader reads a legacy database header and returns its version
func DecodeHeader(r io.Reader) (string, error) {
	field, err := readRequired(r, "database header")
	if err != nil {
		return "", err
	}
	return string(field), nil
}
