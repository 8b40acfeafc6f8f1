// Package record implements the binary encoding of the values stored inside
// a container: accounts, store options, the revision counter and the legacy
// database header.
//
// Every value is a sequence of fields. A field is its byte length written as
// four zero-padded ASCII digits, followed by the bytes themselves.
package record

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	lengthWidth    = 4
	MaxFieldLength = 9999 // Largest length expressible in four digits
)

var (
	ErrTruncated     = errors.New("truncated record")
	ErrMalformed     = errors.New("malformed record")
	ErrFieldTooLong  = errors.New("field too long")
	ErrNegativeValue = errors.New("negative revision")
)

// ReadField reads one length-prefixed field. It returns io.EOF only when the
// stream ends exactly before the field; any other short read is ErrTruncated.
func ReadField(r io.Reader) ([]byte, error) {
	var prefix [lengthWidth]byte
	n, err := io.ReadFull(r, prefix[:])
	if n == 0 && errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: field length", ErrTruncated)
	}

	for _, c := range prefix {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: field length %q", ErrMalformed, prefix[:])
		}
	}
	size, _ := strconv.Atoi(string(prefix[:]))

	field := make([]byte, size)
	if _, err := io.ReadFull(r, field); err != nil {
		return nil, fmt.Errorf("%w: expected %d bytes", ErrTruncated, size)
	}
	return field, nil
}

// WriteField writes one length-prefixed field
func WriteField(w io.Writer, field []byte) error {
	if len(field) > MaxFieldLength {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFieldTooLong, len(field), MaxFieldLength)
	}
	if _, err := fmt.Fprintf(w, "%0*d", lengthWidth, len(field)); err != nil {
		return err
	}
	_, err := w.Write(field)
	return err
}

// readRequired reads a field that must be present
func readRequired(r io.Reader, what string) ([]byte, error) {
	field, err := ReadField(r)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing %s", ErrTruncated, what)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return field, nil
}
