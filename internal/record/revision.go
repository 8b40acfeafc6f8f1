package record

import (
	"fmt"
	"io"
	"strconv"
)

// EncodeRevision writes the revision as decimal text in one field
func EncodeRevision(w io.Writer, revision int) error {
	if revision < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeValue, revision)
	}
	return WriteField(w, []byte(strconv.Itoa(revision)))
}

// DecodeRevision reads a revision written by EncodeRevision
func DecodeRevision(r io.Reader) (int, error) {
	field, err := readRequired(r, "revision")
	if err != nil {
		return 0, err
	}
	revision, err := strconv.Atoi(string(field))
	if err != nil {
		return 0, fmt.Errorf("%w: revision %q", ErrMalformed, field)
	}
	if revision < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeValue, revision)
	}
	return revision, nil
}
