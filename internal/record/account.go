package record

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/illarion/upm/internal/crypto"
)

// Account is one credential entry. Name is the unique key inside a store;
// the remaining fields are opaque bytes.
type Account struct {
	Name   string
	Login  []byte
	Secret []byte
	URL    []byte
	Notes  []byte
}

// Clone returns a deep copy
func (a *Account) Clone() *Account {
	return &Account{
		Name:   a.Name,
		Login:  append([]byte(nil), a.Login...),
		Secret: append([]byte(nil), a.Secret...),
		URL:    append([]byte(nil), a.URL...),
		Notes:  append([]byte(nil), a.Notes...),
	}
}

// Equal compares all fields
func (a *Account) Equal(b *Account) bool {
	return a.Name == b.Name &&
		string(a.Login) == string(b.Login) &&
		crypto.ConstantTimeCompare(a.Secret, b.Secret) &&
		string(a.URL) == string(b.URL) &&
		string(a.Notes) == string(b.Notes)
}

// Destroy clears the login and secret from memory
func (a *Account) Destroy() {
	crypto.ClearBytes(a.Login)
	crypto.ClearBytes(a.Secret)
}

// Encode writes the account fields in container order. Names are always
// written as UTF-8.
func (a *Account) Encode(w io.Writer) error {
	for _, field := range [][]byte{[]byte(a.Name), a.Login, a.Secret, a.URL, a.Notes} {
		if err := WriteField(w, field); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAccount reads the next account. It returns io.EOF when the stream
// holds no further account. enc selects the charset of every field; nil
// means UTF-8 and leaves the field bytes untouched.
func DecodeAccount(r io.Reader, enc encoding.Encoding) (*Account, error) {
	nameBytes, err := ReadField(r)
	if err != nil {
		return nil, err
	}
	name, err := decodeText(nameBytes, enc)
	if err != nil {
		return nil, err
	}

	a := &Account{Name: name}
	for _, f := range []struct {
		dst  *[]byte
		what string
	}{
		{&a.Login, "login"},
		{&a.Secret, "secret"},
		{&a.URL, "url"},
		{&a.Notes, "notes"},
	} {
		field, err := readRequired(r, f.what)
		if err == nil {
			field, err = transcode(field, enc)
		}
		if err != nil {
			a.Destroy()
			return nil, err
		}
		*f.dst = field
	}
	return a, nil
}

// CompareNames orders account names case-insensitively, falling back to a
// case-sensitive comparison so the order is total.
func CompareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// IsEndOfStream reports whether err marks the end of the account sequence
func IsEndOfStream(err error) bool {
	return errors.Is(err, io.EOF)
}
