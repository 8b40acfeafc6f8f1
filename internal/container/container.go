// Package container reads and writes the encrypted file a store lives in.
//
// The current layout is the three byte magic "UPM", a version byte, an eight
// byte salt and the AES ciphertext of the revision, the options and the
// accounts. Version 2 only differs in the charset of its text. Files
// written before the magic was introduced start directly with the salt and
// are encrypted with DES; their plaintext opens with a database header
// naming the layout. Every format can be read; only the newest is written.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/record"
)

// Magic starts every headed container
const Magic = "UPM"

const headerSize = len(Magic) + 1

var (
	ErrNotAPasswordStore  = errors.New("not a password store")
	ErrUnsupportedVersion = errors.New("unsupported container version")
)

// Contents is everything a container holds once decrypted
type Contents struct {
	Revision int
	Options  record.Options
	Accounts []*record.Account

	// Cipher is the cipher for the container's own salt, ready for
	// re-encryption. Pre-header files keep their salt on upgrade.
	Cipher *crypto.Cipher
	// Format names the layout the contents were read from
	Format string
}

// Destroy clears account secrets
func (c *Contents) Destroy() {
	for _, a := range c.Accounts {
		a.Destroy()
	}
}

type decodeOptions struct {
	legacyCharset encoding.Encoding
}

// Option configures Decode
type Option func(*decodeOptions)

// WithLegacyCharset sets the charset of the text in version 2 containers.
// The default is windows-1252.
func WithLegacyCharset(enc encoding.Encoding) Option {
	return func(o *decodeOptions) {
		if enc != nil {
			o.legacyCharset = enc
		}
	}
}

// Decode decrypts and parses a container with key.
//
// A failure to decrypt, and any parse failure after decryption, is reported
// as crypto.ErrInvalidPassword: a wrong key and a damaged payload look the
// same.
func Decode(data []byte, key *crypto.Key, opts ...Option) (*Contents, error) {
	o := decodeOptions{legacyCharset: charmap.Windows1252}
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) < crypto.SaltSize {
		return nil, fmt.Errorf("%w: only %d bytes", ErrNotAPasswordStore, len(data))
	}

	if IsContainer(data) {
		return decodeHeaded(data, key, o)
	}
	return decodeLegacy(data, key, o)
}

func decodeHeaded(data []byte, key *crypto.Key, o decodeOptions) (*Contents, error) {
	version := data[len(Magic)]
	format, ok := Formats.FindVersion(version)
	if !ok {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version)
	}

	body := data[headerSize:]
	if len(body) < crypto.SaltSize {
		return nil, fmt.Errorf("%w: truncated salt", ErrNotAPasswordStore)
	}

	c, err := crypto.NewCipher(key, body[:crypto.SaltSize])
	if err != nil {
		return nil, err
	}
	plaintext, err := c.Decrypt(body[crypto.SaltSize:])
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	contents, err := format.readPayload(bytes.NewReader(plaintext), o.legacyCharset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidPassword, err)
	}
	contents.Cipher = c
	return contents, nil
}

func decodeLegacy(data []byte, key *crypto.Key, o decodeOptions) (*Contents, error) {
	salt := data[:crypto.SaltSize]

	plaintext, err := crypto.DecryptLegacy(key, salt, data[crypto.SaltSize:])
	if errors.Is(err, crypto.ErrInvalidCiphertext) {
		return nil, fmt.Errorf("%w: bad ciphertext length", ErrNotAPasswordStore)
	}
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	r := bytes.NewReader(plaintext)
	header, err := record.DecodeHeader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidPassword, err)
	}
	format, ok := Formats.FindHeader(header)
	if !ok {
		return nil, fmt.Errorf("%w: database header %q", ErrUnsupportedVersion, header)
	}

	contents, err := format.readPayload(r, o.legacyCharset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidPassword, err)
	}

	// Re-saving upgrades to the newest format under the same salt
	c, err := crypto.NewCipher(key, salt)
	if err != nil {
		contents.Destroy()
		return nil, err
	}
	contents.Cipher = c
	return contents, nil
}

// Encode serializes contents in the newest format, encrypted with c.
// contents.Cipher is ignored.
func Encode(contents *Contents, c *crypto.Cipher) ([]byte, error) {
	var payload bytes.Buffer
	defer func() { crypto.ClearBytes(payload.Bytes()) }()

	if err := record.EncodeRevision(&payload, contents.Revision); err != nil {
		return nil, fmt.Errorf("failed to encode revision: %w", err)
	}
	if err := contents.Options.Encode(&payload); err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}
	for _, a := range contents.Accounts {
		if err := a.Encode(&payload); err != nil {
			return nil, fmt.Errorf("failed to encode account %q: %w", a.Name, err)
		}
	}

	ciphertext, err := c.Encrypt(payload.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}

	latest := Formats.Latest()
	out := make([]byte, 0, headerSize+crypto.SaltSize+len(ciphertext))
	out = append(out, Magic...)
	out = append(out, latest.version)
	out = append(out, c.Salt()...)
	out = append(out, ciphertext...)
	return out, nil
}

// IsContainer reports whether data starts with the container magic. Only the
// header is inspected; pre-header files are not recognized.
func IsContainer(data []byte) bool {
	return len(data) > len(Magic) && bytes.HasPrefix(data, []byte(Magic))
}

// IsContainerFile is IsContainer for a file, reading only the header bytes
func IsContainerFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return IsContainer(head[:n]), nil
}
