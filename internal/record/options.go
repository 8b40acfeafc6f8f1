package record

import (
	"io"
	"strings"

	"golang.org/x/text/encoding"
)

// Options holds store-wide settings
type Options struct {
	// RemoteLocation is where the remote copy lives. Empty disables sync.
	RemoteLocation string
	// AuthEntry names the account whose login and secret authenticate
	// against the remote. Empty means anonymous.
	AuthEntry string
}

// SyncEnabled reports whether a remote location is configured
func (o Options) SyncEnabled() bool {
	return strings.TrimSpace(o.RemoteLocation) != ""
}

// Encode writes the options
func (o Options) Encode(w io.Writer) error {
	if err := WriteField(w, []byte(o.RemoteLocation)); err != nil {
		return err
	}
	return WriteField(w, []byte(o.AuthEntry))
}

// DecodeOptions reads options written by Encode. enc is the charset of the
// stored text; nil is UTF-8.
func DecodeOptions(r io.Reader, enc encoding.Encoding) (Options, error) {
	var fields [2]string
	for i, what := range []string{"remote location", "auth entry"} {
		b, err := readRequired(r, what)
		if err != nil {
			return Options{}, err
		}
		if fields[i], err = decodeText(b, enc); err != nil {
			return Options{}, err
		}
	}
	return Options{RemoteLocation: fields[0], AuthEntry: fields[1]}, nil
}
