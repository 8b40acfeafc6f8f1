package container

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding"

	"github.com/illarion/upm/internal/record"
)

// Format describes one historical layout of the container
type Format struct {
	// Name is how the format is reported: the version byte for headed
	// formats, the header string for pre-header ones.
	Name string

	headed  bool
	version byte   // version byte following the magic, headed formats only
	header  string // database header, pre-header formats only

	// preamble is set when revision and options precede the accounts
	preamble bool
	// legacyText is set when stored text uses the legacy charset rather
	// than UTF-8
	legacyText bool
}

var (
	formatV100 = Format{Name: record.HeaderVersion100, header: record.HeaderVersion100}
	formatV110 = Format{Name: record.HeaderVersion110, header: record.HeaderVersion110, preamble: true}
	formatV2   = Format{Name: "2", headed: true, version: 2, preamble: true, legacyText: true}
	formatV3   = Format{Name: "3", headed: true, version: 3, preamble: true}
)

// Formats lists every readable format, oldest first. The last headed entry
// is the one written on save.
var Formats = newFormatRegistry(formatV100, formatV110, formatV2, formatV3)

type formatRegistry struct {
	formats   []Format
	byVersion map[byte]*Format
	byHeader  map[string]*Format
}

func newFormatRegistry(formats ...Format) formatRegistry {
	if len(formats) == 0 {
		panic("container: at least one format is required")
	}

	reg := formatRegistry{
		formats:   make([]Format, len(formats)),
		byVersion: make(map[byte]*Format),
		byHeader:  make(map[string]*Format),
	}
	copy(reg.formats, formats)

	for i := range reg.formats {
		f := &reg.formats[i]
		if f.headed {
			if _, ok := reg.byVersion[f.version]; ok {
				panic(fmt.Sprintf("container: duplicate format version %d", f.version))
			}
			reg.byVersion[f.version] = f
			continue
		}
		if _, ok := reg.byHeader[f.header]; ok {
			panic(fmt.Sprintf("container: duplicate format header %q", f.header))
		}
		reg.byHeader[f.header] = f
	}

	if !reg.formats[len(reg.formats)-1].headed {
		panic("container: the newest format must carry the magic header")
	}
	return reg
}

// All returns a copy of the registered formats
func (r formatRegistry) All() []Format {
	out := make([]Format, len(r.formats))
	copy(out, r.formats)
	return out
}

// Latest returns the format written on save
func (r formatRegistry) Latest() Format {
	return r.formats[len(r.formats)-1]
}

// FindVersion looks up a headed format by its version byte
func (r formatRegistry) FindVersion(version byte) (Format, bool) {
	f, ok := r.byVersion[version]
	if !ok {
		return Format{}, false
	}
	return *f, true
}

// FindHeader looks up a pre-header format by its database header
func (r formatRegistry) FindHeader(header string) (Format, bool) {
	f, ok := r.byHeader[header]
	if !ok {
		return Format{}, false
	}
	return *f, true
}

// readPayload parses decrypted container contents laid out in format f
func (f Format) readPayload(r io.Reader, legacyCharset encoding.Encoding) (*Contents, error) {
	c := &Contents{Format: f.Name}

	var enc encoding.Encoding
	if f.legacyText {
		enc = legacyCharset
	}

	if f.preamble {
		revision, err := record.DecodeRevision(r)
		if err != nil {
			return nil, err
		}
		options, err := record.DecodeOptions(r, enc)
		if err != nil {
			return nil, err
		}
		c.Revision = revision
		c.Options = options
	}

	for {
		account, err := record.DecodeAccount(r, enc)
		if record.IsEndOfStream(err) {
			break
		}
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.Accounts = append(c.Accounts, account)
	}
	return c, nil
}
