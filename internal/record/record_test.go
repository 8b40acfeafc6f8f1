package record

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteField(&buf, []byte("hello")))
	require.NoError(t, WriteField(&buf, nil))
	assert.Equal(t, "0005hello0000", buf.String())

	field, err := ReadField(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), field)

	field, err = ReadField(&buf)
	require.NoError(t, err)
	assert.Empty(t, field)

	_, err = ReadField(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "short prefix", input: "00", want: ErrTruncated},
		{name: "short body", input: "0010abc", want: ErrTruncated},
		{name: "non digit prefix", input: "00a1x", want: ErrMalformed},
		{name: "signed prefix", input: "+001x", want: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadField(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, io.EOF)
		})
	}
}

func TestWriteFieldTooLong(t *testing.T) {
	var buf bytes.Buffer
	err := WriteField(&buf, make([]byte, MaxFieldLength+1))
	assert.ErrorIs(t, err, ErrFieldTooLong)

	require.NoError(t, WriteField(&buf, make([]byte, MaxFieldLength)))
	assert.Equal(t, "9999", buf.String()[:4])
}

func TestAccountRoundTrip(t *testing.T) {
	in := &Account{
		Name:   "Bank ünïcode",
		Login:  []byte("alice"),
		Secret: []byte("s3cr3t"),
		URL:    []byte("https://bank.example"),
		Notes:  []byte("line one\nline two"),
	}

	var buf bytes.Buffer
	require.NoError(t, in.Encode(&buf))
	require.NoError(t, (&Account{Name: "empty"}).Encode(&buf))

	out, err := DecodeAccount(&buf, nil)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	empty, err := DecodeAccount(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "empty", empty.Name)
	assert.Empty(t, empty.Secret)

	_, err = DecodeAccount(&buf, nil)
	assert.True(t, IsEndOfStream(err))
}

func TestDecodeAccountPartialRecord(t *testing.T) {
	r := strings.NewReader("0004name0005login")
	_, err := DecodeAccount(r, nil)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.False(t, IsEndOfStream(err))
}

func TestDecodeAccountLegacyCharset(t *testing.T) {
	// "Caf\xe9" is "Café" in windows-1252
	input := "0004Caf\xe9" + "0004Jos\xe9" + "0003\xe9t\xe9" + "0000" + "0006r\xe9sum\xe9"

	a, err := DecodeAccount(strings.NewReader(input), charmap.Windows1252)
	require.NoError(t, err)
	assert.Equal(t, "Café", a.Name)
	assert.Equal(t, []byte("José"), a.Login)
	assert.Equal(t, []byte("été"), a.Secret)
	assert.Empty(t, a.URL)
	assert.Equal(t, []byte("résumé"), a.Notes)

	a, err = DecodeAccount(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, "Caf\ufffd", a.Name)
	assert.Equal(t, []byte("Jos\xe9"), a.Login, "UTF-8 fields are kept as stored")
}

func TestAccountCloneAndDestroy(t *testing.T) {
	a := &Account{Name: "x", Login: []byte("user"), Secret: []byte("pw")}
	c := a.Clone()
	require.True(t, a.Equal(c))

	a.Destroy()
	assert.Equal(t, []byte{0, 0}, a.Secret)
	assert.Equal(t, []byte("pw"), c.Secret)
	assert.False(t, a.Equal(c))
}

func TestCompareNames(t *testing.T) {
	assert.Negative(t, CompareNames("apple", "Banana"))
	assert.Positive(t, CompareNames("banana", "Apple"))
	assert.NotZero(t, CompareNames("a", "A"))
	assert.Zero(t, CompareNames("same", "same"))
}

func TestOptionsRoundTrip(t *testing.T) {
	tests := []Options{
		{},
		{RemoteLocation: "https://example.com/upm/"},
		{RemoteLocation: "https://example.com/upm/", AuthEntry: "webdav"},
	}

	for _, in := range tests {
		var buf bytes.Buffer
		require.NoError(t, in.Encode(&buf))
		out, err := DecodeOptions(&buf, nil)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestOptionsSyncEnabled(t *testing.T) {
	assert.False(t, Options{}.SyncEnabled())
	assert.False(t, Options{RemoteLocation: "   "}.SyncEnabled())
	assert.True(t, Options{RemoteLocation: "http://x"}.SyncEnabled())
}

func TestDecodeOptionsLegacyCharset(t *testing.T) {
	input := "0012http://h\xf4te/" + "0004Caf\xe9"

	out, err := DecodeOptions(strings.NewReader(input), charmap.Windows1252)
	require.NoError(t, err)
	assert.Equal(t, "http://hôte/", out.RemoteLocation)
	assert.Equal(t, "Café", out.AuthEntry)
}

func TestDecodeOptionsTruncated(t *testing.T) {
	_, err := DecodeOptions(strings.NewReader("0003abc"), nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestRevisionRoundTrip(t *testing.T) {
	for _, rev := range []int{0, 1, 42, 123456} {
		var buf bytes.Buffer
		require.NoError(t, EncodeRevision(&buf, rev))
		got, err := DecodeRevision(&buf)
		require.NoError(t, err)
		assert.Equal(t, rev, got)
	}
}

func TestRevisionErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, EncodeRevision(&buf, -1), ErrNegativeValue)

	_, err := DecodeRevision(strings.NewReader("0002xy"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRevision(strings.NewReader("0002-5"))
	assert.ErrorIs(t, err, ErrNegativeValue)

	_, err = DecodeRevision(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeHeader(&buf, HeaderVersion110))
	assert.Equal(t, "00051.1.0", buf.String())

	version, err := DecodeHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, HeaderVersion110, version)
}

func TestLookupCharset(t *testing.T) {
	enc, err := LookupCharset("")
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1252, enc)

	enc, err = LookupCharset("iso-8859-1")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	_, err = LookupCharset("no-such-charset")
	assert.Error(t, err)
}
