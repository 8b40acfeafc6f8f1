package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/upm/internal/syncer"
)

// Endpoints and replies of the upload protocol
const (
	UploadPath    = "upload.php"
	DeletePath    = "deletefile.php"
	UploadField   = "userfile"
	DeleteParam   = "fileToDelete"
	ReplyOK       = "OK"
	ReplyNotExist = "FILE_DOESNT_EXIST"
)

const defaultTimeout = 30 * time.Second

// HTTP talks to a directory published over HTTP.
//
//	GET  <base>/<name>                          download
//	POST <base>/upload.php                      multipart field "userfile", replies OK
//	GET  <base>/deletefile.php?fileToDelete=<n> replies OK or FILE_DOESNT_EXIST
type HTTP struct {
	base     string
	client   *http.Client
	username string
	password string
	logger   *zap.Logger
}

// HTTPOption configures an HTTP transport
type HTTPOption func(*HTTP)

// WithCredentials enables basic auth
func WithCredentials(username, password string) HTTPOption {
	return func(h *HTTP) {
		h.username = username
		h.password = password
	}
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) { h.client.Timeout = d }
}

// WithHTTPClient replaces the client. Set it before WithTimeout.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

func WithLogger(logger *zap.Logger) HTTPOption {
	return func(h *HTTP) { h.logger = logger }
}

// NewHTTP creates a transport for the directory at base
func NewHTTP(base string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid remote location: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote location %q: not an http url", base)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	h := &HTTP{
		base:   base,
		client: &http.Client{Timeout: defaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("transport", "http"), zap.String("base", base))
	return h, nil
}

// Fetch downloads name. A 404 is syncer.ErrRemoteNotFound.
func (h *HTTP) Fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.base+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		h.logger.Debug("remote file not found", zap.String("name", name))
		return nil, syncer.ErrRemoteNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	h.logger.Debug("downloaded", zap.String("name", name), zap.Int("bytes", len(data)))
	return data, nil
}

// Push replaces name with data: the old file is deleted first, then the new
// one uploaded.
func (h *HTTP) Push(ctx context.Context, name string, data []byte) error {
	if err := h.Delete(ctx, name); err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(UploadField, name)
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := h.newRequest(ctx, http.MethodPost, h.base+UploadPath, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	reply, err := h.do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if reply != ReplyOK {
		return fmt.Errorf("upload %s: server replied %q", name, reply)
	}
	h.logger.Debug("uploaded", zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

// Delete removes name. A missing file is not an error.
func (h *HTTP) Delete(ctx context.Context, name string) error {
	target := h.base + DeletePath + "?" + url.Values{DeleteParam: {name}}.Encode()
	req, err := h.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	reply, err := h.do(req)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	if reply != ReplyOK && reply != ReplyNotExist {
		return fmt.Errorf("delete %s: server replied %q", name, reply)
	}
	return nil
}

func (h *HTTP) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.username != "" {
		req.SetBasicAuth(h.username, h.password)
	}
	return req, nil
}

// do sends a protocol request and returns the trimmed reply body
func (h *HTTP) do(req *http.Request) (string, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}
