package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func upload(t *testing.T, h http.Handler, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("userfile", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload.php", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestUploadDownloadDelete(t *testing.T) {
	dir := t.TempDir()
	h := NewRouter(Config{Dir: dir}, zap.NewNop())

	rec := get(h, "/store.upm")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = upload(t, h, "store.upm", []byte("UPM\x03payload"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	onDisk, err := os.ReadFile(filepath.Join(dir, "store.upm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("UPM\x03payload"), onDisk)

	rec = get(h, "/store.upm")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("UPM\x03payload"), rec.Body.Bytes())

	rec = get(h, "/deletefile.php?fileToDelete=store.upm")
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(h, "/deletefile.php?fileToDelete=store.upm")
	assert.Equal(t, "FILE_DOESNT_EXIST", rec.Body.String())
}

func TestUploadStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	h := NewRouter(Config{Dir: dir}, zap.NewNop())

	rec := upload(t, h, "../../escape.upm", []byte("UPM\x03x"))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := os.Stat(filepath.Join(dir, "escape.upm"))
	assert.NoError(t, err)
}

func TestOnlyContainersAreServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UPM_PASSWORD=hunter2\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upm.yaml"), []byte("server:\n  password: x\n"), 0o600))
	h := NewRouter(Config{Dir: dir}, zap.NewNop())

	for _, name := range []string{".env", "upm.yaml"} {
		t.Run(name, func(t *testing.T) {
			rec := get(h, "/"+name)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.NotContains(t, rec.Body.String(), "password")

			rec = get(h, "/deletefile.php?fileToDelete="+name)
			assert.Equal(t, "FILE_DOESNT_EXIST", rec.Body.String())

			rec = upload(t, h, name, []byte("UPM\x03payload"))
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	onDisk, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "UPM_PASSWORD=hunter2\n", string(onDisk))
	_, err = os.Stat(filepath.Join(dir, "upm.yaml"))
	assert.NoError(t, err)
}

func TestUploadRejectsNonContainers(t *testing.T) {
	dir := t.TempDir()
	h := NewRouter(Config{Dir: dir}, zap.NewNop())

	rec := upload(t, h, ".env", []byte("UPM_PASSWORD=owned\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = upload(t, h, "store.upm", []byte("UPM"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadWithoutFile(t *testing.T) {
	h := NewRouter(Config{Dir: t.TempDir()}, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/upload.php", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRejectsInvalidName(t *testing.T) {
	h := NewRouter(Config{Dir: t.TempDir()}, zap.NewNop())

	rec := get(h, "/deletefile.php?fileToDelete=..")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(h, "/deletefile.php")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	h := NewRouter(Config{Dir: t.TempDir(), Username: "user", Password: "secret"}, zap.NewNop())

	rec := get(h, "/store.upm")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/store.upm", nil)
	req.SetBasicAuth("user", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewRouter(Config{Dir: t.TempDir()}, zap.New(core))

	get(h, "/missing.upm")

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/missing.upm", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
}
