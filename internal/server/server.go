// Package server publishes a directory of container files over HTTP using
// the protocol spoken by transport.HTTP. Files that are not containers are
// neither served, overwritten nor deleted.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/illarion/upm/internal/container"
	"github.com/illarion/upm/internal/security"
	"github.com/illarion/upm/internal/syncer"
	"github.com/illarion/upm/internal/transport"
)

// MaxUploadSize bounds an uploaded container
const MaxUploadSize = 32 << 20

// Config describes what to serve
type Config struct {
	Dir      string
	Username string // empty disables basic auth
	Password string
}

type handler struct {
	root   string
	dir    *transport.Dir
	logger *zap.Logger
}

// NewRouter builds the HTTP handler.
//
//	GET  /{name}
//	POST /upload.php
//	GET  /deletefile.php?fileToDelete={name}
func NewRouter(cfg Config, logger *zap.Logger) http.Handler {
	h := &handler{
		root:   cfg.Dir,
		dir:    transport.NewDir(cfg.Dir, logger),
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(WithRequestLogging(logger))
	if cfg.Username != "" {
		r.Use(chiMiddleware.BasicAuth("upm", map[string]string{cfg.Username: cfg.Password}))
	}

	r.Post("/"+transport.UploadPath, h.upload)
	r.Get("/"+transport.DeletePath, h.delete)
	r.Get("/{name}", h.download)

	return r
}

// stored reports whether name exists in the served directory and whether it
// holds a container
func (h *handler) stored(name string) (exists, isStore bool, err error) {
	exists, err = h.dir.Exists(name)
	if err != nil || !exists {
		return false, false, err
	}
	p, err := security.JoinName(h.root, name)
	if err != nil {
		return false, false, err
	}
	isStore, err = container.IsContainerFile(p)
	if err != nil {
		return false, false, err
	}
	return true, isStore, nil
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	exists, isStore, err := h.stored(name)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !exists || !isStore {
		http.NotFound(w, r)
		return
	}

	data, err := h.dir.Fetch(r.Context(), name)
	switch {
	case errors.Is(err, syncer.ErrRemoteNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Warn("download failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile(transport.UploadField)
	if err != nil {
		http.Error(w, "missing "+transport.UploadField, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	name := filepath.Base(header.Filename)
	if err := security.ValidateName(name); err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	if !container.IsContainer(data) {
		http.Error(w, "not a password store", http.StatusBadRequest)
		return
	}
	exists, isStore, err := h.stored(name)
	if err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	if exists && !isStore {
		h.logger.Warn("refusing to overwrite file", zap.String("name", name))
		http.Error(w, "file exists", http.StatusForbidden)
		return
	}
	if err := h.dir.Push(r.Context(), name, data); err != nil {
		h.logger.Error("upload failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, transport.ReplyOK)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get(transport.DeleteParam)
	exists, isStore, err := h.stored(name)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !exists || !isStore {
		_, _ = io.WriteString(w, transport.ReplyNotExist)
		return
	}
	if err := h.dir.Delete(r.Context(), name); err != nil {
		h.logger.Error("delete failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "failed to delete", http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, transport.ReplyOK)
}

// Run serves handler on addr until ctx is done
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
