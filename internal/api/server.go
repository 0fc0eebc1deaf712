// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes extraction tasks over HTTP.
//
//	POST /{id_type}/{paper_id}          request extraction, 202 + Location
//	GET  /{id_type}/{paper_id}/status   task status, 303 to the product once done
//	GET  /{id_type}/{paper_id}          the extraction product
//	GET  /healthz                       liveness
//
// Old-style arXiv ids contain a slash, so paper ids are matched as the
// remainder of the path.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/fulltext/internal/extraction"
	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/internal/retrieve"
	"github.com/pdiddy/fulltext/pkg/types"
)

// Tasks is the orchestrator surface the API serves.
type Tasks interface {
	Create(ctx context.Context, paperID, documentURL string, idType types.IDType) (string, error)
	Get(ctx context.Context, paperID string, idType types.IDType) (*types.ExtractionTask, error)
}

// Products reads stored extraction products.
type Products interface {
	GetProduct(ctx context.Context, key types.Key) (*types.ExtractionProduct, error)
}

// Server routes HTTP requests to the orchestrator.
type Server struct {
	tasks    Tasks
	products Products
	logger   *zap.SugaredLogger
	mux      *http.ServeMux
}

// New builds a server and registers its routes.
func New(tasks Tasks, products Products, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{tasks: tasks, products: products, logger: logger.Named("api"), mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /{id_type}/{paper_id...}", s.handleCreate)
	s.mux.HandleFunc("GET /{id_type}/{paper_id...}", s.handleGet)
	return s
}

// ServeHTTP implements http.Handler with request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debugw("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "serving on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down server")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": types.ExtractorVersion})
}

// createRequest optionally overrides the document URL. The override is
// ignored while an extraction for the same paper is still active.
type createRequest struct {
	URL string `json:"url"`
}

type createResponse struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	key, ok := s.parseKey(w, r.PathValue("id_type"), r.PathValue("paper_id"))
	if !ok {
		return
	}

	var req createRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	documentURL := req.URL
	if documentURL == "" {
		documentURL = retrieve.PDFURL(key.IDType, key.PaperID)
	}

	taskID, err := s.tasks.Create(r.Context(), key.PaperID, documentURL, key.IDType)
	if err != nil {
		s.fail(w, err, key)
		return
	}

	w.Header().Set("Location", "/"+key.String()+"/status")
	s.writeJSON(w, http.StatusAccepted, createResponse{TaskID: taskID})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	paperID, isStatus := strings.CutSuffix(r.PathValue("paper_id"), "/status")
	key, ok := s.parseKey(w, r.PathValue("id_type"), paperID)
	if !ok {
		return
	}
	if isStatus {
		s.handleStatus(w, r, key)
		return
	}
	s.handleProduct(w, r, key)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, key types.Key) {
	task, err := s.tasks.Get(r.Context(), key.PaperID, key.IDType)
	if err != nil {
		s.fail(w, err, key)
		return
	}
	if task.Status == types.StatusSucceeded {
		w.Header().Set("Location", "/"+key.String())
		s.writeJSON(w, http.StatusSeeOther, task)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request, key types.Key) {
	product, err := s.products.GetProduct(r.Context(), key)
	if err != nil {
		s.fail(w, err, key)
		return
	}
	if product == nil {
		s.writeError(w, http.StatusNotFound, "no extraction product for "+key.String())
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) parseKey(w http.ResponseWriter, rawType, rawID string) (types.Key, bool) {
	idType, err := types.ParseIDType(rawType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return types.Key{}, false
	}
	paperID, ok := retrieve.Classify(idType, rawID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "malformed "+string(idType)+" id: "+rawID)
		return types.Key{}, false
	}
	return types.Key{PaperID: paperID, IDType: idType}, true
}

func (s *Server) fail(w http.ResponseWriter, err error, key types.Key) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorw("request failed",
			logging.FieldPaperID, key.PaperID, logging.FieldIDType, key.IDType, logging.FieldError, err)
		msg := "internal error"
		if errors.Is(err, extraction.ErrTaskCreationFailed) {
			msg = "task creation failed"
		}
		s.writeError(w, status, msg)
		return
	}
	s.writeError(w, status, err.Error())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
