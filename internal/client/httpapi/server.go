// Package httpapi exposes the sync engine to local UI clients over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/executor"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/optimistic"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/status"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/go-chi/chi/v5"
)

// SyncService is the part of the engine the API drives.
type SyncService interface {
	GetSyncStatus() status.Status
	ProcessPendingChanges(ctx context.Context) (executor.Result, error)
	ForceSyncAll(ctx context.Context) (executor.Result, error)
	RetryFailedChange(ctx context.Context, id models.ChangeID) error
	RetryAllFailedChanges(ctx context.Context) (int, error)
	ClearFailedChanges(ctx context.Context) (int, error)
	Pending() []models.Change
	Failed() []models.Change
	SyncSettings() models.SyncSettings
	SetAutoSync(ctx context.Context, enabled bool) error
	SetSyncInterval(ctx context.Context, d time.Duration) error
}

// Mutator queues record mutations with optimistic projections.
type Mutator interface {
	Create(ctx context.Context, entity models.Entity, data map[string]any) (optimistic.Result, error)
	Update(ctx context.Context, entity models.Entity, id string, data map[string]any) (optimistic.Result, error)
	Delete(ctx context.Context, entity models.Entity, id string) (optimistic.Result, error)
	Get(id models.ChangeID) (optimistic.Record, bool)
}

type PreferencesStore interface {
	Preferences(ctx context.Context) (models.Preferences, error)
	SetPreferences(ctx context.Context, p models.Preferences) error
}

type Server struct {
	sync     SyncService
	mutator  Mutator
	prefs    PreferencesStore
	entities []models.Entity
	log      logging.Logger
}

// New returns the API server. Only the listed entities accept mutations.
func New(sync SyncService, mutator Mutator, prefs PreferencesStore, entities []models.Entity, log logging.Logger) *Server {
	return &Server{
		sync:     sync,
		mutator:  mutator,
		prefs:    prefs,
		entities: entities,
		log:      log.With("module", "httpapi"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/sync", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/process", s.handleProcess)
		r.Post("/force", s.handleForce)
		r.Get("/pending", s.handlePending)
		r.Get("/failed", s.handleFailed)
		r.Post("/failed/retry", s.handleRetryAll)
		r.Post("/failed/{id}/retry", s.handleRetry)
		r.Delete("/failed", s.handleClearFailed)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})

	r.Get("/preferences", s.handleGetPreferences)
	r.Put("/preferences", s.handlePutPreferences)

	r.Route("/records/{entity}", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})
	r.Get("/optimistic/{id}", s.handleOptimistic)

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.GetSyncStatus())
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	res, err := s.sync.ProcessPendingChanges(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForce(w http.ResponseWriter, r *http.Request) {
	res, err := s.sync.ForceSyncAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.sync.Pending()))
}

func (s *Server) handleFailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.sync.Failed()))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := models.ChangeID(chi.URLParam(r, "id"))
	if err := s.sync.RetryFailedChange(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetryAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.sync.RetryAllFailedChanges(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"retried": n})
}

// handleClearFailed requires ?confirm=true.
func (s *Server) handleClearFailed(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		s.writeError(w, r, common.ErrConfirmationNeeded)
		return
	}
	n, err := s.sync.ClearFailedChanges(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

type settingsBody struct {
	AutoSync       *bool  `json:"autoSync,omitempty"`
	SyncIntervalMs *int64 `json:"syncIntervalMs,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.sync.SyncSettings()
	ms := cfg.SyncInterval.Milliseconds()
	writeJSON(w, http.StatusOK, settingsBody{AutoSync: &cfg.AutoSync, SyncIntervalMs: &ms})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json: " + err.Error()})
		return
	}
	if body.SyncIntervalMs != nil {
		if *body.SyncIntervalMs <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "syncIntervalMs must be positive"})
			return
		}
		if err := s.sync.SetSyncInterval(r.Context(), time.Duration(*body.SyncIntervalMs)*time.Millisecond); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if body.AutoSync != nil {
		if err := s.sync.SetAutoSync(r.Context(), *body.AutoSync); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.prefs.Preferences(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.prefs.Preferences(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// fields absent from the body keep their stored values
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json: " + err.Error()})
		return
	}
	if err := s.prefs.SetPreferences(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) entity(r *http.Request) (models.Entity, bool) {
	e := models.Entity(chi.URLParam(r, "entity"))
	return e, slices.Contains(s.entities, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(r)
	if !ok {
		s.writeError(w, r, common.ErrUnknownEntity)
		return
	}
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json: " + err.Error()})
		return
	}
	res, err := s.mutator.Create(r.Context(), entity, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(r)
	if !ok {
		s.writeError(w, r, common.ErrUnknownEntity)
		return
	}
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json: " + err.Error()})
		return
	}
	res, err := s.mutator.Update(r.Context(), entity, chi.URLParam(r, "id"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(r)
	if !ok {
		s.writeError(w, r, common.ErrUnknownEntity)
		return
	}
	res, err := s.mutator.Delete(r.Context(), entity, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleOptimistic(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.mutator.Get(models.ChangeID(chi.URLParam(r, "id")))
	if !ok {
		s.writeError(w, r, common.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrUnknownEntity):
		code = http.StatusNotFound
	case errors.Is(err, common.ErrRetryExhausted), errors.Is(err, common.ErrSyncInProgress):
		code = http.StatusConflict
	case errors.Is(err, common.ErrConfirmationNeeded):
		code = http.StatusPreconditionRequired
	case errors.Is(err, context.Canceled):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(c []models.Change) []models.Change {
	if c == nil {
		return []models.Change{}
	}
	return c
}
