package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mockingbird/internal/session"
	"mockingbird/internal/snapshot"
	"mockingbird/internal/tool"
	"mockingbird/internal/vtree"
)

// Handler dispatches the HTTP API onto the session layer.
type Handler struct {
	log      *zap.Logger
	sessions *session.Manager

	mu         sync.Mutex
	registries map[string]registryEntry
}

// registryEntry ties a cached tool registry to the session it was built
// for, so a session reopened under the same ID gets a fresh registry.
type registryEntry struct {
	owner *session.Session
	reg   *tool.Registry
}

// NewHandler creates an API handler backed by the given session manager.
func NewHandler(sessions *session.Manager, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		log:        log,
		sessions:   sessions,
		registries: make(map[string]registryEntry),
	}
}

// registryFor returns the session's tool registry, building it once.
func (h *Handler) registryFor(s *session.Session) *tool.Registry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.registries[s.ID]; ok && e.owner == s {
		return e.reg
	}
	reg := tool.ForSession(s)
	h.registries[s.ID] = registryEntry{owner: s, reg: reg}
	return reg
}

// BuildMux registers all routes on a new ServeMux.
func BuildMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", h.handleOpenSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.handleCloseSession)
	mux.HandleFunc("GET /v1/sessions/{id}/tools", h.handleListTools)
	mux.HandleFunc("POST /v1/sessions/{id}/tools/{name}", h.handleCallTool)
	mux.HandleFunc("POST /v1/sessions/{id}/build", h.handleBuild)
	mux.HandleFunc("GET /v1/sessions/{id}/preview", h.handlePreviewDocument)
	mux.HandleFunc("GET /v1/sessions/{id}/res/{rid}", h.handleResource)
	mux.HandleFunc("POST /v1/sessions/{id}/save", h.handleSave)
	mux.HandleFunc("POST /v1/sessions/{id}/load", h.handleLoad)
	mux.HandleFunc("GET /v1/sessions/{id}/ws", h.handlePreviewWS)
	return mux
}

type openSessionRequest struct {
	ID string `json:"id"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s, err := h.sessions.Open(req.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": s.ID})
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	h.sessions.Close(id)
	h.mu.Lock()
	delete(h.registries, id)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.registryFor(s).Specs())
}

func (h *Handler) handleCallTool(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	input, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(input))) == 0 {
		input = []byte("{}")
	}
	out, err := h.registryFor(s).Call(r.Context(), name, input)
	if err != nil {
		h.log.Info("tool call failed",
			zap.String("session", s.ID),
			zap.String("tool", name),
			zap.Error(err))
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	writeRawJSON(w, http.StatusOK, out)
}

func (h *Handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res := s.BuildNow()
	if res == nil {
		http.Error(w, "session is closed", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handlePreviewDocument serves the live generation's assembled document.
func (h *Handler) handlePreviewDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res := s.Builder().Current()
	if res == nil || res.DocumentID == "" {
		http.Error(w, "no preview built yet", http.StatusNotFound)
		return
	}
	doc, ok := s.Builder().Store().Get(res.DocumentID)
	if !ok {
		http.Error(w, "preview document was superseded", http.StatusGone)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(doc.Body)
}

func (h *Handler) handleResource(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, found := s.Builder().Store().Get(r.PathValue("rid"))
	if !found {
		http.Error(w, "resource not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(res.Body)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Save(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Load(r.Context()); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	s, ok := h.sessions.Get(id)
	if !ok {
		http.Error(w, "unknown session "+id, http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, vtree.ErrNotFound), errors.Is(err, snapshot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vtree.ErrPathConflict):
		return http.StatusConflict
	case errors.Is(err, vtree.ErrMissingParent),
		errors.Is(err, vtree.ErrTypeMismatch),
		errors.Is(err, vtree.ErrInvalidPath),
		errors.Is(err, vtree.ErrInvariantViolation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, 4<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
