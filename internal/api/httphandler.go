package api

import (
	"crypto/subtle"
	"errors"
	"io"
	"kelink/internal/flow"
	"kelink/internal/policy"
	"kelink/internal/types"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// SecretHdrName is the header the Bot API sets on webhook calls when a secret token is configured.
const SecretHdrName = "X-Telegram-Bot-Api-Secret-Token"

type Handler struct {
	Engine     *policy.Engine
	Dispatcher *flow.Dispatcher
	// Secret, when set, must match SecretHdrName on POST /events.
	Secret string

	now func() time.Time
}

func NewHandler(engine *policy.Engine, dispatcher *flow.Dispatcher, secret string) *Handler {
	return &Handler{
		Engine:     engine,
		Dispatcher: dispatcher,
		Secret:     secret,
		now:        time.Now,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.handleEvents)
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleEvents accepts one Bot API shaped update. Malformed and irrelevant updates are
// acknowledged so they are not re-delivered; store failures answer 503 so they are.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHdrName)), []byte(h.Secret)) != 1 {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ev, err := flow.ParseUpdate(h.Engine.Config().Ingress, payload, h.now())
	if err != nil {
		log.WithError(err).Warn("dropping malformed update")
		h.reply(w, http.StatusOK, flow.Ignored)
		return
	}
	status, err := h.Dispatcher.Dispatch(ctx, ev)
	switch {
	case err == nil:
		h.reply(w, http.StatusOK, status)
	case errors.Is(err, types.ErrMalformedEvent):
		h.reply(w, http.StatusOK, flow.Ignored)
	default:
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if postID := r.URL.Query().Get("post_id"); postID != "" {
		h.handlePostStatus(w, r, postID)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "missing user_id or post_id", http.StatusBadRequest)
		return
	}
	st, err := h.Engine.Status(r.Context(), userID, h.now())
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("status lookup failed")
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := writeJSON(w, http.StatusOK, st); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func (h *Handler) handlePostStatus(w http.ResponseWriter, r *http.Request, postID string) {
	st, err := h.Engine.PostStatus(r.Context(), postID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		http.Error(w, "unknown post", http.StatusNotFound)
		return
	case err != nil:
		log.WithError(err).WithField("postID", postID).Error("post status lookup failed")
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := writeJSON(w, http.StatusOK, st); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func (h *Handler) reply(w http.ResponseWriter, code int, status flow.Status) {
	if err := writeJSON(w, code, map[string]any{"status": status.String()}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
