// Package httpapi exposes the chat front door over HTTP and WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/frontdesk/internal/config"
	"github.com/ent0n29/frontdesk/internal/conversation"
	"github.com/ent0n29/frontdesk/internal/dispatch"
	"github.com/ent0n29/frontdesk/internal/observability"
	"github.com/ent0n29/frontdesk/internal/policy"
	"github.com/ent0n29/frontdesk/internal/session"
)

const (
	EmptyInputReply = "Please enter a message."
	SessionHeader   = "X-Session-ID"
	rootMessage     = "Webaurix assistant is running"
)

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher
	store      conversation.Store
	gate       *policy.Gate
	metrics    *observability.Metrics
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// New wires the HTTP surface. Ending or expiring a session forgets its
// conversation log in store.
func New(
	cfg config.Config,
	sessions *session.Manager,
	dispatcher *dispatch.Dispatcher,
	store conversation.Store,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:        cfg,
		sessions:   sessions,
		dispatcher: dispatcher,
		store:      store,
		gate:       policy.NewGate(cfg.ProxySecret),
		metrics:    metrics,
		logger:     logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// The origin middleware has already vetted the handshake.
		CheckOrigin: s.originAllowed,
	}
	sessions.SetExpireHook(s.forgetSession)
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Route("/chat", func(r chi.Router) {
		r.Use(s.originGuard)
		r.Use(s.corsHandler())
		r.Use(s.secretGuard)
		r.Post("/", s.handleChat)
		r.Get("/ws", s.handleChatWS)
		r.Post("/session/{id}/end", s.handleEndSession)
	})
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": rootMessage,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"provider":           s.dispatcher.ProviderName(),
		"canned_answers":     s.dispatcher.AnswerCount(),
		"conversation_scope": s.cfg.ConversationScope,
		"gate_enabled":       s.gate.Enabled(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
}

// handleChat answers every handled outcome with 200 and a reply string.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.logger.Warn("invalid chat request body",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondJSON(w, http.StatusOK, chatResponse{Reply: s.dispatcher.FailureReply()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(SessionHeader)
	}

	out := s.answer(r.Context(), req.SessionID, req.Message)
	if out.SessionID != "" {
		w.Header().Set(SessionHeader, out.SessionID)
	}
	respondJSON(w, http.StatusOK, chatResponse{Reply: out.Reply, SessionID: out.SessionID})
}

type chatAnswer struct {
	Reply     string
	SessionID string
	Source    string
}

// answer resolves the conversation scope, runs the dispatcher and maps its
// result to the reply shown to the caller. SessionID is empty in shared-scope
// mode. Panics are converted to the failure reply.
func (s *Server) answer(ctx context.Context, requestedID, message string) (out chatAnswer) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("dispatch panic",
				zap.Any("panic", rec),
				zap.String("request_id", middleware.GetReqID(ctx)),
			)
			s.metrics.ObserveOutcome(string(dispatch.OutcomeError))
			out = chatAnswer{Reply: s.dispatcher.FailureReply(), SessionID: out.SessionID}
		}
	}()

	scope := conversation.SharedScope
	if !s.cfg.SharedScope() {
		sess, err := s.resolveSession(requestedID)
		if err != nil {
			s.logger.Error("resolve session", zap.Error(err))
			return chatAnswer{Reply: s.dispatcher.FailureReply()}
		}
		scope, out.SessionID = sess.ID, sess.ID
	}

	res, err := s.dispatcher.Handle(ctx, dispatch.Request{Scope: scope, Message: message})
	if out.SessionID != "" && res.Appended > 0 {
		_ = s.sessions.RecordTurns(out.SessionID, res.Appended)
	}
	out.Source = string(res.Source)

	var callErr *dispatch.ExternalCallError
	switch {
	case err == nil:
		out.Reply = res.Reply
	case errors.Is(err, dispatch.ErrEmptyInput):
		out.Reply = EmptyInputReply
	case errors.As(err, &callErr):
		out.Reply = res.Reply
	default:
		out.Reply = s.dispatcher.FailureReply()
	}
	return out
}

func (s *Server) resolveSession(id string) (*session.Session, error) {
	sess, created, err := s.sessions.Resolve(id)
	if errors.Is(err, session.ErrInvalidID) {
		s.logger.Warn("ignoring malformed session id", zap.Int("length", len(id)))
		sess, created, err = s.sessions.Resolve("")
	}
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.ObserveSessionEvent("created", s.sessions.ActiveCount())
	}
	return sess, nil
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, session.EndResponse{
		SessionID:      sess.ID,
		Status:         sess.Status,
		Turns:          sess.Turns,
		StartedAt:      sess.StartedAt,
		LastActivityAt: sess.LastActivityAt,
	})
}

// forgetSession drops the log of a session that ended or went idle.
func (s *Server) forgetSession(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Forget(ctx, sess.ID); err != nil {
		s.logger.Warn("forget conversation", zap.String("session_id", sess.ID), zap.Error(err))
	}
	s.metrics.ObserveSessionEvent("ended", s.sessions.ActiveCount())
	s.logger.Debug("session ended", zap.String("session_id", sess.ID), zap.Int("turns", sess.Turns))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
