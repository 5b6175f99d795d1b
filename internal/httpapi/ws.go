package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/frontdesk/internal/protocol"
	"github.com/ent0n29/frontdesk/internal/session"
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(SessionHeader))
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.cfg.SharedScope() {
		sessionID = ""
	} else {
		sess, err := s.resolveSession(sessionID)
		if err != nil {
			s.logger.Error("resolve session", zap.Error(err))
			_ = conn.WriteJSON(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "session_unavailable",
				Source: "gateway",
			})
			return
		}
		sessionID = sess.ID
	}
	s.metrics.ObserveSessionEvent("ws_connected", s.sessions.ActiveCount())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		s.runConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					s.logger.Debug("websocket write failed", zap.Error(err))
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if the queue is saturated.
				s.logger.Debug("dropping error event, outbound queue full")
			}
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.ObserveSessionEvent("ws_disconnected", s.sessions.ActiveCount())
}

// runConnection answers client frames in arrival order until inbound closes.
func (s *Server) runConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	send := func(msg any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- msg:
			return true
		}
	}

	if sessionID != "" {
		if !send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: sessionID, Code: "session_started"}) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			var reply any
			switch m := msg.(type) {
			case protocol.ChatMessage:
				id := m.SessionID
				if id == "" {
					id = sessionID
				}
				out := s.answer(ctx, id, m.Message)
				if out.SessionID != "" {
					sessionID = out.SessionID
				}
				reply = protocol.ChatReply{
					Type:      protocol.TypeChatReply,
					SessionID: out.SessionID,
					Reply:     out.Reply,
					Source:    out.Source,
				}
			case protocol.ClientControl:
				reply = s.handleControl(m)
			default:
				continue
			}
			if !send(reply) {
				return
			}
		}
	}
}

func (s *Server) handleControl(m protocol.ClientControl) any {
	if m.Action != protocol.ActionEndSession {
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: m.SessionID,
			Code:      "unsupported_action",
			Source:    "gateway",
			Detail:    m.Action,
		}
	}
	if _, err := s.sessions.End(m.SessionID); err != nil {
		code := "session_end_failed"
		if errors.Is(err, session.ErrNotFound) {
			code = "session_not_found"
		}
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: m.SessionID,
			Code:      code,
			Source:    "gateway",
			Detail:    err.Error(),
		}
	}
	return protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: m.SessionID, Code: "session_ended"}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ChatMessage:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.ChatReply:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
