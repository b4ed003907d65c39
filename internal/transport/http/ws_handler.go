package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"coursehub-service/internal/app"
	"coursehub-service/internal/logger"
	"github.com/gorilla/websocket"
)

const closeGrace = 2 * time.Second

// WSHandler drives one quiz session per websocket connection.
type WSHandler struct {
	service      *app.QuizService
	upgrader     websocket.Upgrader
	tickInterval time.Duration
	log          *logger.Logger
}

func NewWSHandler(service *app.QuizService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tickInterval: time.Second,
		log:          log,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func errorMessage(err error) outboundMessage {
	_, reason := classify(err)
	return outboundMessage{Type: "error", Payload: errorResponse{Error: reason, Message: err.Error()}}
}

// ServeWS upgrades the request, starts a quiz session on the requested module and relays
// commands until the attempt is graded or the client leaves. Leaving mid-quiz abandons it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	moduleID := r.URL.Query().Get("moduleId")
	userID := strings.TrimSpace(r.Header.Get(UserHeader))
	if userID == "" {
		// Browsers cannot set headers on the upgrade request.
		userID = r.URL.Query().Get("userId")
	}
	if moduleID == "" || userID == "" {
		http.Error(w, "missing moduleId or user", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Start(ctx, userID, moduleID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	log := h.log.With("session_id", session.ID(), "user_id", userID, "module_id", moduleID)
	log.Debug("quiz session connected")

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	watchDone := make(chan struct{})

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	// Single writer; the connection is closed for reading once the result is out.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", "error", err)
				return
			}
			if msg.Type == "result" {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "quiz finished"))
				_ = conn.SetReadDeadline(time.Now().Add(closeGrace))
				return
			}
		}
	}()

	push(outboundMessage{Type: "question", Payload: session.Snapshot()})

	// Countdown ticks and the final result, including a submit forced by the timer.
	go func() {
		defer close(watchDone)
		var tick <-chan time.Time
		if session.Snapshot().RemainingSeconds != nil {
			ticker := time.NewTicker(h.tickInterval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-tick:
				if snap := session.Snapshot(); snap.RemainingSeconds != nil && !snap.State.Terminal() {
					push(outboundMessage{Type: "tick", Payload: tickPayload{RemainingSeconds: *snap.RemainingSeconds}})
				}
			case <-session.Done():
				result, ok := session.Result()
				if !ok {
					result = app.SubmitResult{SessionID: session.ID(), State: session.State()}
				}
				push(outboundMessage{Type: "result", Payload: result})
				return
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		snap, err := h.dispatch(ctx, session, userID, inbound)
		switch {
		case err != nil:
			push(errorMessage(err))
		case snap != nil:
			push(outboundMessage{Type: "question", Payload: snap})
		}
	}

	close(closeSignals)
	<-watchDone
	if !session.State().Terminal() {
		if err := h.service.Abandon(ctx, session.ID(), userID); err != nil {
			log.Debug("abandon on disconnect", "error", err)
		} else {
			log.Info("quiz abandoned on disconnect")
		}
	}
	close(send)
	<-writerDone
}

// dispatch applies one client command. A nil snapshot means the reply comes from the
// watcher (submit, abandon).
func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, userID string, in inboundMessage) (*app.SessionSnapshot, error) {
	var (
		snap app.SessionSnapshot
		err  error
	)
	switch in.Type {
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.QuestionID == "" {
			return nil, errBadPayload
		}
		snap, err = h.service.Answer(ctx, session.ID(), userID, p.QuestionID, p.Value)
	case "next":
		snap, err = h.service.Next(ctx, session.ID(), userID)
	case "previous":
		snap, err = h.service.Previous(ctx, session.ID(), userID)
	case "goto":
		var p gotoPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, errBadPayload
		}
		snap, err = h.service.GoTo(ctx, session.ID(), userID, p.Index)
	case "submit":
		_, err = h.service.Submit(ctx, session.ID(), userID)
		return nil, err
	case "abandon":
		return nil, h.service.Abandon(ctx, session.ID(), userID)
	default:
		return nil, errUnsupported
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
