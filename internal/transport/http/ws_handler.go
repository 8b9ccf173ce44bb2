package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/metrics"
	"github.com/Rohan-80800/PositLearn-sub001/internal/tracker"
)

const (
	writeWait    = 10 * time.Second
	leaveTimeout = 15 * time.Second
)

// WSConfig tunes a websocket connection.
type WSConfig struct {
	RateLimit    float64
	RateBurst    int
	PingInterval time.Duration
}

// WSHandler hosts one learner session per websocket connection.
type WSHandler struct {
	sessions *app.SessionService
	logger   *zap.Logger
	cfg      WSConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions *app.SessionService, logger *zap.Logger, cfg WSConfig) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 50
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &WSHandler{
		sessions: sessions,
		logger:   logger,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Request string `json:"request,omitempty"`
}

type videoPayload struct {
	ModuleID string  `json:"moduleId"`
	VideoID  string  `json:"videoId"`
	Duration float64 `json:"duration"`
}

type positionPayload struct {
	CurrentTime float64 `json:"currentTime"`
}

type notesPayload struct {
	ModuleID string                 `json:"moduleId"`
	VideoID  string                 `json:"videoId"`
	Entries  []domain.NotebookEntry `json:"entries"`
}

type quizPayload struct {
	QuizID        string `json:"quizId"`
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type endedPayload struct {
	Completed bool `json:"completed"`
}

// ServeWS upgrades the request and runs the learner's session until the
// connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	projectID := r.URL.Query().Get("projectId")
	if learnerID == "" || projectID == "" {
		http.Error(w, "missing learnerId or projectId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	pongWait := 2 * h.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	logger := h.logger.With(zap.String("learnerId", learnerID), zap.String("projectId", projectID))

	session, view, err := h.sessions.Join(r.Context(), learnerID, projectID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayloadFor("join", err)})
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		h.sessions.Leave(ctx, session)
	}()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	pingDone := make(chan struct{})

	// Single writer: every data frame goes through send. After a failed
	// write the connection is closed and send is drained so producers never
	// block.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", zap.Error(err))
				failed = true
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(pingDone)
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := h.sessions.KeepAlive(r.Context(), session); err != nil {
					logger.Warn("session claim lost", zap.Error(err))
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: view}

	limiter := rate.NewLimiter(rate.Limit(h.cfg.RateLimit), h.cfg.RateBurst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if !limiter.Allow() {
			metrics.WSMessages.WithLabelValues(inbound.Type, "limited").Inc()
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "rate limit exceeded", Code: "rate_limited", Request: inbound.Type}}
			continue
		}
		reply, err := h.dispatch(r.Context(), session, projectID, inbound)
		if err != nil {
			metrics.WSMessages.WithLabelValues(inbound.Type, "error").Inc()
			send <- outboundMessage[any]{Type: "error", Payload: errorPayloadFor(inbound.Type, err)}
			continue
		}
		metrics.WSMessages.WithLabelValues(inbound.Type, "ok").Inc()
		if reply != nil {
			send <- *reply
		}
	}

	close(closeSignals)
	<-eventsDone
	<-pingDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound message to the session. A nil reply means
// the message needs no direct answer.
func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, projectID string, in inboundMessage) (*outboundMessage[any], error) {
	switch in.Type {
	case "openVideo":
		var p videoPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		ref := domain.VideoRef{ProjectID: projectID, ModuleID: p.ModuleID, VideoID: p.VideoID}
		return videoReply(session.OpenVideo(ref, p.Duration))
	case "sample":
		var p positionPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		out, err := session.Sample(p.CurrentTime)
		if err != nil {
			return nil, err
		}
		if out.Kind == tracker.NoChange {
			return nil, nil
		}
		return &outboundMessage[any]{Type: "sample", Payload: out}, nil
	case "pause", "buffer":
		var p positionPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		if in.Type == "pause" {
			return videoReply(session.Pause(p.CurrentTime))
		}
		return videoReply(session.Buffer(p.CurrentTime))
	case "ended":
		completed, err := session.Ended()
		if err != nil {
			return nil, err
		}
		return &outboundMessage[any]{Type: "ended", Payload: endedPayload{Completed: completed}}, nil
	case "closeVideo":
		session.CloseVideo()
		return nil, nil
	case "notes":
		var p notesPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		ref := domain.VideoRef{ProjectID: projectID, ModuleID: p.ModuleID, VideoID: p.VideoID}
		return nil, session.SaveNotes(ref, p.Entries)
	}

	var p quizPayload
	if err := decodePayload(in.Payload, &p); err != nil {
		return nil, err
	}
	switch in.Type {
	case "openQuiz":
		return quizReply(session.OpenQuiz(ctx, p.QuizID))
	case "startQuiz":
		return quizReply(session.StartQuiz(p.QuizID))
	case "answer":
		return quizReply(session.Answer(p.QuizID, p.QuestionIndex, p.Answer))
	case "next":
		return quizReply(session.Next(p.QuizID))
	case "previous":
		return quizReply(session.Previous(p.QuizID))
	case "submitQuiz":
		return quizReply(session.SubmitQuiz(p.QuizID))
	case "retakeQuiz":
		return quizReply(session.RetakeQuiz(p.QuizID))
	case "closeQuiz":
		session.CloseQuiz(p.QuizID)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unsupported message type %q", domain.ErrInvalidRequest, in.Type)
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func videoReply(state domain.VideoProgressState, err error) (*outboundMessage[any], error) {
	if err != nil {
		return nil, err
	}
	return &outboundMessage[any]{Type: "videoState", Payload: state}, nil
}

func quizReply(state domain.QuizAttemptState, err error) (*outboundMessage[any], error) {
	if err != nil {
		return nil, err
	}
	return &outboundMessage[any]{Type: "quizState", Payload: state}, nil
}

func errorPayloadFor(request string, err error) errorPayload {
	return errorPayload{Message: err.Error(), Code: domain.ErrorCode(err), Request: request}
}
