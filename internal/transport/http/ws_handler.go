package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"vibecheck-service/internal/apierr"
	"vibecheck-service/internal/app"
	"vibecheck-service/internal/auth"
	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/logger"
)

// WSHandler streams quiz generation progress over a websocket.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWSHandler(service *app.QuizService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With("component", "ws_generate"),
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
}

type statusPayload struct {
	Stage domain.GenerationStage `json:"stage"`
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

// ServeWS upgrades an authenticated request and runs one generation at a time per connection.
// Clients send {"type":"generate","payload":{...}} and receive status updates followed by
// either "generated" or "error".
func (h *WSHandler) ServeWS(c *gin.Context) {
	userID := auth.UserID(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	// busy is claimed by the reader when it queues a job and released by the generation loop
	// before the final message of that job is sent.
	var busy atomic.Bool
	jobs := make(chan app.GenerateParams, 1)
	writerDone := make(chan struct{})

	// Only this goroutine writes to conn. On a write failure it closes the socket so the
	// reader stops, and keeps draining so senders never block.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "user_id", userID, "error", err)
				cancel()
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(jobs)
		defer cancel()
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				return
			}
			switch inbound.Type {
			case "generate":
				var params app.GenerateParams
				if err := json.Unmarshal(inbound.Payload, &params); err != nil {
					send <- errorMessage("invalid generate payload")
					continue
				}
				if !busy.CompareAndSwap(false, true) {
					send <- errorMessage("a quiz is already being generated")
					continue
				}
				jobs <- params
			default:
				send <- errorMessage("unsupported message type")
			}
		}
	}()

	for params := range jobs {
		res, err := h.service.Generate(ctx, userID, params, func(stage domain.GenerationStage) {
			send <- outboundMessage[any]{Type: "status", Payload: statusPayload{Stage: stage}}
		})
		busy.Store(false)
		if err != nil {
			send <- errorMessage(apierr.From(err).Message)
			continue
		}
		send <- outboundMessage[any]{Type: "generated", Payload: res}
	}

	close(send)
	<-writerDone
}
