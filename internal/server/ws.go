package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dremmer8/poker/internal/visualizer"
)

const writeWait = 10 * time.Second

// Origins are already checked by the router.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ClientMessage struct {
	Type      string `json:"type"`
	RequestId string `json:"requestId,omitempty"`
}

type ServerMessage struct {
	Type      string              `json:"type"`
	RequestId string              `json:"requestId,omitempty"`
	Display   *visualizer.Display `json:"display,omitempty"`
	Error     *ErrorView          `json:"error,omitempty"`
}

type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// feed serializes writes to one connection. A queued display is replaced
// by a newer one instead of piling up behind a slow reader.
type feed struct {
	conn *websocket.Conn
	mu   sync.Mutex
	out  []ServerMessage
	wake chan struct{}
	done chan struct{}
}

func newFeed(conn *websocket.Conn) *feed {
	return &feed{conn: conn, wake: make(chan struct{}, 1), done: make(chan struct{})}
}

func (f *feed) send(msg ServerMessage) {
	f.mu.Lock()
	if msg.Type == "display" {
		kept := f.out[:0]
		for _, m := range f.out {
			if m.Type != "display" {
				kept = append(kept, m)
			}
		}
		f.out = kept
	}
	f.out = append(f.out, msg)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *feed) sendDisplay(d visualizer.Display, requestID string) {
	f.send(ServerMessage{Type: "display", RequestId: requestID, Display: &d})
}

func (f *feed) sendError(code, message string) {
	f.send(ServerMessage{Type: "error", Error: &ErrorView{Code: code, Message: message}})
}

func (f *feed) writeLoop() {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}
		f.mu.Lock()
		msgs := f.out
		f.out = nil
		f.mu.Unlock()
		for _, m := range msgs {
			_ = f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteJSON(m); err != nil {
				log.Debug().Err(err).Msg("ws write")
				_ = f.conn.Close()
				return
			}
		}
	}
}

// wsHandler streams visualizer displays. Clients only read; the one
// inbound message understood is request_state.
func (s *Server) wsHandler(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	f := newFeed(conn)
	defer close(f.done)
	go f.writeLoop()

	stop := s.observer.OnChange(func(d visualizer.Display) { f.sendDisplay(d, "") })
	defer stop()
	f.sendDisplay(s.observer.Display(), "")

	limiter := rate.NewLimiter(s.WSRate, s.WSBurst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			f.sendError("rate_limited", "too many messages")
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.sendError("bad_request", "invalid json")
			continue
		}
		switch msg.Type {
		case "request_state":
			f.sendDisplay(s.observer.Display(), msg.RequestId)
		default:
			f.sendError("unknown_type", "unknown message type")
		}
	}
}
