package chatclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"lingochat/internal/domain"
	"lingochat/internal/ws"
)

// Socket is the push-channel adapter: a websocket connection to the server's
// /ws endpoint delivering newMessage events. It implements PushChannel.
type Socket struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu      sync.Mutex
	handler func(*domain.Message)

	done chan struct{}
}

var _ PushChannel = (*Socket)(nil)

// DialSocket connects and authenticates via the bearer subprotocol, then
// starts the read loop.
func DialSocket(ctx context.Context, baseURL, token string, logger *slog.Logger) (*Socket, error) {
	if logger == nil {
		logger = slog.Default()
	}

	wsURL := strings.TrimRight(baseURL, "/") + "/ws"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	dialer := websocket.Dialer{
		Subprotocols: []string{"bearer", token},
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial websocket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	s := &Socket{
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Socket) OnMessage(handler func(*domain.Message)) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func (s *Socket) OffMessage() {
	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()
}

// Close shuts the connection down and stops the read loop.
func (s *Socket) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *Socket) readLoop() {
	defer close(s.done)
	for {
		var ev ws.Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			s.logger.Debug("websocket read loop ended", "err", err)
			return
		}
		switch ev.Type {
		case "newMessage":
			if ev.Message == nil {
				continue
			}
			s.mu.Lock()
			handler := s.handler
			s.mu.Unlock()
			if handler != nil {
				handler(ev.Message)
			}
		case "userOnline", "userOffline", "typing", "pong":
			// presence and typing are informational here
		default:
			s.logger.Debug("unknown push event", "type", ev.Type)
		}
	}
}
