/*
Package session is the client side of the relay: it connects, authenticates, keeps an ordered
feed of one chat's messages and reconnects after abnormal closures.
*/
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"marketchat/internal/app/chat"
	"marketchat/internal/pkg/logx"
)

var (
	// ErrNotAuthenticated is returned by Send before the relay confirmed authentication.
	ErrNotAuthenticated = errors.New("session is not authenticated")

	// ErrEmptyContent is returned by Send for blank content.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrConnectionLost is returned by Run once the retry budget is exhausted.
	ErrConnectionLost = errors.New("connection lost")
)

// closeWait bounds how long Close waits to write the close frame.
const closeWait = time.Second

// Notifier receives the events a user should see.
type Notifier interface {
	// ServerError is called with the message of every error frame.
	ServerError(message string)

	// ConnectionLost is called once, when reconnection has been given up.
	ConnectionLost()
}

// Config describes one session.
type Config struct {
	URL    string
	UserID int64
	ChatID int64

	Retry RetryPolicy

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// OnMessage, if set, is called for every message appended to the feed.
	OnMessage func(chat.Message)
}

// Session holds one client connection to the relay at a time.
type Session struct {
	cfg      Config
	notifier Notifier
	retry    RetryPolicy

	// mu guards conn, authenticated and feed.
	mu            sync.Mutex
	conn          *websocket.Conn
	authenticated bool
	feed          []chat.Message

	// writeMu serialises data frame writes on conn.
	writeMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// New creates a session. Nothing is dialled until Run.
func New(cfg Config, notifier Notifier) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	return &Session{
		cfg:      cfg,
		notifier: notifier,
		retry:    cfg.Retry,
		closed:   make(chan struct{}),
		logger: logx.For("session").With().
			Int64("user_id", cfg.UserID).
			Int64("chat_id", cfg.ChatID).
			Logger(),
	}
}

// Run connects and serves the session until it is closed, the context ends, the server
// closes normally, or reconnection is given up (ErrConnectionLost).
func (s *Session) Run(ctx context.Context) error {
	for {
		code, err := s.connectOnce(ctx)

		if s.isClosed() || ctx.Err() != nil {
			return nil
		}

		if code == websocket.CloseNormalClosure {
			s.logger.Info().Msg("Server closed the connection normally")
			return nil
		}

		delay, ok := s.retry.Next()
		if !ok {
			s.logger.Warn().Err(err).Msg("Giving up reconnecting")
			s.notifier.ConnectionLost()
			return ErrConnectionLost
		}

		s.logger.Info().
			Err(err).
			Int("close_code", code).
			Int("attempt", s.retry.Attempts()).
			Dur("delay", delay).
			Msg("Connection closed abnormally, reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.closed:
			timer.Stop()
			return nil
		}
	}
}

// connectOnce dials, authenticates and reads until the transport ends. It returns the
// close code, CloseAbnormalClosure when there was none.
func (s *Session) connectOnce(ctx context.Context) (int, error) {
	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return websocket.CloseAbnormalClosure, fmt.Errorf("dial relay: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.authenticated = false
	s.mu.Unlock()

	// Close may have run while dialling.
	if s.isClosed() {
		s.sendClose(conn)
		return websocket.CloseNormalClosure, nil
	}

	s.retry.Reset()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.authenticated = false
		}
		s.mu.Unlock()
		_ = conn.Close()
	}()

	if err := s.write(conn, chat.TypeAuth, chat.AuthData{UserID: s.cfg.UserID}); err != nil {
		return websocket.CloseAbnormalClosure, err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return closeErr.Code, err
			}
			return websocket.CloseAbnormalClosure, err
		}

		s.handleFrame(conn, raw)
	}
}

func (s *Session) handleFrame(conn *websocket.Conn, raw []byte) {
	frame, err := decodeFrame(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Ignoring unreadable frame")
		return
	}

	switch frame.Type {
	case chat.TypeAuthSuccess:
		s.mu.Lock()
		if s.conn == conn {
			s.authenticated = true
		}
		s.mu.Unlock()
		s.logger.Info().Msg("Authenticated")

	case chat.TypeNewMessage:
		var msg chat.Message
		if err := frame.DecodeData(&msg); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed new_message")
			return
		}
		if msg.ChatID != s.cfg.ChatID {
			return
		}

		s.mu.Lock()
		s.feed = append(s.feed, msg)
		s.mu.Unlock()

		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(msg)
		}

	case chat.TypeError:
		var notice chat.NoticeData
		if err := frame.DecodeData(&notice); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring malformed error frame")
			return
		}
		s.notifier.ServerError(notice.Message)

	default:
		s.logger.Debug().Str("frame_type", string(frame.Type)).Msg("Ignoring unknown frame type")
	}
}

// Send submits content to the session's chat as typed. Blank content is refused. The
// message shows up in the feed once the relay fans it back out.
func (s *Session) Send(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()
	conn, ok := s.conn, s.authenticated
	s.mu.Unlock()

	if !ok || conn == nil {
		return ErrNotAuthenticated
	}

	return s.write(conn, chat.TypeMessage, chat.MessageData{ChatID: s.cfg.ChatID, Content: content})
}

// Authenticated reports whether the current connection has been confirmed by auth_success.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authenticated
}

// Feed returns a copy of the messages received for the chat, in receipt order.
func (s *Session) Feed() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]chat.Message(nil), s.feed...)
}

// Close ends the session with a normal closure (1000). No reconnect follows.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		conn := s.conn
		s.authenticated = false
		s.mu.Unlock()

		if conn != nil {
			s.sendClose(conn)
			_ = conn.Close()
		}
	})
}

func (s *Session) sendClose(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing close frame")
	}
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) write(conn *websocket.Conn, t chat.FrameType, data any) error {
	raw, err := chat.EncodeFrame(t, data)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write %s frame: %w", t, err)
	}
	return nil
}

func decodeFrame(raw []byte) (chat.Frame, error) {
	var frame chat.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return chat.Frame{}, err
	}
	return frame, nil
}
