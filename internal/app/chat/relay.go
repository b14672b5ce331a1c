package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"marketchat/internal/configs"
	"marketchat/internal/pkg/errs"
	"marketchat/internal/pkg/logx"
)

// chatLockStripes is the number of mutexes shared by all chats for ordering.
const chatLockStripes = 64

// Relay runs the per-connection state machine, persists messages through the Gateway
// and fans them out to every open connection of the chat's participants.
type Relay struct {
	gateway  Gateway
	registry *Registry
	config   *configs.AppConfig

	// mu protects conns, the set of open connections whether authenticated or not.
	mu    sync.RWMutex
	conns map[string]*Connection

	// chatLocks serialise persist and fan-out per chat so every recipient sees one
	// chat's messages in persisted order.
	chatLocks [chatLockStripes]sync.Mutex

	logger zerolog.Logger
}

// NewRelay constructs a Relay over gateway and registry.
func NewRelay(cfg *configs.AppConfig, gateway Gateway, registry *Registry) *Relay {
	return &Relay{
		gateway:  gateway,
		registry: registry,
		config:   cfg,
		conns:    make(map[string]*Connection),
		logger:   logx.For("relay"),
	}
}

// Registry returns the connection registry used for fan-out.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Serve runs a connection over t until the transport fails or the connection is closed.
// It blocks in the read loop and returns after the connection has been unregistered.
func (r *Relay) Serve(ctx context.Context, t Transport) {
	conn := newConnection(t, r.config.SendQueueSize, r.config.WriteWait, r.release)

	r.mu.Lock()
	r.conns[conn.ID()] = conn
	open := len(r.conns)
	r.mu.Unlock()

	conn.logger.Info().Int("open_connections", open).Msg("Connection opened")

	defer conn.shutdown()

	t.SetReadLimit(max(r.config.MaxFrameBytes, MaxFrameBytes))
	t.SetPongHandler(func(string) error {
		conn.markAlive()
		return nil
	})

	go conn.writePump()

	for {
		_, raw, err := t.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				conn.logger.Info().Err(err).Msg("Connection read failed")
			}
			return
		}

		r.handleFrame(ctx, conn, raw)
	}
}

// release is the onClose hook of every connection. It runs exactly once per connection.
func (r *Relay) release(conn *Connection) {
	r.registry.Unregister(conn)

	r.mu.Lock()
	delete(r.conns, conn.ID())
	open := len(r.conns)
	r.mu.Unlock()

	conn.logger.Info().
		Int64("user_id", conn.UserID()).
		Int("open_connections", open).
		Msg("Connection closed")
}

// Connections returns a snapshot of every open connection.
func (r *Relay) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.conns)
}

// Shutdown closes every open connection with a going-away close frame.
func (r *Relay) Shutdown() {
	conns := r.Connections()

	r.logger.Info().Int("open_connections", len(conns)).Msg("Closing all connections")

	for _, conn := range conns {
		conn.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

// handleFrame dispatches one inbound frame. Every failure is reported to conn only.
func (r *Relay) handleFrame(ctx context.Context, conn *Connection, raw []byte) {
	request, cerr := ParseRequest(raw)
	if cerr != nil {
		conn.logger.Debug().Int("frame_bytes", len(raw)).Msg("Unparseable frame")
		r.sendError(conn, cerr)
		return
	}

	switch req := request.(type) {
	case *AuthRequest:
		r.handleAuth(ctx, conn, req)
	case *MessageRequest:
		r.handleMessage(ctx, conn, req)
	case *UnknownRequest:
		conn.logger.Debug().Str("frame_type", string(req.Type)).Msg("Unknown frame type")
		r.sendError(conn, errs.NewError(errs.ErrUnknownMessageType))
	}
}

func (r *Relay) handleAuth(ctx context.Context, conn *Connection, req *AuthRequest) {
	if req.UserID <= 0 {
		r.sendError(conn, errs.NewError(errs.ErrAuthenticationFailed))
		return
	}

	u, err := r.gateway.FindUserByID(ctx, req.UserID)
	if errors.Is(err, ErrNotFound) {
		conn.logger.Info().Int64("user_id", req.UserID).Msg("Authentication failed: unknown user")
		r.sendError(conn, errs.NewError(errs.ErrAuthenticationFailed))
		return
	}
	if err != nil {
		r.sendError(conn, errs.NewError(errs.ErrMessageProcessing, err))
		return
	}

	if !conn.bind(u.ID, r.registry) {
		conn.logger.Warn().
			Int64("user_id", conn.UserID()).
			Int64("requested_user_id", u.ID).
			Msg("Authentication rejected for bound or closed connection")
		r.sendError(conn, errs.NewError(errs.ErrAuthenticationFailed))
		return
	}

	conn.logger.Info().Int64("user_id", u.ID).Msg("Connection authenticated")
	r.send(conn, TypeAuthSuccess, NoticeData{Message: AuthSuccessText})
}

func (r *Relay) handleMessage(ctx context.Context, conn *Connection, req *MessageRequest) {
	senderID, ok := conn.identity()
	if !ok {
		r.sendError(conn, errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	data, cerr := req.Payload()
	if cerr != nil {
		r.sendError(conn, cerr)
		return
	}

	chat, err := r.gateway.FindChatByID(ctx, data.ChatID)
	if errors.Is(err, ErrNotFound) {
		r.sendError(conn, errs.NewError(errs.ErrChatNotFound))
		return
	}
	if err != nil {
		r.sendError(conn, errs.NewError(errs.ErrMessageProcessing, err))
		return
	}

	// Non-participants get the same answer as a missing chat.
	if !chat.HasParticipant(senderID) {
		conn.logger.Warn().
			Int64("user_id", senderID).
			Int64("chat_id", chat.ID).
			Msg("Message to a chat the sender is not part of")
		r.sendError(conn, errs.NewError(errs.ErrChatNotFound))
		return
	}

	lock := &r.chatLocks[uint64(chat.ID)%chatLockStripes]
	lock.Lock()
	defer lock.Unlock()

	msg, err := r.gateway.CreateMessage(ctx, NewMessage{
		ChatID:   chat.ID,
		SenderID: senderID,
		Content:  data.Content,
	})
	if err != nil {
		r.sendError(conn, errs.NewError(errs.ErrMessageProcessing, err))
		return
	}

	r.fanOut(chat, msg)
}

// fanOut delivers msg to every open connection of the chat's participants, the sender's
// own connections included. Connections that cannot take the frame are skipped.
func (r *Relay) fanOut(chat Chat, msg Message) {
	frame, err := EncodeFrame(TypeNewMessage, msg)
	if err != nil {
		r.logger.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to encode new_message frame")
		return
	}

	delivered, skipped := 0, 0
	for _, userID := range lo.Uniq(append(chat.Participants(), msg.SenderID)) {
		for _, conn := range r.registry.ConnectionsFor(userID) {
			if conn.enqueue(frame) {
				delivered++
				continue
			}

			skipped++
			conn.logger.Debug().
				Int64("user_id", userID).
				Int64("chat_id", chat.ID).
				Msg("Skipping connection that is not writable")
		}
	}

	r.logger.Debug().
		Int64("chat_id", chat.ID).
		Int64("message_id", msg.ID).
		Int("delivered", delivered).
		Int("skipped", skipped).
		Msg("Message fanned out")
}

// send queues a frame for conn only.
func (r *Relay) send(conn *Connection, t FrameType, data any) {
	frame, err := EncodeFrame(t, data)
	if err != nil {
		conn.logger.Error().Err(err).Msg("Failed to encode frame")
		return
	}

	if !conn.enqueue(frame) {
		conn.logger.Debug().Str("frame_type", string(t)).Msg("Dropping frame for connection that is not writable")
	}
}

func (r *Relay) sendError(conn *Connection, cerr *errs.CustomError) {
	r.send(conn, TypeError, NoticeData{Message: cerr.Message})
}
