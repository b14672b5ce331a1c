package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"marketchat/internal/pkg/errs"
)

// FrameType is the "type" field of every frame exchanged on the relay connection.
type FrameType string

const (
	// TypeAuth (client -> server) binds the connection to a user.
	TypeAuth FrameType = "auth"

	// TypeAuthSuccess (server -> client) confirms TypeAuth.
	TypeAuthSuccess FrameType = "auth_success"

	// TypeMessage (client -> server) submits a message to a chat.
	TypeMessage FrameType = "message"

	// TypeNewMessage (server -> client) delivers a persisted message.
	TypeNewMessage FrameType = "new_message"

	// TypeError (server -> client) reports a failed request. The connection stays usable.
	TypeError FrameType = "error"
)

// MaxContentBytes is the maximum size of a message's content.
const MaxContentBytes = 5000

// MaxFrameBytes is the smallest read limit that fits any valid message frame. A JSON
// encoder may write each content byte as a 6-byte \uXXXX escape.
const MaxFrameBytes = 6*MaxContentBytes + 256

// AuthSuccessText is the message carried by TypeAuthSuccess frames.
const AuthSuccessText = "Authentication successful"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Frame is the envelope {type, data} of every frame in both directions.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AuthData is the data of a TypeAuth frame.
type AuthData struct {
	UserID int64 `json:"userId" validate:"gt=0"`
}

// MessageData is the data of a TypeMessage frame.
type MessageData struct {
	ChatID  int64  `json:"chatId" validate:"gt=0"`
	Content string `json:"content" validate:"required"`
}

// NoticeData is the data of TypeAuthSuccess and TypeError frames.
type NoticeData struct {
	Message string `json:"message"`
}

// Request is a decoded inbound frame: *AuthRequest, *MessageRequest or *UnknownRequest.
type Request interface {
	frameType() FrameType
}

// AuthRequest asks to bind the connection to UserID. UserID is zero when the
// data was missing or malformed, which the relay treats as a failed authentication.
type AuthRequest struct {
	UserID int64
}

// MessageRequest carries the undecoded data of a TypeMessage frame. The data is only
// decoded through Payload, after the relay has checked the sender is authenticated.
type MessageRequest struct {
	data json.RawMessage
}

// UnknownRequest is any frame whose type the relay does not handle.
type UnknownRequest struct {
	Type FrameType
}

func (*AuthRequest) frameType() FrameType    { return TypeAuth }
func (*MessageRequest) frameType() FrameType { return TypeMessage }
func (r *UnknownRequest) frameType() FrameType {
	return r.Type
}

// ParseRequest decodes an inbound frame. Only an unparseable envelope is an error.
func ParseRequest(raw []byte) (Request, *errs.CustomError) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, errs.NewError(errs.ErrInvalidMessageData)
	}

	switch frame.Type {
	case TypeAuth:
		var data AuthData
		if err := json.Unmarshal(frame.Data, &data); err != nil || validate.Struct(data) != nil {
			return &AuthRequest{}, nil
		}
		return &AuthRequest{UserID: data.UserID}, nil

	case TypeMessage:
		return &MessageRequest{data: frame.Data}, nil

	default:
		return &UnknownRequest{Type: frame.Type}, nil
	}
}

// Payload decodes and validates the message data. Content that is blank once trimmed is
// invalid; otherwise it is returned as sent.
func (r *MessageRequest) Payload() (MessageData, *errs.CustomError) {
	var data MessageData
	if len(r.data) == 0 {
		return data, errs.NewError(errs.ErrInvalidMessageData)
	}

	if err := json.Unmarshal(r.data, &data); err != nil {
		return MessageData{}, errs.NewError(errs.ErrInvalidMessageData)
	}

	if err := validate.Struct(data); err != nil || strings.TrimSpace(data.Content) == "" {
		return MessageData{}, errs.NewError(errs.ErrInvalidMessageData)
	}

	if len(data.Content) > MaxContentBytes {
		return MessageData{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	return data, nil
}

// EncodeFrame marshals a frame of type t with data. HTML characters are written as is.
func EncodeFrame(t FrameType, data any) ([]byte, error) {
	raw, err := marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", t, err)
	}

	out, err := marshal(Frame{Type: t, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", t, err)
	}

	return out, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeData unmarshals the data of f into dst.
func (f Frame) DecodeData(dst any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s frame has no data", f.Type)
	}
	return json.Unmarshal(f.Data, dst)
}
