package chat

import (
	"context"

	"marketchat/internal/app/user"
)

//go:generate go run go.uber.org/mock/mockgen -source=gateway.go -destination=../../mocks/mock_gateway.go -package=mocks

// Gateway is the persistence the relay needs. Lookups return ErrNotFound for absent records.
type Gateway interface {
	FindUserByID(ctx context.Context, id int64) (user.User, error)
	FindChatByID(ctx context.Context, id int64) (Chat, error)

	// CreateMessage stores msg and assigns its ID and CreatedAt. CreatedAt must be
	// strictly increasing within a chat.
	CreateMessage(ctx context.Context, msg NewMessage) (Message, error)
}
