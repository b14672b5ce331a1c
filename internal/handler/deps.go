package handler

import (
	"context"

	"marketchat/internal/app/chat"
	"marketchat/internal/app/product"
	"marketchat/internal/configs"
)

// ChatStore is the persistence used by the chat API: the relay's gateway plus chat
// lookup and creation. db.Store and db.MemoryStore implement it.
type ChatStore interface {
	chat.Gateway

	FindProductByID(ctx context.Context, id int64) (product.Product, error)
	FindOrCreateChat(ctx context.Context, key chat.Key) (chat.Chat, bool, error)
	ListChatsByUser(ctx context.Context, userID int64) ([]chat.Chat, error)
	ListMessages(ctx context.Context, chatID int64) ([]chat.Message, error)
}

type AppDeps struct {
	Relay  *chat.Relay
	Config *configs.AppConfig
	Store  ChatStore
}
