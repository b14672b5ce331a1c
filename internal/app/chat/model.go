package chat

import (
	"errors"
	"time"
)

// ErrNotFound is returned by a Gateway when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Chat is the conversation between one seller and one collector about one product.
// There is at most one Chat per Key.
type Chat struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"productId"`
	SellerID      int64      `json:"sellerId"`
	CollectorID   int64      `json:"collectorId"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// Key identifies a chat by its (product, seller, collector) triple.
type Key struct {
	ProductID   int64
	SellerID    int64
	CollectorID int64
}

// Key returns the identifying triple of c.
func (c Chat) Key() Key {
	return Key{ProductID: c.ProductID, SellerID: c.SellerID, CollectorID: c.CollectorID}
}

// Participants returns the seller and the collector, in that order.
func (c Chat) Participants() []int64 {
	return []int64{c.SellerID, c.CollectorID}
}

// HasParticipant reports whether userID is the chat's seller or collector.
func (c Chat) HasParticipant(userID int64) bool {
	return userID == c.SellerID || userID == c.CollectorID
}

// Message is a persisted chat message. CreatedAt is assigned by the gateway and
// is the ordering key within a chat.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chatId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage is a message accepted by the relay and not yet persisted.
type NewMessage struct {
	ChatID   int64
	SenderID int64
	Content  string
}
