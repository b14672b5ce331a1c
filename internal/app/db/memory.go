package db

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"marketchat/internal/app/chat"
	"marketchat/internal/app/product"
	"marketchat/internal/app/user"
)

// MemoryStore keeps users, products, chats and messages in process memory.
// It satisfies the same contracts as Store and is safe for concurrent use.
type MemoryStore struct {
	mu sync.Mutex

	users    map[int64]user.User
	products map[int64]product.Product
	chats    map[int64]chat.Chat
	byKey    map[chat.Key]int64
	messages map[int64][]chat.Message

	nextUserID    int64
	nextProductID int64
	nextChatID    int64
	nextMessageID int64

	now func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]user.User),
		products: make(map[int64]product.Product),
		chats:    make(map[int64]chat.Chat),
		byKey:    make(map[chat.Key]int64),
		messages: make(map[int64][]chat.Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddUser stores u, assigning an id when u.ID is zero.
func (m *MemoryStore) AddUser(u user.User) user.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == 0 {
		m.nextUserID++
		u.ID = m.nextUserID
	} else {
		m.nextUserID = max(m.nextUserID, u.ID)
	}

	m.users[u.ID] = u
	return u
}

// AddProduct stores p, assigning an id when p.ID is zero.
func (m *MemoryStore) AddProduct(p product.Product) product.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		m.nextProductID++
		p.ID = m.nextProductID
	} else {
		m.nextProductID = max(m.nextProductID, p.ID)
	}

	m.products[p.ID] = p
	return p
}

// SeedDemo fills the store with one seller, two collectors and a few products, for
// running the relay locally without a database.
func (m *MemoryStore) SeedDemo() {
	seller := m.AddUser(user.User{Username: "vintage_vault", FullName: "Vintage Vault", UserType: user.TypeSeller})
	m.AddUser(user.User{Username: "ada", FullName: "Ada Collector", UserType: user.TypeCollector})
	m.AddUser(user.User{Username: "grace", FullName: "Grace Collector", UserType: user.TypeCollector})

	m.AddProduct(product.Product{Title: "1962 Rolex Submariner", PriceCents: 1_250_000, SellerID: seller.ID})
	m.AddProduct(product.Product{Title: "Leica M3 rangefinder", PriceCents: 240_000, SellerID: seller.ID})
	m.AddProduct(product.Product{Title: "First edition Dune", PriceCents: 95_000, SellerID: seller.ID})
}

// FindUserByID implements chat.Gateway.
func (m *MemoryStore) FindUserByID(_ context.Context, id int64) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("find user %d: %w", id, chat.ErrNotFound)
	}
	return u, nil
}

// FindChatByID implements chat.Gateway.
func (m *MemoryStore) FindChatByID(_ context.Context, id int64) (chat.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return chat.Chat{}, fmt.Errorf("find chat %d: %w", id, chat.ErrNotFound)
	}
	return c, nil
}

// CreateMessage implements chat.Gateway. CreatedAt is bumped past the chat's previous
// message when the clock has not moved.
func (m *MemoryStore) CreateMessage(_ context.Context, msg chat.NewMessage) (chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[msg.ChatID]
	if !ok {
		return chat.Message{}, fmt.Errorf("create message in chat %d: %w", msg.ChatID, chat.ErrNotFound)
	}

	createdAt := m.now()
	if c.LastMessageAt != nil && !createdAt.After(*c.LastMessageAt) {
		createdAt = c.LastMessageAt.Add(time.Microsecond)
	}

	m.nextMessageID++
	stored := chat.Message{
		ID:        m.nextMessageID,
		ChatID:    msg.ChatID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: createdAt,
	}

	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], stored)
	c.LastMessageAt = &createdAt
	m.chats[c.ID] = c

	return stored, nil
}

// FindProductByID returns the product or chat.ErrNotFound.
func (m *MemoryStore) FindProductByID(_ context.Context, id int64) (product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return product.Product{}, fmt.Errorf("find product %d: %w", id, chat.ErrNotFound)
	}
	return p, nil
}

// FindOrCreateChat returns the chat for key, creating it if needed.
func (m *MemoryStore) FindOrCreateChat(_ context.Context, key chat.Key) (chat.Chat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[key]; ok {
		return m.chats[id], false, nil
	}

	m.nextChatID++
	c := chat.Chat{
		ID:          m.nextChatID,
		ProductID:   key.ProductID,
		SellerID:    key.SellerID,
		CollectorID: key.CollectorID,
		CreatedAt:   m.now(),
	}

	m.chats[c.ID] = c
	m.byKey[key] = c.ID

	return c, true, nil
}

// ListChatsByUser returns the chats userID takes part in, newest first.
func (m *MemoryStore) ListChatsByUser(_ context.Context, userID int64) ([]chat.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chats := lo.Filter(lo.Values(m.chats), func(c chat.Chat, _ int) bool {
		return c.HasParticipant(userID)
	})

	slices.SortFunc(chats, func(a, b chat.Chat) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	return chats, nil
}

// ListMessages returns the messages of chatID in ascending createdAt order.
func (m *MemoryStore) ListMessages(_ context.Context, chatID int64) ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]chat.Message{}, m.messages[chatID]...), nil
}
