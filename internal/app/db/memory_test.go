package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketchat/internal/app/chat"
	"marketchat/internal/app/product"
	"marketchat/internal/app/user"
)

func seededStore(t *testing.T) (*MemoryStore, user.User, user.User, product.Product) {
	t.Helper()

	store := NewMemoryStore()
	seller := store.AddUser(user.User{Username: "s", UserType: user.TypeSeller})
	collector := store.AddUser(user.User{Username: "c", UserType: user.TypeCollector})
	item := store.AddProduct(product.Product{Title: "Camera", PriceCents: 1000, SellerID: seller.ID})

	return store, seller, collector, item
}

func TestMemoryStore_LookupsReturnNotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindUserByID(ctx, 1)
	req.ErrorIs(err, chat.ErrNotFound)

	_, err = store.FindChatByID(ctx, 1)
	req.ErrorIs(err, chat.ErrNotFound)

	_, err = store.FindProductByID(ctx, 1)
	req.ErrorIs(err, chat.ErrNotFound)

	_, err = store.CreateMessage(ctx, chat.NewMessage{ChatID: 1, SenderID: 1, Content: "x"})
	req.ErrorIs(err, chat.ErrNotFound)
}

func TestMemoryStore_FindOrCreateChatIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, seller, collector, item := seededStore(t)
	key := chat.Key{ProductID: item.ID, SellerID: seller.ID, CollectorID: collector.ID}

	first, created, err := store.FindOrCreateChat(ctx, key)
	req.NoError(err)
	req.True(created)

	second, created, err := store.FindOrCreateChat(ctx, key)
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)

	chats, err := store.ListChatsByUser(ctx, collector.ID)
	req.NoError(err)
	req.Len(chats, 1)
}

func TestMemoryStore_FindOrCreateChatConcurrent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, seller, collector, item := seededStore(t)
	key := chat.Key{ProductID: item.ID, SellerID: seller.ID, CollectorID: collector.ID}

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _, err := store.FindOrCreateChat(ctx, key)
			req.NoError(err)
			ids[i] = c.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		req.Equal(ids[0], id)
	}
}

func TestMemoryStore_MessagesAreOrderedPerChat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, seller, collector, item := seededStore(t)

	// Given a frozen clock so every message would get the same timestamp
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	c, _, err := store.FindOrCreateChat(ctx, chat.Key{ProductID: item.ID, SellerID: seller.ID, CollectorID: collector.ID})
	req.NoError(err)

	// When three messages are created
	for _, content := range []string{"one", "two", "three"} {
		_, err := store.CreateMessage(ctx, chat.NewMessage{ChatID: c.ID, SenderID: collector.ID, Content: content})
		req.NoError(err)
	}

	// Then their timestamps still strictly increase
	messages, err := store.ListMessages(ctx, c.ID)
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal([]string{"one", "two", "three"}, []string{messages[0].Content, messages[1].Content, messages[2].Content})
	req.True(messages[1].CreatedAt.After(messages[0].CreatedAt))
	req.True(messages[2].CreatedAt.After(messages[1].CreatedAt))

	updated, err := store.FindChatByID(ctx, c.ID)
	req.NoError(err)
	req.NotNil(updated.LastMessageAt)
	req.Equal(messages[2].CreatedAt, *updated.LastMessageAt)
}

func TestMemoryStore_ListChatsNewestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, seller, collector, item := seededStore(t)
	other := store.AddProduct(product.Product{Title: "Lens", SellerID: seller.ID})

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	older, _, err := store.FindOrCreateChat(ctx, chat.Key{ProductID: item.ID, SellerID: seller.ID, CollectorID: collector.ID})
	req.NoError(err)
	newer, _, err := store.FindOrCreateChat(ctx, chat.Key{ProductID: other.ID, SellerID: seller.ID, CollectorID: collector.ID})
	req.NoError(err)

	chats, err := store.ListChatsByUser(ctx, seller.ID)
	req.NoError(err)
	req.Equal([]int64{newer.ID, older.ID}, []int64{chats[0].ID, chats[1].ID})

	none, err := store.ListChatsByUser(ctx, 999)
	req.NoError(err)
	req.Empty(none)
}

func TestMemoryStore_SeedDemo(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore()

	store.SeedDemo()

	seller, err := store.FindUserByID(ctx, 1)
	req.NoError(err)
	req.True(seller.IsSeller())

	collector, err := store.FindUserByID(ctx, 2)
	req.NoError(err)
	req.True(collector.IsCollector())

	item, err := store.FindProductByID(ctx, 1)
	req.NoError(err)
	req.True(item.SoldBy(seller.ID))
}
