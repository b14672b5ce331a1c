package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketchat/internal/app/chat"
	"marketchat/internal/app/product"
	"marketchat/internal/app/user"
)

// Store is the PostgreSQL implementation of the chat gateway and the chat API store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a migrated pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const chatColumns = `id, product_id, seller_id, collector_id, created_at, last_message_at`

func scanChat(row pgx.Row) (chat.Chat, error) {
	var c chat.Chat
	err := row.Scan(&c.ID, &c.ProductID, &c.SellerID, &c.CollectorID, &c.CreatedAt, &c.LastMessageAt)
	return c, err
}

// FindUserByID implements chat.Gateway.
func (s *Store) FindUserByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, full_name, user_type, avatar FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.FullName, &u.UserType, &u.Avatar)
	if err != nil {
		return user.User{}, fmt.Errorf("find user %d: %w", id, notFound(err))
	}

	return u, nil
}

// FindChatByID implements chat.Gateway.
func (s *Store) FindChatByID(ctx context.Context, id int64) (chat.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id))
	if err != nil {
		return chat.Chat{}, fmt.Errorf("find chat %d: %w", id, notFound(err))
	}

	return c, nil
}

// CreateMessage implements chat.Gateway. The UPDATE locks the chat row for the rest of the
// transaction, so inserts into one chat get strictly increasing timestamps.
func (s *Store) CreateMessage(ctx context.Context, msg chat.NewMessage) (chat.Message, error) {
	var out chat.Message

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var createdAt time.Time

		err := tx.QueryRow(ctx,
			`UPDATE chats
			    SET last_message_at = GREATEST(clock_timestamp(), COALESCE(last_message_at, '-infinity') + interval '1 microsecond')
			  WHERE id = $1
			RETURNING last_message_at`, msg.ChatID,
		).Scan(&createdAt)
		if err != nil {
			return notFound(err)
		}

		out = chat.Message{
			ChatID:    msg.ChatID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			CreatedAt: createdAt,
		}

		return tx.QueryRow(ctx,
			`INSERT INTO messages (chat_id, sender_id, content, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			msg.ChatID, msg.SenderID, msg.Content, createdAt,
		).Scan(&out.ID)
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("create message in chat %d: %w", msg.ChatID, err)
	}

	return out, nil
}

// FindProductByID returns the product or chat.ErrNotFound.
func (s *Store) FindProductByID(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, price_cents, seller_id, sold FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.PriceCents, &p.SellerID, &p.Sold)
	if err != nil {
		return product.Product{}, fmt.Errorf("find product %d: %w", id, notFound(err))
	}

	return p, nil
}

// FindOrCreateChat returns the chat for key, creating it if needed. created reports
// whether this call inserted it. A concurrent insert of the same key is resolved by
// re-reading the winner's row.
func (s *Store) FindOrCreateChat(ctx context.Context, key chat.Key) (chat.Chat, bool, error) {
	existing, err := s.findChatByKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, chat.ErrNotFound) {
		return chat.Chat{}, false, err
	}

	created, err := scanChat(s.pool.QueryRow(ctx,
		`INSERT INTO chats (product_id, seller_id, collector_id) VALUES ($1, $2, $3) RETURNING `+chatColumns,
		key.ProductID, key.SellerID, key.CollectorID,
	))
	if err == nil {
		return created, true, nil
	}

	if IsUniqueViolation(err) {
		existing, err = s.findChatByKey(ctx, key)
		if err != nil {
			return chat.Chat{}, false, err
		}
		return existing, false, nil
	}

	return chat.Chat{}, false, fmt.Errorf("create chat: %w", err)
}

func (s *Store) findChatByKey(ctx context.Context, key chat.Key) (chat.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE product_id = $1 AND seller_id = $2 AND collector_id = $3`,
		key.ProductID, key.SellerID, key.CollectorID,
	))
	if err != nil {
		return chat.Chat{}, fmt.Errorf("find chat by key: %w", notFound(err))
	}

	return c, nil
}

// ListChatsByUser returns the chats userID takes part in, newest first.
func (s *Store) ListChatsByUser(ctx context.Context, userID int64) ([]chat.Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+chatColumns+` FROM chats
		  WHERE seller_id = $1 OR collector_id = $1
		  ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats for user %d: %w", userID, err)
	}

	chats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Chat, error) {
		return scanChat(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan chats for user %d: %w", userID, err)
	}

	return chats, nil
}

// ListMessages returns the messages of chatID in ascending createdAt order.
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, sender_id, content, created_at FROM messages
		  WHERE chat_id = $1
		  ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages for chat %d: %w", chatID, err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Message, error) {
		var m chat.Message
		err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages for chat %d: %w", chatID, err)
	}

	return messages, nil
}
