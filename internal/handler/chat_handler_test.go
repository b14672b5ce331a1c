package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketchat/internal/app/chat"
	"marketchat/internal/app/db"
	"marketchat/internal/app/product"
	"marketchat/internal/app/user"
	"marketchat/internal/configs"
	"marketchat/internal/pkg/auth/jwt"
	"marketchat/internal/pkg/errs"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	handler   http.Handler
	store     *db.MemoryStore
	seller    user.User
	collector user.User
	outsider  user.User
	item      product.Product

	// requests spreads calls over client IPs so the create limiter stays out of the way.
	requests int
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:       configs.EnvDevelopment,
		JWTSecret:         testSecret,
		HeartbeatInterval: time.Hour,
		WriteWait:         time.Second,
		MaxFrameBytes:     8192,
		SendQueueSize:     16,
	}

	store := db.NewMemoryStore()
	seller := store.AddUser(user.User{Username: "seller", UserType: user.TypeSeller})
	collector := store.AddUser(user.User{Username: "collector", UserType: user.TypeCollector})
	outsider := store.AddUser(user.User{Username: "outsider", UserType: user.TypeCollector})
	item := store.AddProduct(product.Product{Title: "Camera", PriceCents: 1000, SellerID: seller.ID})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deps := &AppDeps{
		Relay:  chat.NewRelay(cfg, store, chat.NewRegistry()),
		Config: cfg,
		Store:  store,
	}

	return &apiFixture{
		handler:   Router(ctx, deps),
		store:     store,
		seller:    seller,
		collector: collector,
		outsider:  outsider,
		item:      item,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, as *user.User, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	f.requests++
	r.RemoteAddr = fmt.Sprintf("203.0.113.%d:5555", f.requests%250+1)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		token, err := jwt.GenerateToken(&jwt.Payload{UserID: as.ID, UserType: as.UserType}, testSecret, time.Minute)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return rec.Code, env
}

func (f *apiFixture) createBody() CreateChatInput {
	return CreateChatInput{ProductID: f.item.ID, SellerID: f.seller.ID, CollectorID: f.collector.ID}
}

func TestCreateChat_ReturnsExistingChatOnRepeat(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	status, env := f.do(t, http.MethodPost, "/api/chats", &f.collector, f.createBody())
	req.Equal(http.StatusCreated, status)

	var created chat.Chat
	req.NoError(json.Unmarshal(env.Data, &created))
	req.Equal(f.item.ID, created.ProductID)

	status, env = f.do(t, http.MethodPost, "/api/chats", &f.collector, f.createBody())
	req.Equal(http.StatusOK, status)

	var again chat.Chat
	req.NoError(json.Unmarshal(env.Data, &again))
	req.Equal(created.ID, again.ID)
}

func TestCreateChat_Rejections(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name       string
		as         *user.User
		body       CreateChatInput
		wantStatus int
		wantCode   int
	}{
		{"anonymous", nil, f.createBody(), http.StatusUnauthorized, errs.ErrUnauthorized},
		{"seller initiates", &f.seller, CreateChatInput{ProductID: f.item.ID, SellerID: f.seller.ID, CollectorID: f.seller.ID}, http.StatusForbidden, errs.ErrOnlyCollectorCanInitiate},
		{"on behalf of another collector", &f.outsider, f.createBody(), http.StatusForbidden, errs.ErrOnlyCollectorCanInitiate},
		{"missing product", &f.collector, CreateChatInput{ProductID: 999, SellerID: f.seller.ID, CollectorID: f.collector.ID}, http.StatusNotFound, errs.ErrProductNotFound},
		{"missing seller", &f.collector, CreateChatInput{ProductID: f.item.ID, SellerID: 999, CollectorID: f.collector.ID}, http.StatusNotFound, errs.ErrSellerNotFound},
		{"invalid body", &f.collector, CreateChatInput{}, http.StatusBadRequest, errs.ErrInvalidParams},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := f.do(t, http.MethodPost, "/api/chats", tc.as, tc.body)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantCode, env.Code)
		})
	}
}

func TestChatReads_ParticipantOnly(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	ctx := context.Background()

	c, _, err := f.store.FindOrCreateChat(ctx, chat.Key{ProductID: f.item.ID, SellerID: f.seller.ID, CollectorID: f.collector.ID})
	req.NoError(err)
	_, err = f.store.CreateMessage(ctx, chat.NewMessage{ChatID: c.ID, SenderID: f.collector.ID, Content: "first"})
	req.NoError(err)
	_, err = f.store.CreateMessage(ctx, chat.NewMessage{ChatID: c.ID, SenderID: f.seller.ID, Content: "second"})
	req.NoError(err)

	// Participants can read the chat and its history, oldest first
	status, env := f.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d", c.ID), &f.seller, nil)
	req.Equal(http.StatusOK, status)

	status, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/messages", c.ID), &f.collector, nil)
	req.Equal(http.StatusOK, status)

	var messages []chat.Message
	req.NoError(json.Unmarshal(env.Data, &messages))
	req.Len(messages, 2)
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)

	// An outsider gets the same answer as for a chat that does not exist
	status, outsiderEnv := f.do(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/messages", c.ID), &f.outsider, nil)
	req.Equal(http.StatusNotFound, status)

	status, missingEnv := f.do(t, http.MethodGet, "/api/chats/424242", &f.collector, nil)
	req.Equal(http.StatusNotFound, status)
	req.Equal(missingEnv.Code, outsiderEnv.Code)
	req.Equal(missingEnv.Message, outsiderEnv.Message)

	status, env = f.do(t, http.MethodGet, "/api/chats/abc", &f.collector, nil)
	req.Equal(http.StatusBadRequest, status)
	req.Equal(errs.ErrInvalidParams, env.Code)
}

func TestListChats(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/chats", &f.collector, nil)
	req.Equal(http.StatusOK, status)
	req.JSONEq(`[]`, string(env.Data))

	status, _ = f.do(t, http.MethodPost, "/api/chats", &f.collector, f.createBody())
	req.Equal(http.StatusCreated, status)

	for _, u := range []*user.User{&f.collector, &f.seller} {
		_, env = f.do(t, http.MethodGet, "/api/chats", u, nil)

		var chats []chat.Chat
		req.NoError(json.Unmarshal(env.Data, &chats))
		req.Len(chats, 1)
	}

	_, env = f.do(t, http.MethodGet, "/api/chats", &f.outsider, nil)
	req.JSONEq(`[]`, string(env.Data))
}

func TestHealth(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	status, env := f.do(t, http.MethodGet, "/health", nil, nil)
	req.Equal(http.StatusOK, status)
	req.Equal(0, env.Code)
	req.Contains(string(env.Data), `"status":"ok"`)
}
