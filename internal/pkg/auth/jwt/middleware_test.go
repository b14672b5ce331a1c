package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(&Payload{UserID: 2, UserType: "collector"}, testSecret, time.Minute)
	req.NoError(err)

	payload, err := ParseToken(token, testSecret)
	req.NoError(err)
	req.Equal(int64(2), payload.UserID)
	req.Equal("collector", payload.UserType)
	req.Equal(TokenIssuer, payload.Issuer)

	_, err = ParseToken(token, "other-secret")
	req.Error(err)
}

func TestParseToken_RejectsExpired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(&Payload{UserID: 2}, testSecret, -time.Minute)
	req.NoError(err)

	_, err = ParseToken(token, testSecret)
	req.Error(err)
}

func TestIdentityMiddleware(t *testing.T) {
	handler := IdentityExtractorMiddleware(testSecret)(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := GetPayloadFromContext(r)
		require.NotNil(t, payload)
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("anonymous request is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header is treated as anonymous", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
		r.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid bearer token passes", func(t *testing.T) {
		token, err := GenerateToken(&Payload{UserID: 1, UserType: "seller"}, testSecret, time.Minute)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
