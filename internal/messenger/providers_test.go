package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEmailClient_SendsAuthorizedJSON(t *testing.T) {
	var got emailRequest
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPEmailClient(srv.URL, "key123", "noreply@mirae-imaging.example")
	err := client.SendEmail(context.Background(), "admin@mirae-imaging.example", "제목", "본문")
	require.NoError(t, err)

	assert.Equal(t, "Bearer key123", authHeader)
	assert.Equal(t, "noreply@mirae-imaging.example", got.From)
	assert.Equal(t, "admin@mirae-imaging.example", got.To)
	assert.Equal(t, "제목", got.Subject)
}

func TestHTTPSMSClient_ReportsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPSMSClient(srv.URL, "key123", "0212345678")
	err := client.SendSMS(context.Background(), "010-1111-2222", "본문")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
