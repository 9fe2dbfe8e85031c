package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestNew_RequiresLogger(t *testing.T) {
	n, err := New(Config{Token: "t", ChatID: "c"})
	assert.Error(t, err)
	assert.Nil(t, n)
}

func TestNew_DisabledWhenUnconfigured(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		chatID string
	}{
		{name: "no token", token: "", chatID: "123"},
		{name: "no chat id", token: "abc", chatID: ""},
		{name: "neither", token: "", chatID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			n, err := New(Config{Token: tt.token, ChatID: tt.chatID, Logger: logger})
			require.NoError(t, err)
			assert.False(t, n.Enabled())
			assert.NotEmpty(t, logger.warnings)

			// Notify on a disabled notifier is a silent no-op.
			n.Notify(context.Background(), "hello")
		})
	}
}

func TestNotify_SendsMessage(t *testing.T) {
	var gotPath, gotChatID, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := New(Config{Token: "test-token", ChatID: "42", Logger: &mockLogger{}, BaseURL: server.URL})
	require.NoError(t, err)
	require.True(t, n.Enabled())

	n.Notify(context.Background(), "🤖 Bot started for BTCUSDT")

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "42", gotChatID)
	assert.Equal(t, "🤖 Bot started for BTCUSDT", gotText)
}

func TestNotify_SwallowsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	logger := &mockLogger{}
	n, err := New(Config{Token: "t", ChatID: "c", Logger: logger, BaseURL: server.URL})
	require.NoError(t, err)

	// Must not panic or propagate anything; only a warning is logged.
	n.Notify(context.Background(), "oops")
	assert.NotEmpty(t, logger.warnings)
}

func TestNotify_SwallowsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Connection refused from here on.

	logger := &mockLogger{}
	n, err := New(Config{Token: "t", ChatID: "c", Logger: logger, BaseURL: server.URL})
	require.NoError(t, err)

	n.Notify(context.Background(), "unreachable")
	assert.NotEmpty(t, logger.warnings)
}
