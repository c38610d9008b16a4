package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/configcat-cli/internal/models"
)

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingLogger) record(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, level+" "+message)
}

func (r *recordingLogger) LogTrace(message string) { r.record("TRACE", message) }
func (r *recordingLogger) LogDebug(message string) { r.record("DEBUG", message) }
func (r *recordingLogger) LogWarn(message string)  { r.record("WARN", message) }
func (r *recordingLogger) LogError(message string) { r.record("ERROR", message) }

func (r *recordingLogger) withLevel(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if strings.HasPrefix(m, level+" ") {
			out = append(out, m)
		}
	}
	return out
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingLogger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := &recordingLogger{}
	return NewClient(Options{
		Host:       server.URL,
		Username:   "user",
		Password:   "pass",
		Version:    "1.0.0",
		RetryDelay: time.Millisecond,
		Logger:     log,
	}), log
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"", "https://api.configcat.com/"},
		{"api.configcat.com", "https://api.configcat.com/"},
		{"http://localhost:8080/", "http://localhost:8080/"},
		{" test.configcat.com ", "https://test.configcat.com/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseURL(tt.host), "BaseURL(%q)", tt.host)
	}
}

func TestGetFlags(t *testing.T) {
	var requestID string
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/configs/cfg-1/settings", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)
		assert.Equal(t, "ConfigCat-CLI/1.0.0", r.Header.Get("User-Agent"))
		requestID = r.Header.Get("X-Request-ID")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"settingId": 1, "key": "my_flag", "name": "My flag", "settingType": "boolean",
			 "ownerUserFullName": "Jane", "tags": [{"tagId": 7, "name": "web", "color": "panther"}]},
			{"settingId": 2, "key": "limit", "name": "Limit", "settingType": "int", "tags": []}
		]`)
	})

	flags, err := client.GetFlags(context.Background(), "cfg-1")
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "my_flag", flags[0].Key)
	assert.Equal(t, "Jane", flags[0].OwnerName)
	assert.Equal(t, []models.Tag{{TagID: 7, Name: "web"}}, flags[0].Tags)
	assert.Equal(t, 2, flags[1].SettingID)

	_, err = uuid.Parse(requestID)
	assert.NoError(t, err)
	require.NotEmpty(t, log.messages)
	assert.Contains(t, log.messages[0], requestID)
	assert.Equal(t, []string{"TRACE GET v1/configs/cfg-1/settings -> 200 (request id " + requestID + ")"}, log.withLevel("TRACE"))
}

func TestGetProductsAndConfigs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/products":
			io.WriteString(w, `[{"productId": "p1", "name": "Web", "order": 0}]`)
		case "/v1/products/p1/configs":
			io.WriteString(w, `[{"configId": "c1", "name": "Main"}, {"configId": "c2", "name": "Mobile"}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	products, err := client.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Product{{ProductID: "p1", Name: "Web"}}, products)

	configs, err := client.GetConfigs(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []models.Config{{ConfigID: "c1", Name: "Main"}, {ConfigID: "c2", Name: "Mobile"}}, configs)
}

func TestGetDeletedFlags(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/configs/cfg-1/deleted-settings", r.URL.Path)
		io.WriteString(w, `[{"settingId": 9, "key": "old_flag", "name": "Old"}]`)
	})

	flags, err := client.GetDeletedFlags(context.Background(), "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, []models.DeletedFlag{{SettingID: 9, Key: "old_flag", Name: "Old"}}, flags)
}

func TestUploadCodeReferences(t *testing.T) {
	var got models.CodeReferenceRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/code-references", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	req := &models.CodeReferenceRequest{
		FlagReferences: []models.FlagReference{{
			SettingID: 1,
			References: []models.ReferenceLines{{
				File:          "src/app.py",
				PreLines:      []models.Line{},
				ReferenceLine: models.Line{Number: 3, Text: "my_flag"},
				PostLines:     []models.Line{},
			}},
		}},
		Repository: "repo",
		Branch:     "main",
		ConfigID:   "cfg-1",
		Uploader:   "ConfigCat CLI 1.0.0",
	}
	require.NoError(t, client.UploadCodeReferences(context.Background(), req))
	assert.Equal(t, *req, got)
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		unauthorized bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"not found", http.StatusNotFound, false},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				io.WriteString(w, "nope\n")
			})

			_, err := client.GetFlags(context.Background(), "cfg-1")
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "nope", statusErr.Body)
			assert.Equal(t, tt.unauthorized, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
		})
	}
}

func TestRetries(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		var calls atomic.Int32
		client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1:
				w.WriteHeader(http.StatusServiceUnavailable)
			case 2:
				w.WriteHeader(http.StatusTooManyRequests)
			default:
				io.WriteString(w, `[]`)
			}
		})

		flags, err := client.GetDeletedFlags(context.Background(), "cfg-1")
		require.NoError(t, err)
		assert.Empty(t, flags)
		assert.Equal(t, int32(3), calls.Load())
		assert.Len(t, log.withLevel("WARN"), 2)
		assert.Empty(t, log.withLevel("ERROR"))
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		var calls atomic.Int32
		client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		})

		err := client.UploadCodeReferences(context.Background(), &models.CodeReferenceRequest{})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		assert.Equal(t, int32(maxAttempts), calls.Load())
		assert.Len(t, log.withLevel("WARN"), maxAttempts-1)
		assert.Equal(t, []string{"ERROR POST v1/code-references failed after 3 attempts"}, log.withLevel("ERROR"))
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cancel()
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(Options{Host: server.URL, RetryDelay: time.Hour})
		_, err := client.GetFlags(ctx, "cfg-1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{not json`)
	})

	_, err := client.GetFlags(context.Background(), "cfg-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}
