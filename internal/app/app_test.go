package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"studyrag/backend/internal/adapter/gemini"
	"studyrag/backend/internal/adapter/redisbus"
	wstore "studyrag/backend/internal/adapter/weaviate"
	"studyrag/backend/internal/config"
)

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wClient, err := weaviate.NewClient(weaviate.Config{
		Host:   server.URL[7:],
		Scheme: "http",
	})
	require.NoError(t, err)

	producer, err := nsq.NewProducer("localhost:4150", nsq.NewConfig())
	require.NoError(t, err)

	genaiClient, err := gemini.NewClient(context.Background(), "test-key")
	require.NoError(t, err)
	defer genaiClient.Close()

	bus := redisbus.NewBus(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))

	cfg := &config.Config{
		EmbeddingModel: "gemini-embedding-001",
		ChatModel:      "gemini-2.5-flash",
		JobMaxAttempts: 3,
		ServerPort:     8081,
		TesseractLang:  "eng",
	}

	application, err := New(cfg, db, genaiClient, wstore.NewStore(wClient), bus, producer)
	require.NoError(t, err)
	assert.NotNil(t, application.Handler)
	assert.NotNil(t, application.CourseService)
	assert.NotNil(t, application.EmbedConsumer)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNew_RoutesRegistered(t *testing.T) {
	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbmock.ExpectQuery("SELECT .* FROM courses").WillReturnRows(
		sqlmock.NewRows([]string{"id", "course_code", "course_title", "course_description", "created_at"}))

	wClient, err := weaviate.NewClient(weaviate.Config{Host: "localhost:8080", Scheme: "http"})
	require.NoError(t, err)

	producer, err := nsq.NewProducer("localhost:4150", nsq.NewConfig())
	require.NoError(t, err)

	genaiClient, err := gemini.NewClient(context.Background(), "test-key")
	require.NoError(t, err)
	defer genaiClient.Close()

	bus := redisbus.NewBus(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))

	cfg := &config.Config{JobMaxAttempts: 3, ServerPort: 8081}

	application, err := New(cfg, db, genaiClient, wstore.NewStore(wClient), bus, producer)
	require.NoError(t, err)

	// Unknown route 404s, registered route reaches the handler.
	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	application.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
