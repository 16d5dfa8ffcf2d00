package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyrag/backend/features/course"
	"studyrag/backend/internal/adapter/gemini"
	"studyrag/backend/internal/adapter/redisbus"
	wstore "studyrag/backend/internal/adapter/weaviate"
	"studyrag/backend/internal/app"
	"studyrag/backend/internal/pipeline"
	"studyrag/backend/internal/testutils"
)

func TestApp_EndToEnd_CourseLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E integration test")
	}

	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	cfg := s.GetAppConfig()
	genaiClient, err := gemini.NewClient(context.Background(), "test-key")
	require.NoError(t, err)
	defer genaiClient.Close()

	bus := redisbus.NewBus(s.Redis)
	application, err := app.New(cfg, s.DB, genaiClient, wstore.NewStore(s.Weaviate), bus, s.NSQ)
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler)
	defer server.Close()

	// Create a course
	resp, err := http.Post(server.URL+"/courses", "application/json",
		strings.NewReader(`{"course_code":"BIO101","course_title":"Intro Biology","course_description":"Cells"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data course.Course `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.Data.ID)

	// Duplicate code is rejected
	resp, err = http.Post(server.URL+"/courses", "application/json",
		strings.NewReader(`{"course_code":"BIO101","course_title":"Again"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Register a document; it lands PENDING with a job id
	resp, err = http.Post(server.URL+"/courses/"+created.Data.ID+"/documents", "application/json",
		strings.NewReader(`{"documents":[{"file_url":"http://files.local/notes.pdf","file_name":"notes.pdf"}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var status, jobID string
	err = s.DB.QueryRow(`SELECT embedding_status, COALESCE(job_id, '') FROM course_docs WHERE course_id = $1`,
		created.Data.ID).Scan(&status, &jobID)
	require.NoError(t, err)
	assert.Equal(t, course.StatusPending, status)
	assert.NotEmpty(t, jobID)

	// Progress events published on Redis reach an SSE subscriber
	received := make(chan pipeline.EmbeddingUpdate, 1)
	cancel := bus.Subscribe(context.Background(), created.Data.ID, func(u pipeline.EmbeddingUpdate) {
		select {
		case received <- u:
		default:
		}
	})
	defer cancel()

	// Subscription is async; give the pubsub a moment to attach.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, bus.Emit(context.Background(), pipeline.EmbeddingUpdate{
		CourseID: created.Data.ID,
		DocID:    "d1",
		Status:   pipeline.StatusActive,
		Stage:    pipeline.StageEmbedding,
		Progress: 40,
	}))

	select {
	case update := <-received:
		assert.Equal(t, 40, update.Progress)
		assert.Equal(t, pipeline.StageEmbedding, update.Stage)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for embedding event")
	}

	// Delete tears the course down
	req, err := http.NewRequest(http.MethodDelete, server.URL+"/courses/"+created.Data.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	var count int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM courses`).Scan(&count))
	assert.Equal(t, 0, count)
}
