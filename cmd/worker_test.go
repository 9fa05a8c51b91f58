package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brieflyhq/briefly/pkg/digest/queues"
)

type healthResponse struct {
	Status string `json:"status"`
	Queue  struct {
		Name  string `json:"name"`
		Depth int64  `json:"depth"`
		Error string `json:"error"`
	} `json:"queue"`
	Database *struct {
		Healthy bool   `json:"healthy"`
		Error   string `json:"error"`
	} `json:"database"`
}

func getHealth(t *testing.T, pool *pgxpool.Pool, queue queues.Queue) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	healthHandler(pool, queue).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthHandlerQueueOnly(t *testing.T) {
	queue := queues.NewMemoryQueue("digest", 4, queues.DefaultRetryPolicy())
	ctx := context.Background()
	require.NoError(t, queue.Enqueue(ctx, &queues.BatchMessage{BatchID: "b1"}))
	require.NoError(t, queue.Enqueue(ctx, &queues.BatchMessage{BatchID: "b2"}))

	code, resp := getHealth(t, nil, queue)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "digest", resp.Queue.Name)
	assert.Equal(t, int64(2), resp.Queue.Depth)
	assert.Nil(t, resp.Database, "no database section without a pool")
}

type brokenQueue struct {
	*queues.MemoryQueue
}

func (q *brokenQueue) Depth(ctx context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestHealthHandlerQueueFailure(t *testing.T) {
	queue := &brokenQueue{queues.NewMemoryQueue("digest", 4, queues.DefaultRetryPolicy())}

	code, resp := getHealth(t, nil, queue)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Contains(t, resp.Queue.Error, "connection refused")
}

func TestHealthHandlerDatabaseUnreachable(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://briefly@127.0.0.1:1/briefly")
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	queue := queues.NewMemoryQueue("digest", 4, queues.DefaultRetryPolicy())
	code, resp := getHealth(t, pool, queue)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	require.NotNil(t, resp.Database)
	assert.False(t, resp.Database.Healthy)
	assert.NotEmpty(t, resp.Database.Error)
}
