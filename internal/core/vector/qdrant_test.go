package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leftovr/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQdrant(t *testing.T, handler http.HandlerFunc) *QdrantClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewQdrantClient(&config.VectorConfig{
		Enabled:    true,
		URL:        srv.URL,
		Collection: "recipes",
		Timeout:    5 * time.Second,
	})
}

func TestCollectionExists(t *testing.T) {
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/recipes/exists", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"exists": true},
		})
	})

	exists, err := client.CollectionExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSearch(t *testing.T) {
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/recipes/points/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Vector      []float32 `json:"vector"`
			Limit       int       `json:"limit"`
			WithPayload bool      `json:"with_payload"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 10, req.Limit)
		assert.False(t, req.WithPayload)
		assert.Len(t, req.Vector, 3)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": 7, "score": 0.91},
				{"id": 3, "score": 0.85},
			},
		})
	})

	hits, err := client.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 7, hits[0].ID)
	assert.Equal(t, 0.91, hits[0].Similarity)
}

func TestSearchBackendError(t *testing.T) {
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	})

	_, err := client.Search(context.Background(), []float32{1, 0, 0}, 10)
	assert.Error(t, err)
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	created := false
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/recipes/exists":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": map[string]interface{}{"exists": false},
			})
		case r.URL.Path == "/collections/recipes" && r.Method == http.MethodPut:
			var req struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 384, req.Vectors.Size)
			assert.Equal(t, "Cosine", req.Vectors.Distance)
			created = true
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, client.EnsureCollection(context.Background(), 384))
	assert.True(t, created)
}

func TestEnsureCollectionNoopWhenExists(t *testing.T) {
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/recipes/exists", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"exists": true},
		})
	})

	require.NoError(t, client.EnsureCollection(context.Background(), 384))
}

func TestUpsert(t *testing.T) {
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/recipes/points", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))

		var req struct {
			Points []Point `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Points, 2)
		assert.Equal(t, 0, req.Points[0].ID)

		json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
	})

	points := []Point{
		{ID: 0, Vector: []float32{1, 0, 0}},
		{ID: 1, Vector: []float32{0, 1, 0}},
	}
	require.NoError(t, client.Upsert(context.Background(), points))
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	client := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty upsert")
	})

	require.NoError(t, client.Upsert(context.Background(), nil))
}
