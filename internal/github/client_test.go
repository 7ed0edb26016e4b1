package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
	"github.com/novellus/pixel-dungeon-network/internal/ratelimit"
	"github.com/novellus/pixel-dungeon-network/internal/store"
)

type fakeAPI struct {
	server *httptest.Server
	hits   atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/watabou/pixel-dungeon", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		assert.Equal(t, AcceptHeader, r.Header.Get("Accept"))
		w.Header().Set("X-RateLimit-Remaining", "59")
		w.Header().Set("X-RateLimit-Reset", "4102444800")
		fmt.Fprintf(w, `{"owner":{"login":"watabou"},"name":"pixel-dungeon","full_name":"watabou/pixel-dungeon",`+
			`"forks_count":3,"forks_url":"%s/repos/watabou/pixel-dungeon/forks","watchers_count":4000}`, f.server.URL)
	})
	mux.HandleFunc("/repos/watabou/pixel-dungeon/forks", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"owner":{"login":"c"},"name":"three","forks_count":0}]`)
			return
		}
		next := f.server.URL + "/repos/watabou/pixel-dungeon/forks?page=2&per_page=100"
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
		fmt.Fprint(w, `[{"owner":{"login":"a"},"name":"one","forks_count":0},{"owner":{"login":"b"},"name":"two","forks_count":1}]`)
	})
	mux.HandleFunc("/repos/missing/repo", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func openCache(t *testing.T, path string) *store.Cache {
	t.Helper()
	c, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetRepositoryAndForks(t *testing.T) {
	api := newFakeAPI(t)
	client := NewClient(Options{
		BaseURL: api.server.URL,
		Cache:   openCache(t, filepath.Join(t.TempDir(), "api.db")),
		Limiter: ratelimit.New(ratelimit.Policy{}),
	})
	ctx := context.Background()

	repo, err := client.GetRepository(ctx, forktree.Key{Owner: "watabou", Name: "pixel-dungeon"})
	require.NoError(t, err)
	assert.Equal(t, "watabou/pixel-dungeon", repo.FullName)
	assert.Equal(t, 3, repo.ForksCount)
	assert.Equal(t, 4000, repo.WatchersCount)
	assert.Equal(t, 59, client.GetRateLimit().Remaining)

	forks, err := client.ListForks(ctx, repo.ForksURL)
	require.NoError(t, err)
	require.Len(t, forks, 3)
	assert.Equal(t, forktree.Key{Owner: "a", Name: "one"}, forks[0].Key())
	assert.Equal(t, forktree.Key{Owner: "c", Name: "three"}, forks[2].Key())
	assert.Equal(t, 1, forks[1].ForksCount)

	assert.Equal(t, int32(3), api.hits.Load())
	assert.Equal(t, 3, client.Fetched())
}

func TestCachedPagesSkipTheNetwork(t *testing.T) {
	api := newFakeAPI(t)
	cachePath := filepath.Join(t.TempDir(), "api.db")
	ctx := context.Background()
	key := forktree.Key{Owner: "watabou", Name: "pixel-dungeon"}

	first := NewClient(Options{BaseURL: api.server.URL, Cache: openCache(t, cachePath)})
	repo, err := first.GetRepository(ctx, key)
	require.NoError(t, err)
	_, err = first.ListForks(ctx, repo.ForksURL)
	require.NoError(t, err)
	require.Equal(t, int32(3), api.hits.Load())

	second := NewClient(Options{BaseURL: api.server.URL, Cache: first.cache})
	repo, err = second.GetRepository(ctx, key)
	require.NoError(t, err)
	forks, err := second.ListForks(ctx, repo.ForksURL)
	require.NoError(t, err)

	assert.Len(t, forks, 3)
	assert.Equal(t, int32(3), api.hits.Load())
	assert.Zero(t, second.Fetched())
}

func TestNonOKStatusFailsFast(t *testing.T) {
	api := newFakeAPI(t)
	client := NewClient(Options{BaseURL: api.server.URL})

	_, err := client.GetRepository(context.Background(), forktree.Key{Owner: "missing", Name: "repo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNextLink(t *testing.T) {
	assert.Equal(t, "https://x/forks?page=2",
		nextLink(`<https://x/forks?page=2>; rel="next", <https://x/forks?page=9>; rel="last"`))
	assert.Equal(t, "https://x/forks?page=3",
		nextLink(`<https://x/forks?page=1>; rel="prev", <https://x/forks?page=3>; rel="next"`))
	assert.Empty(t, nextLink(`<https://x/forks?page=1>; rel="prev"`))
	assert.Empty(t, nextLink(""))
}

func TestWithPageSize(t *testing.T) {
	assert.Equal(t, "https://x/forks?per_page=100", withPageSize("https://x/forks"))
	assert.Equal(t, "https://x/forks?per_page=30", withPageSize("https://x/forks?per_page=30"))
}
