package filebatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gamemon/internal/eventbus"
)

func batchServer(t *testing.T, wantKeys []string, idx string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json;charset=utf-8", r.Header.Get("Content-Type"))

		var keys []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&keys))
		require.Equal(t, wantKeys, keys)

		json.NewEncoder(w).Encode(map[string]string{"idx": idx})
	}))
}

func TestDownloadPartialSelection(t *testing.T) {
	t.Parallel()
	srv := batchServer(t, []string{"session1/a.json"}, "/pkg-7.zip")
	defer srv.Close()

	svc := NewService(&eventbus.NullBus{})
	svc.SetFiles(listing(), 1)
	svc.Toggle("session1/a.json")

	d := NewDownloader(srv.URL)
	url, err := d.Download(context.Background(), svc)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/pkg-7.zip", url)
}

func TestDownloadFullSelectionCollapsesToWildcard(t *testing.T) {
	t.Parallel()
	srv := batchServer(t, []string{"*"}, "/all.zip")
	defer srv.Close()

	svc := NewService(&eventbus.NullBus{})
	svc.SetFiles(listing(), 1)
	svc.SelectAll()

	d := NewDownloader(srv.URL)
	url, err := d.Download(context.Background(), svc)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/all.zip", url)
}

func TestDownloadEmptySelectionFails(t *testing.T) {
	t.Parallel()
	svc := NewService(&eventbus.NullBus{})
	svc.SetFiles(listing(), 1)

	d := NewDownloader("http://unused.invalid")
	_, err := d.Download(context.Background(), svc)
	require.Error(t, err)
}

func TestDownloadServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(&eventbus.NullBus{})
	svc.SetFiles(listing(), 1)
	svc.SelectAll()

	d := NewDownloader(srv.URL)
	_, err := d.Download(context.Background(), svc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad response")
}

func TestDownloadKeysAndFetch(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var keys []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&keys))
		require.Equal(t, []string{"session1/a.json"}, keys)
		json.NewEncoder(w).Encode(map[string]string{"idx": "/view-1"})
	})
	mux.HandleFunc("/view-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"payoff": 12}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDownloader(srv.URL)
	url, err := d.DownloadKeys(context.Background(), []string{"session1/a.json"})
	require.NoError(t, err)

	content, err := d.Fetch(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, `{"payoff": 12}`, content)

	_, err = d.DownloadKeys(context.Background(), nil)
	require.Error(t, err)
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL)
	_, err := d.Fetch(context.Background(), srv.URL+"/gone.zip")
	require.Error(t, err)
}

func TestDownloadWithoutBaseURL(t *testing.T) {
	t.Parallel()
	svc := NewService(&eventbus.NullBus{})
	svc.SetFiles(listing(), 1)
	svc.SelectAll()

	d := NewDownloader("")
	_, err := d.Download(context.Background(), svc)
	require.Error(t, err)

	srv := batchServer(t, []string{"*"}, "/x.zip")
	defer srv.Close()
	d.SetBaseURL(srv.URL)
	url, err := d.Download(context.Background(), svc)
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/x.zip", url)
}
