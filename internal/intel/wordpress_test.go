package intel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postsJSON = `[
 {"id": 7, "date": "2025-09-02T10:30:00", "link": "https://sunstate.example/blog/cushion",
  "title": {"rendered": "Cushioned courts &#8211; now in Mesa"},
  "content": {"rendered": "<p>We installed <b>six</b> cushioned courts.</p>"},
  "excerpt": {"rendered": "<p>Six cushioned courts in Mesa.</p>"}},
 {"id": 8, "date": "bad", "link": "https://sunstate.example/blog/hiring",
  "title": {"rendered": "We are hiring"},
  "content": {"rendered": "<p>Crew leads wanted.</p>"},
  "excerpt": {"rendered": ""}},
 {"id": 9, "date": "2025-08-01T00:00:00", "link": "",
  "title": {"rendered": "Draft without a link"},
  "content": {"rendered": ""}, "excerpt": {"rendered": ""}}
]`

func newWordPressSite(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, postsJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func wordPressSource(baseURL string) Source {
	return Source{ID: "sunstate-blog", Kind: KindWordPress, CompetitorID: "comp2", Competitor: "Sunstate Courts", BaseURL: baseURL}
}

func TestCrawlWordPress(t *testing.T) {
	srv, hits := newWordPressSite(t, http.StatusOK)

	articles, err := testCrawler(t).Crawl(context.Background(), wordPressSource(srv.URL))
	require.NoError(t, err)
	require.Len(t, articles, 2, "posts without a link are skipped")
	assert.Equal(t, int32(1), hits.Load(), "a short page ends pagination")

	first := articles[0]
	assert.Equal(t, "Cushioned courts – now in Mesa", first.Headline)
	assert.Equal(t, "Six cushioned courts in Mesa.", first.Summary)
	assert.Equal(t, "We installed six cushioned courts.", first.Body)
	assert.Equal(t, "comp2", first.CompetitorID)
	require.NotNil(t, first.Date)
	assert.Equal(t, "2025-09-02", first.Date.Format("2006-01-02"))

	second := articles[1]
	assert.Nil(t, second.Date)
	assert.Equal(t, "Crew leads wanted.", second.Summary, "summary falls back to the body")
}

func TestCrawlWordPress_MaxArticles(t *testing.T) {
	srv, _ := newWordPressSite(t, http.StatusOK)
	src := wordPressSource(srv.URL)
	src.MaxArticles = 1

	articles, err := testCrawler(t).Crawl(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestCrawlWordPress_FirstPageError(t *testing.T) {
	srv, _ := newWordPressSite(t, http.StatusForbidden)

	_, err := testCrawler(t).Crawl(context.Background(), wordPressSource(srv.URL))
	assert.ErrorContains(t, err, "sunstate-blog")
}

func TestWPEndpoint(t *testing.T) {
	for in, want := range map[string]string{
		"https://sunstate.example":                     "https://sunstate.example/wp-json/wp/v2/posts",
		"https://sunstate.example/blog/":               "https://sunstate.example/blog/wp-json/wp/v2/posts",
		"https://sunstate.example/wp-json/wp/v2/posts": "https://sunstate.example/wp-json/wp/v2/posts",
	} {
		u, err := url.Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, wpEndpoint(u), in)
	}
}

func TestLoadRegistry_Kinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - id: wp\n    kind: wordpress\n  - id: page\n    selectors: {container: article}\n"), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	wp, _ := reg.Get("wp")
	assert.Equal(t, KindWordPress, wp.Kind)
	page, _ := reg.Get("page")
	assert.Equal(t, KindHTML, page.Kind)

	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - id: rss\n    kind: rss\n"), 0o600))
	_, err = LoadRegistry(path)
	assert.ErrorContains(t, err, "unknown kind")
}
