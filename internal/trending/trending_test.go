package trending

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFixture(t *testing.T) {
	f, err := os.Open("testdata/trending.html")
	require.NoError(t, err)
	defer f.Close()

	items, err := Parse(f)
	require.NoError(t, err)

	want := []Item{
		{
			Repo:  "acme/widget",
			URL:   "https://github.com/acme/widget",
			Desc:  "Fast widgets for everyone",
			Lang:  "Go",
			Stars: "12,345",
			Forks: "678",
			Today: "1,234 stars today",
		},
		{
			Repo:  "solo/tool",
			URL:   "https://github.com/solo/tool",
			Lang:  Unknown,
			Stars: "99",
			Forks: Unknown,
			Today: "42 stars today",
		},
		{
			Repo:  "bare/repo",
			URL:   "https://github.com/bare/repo",
			Desc:  "Nothing else known.",
			Lang:  Unknown,
			Stars: Unknown,
			Forks: Unknown,
			Today: Unknown,
		},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKeepsTopTen(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, `<article class="Box-row"><h2><a href="/o/r%d">o / r%d</a></h2></article>`, i, i)
	}
	b.WriteString("</body></html>")

	items, err := ParseString(b.String())
	require.NoError(t, err)
	require.Len(t, items, TopN)
	assert.Equal(t, "o/r1", items[0].Repo)
	assert.Equal(t, "o/r10", items[9].Repo)
}

func TestParseEmptyPage(t *testing.T) {
	items, err := ParseString("<html><body><p>rate limited</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHTTPFetcherSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok\xff</html>"))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "<html>ok</html>", body)
}

func TestHTTPFetcherRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
