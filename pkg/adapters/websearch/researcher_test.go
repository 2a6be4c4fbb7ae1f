package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsPage(links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="links">`)
	for i, l := range links {
		fmt.Fprintf(&b, `<div class="result results_links"><h2><a class="result__a" href="//duckduckgo.com/l/?uddg=%s">Title %d</a></h2><a class="result__snippet">Snippet %d</a></div>`,
			url.QueryEscape(l), i+1, i+1)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestResearch(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		_, _ = fmt.Fprint(w, resultsPage(
			srv.URL+"/blog",
			srv.URL+"/docs.manim/answer",
			srv.URL+"/broken",
			srv.URL+"/extra",
		))
	})
	mux.HandleFunc("/blog", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><nav>menu</nav><main>Use   Circle not Circel.</main></body></html>`)
	})
	mux.HandleFunc("/docs.manim/answer", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><article><h1>Fix</h1><script>x()</script><p>Import from manim.</p></article><p>ignored</p></body></html>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r := New(Config{SearchURL: srv.URL + "/html/", MaxResults: 3, MaxChars: 100}, nil)
	out, err := r.Research(context.Background(), "Traceback (most recent call last):\n  File x\nNameError: name 'Circel' is not defined")
	require.NoError(t, err)

	assert.Equal(t, "manim python error NameError: name 'Circel' is not defined", query)
	// The docs result is ranked first.
	assert.True(t, strings.HasPrefix(out, "Source 1: Title 2"), out)
	assert.Contains(t, out, "Fix Import from manim.")
	assert.NotContains(t, out, "x()")
	assert.NotContains(t, out, "ignored")
	assert.Contains(t, out, "Use Circle not Circel.")
	assert.NotContains(t, out, "menu")
	// The broken page falls back to its snippet; the fourth result is cut.
	assert.Contains(t, out, "Snippet 3")
	assert.NotContains(t, out, "Title 4")
}

func TestResearch_SearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{SearchURL: srv.URL}, nil).Research(context.Background(), "boom")
	assert.Error(t, err)
}

func TestExtractText_Limit(t *testing.T) {
	text, err := extractText(strings.NewReader(`<html><body><p>abcdefghij</p></body></html>`), 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", text)
}

func TestResolveLink(t *testing.T) {
	assert.Equal(t, "https://a.b/c", resolveLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.b%2Fc&rut=x"))
	assert.Equal(t, "https://direct.example/x", resolveLink("https://direct.example/x"))
	assert.Empty(t, resolveLink("javascript:void(0)"))
}
