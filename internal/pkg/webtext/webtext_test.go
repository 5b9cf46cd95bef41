package webtext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html>
<head><title>Acme</title><style>body { color: red; }</style></head>
<body>
  <h1>Welcome   to Acme</h1>
  <script>var hidden = "nope";</script>
  <p>We sell
     anvils.</p>
</body>
</html>`

func TestFetchReturnsVisibleText(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.UserAgent()
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := New(time.Second, "test-agent").Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "Welcome to Acme We sell anvils.", text)
	assert.Equal(t, "test-agent", agent)
}

func TestFetchFailures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	tests := []struct {
		name string
		url  string
	}{
		{name: "non 2xx", url: notFound.URL},
		{name: "timeout", url: slow.URL},
		{name: "bad scheme", url: "ftp://example.com"},
		{name: "no host", url: "http://"},
	}
	f := New(100*time.Millisecond, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), tt.url)
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}
