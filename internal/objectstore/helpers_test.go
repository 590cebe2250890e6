package objectstore

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// newHeaderCapture serves a single file object and stores the last request headers.
func newHeaderCapture(t *testing.T, got *http.Header) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"x","path":"x","sha":"abc","size":1,"type":"file","content":"eA==\n","encoding":"base64"}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
