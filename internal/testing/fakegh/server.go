// Package fakegh is an in-memory stand-in for the repository contents API,
// used by tests. Directories are implicit: a directory exists while some
// stored file lies below it.
package fakegh

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

const (
	Owner = "octo"
	Repo  = "drive"
	Token = "test-token"
)

// Call is one request received by the server.
type Call struct {
	Method string
	Path   string
}

// Fault makes matching requests fail with the given status and message.
type Fault struct {
	Method  string
	Path    string
	Status  int
	Message string
	// Times limits how often the fault fires; zero means always.
	Times int
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	files   map[string][]byte
	commits []string
	calls   []Call
	faults  []*Fault

	// InlineLimit is the largest file whose content is returned inline.
	InlineLimit int
	// RateRemaining, when non-negative, is reported in X-RateLimit-Remaining.
	RateRemaining int
	// RateReset is reported in X-RateLimit-Reset (unix seconds).
	RateReset int64
	// RepoSizeKB is reported by the repository endpoint.
	RepoSizeKB int64
}

// New starts a server. Close it when done.
func New() *Server {
	s := &Server{
		files:         make(map[string][]byte),
		InlineLimit:   1 << 20,
		RateRemaining: -1,
		RepoSizeKB:    42,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SHA returns the git blob hash of data.
func SHA(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Seed stores files directly, bypassing the API.
func (s *Server) Seed(files map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, content := range files {
		s.files[strings.Trim(p, "/")] = []byte(content)
	}
}

// File returns the stored content of p.
func (s *Server) File(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[p]
	return data, ok
}

// Paths returns all stored file paths, sorted.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Commits returns the commit messages recorded so far.
func (s *Server) Commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commits...)
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts requests with the given method.
func (s *Server) CountCalls(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Inject registers a fault.
func (s *Server) Inject(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &f)
}

// Mutate changes a stored file behind the client's back.
func (s *Server) Mutate(p, content string) {
	s.Seed(map[string]string{p: content})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escaped := r.URL.EscapedPath()
	p, err := unescape(escaped)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad path")
		return
	}
	s.calls = append(s.calls, Call{Method: r.Method, Path: p})

	if s.RateRemaining >= 0 {
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprint(s.RateRemaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(s.RateReset))
	}
	if f := s.matchFault(r.Method, p); f != nil {
		writeError(w, f.Status, f.Message)
		return
	}

	rawPrefix := "/raw/" + Owner + "/" + Repo + "/"
	if strings.HasPrefix(p, rawPrefix) {
		s.serveRaw(w, r, p[len(rawPrefix):])
		return
	}

	repoPrefix := "/repos/" + Owner + "/" + Repo
	if r.Header.Get("Authorization") != "token "+Token {
		writeError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	switch {
	case p == repoPrefix && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"full_name":      Owner + "/" + Repo,
			"private":        true,
			"default_branch": "main",
			"size":           s.RepoSizeKB,
			"html_url":       "https://github.com/" + Owner + "/" + Repo,
		})
	case p == repoPrefix+"/contents" || strings.HasPrefix(p, repoPrefix+"/contents/"):
		key := strings.Trim(strings.TrimPrefix(p, repoPrefix+"/contents"), "/")
		switch r.Method {
		case http.MethodGet:
			s.get(w, key)
		case http.MethodPut:
			s.put(w, r, key)
		case http.MethodDelete:
			s.delete(w, r, key)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) matchFault(method, p string) *Fault {
	for i, f := range s.faults {
		if f.Method != "" && f.Method != method {
			continue
		}
		if f.Path != "" && !strings.HasSuffix(p, "/"+f.Path) && p != f.Path {
			continue
		}
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
			}
		}
		return f
	}
	return nil
}

func (s *Server) get(w http.ResponseWriter, key string) {
	if data, ok := s.files[key]; ok {
		obj := s.entry(key, data)
		if len(data) <= s.InlineLimit {
			obj["content"] = wrap(base64.StdEncoding.EncodeToString(data))
			obj["encoding"] = "base64"
		} else {
			obj["content"] = ""
			obj["encoding"] = "none"
		}
		writeJSON(w, http.StatusOK, obj)
		return
	}

	children := s.children(key)
	if children == nil {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, children)
}

func (s *Server) children(dir string) []map[string]any {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seenDirs := make(map[string]bool)
	var out []map[string]any
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			if seenDirs[name] {
				continue
			}
			seenDirs[name] = true
			out = append(out, map[string]any{
				"name": name,
				"path": prefix + name,
				"sha":  SHA([]byte(prefix + name)),
				"size": 0,
				"type": "dir",
			})
			continue
		}
		out = append(out, s.entry(k, s.files[k]))
	}
	if out == nil && dir != "" {
		return nil
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out
}

func (s *Server) entry(key string, data []byte) map[string]any {
	name := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		name = key[i+1:]
	}
	return map[string]any{
		"name":         name,
		"path":         key,
		"sha":          SHA(data),
		"size":         len(data),
		"type":         "file",
		"download_url": s.URL + "/raw/" + Owner + "/" + Repo + "/main/" + escape(key),
	}
}

type mutation struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
}

func (s *Server) readMutation(w http.ResponseWriter, r *http.Request) (*mutation, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	var m mutation
	if err := sonic.Unmarshal(body, &m); err != nil {
		writeError(w, http.StatusBadRequest, "Problems parsing JSON")
		return nil, false
	}
	if m.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"message\" wasn't supplied.")
		return nil, false
	}
	return &m, true
}

func (s *Server) put(w http.ResponseWriter, r *http.Request, key string) {
	m, ok := s.readMutation(w, r)
	if !ok {
		return
	}
	data, err := base64.StdEncoding.DecodeString(m.Content)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}
	if s.children(key) != nil && key != "" {
		if _, isFile := s.files[key]; !isFile {
			writeError(w, http.StatusUnprocessableEntity, "path is a directory")
			return
		}
	}

	existing, exists := s.files[key]
	switch {
	case exists && m.SHA == "":
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"sha\" wasn't supplied.")
		return
	case exists && m.SHA != SHA(existing):
		writeError(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", key, m.SHA))
		return
	case !exists && m.SHA != "":
		writeError(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", key, m.SHA))
		return
	}

	status := http.StatusCreated
	if exists {
		status = http.StatusOK
	}
	s.files[key] = data
	s.commits = append(s.commits, m.Message)
	writeJSON(w, status, map[string]any{
		"content": s.entry(key, data),
		"commit": map[string]any{
			"sha":     SHA([]byte(m.Message)),
			"message": m.Message,
		},
	})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request, key string) {
	m, ok := s.readMutation(w, r)
	if !ok {
		return
	}
	existing, exists := s.files[key]
	switch {
	case !exists:
		writeError(w, http.StatusNotFound, "Not Found")
		return
	case m.SHA == "":
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"sha\" wasn't supplied.")
		return
	case m.SHA != SHA(existing):
		writeError(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", key, m.SHA))
		return
	}
	delete(s.files, key)
	s.commits = append(s.commits, m.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"content": nil,
		"commit":  map[string]any{"sha": SHA([]byte(m.Message)), "message": m.Message},
	})
}

func (s *Server) serveRaw(w http.ResponseWriter, r *http.Request, rest string) {
	// rest is "<branch>/<path>"
	i := strings.Index(rest, "/")
	if i < 0 {
		writeError(w, http.StatusNotFound, "404: Not Found")
		return
	}
	data, ok := s.files[rest[i+1:]]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404: Not Found"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, _ := sonic.Marshal(v)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"message":           message,
		"documentation_url": "https://docs.github.com/rest/repos/contents",
	})
}

// wrap inserts a newline every 60 characters the way the real API does.
func wrap(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60])
		b.WriteByte('\n')
		s = s[60:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}

func unescape(p string) (string, error) {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		u, err := url.PathUnescape(seg)
		if err != nil {
			return "", err
		}
		segs[i] = u
	}
	return strings.Join(segs, "/"), nil
}

func escape(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
