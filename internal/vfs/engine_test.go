package vfs

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/testing/fakegh"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/codec"
)

func coords() settings.Coordinates {
	return settings.Coordinates{
		Token:  fakegh.Token,
		Owner:  fakegh.Owner,
		Repo:   fakegh.Repo,
		Branch: "main",
		Dir:    "root",
	}
}

type recordingMetrics struct {
	mu  sync.Mutex
	ops map[string]string
}

func (m *recordingMetrics) RecordTreeOp(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = make(map[string]string)
	}
	m.ops[op] = outcome
}

func (m *recordingMetrics) RecordTransfer(string, int64) {}

func newEngine(t *testing.T, opts ...Option) (*Engine, *fakegh.Server) {
	t.Helper()
	srv := fakegh.New()
	t.Cleanup(srv.Close)
	client := objectstore.New(objectstore.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	return New(client, settings.Static(coords()), opts...), srv
}

func names(entries []objectstore.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	sort.Strings(out)
	return out
}

func TestListChildren(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/docs/.gitkeep":  "",
		"root/docs/a.txt":     "aaa",
		"root/docs/sub/b.txt": "bb",
	})
	ctx := context.Background()

	entries, err := e.ListChildren(ctx, "/docs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "sub"}, names(entries))
	for _, ent := range entries {
		switch ent.Name {
		case "a.txt":
			assert.Equal(t, "docs/a.txt", ent.Path)
			assert.Equal(t, int64(3), ent.Size)
		case "sub":
			assert.Equal(t, "docs/sub", ent.Path)
			assert.True(t, ent.IsDir())
		}
	}

	entries, err = e.ListChildren(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names(entries))
}

func TestListChildrenMissingDirectoryIsEmpty(t *testing.T) {
	e, _ := newEngine(t)
	entries, err := e.ListChildren(context.Background(), "nope/never")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	ok, err := e.Exists(context.Background(), "nope/never")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListChildrenOfFile(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/f.txt": "x"})
	_, err := e.ListChildren(context.Background(), "f.txt")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestListChildrenInvalidPath(t *testing.T) {
	e, srv := newEngine(t)
	_, err := e.ListChildren(context.Background(), "a//b")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Empty(t, srv.Calls())
}

func TestNotConfigured(t *testing.T) {
	srv := fakegh.New()
	defer srv.Close()
	e := New(objectstore.New(objectstore.Options{BaseURL: srv.URL}), settings.Static{})

	_, err := e.ListChildren(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, srv.Calls())
}

func TestUploadCreateThenReplace(t *testing.T) {
	e, srv := newEngine(t)
	ctx := context.Background()

	first := make([]byte, 12)
	_, err := e.UploadFile(ctx, "docs/a.txt", first)
	require.NoError(t, err)

	second := make([]byte, 20)
	for i := range second {
		second[i] = byte(i)
	}
	ent, err := e.UploadFile(ctx, "docs/a.txt", second)
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", ent.Path)
	assert.Equal(t, fakegh.SHA(second), ent.SHA)

	entries, err := e.ListChildren(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, int64(20), entries[0].Size)

	stored, ok := srv.File("root/docs/a.txt")
	require.True(t, ok)
	assert.Equal(t, second, stored)
	assert.Equal(t, []string{"Upload a.txt", "Upload a.txt"}, srv.Commits())
}

func TestUploadIsIdempotent(t *testing.T) {
	e, srv := newEngine(t)
	ctx := context.Background()
	data := []byte("same bytes")

	_, err := e.UploadFile(ctx, "x.bin", data)
	require.NoError(t, err)
	_, err = e.UploadFile(ctx, "x.bin", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"root/x.bin"}, srv.Paths())
	stored, _ := srv.File("root/x.bin")
	assert.Equal(t, data, stored)
}

func TestUploadEveryByteValue(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	_, err := e.UploadFile(ctx, "bytes.bin", data)
	require.NoError(t, err)

	got, ent, err := e.ReadFile(ctx, "bytes.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "bytes.bin", ent.Path)
}

func TestUploadTooLargeMakesNoCalls(t *testing.T) {
	e, srv := newEngine(t, WithCodec(codec.New(10)))
	_, err := e.UploadFile(context.Background(), "big.bin", make([]byte, 11))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.ErrorIs(t, err, objectstore.ErrTooLarge)
	assert.Empty(t, srv.Calls())
}

func TestUploadAboveDefaultCeiling(t *testing.T) {
	store := &MockStore{}
	e := New(store, settings.Static(coords()))

	_, err := e.UploadFile(context.Background(), "huge.bin", make([]byte, codec.DefaultLimit+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	store.AssertNotCalled(t, "Get")
	store.AssertNotCalled(t, "Put")
}

func TestUploadOntoDirectory(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/d/x": "1"})
	_, err := e.UploadFile(context.Background(), "d", []byte("no"))
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestUploadWithPriorSHA(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/a.txt": "v1"})
	ctx := context.Background()

	_, err := e.Upload(ctx, TransferUnit{Path: "a.txt", Data: []byte("v2"), PriorSHA: "stale"})
	assert.ErrorIs(t, err, ErrConflict)

	srv.ResetCalls()
	_, err = e.Upload(ctx, TransferUnit{Path: "a.txt", Data: []byte("v2"), PriorSHA: fakegh.SHA([]byte("v1")), Message: "edit"})
	require.NoError(t, err)
	assert.Equal(t, 0, srv.CountCalls(http.MethodGet), "no hash discovery")
	assert.Equal(t, "edit", srv.Commits()[0])
}

func TestUploadRefusesRoot(t *testing.T) {
	e, srv := newEngine(t)
	_, err := e.Upload(context.Background(), TransferUnit{Path: "/", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrIsDirectory)
	assert.Empty(t, srv.Calls())
}

func TestCreateDirectory(t *testing.T) {
	e, srv := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CreateDirectory(ctx, "photos/2024"))
	data, ok := srv.File("root/photos/2024/.gitkeep")
	require.True(t, ok)
	assert.Empty(t, data)
	assert.Equal(t, []string{"Create folder photos/2024"}, srv.Commits())

	entries, err := e.ListChildren(ctx, "photos/2024")
	require.NoError(t, err)
	assert.Empty(t, entries)

	ok, err = e.Exists(ctx, "photos/2024")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, e.CreateDirectory(ctx, ""), ErrInvalidPath)
}

func TestDeleteFile(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/a.txt": "v1"})
	ctx := context.Background()

	err := e.DeleteFile(ctx, "a.txt", fakegh.SHA([]byte("old")))
	assert.ErrorIs(t, err, ErrConflict)
	_, ok := srv.File("root/a.txt")
	assert.True(t, ok)

	srv.ResetCalls()
	require.NoError(t, e.DeleteFile(ctx, "a.txt", fakegh.SHA([]byte("v1"))))
	assert.Equal(t, []fakegh.Call{{Method: http.MethodDelete, Path: "/repos/octo/drive/contents/root/a.txt"}}, srv.Calls())
	assert.Empty(t, srv.Paths())
}

func TestDeleteFileLooksUpHash(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/a.txt": "v1"})
	require.NoError(t, e.DeleteFile(context.Background(), "a.txt", ""))
	assert.Empty(t, srv.Paths())
}

func TestDeleteDirectory(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/d/.gitkeep":   "",
		"root/d/a":          "1",
		"root/d/e/b":        "2",
		"root/d/e/f/c":      "3",
		"root/keep/me":      "4",
		"root/d-sibling/ok": "5",
	})

	var events []Event
	ctx := WithObserver(context.Background(), func(ev Event) { events = append(events, ev) })
	require.NoError(t, e.DeleteDirectory(ctx, "d"))

	assert.Equal(t, []string{"root/d-sibling/ok", "root/keep/me"}, srv.Paths())
	assert.Len(t, events, 4)
	for _, ev := range events {
		assert.Equal(t, "rmdir", ev.Op)
		assert.Equal(t, "delete", ev.Step)
		assert.NoError(t, ev.Err)
	}
}

func TestDeleteDirectoryMissingIsNoop(t *testing.T) {
	e, _ := newEngine(t)
	assert.NoError(t, e.DeleteDirectory(context.Background(), "ghost"))
}

func TestDeleteDirectoryRefusesRoot(t *testing.T) {
	e, srv := newEngine(t)
	assert.ErrorIs(t, e.DeleteDirectory(context.Background(), "/"), ErrInvalidPath)
	assert.Empty(t, srv.Calls())
}

func TestDeleteDirectoryOnFile(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/f.txt": "x"})

	err := e.DeleteDirectory(context.Background(), "f.txt")
	assert.ErrorIs(t, err, ErrNotDirectory)
	_, isAggregate := AsAggregate(err)
	assert.False(t, isAggregate)
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "rmdir", pe.Op)
	assert.Equal(t, []string{"root/f.txt"}, srv.Paths())
	assert.Zero(t, srv.CountCalls(http.MethodDelete))
}

func TestDeleteDirectoryPartialFailure(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/d/x": "1",
		"root/d/y": "2",
	})
	srv.Inject(fakegh.Fault{Method: http.MethodDelete, Path: "root/d/x", Status: http.StatusConflict, Message: "x does not match", Times: 1})
	ctx := context.Background()

	err := e.DeleteDirectory(ctx, "d")
	require.Error(t, err)
	agg, ok := AsAggregate(err)
	require.True(t, ok)
	assert.Equal(t, []string{"d/x"}, agg.FailedPaths())
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, []string{"root/d/x"}, srv.Paths(), "y was still deleted")

	// A retry converges.
	require.NoError(t, e.DeleteDirectory(ctx, "d"))
	assert.Empty(t, srv.Paths())
}

func TestDeleteDirectoryToleratesConcurrentRemoval(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/d/x": "1", "root/d/y": "2"})
	srv.Inject(fakegh.Fault{Method: http.MethodDelete, Path: "root/d/x", Status: http.StatusNotFound, Message: "Not Found", Times: 1})

	require.NoError(t, e.DeleteDirectory(context.Background(), "d"))
}

func TestCopyDirectory(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/src/.gitkeep": "",
		"root/src/a":        "alpha",
		"root/src/s/b":      "beta",
		"root/src/s/t/c":    "gamma",
	})
	ctx := context.Background()

	require.NoError(t, e.CopyDirectory(ctx, "src", "dst"))

	for rel, want := range map[string]string{"a": "alpha", "s/b": "beta", "s/t/c": "gamma", ".gitkeep": ""} {
		got, ok := srv.File("root/dst/" + rel)
		require.True(t, ok, rel)
		assert.Equal(t, want, string(got))
		src, ok := srv.File("root/src/" + rel)
		require.True(t, ok, "source untouched")
		assert.Equal(t, want, string(src))
	}
	assert.Contains(t, srv.Commits(), "Copy to dst/s/t/c")
}

func TestCopyDirectoryConflicts(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/src/a": "1",
		"root/src/b": "2",
		"root/dst/a": "occupied",
	})

	err := e.CopyDirectory(context.Background(), "src", "dst")
	agg, ok := AsAggregate(err)
	require.True(t, ok)
	assert.Equal(t, []string{"src/a"}, agg.FailedPaths())
	got, _ := srv.File("root/dst/a")
	assert.Equal(t, "occupied", string(got))
	got, _ = srv.File("root/dst/b")
	assert.Equal(t, "2", string(got))
}

func TestCopyDirectoryRejectsNestedTarget(t *testing.T) {
	e, srv := newEngine(t)
	assert.ErrorIs(t, e.CopyDirectory(context.Background(), "a", "a/b"), ErrInvalidPath)
	assert.ErrorIs(t, e.CopyDirectory(context.Background(), "a", "a"), ErrInvalidPath)
	assert.Empty(t, srv.Calls())
}

func TestCopyDirectoryListsSourceOnce(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/src/a": "1", "root/src/b": "2"})

	require.NoError(t, e.CopyDirectory(context.Background(), "src", "dst"))
	listing := "/repos/" + fakegh.Owner + "/" + fakegh.Repo + "/contents/root/src"
	n := 0
	for _, call := range srv.Calls() {
		if call.Method == http.MethodGet && call.Path == listing {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestCopyDirectoryOnFile(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/f.txt": "x"})

	err := e.CopyDirectory(context.Background(), "f.txt", "g")
	assert.ErrorIs(t, err, ErrNotDirectory)
	_, isAggregate := AsAggregate(err)
	assert.False(t, isAggregate)
}

func TestCopyDirectoryMissingSource(t *testing.T) {
	e, _ := newEngine(t)
	assert.ErrorIs(t, e.CopyDirectory(context.Background(), "ghost", "x"), ErrNotFound)
}

func TestRenameFile(t *testing.T) {
	metrics := &recordingMetrics{}
	e, srv := newEngine(t, WithMetrics(metrics))
	srv.Seed(map[string]string{"root/d/old.txt": "content"})

	newPath, err := e.RenameFile(context.Background(), "d/old.txt", "new.txt")
	require.NoError(t, err)
	assert.Equal(t, "d/new.txt", newPath)
	assert.Equal(t, []string{"root/d/new.txt"}, srv.Paths())
	assert.Equal(t, "ok", metrics.ops["rename"])

	// The write must precede the delete.
	var order []string
	for _, call := range srv.Calls() {
		if call.Method != http.MethodGet {
			order = append(order, call.Method+" "+call.Path)
		}
	}
	assert.Equal(t, []string{
		"PUT /repos/octo/drive/contents/root/d/new.txt",
		"DELETE /repos/octo/drive/contents/root/d/old.txt",
	}, order)
}

func TestRenameFileTargetExists(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/a.txt": "a", "root/b.txt": "b"})

	_, err := e.RenameFile(context.Background(), "a.txt", "b.txt")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, []string{"root/a.txt", "root/b.txt"}, srv.Paths())
	assert.Equal(t, 0, srv.CountCalls(http.MethodDelete))
}

func TestRenameFileDeleteFailureWarns(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/a.txt": "a"})
	srv.Inject(fakegh.Fault{Method: http.MethodDelete, Status: http.StatusBadGateway, Message: "bad gateway"})

	newPath, err := e.RenameFile(context.Background(), "a.txt", "b.txt")
	assert.Equal(t, "b.txt", newPath)
	require.Error(t, err)
	assert.True(t, IsWarning(err))
	var warn *DuplicateWarning
	require.True(t, errors.As(err, &warn))
	assert.Equal(t, "a.txt", warn.Old)
	assert.ErrorIs(t, warn.Cause, objectstore.ErrUnavailable)
	assert.Equal(t, []string{"root/a.txt", "root/b.txt"}, srv.Paths())
}

func TestRenameFileValidation(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/d/x": "1"})
	ctx := context.Background()

	_, err := e.RenameFile(ctx, "a.txt", "sub/b.txt")
	assert.ErrorIs(t, err, ErrInvalidName)

	p, err := e.RenameFile(ctx, "a.txt", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", p)

	_, err = e.RenameFile(ctx, "d", "e")
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestRenameFolder(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/p/old/.gitkeep": "",
		"root/p/old/a":        "1",
		"root/p/old/s/b":      "2",
	})

	newPath, err := e.RenameFolder(context.Background(), "p/old", "new")
	require.NoError(t, err)
	assert.Equal(t, "p/new", newPath)
	assert.Equal(t, []string{"root/p/new/.gitkeep", "root/p/new/a", "root/p/new/s/b"}, srv.Paths())
}

func TestRenameFolderCopyFailureKeepsSource(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/old/a": "1",
		"root/new/a": "taken",
	})

	_, err := e.RenameFolder(context.Background(), "old", "new")
	_, ok := AsAggregate(err)
	require.True(t, ok)
	assert.False(t, IsWarning(err))
	assert.Equal(t, 0, srv.CountCalls(http.MethodDelete))
	_, ok = srv.File("root/old/a")
	assert.True(t, ok)
}

func TestRenameFolderDeleteFailureWarns(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/old/a": "1", "root/old/b": "2"})
	srv.Inject(fakegh.Fault{Method: http.MethodDelete, Path: "root/old/b", Status: http.StatusConflict, Message: "b does not match"})

	newPath, err := e.RenameFolder(context.Background(), "old", "new")
	assert.Equal(t, "new", newPath)
	require.True(t, IsWarning(err))
	agg, ok := AsAggregate(err)
	require.True(t, ok)
	assert.Equal(t, []string{"old/b"}, agg.FailedPaths())
}

func TestReadFileLargeUsesDownloadLocator(t *testing.T) {
	e, srv := newEngine(t)
	srv.InlineLimit = 4
	srv.Seed(map[string]string{"root/big.txt": "larger than four"})

	data, _, err := e.ReadFile(context.Background(), "big.txt")
	require.NoError(t, err)
	assert.Equal(t, "larger than four", string(data))
}

func TestStatAndDownloadURL(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{"root/a b.png": "img"})
	ctx := context.Background()

	ent, err := e.Stat(ctx, "a b.png")
	require.NoError(t, err)
	assert.Equal(t, int64(3), ent.Size)
	assert.Equal(t, "a b.png", ent.Path)

	u, err := e.DownloadURL(ctx, "a b.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/raw/octo/drive/main/root/a%20b.png", u)

	_, err = e.Stat(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalk(t *testing.T) {
	e, srv := newEngine(t)
	srv.Seed(map[string]string{
		"root/w/.gitkeep": "",
		"root/w/a":        "1",
		"root/w/s/b":      "2",
	})

	var seen []string
	err := e.Walk(context.Background(), "w", func(ent objectstore.Entry) error {
		seen = append(seen, ent.Path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"w/a", "w/s", "w/s/b"}, seen)

	seen = nil
	err = e.Walk(context.Background(), "w", func(ent objectstore.Entry) error {
		seen = append(seen, ent.Path)
		return ErrStop
	})
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestRepositoryAndVerify(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	info, err := e.Repository(ctx)
	require.NoError(t, err)
	assert.Equal(t, "octo/drive", info.FullName)

	bad := coords()
	bad.Token = "nope"
	_, err = e.Verify(ctx, bad)
	assert.ErrorIs(t, err, objectstore.ErrAuthFailure)

	_, err = e.Verify(ctx, settings.Coordinates{Owner: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type mutableSource struct {
	mu sync.Mutex
	c  settings.Coordinates
}

func (s *mutableSource) Coordinates() (settings.Coordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c, nil
}

func (s *mutableSource) set(c settings.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
}

func TestEngineReadsCoordinatesPerCall(t *testing.T) {
	srv := fakegh.New()
	defer srv.Close()
	source := &mutableSource{c: coords()}
	e := New(objectstore.New(objectstore.Options{BaseURL: srv.URL}), source)
	ctx := context.Background()

	_, err := e.UploadFile(ctx, "a", []byte("1"))
	require.NoError(t, err)

	next := coords()
	next.Dir = "other"
	source.set(next)
	_, err = e.UploadFile(ctx, "a", []byte("2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"other/a", "root/a"}, srv.Paths())
}
