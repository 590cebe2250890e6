package vfs

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/codec"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// Placeholder is the zero-length object that keeps an otherwise empty
// directory enumerable. It is hidden from listings.
const Placeholder = ".gitkeep"

// Store is the flat object store the engine builds the tree on.
type Store interface {
	Get(ctx context.Context, repo objectstore.Repo, key, ref string) (*objectstore.Result, error)
	Put(ctx context.Context, repo objectstore.Repo, key string, req objectstore.PutRequest) (*objectstore.PutResult, error)
	Delete(ctx context.Context, repo objectstore.Repo, key string, req objectstore.DeleteRequest) error
	Repository(ctx context.Context, repo objectstore.Repo) (*objectstore.Repository, error)
	Raw(ctx context.Context, repo objectstore.Repo, downloadURL string) (io.ReadCloser, string, error)
	RawURL(repo objectstore.Repo, branch, key string, proxy bool) string
	ProxyURL(downloadURL string, proxy bool) string
}

// Metrics receives tree-level observations.
type Metrics interface {
	RecordTreeOp(op, outcome string, duration time.Duration)
	RecordTransfer(direction string, bytes int64)
}

// Engine synthesizes directory-tree operations from flat object calls.
// It keeps no state between calls: every call reads fresh coordinates and
// never reuses a content hash observed by an earlier call. Backend calls
// within one operation are issued strictly one after another.
type Engine struct {
	store   Store
	source  settings.Source
	codec   codec.Codec
	logger  *zap.Logger
	metrics Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodec overrides the transfer codec and its size ceiling.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine over store, reading coordinates from source.
func New(store Store, source settings.Source, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("vfs")
	return e
}

// Codec returns the engine's codec.
func (e *Engine) Codec() codec.Codec { return e.codec }

// call carries the per-operation snapshot of coordinates.
type call struct {
	e       *Engine
	op      string
	coords  settings.Coordinates
	repo    objectstore.Repo
	observe Observer
	start   time.Time
}

func (e *Engine) begin(ctx context.Context, op string) (*call, error) {
	coords, err := e.source.Coordinates()
	if err != nil {
		return nil, err
	}
	return &call{
		e:       e,
		op:      op,
		coords:  coords,
		repo:    coords.Target(),
		observe: observerFrom(ctx),
		start:   time.Now(),
	}, nil
}

// finish records metrics for the operation; it returns err unchanged.
func (c *call) finish(err error) error {
	if c.e.metrics != nil {
		c.e.metrics.RecordTreeOp(c.op, outcome(err), time.Since(c.start))
	}
	return err
}

func (c *call) key(virtual string) (string, error) {
	return pathutil.Resolve(c.coords.Dir, virtual)
}

func (c *call) emit(step, path string, err error) {
	if c.observe != nil {
		c.observe(Event{Op: c.op, Step: step, Path: path, Err: err})
	}
}

func (c *call) get(ctx context.Context, virtual string) (*objectstore.Result, error) {
	key, err := c.key(virtual)
	if err != nil {
		return nil, err
	}
	return c.e.store.Get(ctx, c.repo, key, c.coords.Branch)
}

// listRaw returns the children of dir including placeholders. Entry paths
// are rewritten to virtual paths.
func (c *call) listRaw(ctx context.Context, dir string) ([]objectstore.Entry, error) {
	res, err := c.get(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !res.IsDir() {
		return nil, &PathError{Op: "list", Path: dir, Err: ErrNotDirectory}
	}
	entries := make([]objectstore.Entry, len(res.Entries))
	for i, ent := range res.Entries {
		ent.Path = pathutil.Join(dir, ent.Name)
		entries[i] = ent
	}
	return entries, nil
}

func (c *call) put(ctx context.Context, virtual string, data []byte, sha, message string) (*objectstore.PutResult, error) {
	key, err := c.key(virtual)
	if err != nil {
		return nil, err
	}
	out, err := c.e.store.Put(ctx, c.repo, key, objectstore.PutRequest{
		Message: message,
		Content: c.e.codec.Encode(data),
		Branch:  c.coords.Branch,
		SHA:     sha,
	})
	if err != nil {
		return nil, err
	}
	if c.e.metrics != nil {
		c.e.metrics.RecordTransfer("upload", int64(len(data)))
	}
	return out, nil
}

func (c *call) delete(ctx context.Context, virtual, sha, message string) error {
	key, err := c.key(virtual)
	if err != nil {
		return err
	}
	return c.e.store.Delete(ctx, c.repo, key, objectstore.DeleteRequest{
		Message: message,
		SHA:     sha,
		Branch:  c.coords.Branch,
	})
}

// content returns the decoded bytes of a file, falling back to the direct
// download locator when the backend did not inline the content.
func (c *call) content(ctx context.Context, obj *objectstore.Object) ([]byte, error) {
	if obj.Encoding != "none" && (obj.Content != "" || obj.Size == 0) {
		data, err := c.e.codec.Decode(obj.Content)
		if err != nil {
			return nil, err
		}
		c.recordDownload(len(data))
		return data, nil
	}

	if obj.DownloadURL == "" {
		return nil, &PathError{Op: "read", Path: obj.Path, Err: ErrNotFound}
	}
	body, _, err := c.e.store.Raw(ctx, c.repo, obj.DownloadURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.e.codec.Max()+1))
	if err != nil {
		return nil, err
	}
	if err := c.e.codec.EnforceLimit(int64(len(data))); err != nil {
		return nil, err
	}
	c.recordDownload(len(data))
	return data, nil
}

func (c *call) recordDownload(n int) {
	if c.e.metrics != nil {
		c.e.metrics.RecordTransfer("download", int64(n))
	}
}

func outcome(err error) string {
	if IsWarning(err) {
		return "warning"
	}
	if _, ok := AsAggregate(err); ok {
		return "partial"
	}
	return objectstore.Outcome(err)
}

func normalize(p string) (string, error) {
	return pathutil.Normalize(p)
}
