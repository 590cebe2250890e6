package vfs

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// ListChildren returns the immediate children of dir. A directory that does
// not exist lists as empty. Placeholders are omitted.
func (e *Engine) ListChildren(ctx context.Context, dir string) ([]objectstore.Entry, error) {
	dir, err := normalize(dir)
	if err != nil {
		return nil, err
	}
	c, err := e.begin(ctx, "list")
	if err != nil {
		return nil, err
	}

	entries, err := c.listRaw(ctx, dir)
	if objectstore.IsNotFound(err) {
		return []objectstore.Entry{}, c.finish(nil)
	}
	if err != nil {
		return nil, c.finish(err)
	}

	visible := entries[:0]
	for _, ent := range entries {
		if ent.Name == Placeholder && !ent.IsDir() {
			continue
		}
		visible = append(visible, ent)
	}
	return visible, c.finish(nil)
}

// Exists reports whether anything is stored at p. Unlike ListChildren it
// distinguishes a missing directory from an empty one.
func (e *Engine) Exists(ctx context.Context, p string) (bool, error) {
	p, err := normalize(p)
	if err != nil {
		return false, err
	}
	c, err := e.begin(ctx, "exists")
	if err != nil {
		return false, err
	}
	_, err = c.get(ctx, p)
	if objectstore.IsNotFound(err) {
		return false, c.finish(nil)
	}
	if err != nil {
		return false, c.finish(err)
	}
	return true, c.finish(nil)
}

// Stat returns the metadata of the file at p, without its content.
func (e *Engine) Stat(ctx context.Context, p string) (*objectstore.Entry, error) {
	p, err := normalize(p)
	if err != nil {
		return nil, err
	}
	c, err := e.begin(ctx, "stat")
	if err != nil {
		return nil, err
	}
	obj, err := c.file(ctx, p)
	if err != nil {
		return nil, c.finish(err)
	}
	ent := obj.Entry
	return &ent, c.finish(nil)
}

// ReadFile returns the decoded content of the file at p and its metadata.
func (e *Engine) ReadFile(ctx context.Context, p string) ([]byte, *objectstore.Entry, error) {
	p, err := normalize(p)
	if err != nil {
		return nil, nil, err
	}
	c, err := e.begin(ctx, "read")
	if err != nil {
		return nil, nil, err
	}
	obj, err := c.file(ctx, p)
	if err != nil {
		return nil, nil, c.finish(err)
	}
	data, err := c.content(ctx, obj)
	if err != nil {
		return nil, nil, c.finish(err)
	}
	ent := obj.Entry
	return data, &ent, c.finish(nil)
}

// DownloadURL returns a direct content locator for the file at p, routed
// through the configured mirror when the coordinates ask for it.
func (e *Engine) DownloadURL(ctx context.Context, p string) (string, error) {
	p, err := normalize(p)
	if err != nil {
		return "", err
	}
	c, err := e.begin(ctx, "url")
	if err != nil {
		return "", err
	}
	obj, err := c.file(ctx, p)
	if err != nil {
		return "", c.finish(err)
	}
	if obj.DownloadURL != "" {
		return e.store.ProxyURL(obj.DownloadURL, c.coords.UseProxy), c.finish(nil)
	}
	key, err := c.key(p)
	if err != nil {
		return "", c.finish(err)
	}
	return e.store.RawURL(c.repo, c.coords.Branch, key, c.coords.UseProxy), c.finish(nil)
}

// Repository returns metadata of the configured repository.
func (e *Engine) Repository(ctx context.Context) (*objectstore.Repository, error) {
	c, err := e.begin(ctx, "repo")
	if err != nil {
		return nil, err
	}
	info, err := e.store.Repository(ctx, c.repo)
	return info, c.finish(err)
}

// Verify checks candidate coordinates against the backend before they are saved.
func (e *Engine) Verify(ctx context.Context, coords settings.Coordinates) (*objectstore.Repository, error) {
	coords = coords.Normalized()
	if err := coords.Validate(); err != nil {
		return nil, err
	}
	if _, err := pathutil.Normalize(coords.Dir); err != nil {
		return nil, err
	}
	info, err := e.store.Repository(ctx, coords.Target())
	if err != nil {
		e.logger.Info("connection check failed",
			zap.String("owner", coords.Owner),
			zap.String("repo", coords.Repo),
			zap.Error(err),
		)
		return nil, err
	}
	return info, nil
}

// ErrStop can be returned by a WalkFunc to end a walk without an error.
var ErrStop = errors.New("stop walk")

// WalkFunc is called for every entry below the walked directory, parents
// before children. Returning an error stops the walk.
type WalkFunc func(entry objectstore.Entry) error

// Walk visits the tree below dir depth-first, one listing at a time.
// Placeholders are skipped.
func (e *Engine) Walk(ctx context.Context, dir string, fn WalkFunc) error {
	dir, err := normalize(dir)
	if err != nil {
		return err
	}
	c, err := e.begin(ctx, "walk")
	if err != nil {
		return err
	}
	err = c.walk(ctx, dir, fn)
	if errors.Is(err, ErrStop) {
		err = nil
	}
	return c.finish(err)
}

func (c *call) walk(ctx context.Context, dir string, fn WalkFunc) error {
	entries, err := c.listRaw(ctx, dir)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if ent.Name == Placeholder && !ent.IsDir() {
			continue
		}
		if err := fn(ent); err != nil {
			return err
		}
		if ent.IsDir() {
			if err := c.walk(ctx, ent.Path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// file fetches p and insists that it is a file.
func (c *call) file(ctx context.Context, p string) (*objectstore.Object, error) {
	res, err := c.get(ctx, p)
	if err != nil {
		return nil, err
	}
	if res.IsDir() {
		return nil, &PathError{Op: c.op, Path: p, Err: ErrIsDirectory}
	}
	obj := res.Object
	obj.Path = p
	return obj, nil
}
