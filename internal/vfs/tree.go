package vfs

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// DeleteDirectory removes every object below dir, depth-first. It continues
// past individual failures and reports them together as an AggregateError.
// Objects that disappear concurrently count as deleted, so repeating the
// call after a partial failure converges.
func (e *Engine) DeleteDirectory(ctx context.Context, dir string) error {
	dir, err := normalize(dir)
	if err != nil {
		return err
	}
	if dir == "" {
		return &PathError{Op: "rmdir", Path: dir, Err: ErrInvalidPath}
	}
	c, err := e.begin(ctx, "rmdir")
	if err != nil {
		return err
	}
	return c.finish(c.deleteDirectory(ctx, dir))
}

func (c *call) deleteDirectory(ctx context.Context, dir string) error {
	entries, err := c.listRaw(ctx, dir)
	if objectstore.IsNotFound(err) {
		return nil
	}
	if errors.Is(err, ErrNotDirectory) {
		return &PathError{Op: "rmdir", Path: dir, Err: ErrNotDirectory}
	}
	if err != nil {
		return err
	}

	var fails failures
	c.deleteEntries(ctx, entries, &fails)
	if err := fails.err("rmdir", dir); err != nil {
		c.e.logger.Warn("directory partially deleted",
			zap.String("path", dir),
			zap.Int("failures", len(fails.list)),
		)
		return err
	}
	return nil
}

func (c *call) deleteTree(ctx context.Context, dir string, fails *failures) {
	entries, err := c.listRaw(ctx, dir)
	if objectstore.IsNotFound(err) {
		return
	}
	if err != nil {
		fails.add("list", dir, err)
		c.emit("list", dir, err)
		return
	}
	c.deleteEntries(ctx, entries, fails)
}

func (c *call) deleteEntries(ctx context.Context, entries []objectstore.Entry, fails *failures) {
	for _, ent := range entries {
		if ent.IsDir() {
			c.deleteTree(ctx, ent.Path, fails)
			continue
		}
		err := c.delete(ctx, ent.Path, ent.SHA, "Delete "+ent.Name)
		if objectstore.IsNotFound(err) {
			err = nil
		}
		if err != nil {
			fails.add("delete", ent.Path, err)
		}
		c.emit("delete", ent.Path, err)
	}
}

// CopyDirectory re-creates every object below src at the same relative
// position below dst. Each file is fully re-transferred. Existing objects
// at the destination are not overwritten; they fail with ErrConflict.
func (e *Engine) CopyDirectory(ctx context.Context, src, dst string) error {
	src, dst, err := treePair(src, dst)
	if err != nil {
		return err
	}
	c, err := e.begin(ctx, "copy")
	if err != nil {
		return err
	}
	return c.finish(c.copyDirectory(ctx, src, dst))
}

func (c *call) copyDirectory(ctx context.Context, src, dst string) error {
	entries, err := c.listRaw(ctx, src)
	if errors.Is(err, ErrNotDirectory) {
		return &PathError{Op: "copy", Path: src, Err: ErrNotDirectory}
	}
	if err != nil {
		return err
	}

	var fails failures
	c.copyEntries(ctx, entries, dst, &fails)
	return fails.err("copy", src)
}

func (c *call) copyTree(ctx context.Context, src, dst string, fails *failures) {
	entries, err := c.listRaw(ctx, src)
	if err != nil {
		fails.add("list", src, err)
		c.emit("list", src, err)
		return
	}
	c.copyEntries(ctx, entries, dst, fails)
}

func (c *call) copyEntries(ctx context.Context, entries []objectstore.Entry, dst string, fails *failures) {
	for _, ent := range entries {
		target := pathutil.Join(dst, ent.Name)
		if ent.IsDir() {
			c.copyTree(ctx, ent.Path, target, fails)
			continue
		}
		_, err := c.copyFile(ctx, ent.Path, target, "Copy to "+target)
		if err != nil {
			fails.add("copy", ent.Path, err)
		}
		c.emit("copy", ent.Path, err)
	}
}

// copyFile reads src in full and creates dst with the same bytes. It
// returns the hash src had when it was read.
func (c *call) copyFile(ctx context.Context, src, dst, message string) (string, error) {
	obj, err := c.file(ctx, src)
	if err != nil {
		return "", err
	}
	data, err := c.content(ctx, obj)
	if err != nil {
		return "", err
	}
	if err := c.e.codec.EnforceLimit(int64(len(data))); err != nil {
		return "", err
	}
	if _, err := c.put(ctx, dst, data, "", message); err != nil {
		return "", err
	}
	return obj.SHA, nil
}

// RenameFile moves the file at p to newName in the same directory. The new
// object is written before the old one is removed; if the removal fails the
// new path is returned along with a DuplicateWarning.
func (e *Engine) RenameFile(ctx context.Context, p, newName string) (string, error) {
	p, err := normalize(p)
	if err != nil {
		return "", err
	}
	target, err := pathutil.Sibling(p, newName)
	if err != nil {
		return "", err
	}
	if target == p {
		return p, nil
	}
	c, err := e.begin(ctx, "rename")
	if err != nil {
		return "", err
	}

	sha, err := c.copyFile(ctx, p, target, "Rename "+pathutil.Base(p)+" → "+newName)
	if err != nil {
		return "", c.finish(err)
	}
	c.emit("copy", p, nil)

	err = c.delete(ctx, p, sha, "Delete "+pathutil.Base(p))
	c.emit("delete", p, err)
	if err != nil {
		c.e.logger.Warn("rename left original behind",
			zap.String("old", p),
			zap.String("new", target),
			zap.Error(err),
		)
		return target, c.finish(&DuplicateWarning{Old: p, New: target, Cause: err})
	}
	return target, c.finish(nil)
}

// RenameFolder moves dir to newName in the same parent: a full copy
// followed by a recursive delete. A failed copy aborts before anything is
// deleted.
func (e *Engine) RenameFolder(ctx context.Context, dir, newName string) (string, error) {
	dir, err := normalize(dir)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", &PathError{Op: "rename", Path: dir, Err: ErrInvalidPath}
	}
	target, err := pathutil.Sibling(dir, newName)
	if err != nil {
		return "", err
	}
	if target == dir {
		return dir, nil
	}
	c, err := e.begin(ctx, "rename-folder")
	if err != nil {
		return "", err
	}

	if err := c.copyDirectory(ctx, dir, target); err != nil {
		return "", c.finish(err)
	}
	if err := c.deleteDirectory(ctx, dir); err != nil {
		return target, c.finish(&DuplicateWarning{Old: dir, New: target, Cause: err})
	}
	return target, c.finish(nil)
}

func treePair(src, dst string) (string, string, error) {
	src, err := normalize(src)
	if err != nil {
		return "", "", err
	}
	dst, err = normalize(dst)
	if err != nil {
		return "", "", err
	}
	if src == "" || pathutil.IsWithin(src, dst) {
		return "", "", &PathError{Op: "copy", Path: dst, Err: ErrInvalidPath}
	}
	return src, dst, nil
}
