package vfs

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// TransferUnit is the in-flight form of one upload.
type TransferUnit struct {
	Path string
	Data []byte
	// PriorSHA is the hash of the object being replaced; empty means create.
	PriorSHA string
	// Message overrides the default commit message.
	Message string
}

// UploadFile writes data at p, creating or replacing the object. The size
// ceiling is checked before any backend call. The current hash is looked up
// first so that a replace carries it.
func (e *Engine) UploadFile(ctx context.Context, p string, data []byte) (*objectstore.Entry, error) {
	if err := e.codec.EnforceLimit(int64(len(data))); err != nil {
		return nil, err
	}
	p, err := normalize(p)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, &PathError{Op: "upload", Path: p, Err: ErrIsDirectory}
	}
	c, err := e.begin(ctx, "upload")
	if err != nil {
		return nil, err
	}

	var sha string
	res, err := c.get(ctx, p)
	switch {
	case objectstore.IsNotFound(err):
	case err != nil:
		return nil, c.finish(err)
	case res.IsDir():
		return nil, c.finish(&PathError{Op: "upload", Path: p, Err: ErrIsDirectory})
	default:
		sha = res.Object.SHA
	}

	out, err := c.put(ctx, p, data, sha, "Upload "+pathutil.Base(p))
	if err != nil {
		return nil, c.finish(err)
	}
	c.e.logger.Debug("uploaded",
		zap.String("path", p),
		zap.Int("bytes", len(data)),
		zap.Bool("replaced", sha != ""),
	)
	c.emit("upload", p, nil)
	ent := out.Content
	ent.Path = p
	return &ent, c.finish(nil)
}

// Upload writes a transfer unit using the caller's prior hash instead of
// looking it up.
func (e *Engine) Upload(ctx context.Context, u TransferUnit) (*objectstore.Entry, error) {
	if err := e.codec.EnforceLimit(int64(len(u.Data))); err != nil {
		return nil, err
	}
	p, err := normalize(u.Path)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, &PathError{Op: "upload", Path: p, Err: ErrIsDirectory}
	}
	c, err := e.begin(ctx, "upload")
	if err != nil {
		return nil, err
	}
	message := u.Message
	if message == "" {
		message = "Upload " + pathutil.Base(p)
	}
	out, err := c.put(ctx, p, u.Data, u.PriorSHA, message)
	if err != nil {
		return nil, c.finish(err)
	}
	ent := out.Content
	ent.Path = p
	return &ent, c.finish(nil)
}

// CreateDirectory makes dir enumerable by writing its placeholder.
func (e *Engine) CreateDirectory(ctx context.Context, dir string) error {
	dir, err := normalize(dir)
	if err != nil {
		return err
	}
	if dir == "" {
		return &PathError{Op: "mkdir", Path: dir, Err: ErrInvalidPath}
	}
	c, err := e.begin(ctx, "mkdir")
	if err != nil {
		return err
	}
	_, err = c.put(ctx, pathutil.Join(dir, Placeholder), nil, "", "Create folder "+dir)
	return c.finish(err)
}

// DeleteFile removes the file at p. knownSHA must be the hash the caller
// last observed; a stale hash fails with ErrConflict. An empty knownSHA
// looks the current hash up first.
func (e *Engine) DeleteFile(ctx context.Context, p, knownSHA string) error {
	p, err := normalize(p)
	if err != nil {
		return err
	}
	c, err := e.begin(ctx, "delete")
	if err != nil {
		return err
	}
	if knownSHA == "" {
		obj, err := c.file(ctx, p)
		if err != nil {
			return c.finish(err)
		}
		knownSHA = obj.SHA
	}
	err = c.delete(ctx, p, knownSHA, "Delete "+pathutil.Base(p))
	c.emit("delete", p, err)
	return c.finish(err)
}
