package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/classify"
	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/archive"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/listing"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// entryView is a listing entry with its display classification. Folders
// carry no classification.
type entryView struct {
	objectstore.Entry
	Info *classify.Info `json:"info,omitempty"`
}

func viewOf(ent objectstore.Entry) entryView {
	v := entryView{Entry: ent}
	if !ent.IsDir() {
		info := classify.Describe(ent.Name)
		v.Info = &info
	}
	return v
}

var errNoFile = errors.New(`multipart field "file" is required`)

// multipartOverhead is the room left above the payload limit for form
// boundaries, part headers and the relative_path field.
const multipartOverhead = 64 << 10

type pathRequest struct {
	Path string `json:"path"`
}

type deleteFileRequest struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
}

type renameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
	Kind    string `json:"kind"`
}

type copyRequest struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// List returns the filtered children of a directory. An empty listing
// also says whether the directory exists at all.
func (h *Handlers) List(c *gin.Context) {
	q, err := listQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dir := c.Query("path")
	ctx := c.Request.Context()

	entries, err := h.engine.ListChildren(ctx, dir)
	if err != nil {
		respondError(c, err, gin.H{"path": dir})
		return
	}
	exists := len(entries) > 0
	if !exists {
		if exists, err = h.engine.Exists(ctx, dir); err != nil {
			respondError(c, err, gin.H{"path": dir})
			return
		}
	}

	shown := listing.Apply(entries, q)
	views := make([]entryView, len(shown))
	for i, ent := range shown {
		views[i] = viewOf(ent)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"path":    dir,
		"exists":  exists,
		"entries": views,
		"summary": listing.Summarize(entries),
	})
}

func listQuery(c *gin.Context) (listing.Query, error) {
	q := listing.DefaultQuery()
	cat, ok := classify.ParseCategory(c.Query("category"))
	if !ok {
		return q, fmt.Errorf("unknown category %q", c.Query("category"))
	}
	q.Category = cat
	q.Search = c.Query("q")
	q.Glob = c.Query("glob")
	if s := c.Query("sort"); s != "" {
		q.Sort = listing.SortKey(s)
	}
	switch strings.ToLower(c.Query("order")) {
	case "", "asc":
		q.Ascending = true
	case "desc":
		q.Ascending = false
	default:
		return q, fmt.Errorf("unknown order %q", c.Query("order"))
	}
	return q, q.Validate()
}

// Stat returns metadata and classification of one path.
func (h *Handlers) Stat(c *gin.Context) {
	p := c.Query("path")
	ent, err := h.engine.Stat(c.Request.Context(), p)
	if errors.Is(err, vfs.ErrIsDirectory) {
		norm, _ := pathutil.Normalize(p)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"entry": viewOf(objectstore.Entry{
				Name: pathutil.Base(norm),
				Path: norm,
				Type: objectstore.TypeDir,
			}),
		})
		return
	}
	if err != nil {
		respondError(c, err, gin.H{"path": p})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entry": viewOf(*ent)})
}

// Content serves the decoded bytes of a file with a sniffed content type.
// download=1 asks the browser to save instead of display. Documents that
// could run script are always served as sandboxed attachments.
func (h *Handlers) Content(c *gin.Context) {
	p := c.Query("path")
	data, ent, err := h.engine.ReadFile(c.Request.Context(), p)
	if err != nil {
		respondError(c, err, gin.H{"path": p})
		return
	}
	sniffed := classify.Sniff(ent.Name, data)

	c.Header("ETag", `"`+ent.SHA+`"`)
	c.Header("X-Content-Type-Options", "nosniff")
	active := isActiveContent(sniffed.MIME)
	if active {
		c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	}
	if active || c.Query("download") == "1" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ent.Name))
	}
	c.Data(http.StatusOK, sniffed.MIME, data)
}

// activeTypes are rendered by browsers as documents that may run script.
var activeTypes = map[string]bool{
	"text/html":              true,
	"application/xhtml+xml":  true,
	"image/svg+xml":          true,
	"text/xml":               true,
	"application/xml":        true,
	"text/javascript":        true,
	"application/javascript": true,
}

func isActiveContent(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return activeTypes[strings.ToLower(strings.TrimSpace(base))]
}

// RawURL returns a direct link to a file's bytes.
func (h *Handlers) RawURL(c *gin.Context) {
	p := c.Query("path")
	u, err := h.engine.DownloadURL(c.Request.Context(), p)
	if err != nil {
		respondError(c, err, gin.H{"path": p})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": p, "url": u})
}

// Upload stores one file. A multipart request names the destination
// directory in path and the file by its form filename, or by the
// relative_path form field for folder uploads. A raw body is stored at
// path itself.
func (h *Handlers) Upload(c *gin.Context) {
	target, data, err := h.readUpload(c)
	if err != nil {
		respondError(c, err, gin.H{"path": target})
		return
	}
	ent, err := h.engine.UploadFile(c.Request.Context(), target, data)
	if err != nil {
		respondError(c, err, gin.H{"path": target})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "entry": viewOf(*ent)})
}

func (h *Handlers) readUpload(c *gin.Context) (string, []byte, error) {
	dir := c.Query("path")

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.engine.Codec().Max()+multipartOverhead)
		fh, err := c.FormFile("file")
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return dir, nil, vfs.ErrPayloadTooLarge
		}
		if err != nil {
			return dir, nil, errNoFile
		}
		name := c.PostForm("relative_path")
		if name == "" {
			name = fh.Filename
		}
		target := pathutil.Join(dir, name)
		if err := h.engine.Codec().EnforceLimit(fh.Size); err != nil {
			return target, nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return target, nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		return target, data, err
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.engine.Codec().Max())
	data, err := io.ReadAll(body)
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return dir, nil, vfs.ErrPayloadTooLarge
	}
	return dir, data, err
}

// Mkdir creates a directory.
func (h *Handlers) Mkdir(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if err := h.engine.CreateDirectory(c.Request.Context(), req.Path); err != nil {
		respondError(c, err, gin.H{"path": req.Path})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "path": req.Path})
}

// DeleteFile removes a file. The sha, when given, must be current.
func (h *Handlers) DeleteFile(c *gin.Context) {
	var req deleteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if err := h.engine.DeleteFile(c.Request.Context(), req.Path, req.SHA); err != nil {
		respondError(c, err, gin.H{"path": req.Path})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": req.Path})
}

// DeleteDir removes a directory and everything below it.
func (h *Handlers) DeleteDir(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if err := h.engine.DeleteDirectory(c.Request.Context(), req.Path); err != nil {
		respondError(c, err, gin.H{"path": req.Path})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": req.Path})
}

// Rename moves a file or directory to a new name in the same parent.
func (h *Handlers) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	var (
		target string
		err    error
	)
	switch req.Kind {
	case "", "file":
		target, err = h.engine.RenameFile(ctx, req.Path, req.NewName)
	case "dir":
		target, err = h.engine.RenameFolder(ctx, req.Path, req.NewName)
	default:
		badRequest(c, fmt.Sprintf("unknown kind %q", req.Kind))
		return
	}
	if err != nil {
		respondError(c, err, gin.H{"old_path": req.Path})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "old_path": req.Path, "path": target})
}

// Copy duplicates a directory tree.
func (h *Handlers) Copy(c *gin.Context) {
	var req copyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if err := h.engine.CopyDirectory(c.Request.Context(), req.Src, req.Dst); err != nil {
		respondError(c, err, gin.H{"src": req.Src, "dst": req.Dst})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "src": req.Src, "dst": req.Dst})
}

// Archive streams a directory as a compressed tarball. Errors found after
// the first byte is sent can only end the stream early.
func (h *Handlers) Archive(c *gin.Context) {
	format, err := archive.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dir := c.Query("path")
	ctx := c.Request.Context()

	exists, err := h.engine.Exists(ctx, dir)
	if err != nil {
		respondError(c, err, gin.H{"path": dir})
		return
	}
	if !exists {
		respondError(c, &vfs.PathError{Op: "archive", Path: dir, Err: vfs.ErrNotFound}, gin.H{"path": dir})
		return
	}

	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename(dir, format)))
	c.Status(http.StatusOK)

	stats, err := archive.Export(ctx, h.engine, dir, c.Writer, format)
	if err != nil {
		_ = c.Error(err)
		h.logger.Warn("archive export aborted",
			zap.String("path", dir),
			zap.Int("files", stats.Files),
			zap.Error(err),
		)
		abortStream(c)
		return
	}
	h.logger.Debug("archive exported",
		zap.String("path", dir),
		zap.Int("files", stats.Files),
		zap.Int64("bytes", stats.Bytes),
	)
}

// abortStream cuts the connection under a response whose status is already
// sent, so the client sees a failed transfer instead of a short one.
func abortStream(c *gin.Context) {
	c.Abort()
	conn, _, err := c.Writer.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	_ = conn.Close()
}
