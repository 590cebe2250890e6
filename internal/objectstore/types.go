package objectstore

// Object types reported by the contents API.
const (
	TypeFile    = "file"
	TypeDir     = "dir"
	TypeSymlink = "symlink"
	TypeSubmod  = "submodule"
)

// Repo identifies the repository a call is made against.
type Repo struct {
	Owner string
	Name  string
	Token string
}

// Entry is one item of a single-level directory listing.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type == TypeDir }

// Object is a single file with its inline content.
type Object struct {
	Entry
	// Content is base64 with embedded line breaks. Empty for files above
	// the inline limit, in which case Encoding is "none".
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// Result is the outcome of Get: either a file or a directory listing.
type Result struct {
	Object  *Object
	Entries []Entry
}

// IsDir reports whether the path resolved to a directory.
func (r *Result) IsDir() bool { return r.Object == nil }

// Commit is the commit created by a mutation.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	HTMLURL string `json:"html_url,omitempty"`
}

// PutRequest is the body of a create or update. Omitting SHA means create.
type PutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// DeleteRequest is the body of a delete.
type DeleteRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch,omitempty"`
}

// PutResult is returned by Put.
type PutResult struct {
	Content Entry  `json:"content"`
	Commit  Commit `json:"commit"`
}

// Repository holds the metadata used for connection checks.
type Repository struct {
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	// Size is reported by the API in KiB.
	Size    int64  `json:"size"`
	HTMLURL string `json:"html_url"`
}

// SizeBytes converts the reported size to bytes.
func (r *Repository) SizeBytes() int64 { return r.Size * 1024 }
