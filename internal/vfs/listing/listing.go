// Package listing filters and orders directory listings for display.
package listing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/GriffinCanCode/gitdrive/internal/classify"
	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
)

// SortKey selects the ordering within folders and within files.
type SortKey string

const (
	SortName SortKey = "name"
	SortSize SortKey = "size"
	// SortTime keeps backend order; the contents API carries no timestamps.
	SortTime SortKey = "time"
)

// Query is a display filter over one listing.
type Query struct {
	Category  classify.Category
	Search    string
	Glob      string
	Sort      SortKey
	Ascending bool
}

// DefaultQuery shows everything by name, ascending.
func DefaultQuery() Query {
	return Query{Category: classify.CategoryAll, Sort: SortName, Ascending: true}
}

// Validate rejects unknown sort keys and malformed globs.
func (q Query) Validate() error {
	switch q.Sort {
	case "", SortName, SortSize, SortTime:
	default:
		return fmt.Errorf("unknown sort key %q", q.Sort)
	}
	if q.Glob != "" && !doublestar.ValidatePattern(q.Glob) {
		return fmt.Errorf("invalid glob %q: %w", q.Glob, doublestar.ErrBadPattern)
	}
	return nil
}

// Apply returns the entries that pass q, folders first. The input slice is
// not modified.
func Apply(entries []objectstore.Entry, q Query) []objectstore.Entry {
	out := make([]objectstore.Entry, 0, len(entries))
	search := strings.ToLower(q.Search)
	for _, ent := range entries {
		if !matchCategory(ent, q.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(ent.Name), search) {
			continue
		}
		if q.Glob != "" && !matchGlob(ent, q.Glob) {
			continue
		}
		out = append(out, ent)
	}

	col := collate.New(language.Und)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		var cmp int
		switch q.Sort {
		case SortSize:
			cmp = compareInt(a.Size, b.Size)
		case SortTime:
			cmp = 0
		default:
			cmp = col.CompareString(a.Name, b.Name)
		}
		if !q.Ascending {
			cmp = -cmp
		}
		return cmp < 0
	})
	return out
}

// Folders are hidden whenever a category is selected.
func matchCategory(ent objectstore.Entry, cat classify.Category) bool {
	if cat == "" || cat == classify.CategoryAll {
		return true
	}
	if ent.IsDir() {
		return false
	}
	return classify.CategoryOf(ent.Name) == cat
}

// A glob with a separator is matched against the full path, otherwise
// against the name.
func matchGlob(ent objectstore.Entry, pattern string) bool {
	subject := ent.Name
	if strings.Contains(pattern, "/") {
		subject = ent.Path
	}
	ok, err := doublestar.Match(pattern, subject)
	return err == nil && ok
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Summary counts what a listing holds.
type Summary struct {
	Files   int   `json:"files"`
	Folders int   `json:"folders"`
	Bytes   int64 `json:"bytes"`
}

// Summarize totals entries.
func Summarize(entries []objectstore.Entry) Summary {
	var s Summary
	for _, ent := range entries {
		if ent.IsDir() {
			s.Folders++
			continue
		}
		s.Files++
		s.Bytes += ent.Size
	}
	return s
}
