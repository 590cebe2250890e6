package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gitdrive/internal/classify"
	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
)

func file(name string, size int64) objectstore.Entry {
	return objectstore.Entry{Name: name, Path: "docs/" + name, Type: objectstore.TypeFile, Size: size}
}

func dir(name string) objectstore.Entry {
	return objectstore.Entry{Name: name, Path: "docs/" + name, Type: objectstore.TypeDir}
}

func names(entries []objectstore.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func fixture() []objectstore.Entry {
	return []objectstore.Entry{
		file("zeta.png", 300),
		dir("photos"),
		file("Alpha.pdf", 100),
		file("beta.zip", 200),
		dir("archive"),
		file("notes.md", 50),
	}
}

func TestApplyDefaultOrdersFoldersFirstByName(t *testing.T) {
	got := Apply(fixture(), DefaultQuery())
	assert.Equal(t, []string{"archive", "photos", "Alpha.pdf", "beta.zip", "notes.md", "zeta.png"}, names(got))
}

func TestApplyDescending(t *testing.T) {
	q := DefaultQuery()
	q.Ascending = false
	got := Apply(fixture(), q)
	assert.Equal(t, []string{"photos", "archive", "zeta.png", "notes.md", "beta.zip", "Alpha.pdf"}, names(got))
}

func TestApplySortBySize(t *testing.T) {
	q := Query{Sort: SortSize, Ascending: true}
	got := Apply(fixture(), q)
	assert.Equal(t, []string{"photos", "archive", "notes.md", "Alpha.pdf", "beta.zip", "zeta.png"}, names(got))
}

func TestApplySortByTimeKeepsOrder(t *testing.T) {
	q := Query{Sort: SortTime, Ascending: true}
	got := Apply(fixture(), q)
	assert.Equal(t, []string{"photos", "archive", "zeta.png", "Alpha.pdf", "beta.zip", "notes.md"}, names(got))
}

func TestApplyCategoryHidesFolders(t *testing.T) {
	tests := []struct {
		cat  classify.Category
		want []string
	}{
		{classify.CategoryImage, []string{"zeta.png"}},
		{classify.CategoryDoc, []string{"Alpha.pdf"}},
		{classify.CategoryArchive, []string{"beta.zip"}},
		{classify.CategoryOther, []string{"notes.md"}},
		{classify.CategoryVideo, []string{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			q := DefaultQuery()
			q.Category = tt.cat
			assert.Equal(t, tt.want, names(Apply(fixture(), q)))
		})
	}
}

func TestApplySearchIsCaseInsensitive(t *testing.T) {
	q := DefaultQuery()
	q.Search = "ALP"
	assert.Equal(t, []string{"Alpha.pdf"}, names(Apply(fixture(), q)))

	q.Search = "a"
	assert.Equal(t, []string{"archive", "Alpha.pdf", "beta.zip", "zeta.png"}, names(Apply(fixture(), q)))
}

func TestApplyGlob(t *testing.T) {
	q := DefaultQuery()
	q.Glob = "*.{png,zip}"
	assert.Equal(t, []string{"beta.zip", "zeta.png"}, names(Apply(fixture(), q)))

	q.Glob = "docs/**/*.md"
	assert.Equal(t, []string{"notes.md"}, names(Apply(fixture(), q)))
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	in := fixture()
	_ = Apply(in, DefaultQuery())
	assert.Equal(t, fixture(), in)
}

func TestQueryValidate(t *testing.T) {
	require.NoError(t, DefaultQuery().Validate())
	assert.Error(t, Query{Sort: "mtime"}.Validate())
	assert.Error(t, Query{Glob: "[a-"}.Validate())
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture())
	assert.Equal(t, Summary{Files: 4, Folders: 2, Bytes: 650}, s)
}
