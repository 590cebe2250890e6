package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// localTree is what push found below a local directory, as slash-separated
// paths relative to it.
type localTree struct {
	files []string
	dirs  []string
}

// scanLocal walks root concurrently. Paths matching any exclude pattern are
// skipped, along with everything below an excluded directory.
func scanLocal(root string, excludes []string) (*localTree, error) {
	var (
		mu   sync.Mutex
		tree localTree
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range excludes {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		mu.Lock()
		defer mu.Unlock()
		switch {
		case d.IsDir():
			tree.dirs = append(tree.dirs, rel)
		case d.Type().IsRegular():
			tree.files = append(tree.files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(tree.files)
	sort.Strings(tree.dirs)
	return &tree, nil
}

// emptyDirs returns the directories with no file anywhere below them.
func (t *localTree) emptyDirs() []string {
	var out []string
	for _, d := range t.dirs {
		i := sort.SearchStrings(t.files, d+"/")
		if i < len(t.files) && strings.HasPrefix(t.files[i], d+"/") {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (a *app) pushCmd() *cobra.Command {
	var excludes []string
	cmd := &cobra.Command{
		Use:   "push <localdir> [remote]",
		Short: "upload a local folder, one file at a time",
		Long: `Upload every file below a local folder to the same relative position
below remote. Existing files are replaced. Empty local folders are created.
A failed file is reported and the upload continues.`,
		Example: `drivectl push ./site www --exclude '.git' --exclude '**/*.tmp'`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := filepath.Clean(args[0])
			info, err := os.Stat(root)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory; use put", root)
			}
			remote, err := pathutil.Normalize(optionalPath(args[1:]))
			if err != nil {
				return err
			}
			for _, pattern := range excludes {
				if !doublestar.ValidatePattern(pattern) {
					return fmt.Errorf("invalid exclude pattern %q", pattern)
				}
			}

			tree, err := scanLocal(root, excludes)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var (
				uploaded int
				bytes    int64
				failed   []string
			)
			for _, rel := range tree.files {
				target := pathutil.Join(remote, rel)
				data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
				if err == nil {
					_, err = a.engine.UploadFile(ctx, target, data)
				}
				if err != nil {
					failed = append(failed, rel)
					a.progress(vfs.Event{Step: "upload", Path: target, Err: err})
					continue
				}
				uploaded++
				bytes += int64(len(data))
				a.progress(vfs.Event{Step: "upload", Path: target})
			}
			for _, rel := range tree.emptyDirs() {
				target := pathutil.Join(remote, rel)
				err := a.engine.CreateDirectory(ctx, target)
				if err != nil {
					failed = append(failed, rel+"/")
				}
				a.progress(vfs.Event{Step: "mkdir", Path: target, Err: err})
			}

			fmt.Fprintf(a.out, "%d file(s), %s uploaded\n", uploaded, humanize.IBytes(uint64(bytes)))
			if len(failed) > 0 {
				return fmt.Errorf("push: %d path(s) failed: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "skip paths matching this glob (repeatable)")
	return cmd
}
