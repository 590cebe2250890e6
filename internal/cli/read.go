package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/gitdrive/internal/classify"
	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/archive"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/listing"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

func optionalPath(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (a *app) lsCmd() *cobra.Command {
	var (
		category string
		desc     bool
		q        = listing.DefaultQuery()
		sortKey  string
	)
	cmd := &cobra.Command{
		Use:     "ls [path]",
		Aliases: []string{"list"},
		Short:   "list a folder",
		Example: "drivectl ls photos --category image --sort size --desc",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, ok := classify.ParseCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q", category)
			}
			q.Category = cat
			q.Sort = listing.SortKey(sortKey)
			q.Ascending = !desc
			if err := q.Validate(); err != nil {
				return err
			}

			dir := optionalPath(args)
			entries, err := a.engine.ListChildren(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				exists, err := a.engine.Exists(cmd.Context(), dir)
				if err != nil {
					return err
				}
				if !exists {
					return &vfs.PathError{Op: "ls", Path: dir, Err: vfs.ErrNotFound}
				}
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, ent := range listing.Apply(entries, q) {
				if ent.IsDir() {
					fmt.Fprintf(tw, "%s\t-\t%s\n", a.style.dir.Render(ent.Name+"/"), "folder")
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ent.Name, humanize.IBytes(uint64(ent.Size)), classify.TypeOf(ent.Name))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			sum := listing.Summarize(entries)
			fmt.Fprintln(a.out, a.style.dim.Render(fmt.Sprintf("%d file(s), %d folder(s), %s",
				sum.Files, sum.Folders, humanize.IBytes(uint64(sum.Bytes)))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show image, video, audio, doc, archive or other files")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "case-insensitive name filter")
	cmd.Flags().StringVarP(&q.Glob, "glob", "g", "", "glob filter, matched against names (or paths if it contains /)")
	cmd.Flags().StringVar(&sortKey, "sort", string(listing.SortName), "sort by name, size or time")
	cmd.Flags().BoolVar(&desc, "desc", false, "reverse the sort order")
	return cmd
}

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [path]",
		Short: "print a folder and everything below it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := pathutil.Normalize(optionalPath(args))
			if err != nil {
				return err
			}
			var files, folders int
			var bytes int64
			err = a.engine.Walk(cmd.Context(), dir, func(ent objectstore.Entry) error {
				rel, err := pathutil.Rel(dir, ent.Path)
				if err != nil {
					return err
				}
				indent := strings.Repeat("  ", strings.Count(rel, "/"))
				if ent.IsDir() {
					folders++
					fmt.Fprintf(a.out, "%s%s\n", indent, a.style.dir.Render(ent.Name+"/"))
					return nil
				}
				files++
				bytes += ent.Size
				fmt.Fprintf(a.out, "%s%s %s\n", indent, ent.Name, a.style.dim.Render(humanize.IBytes(uint64(ent.Size))))
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, a.style.dim.Render(fmt.Sprintf("%d file(s), %d folder(s), %s",
				files, folders, humanize.IBytes(uint64(bytes)))))
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <remote> [local]",
		Short:   "download a file; without local, or with -, write it to stdout",
		Example: "drivectl get docs/report.pdf ./report.pdf",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, ent, err := a.engine.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 || args[1] == "-" {
				_, err := a.out.Write(data)
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "%s → %s (%s)\n", ent.Path, args[1], humanize.IBytes(uint64(len(data))))
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var formatName string
	cmd := &cobra.Command{
		Use:     "export <remote> [archive]",
		Short:   "download a folder as a compressed tarball",
		Example: "drivectl export photos --format tar.zst",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := archive.ParseFormat(formatName)
			if err != nil {
				return err
			}
			exists, err := a.engine.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !exists {
				return &vfs.PathError{Op: "export", Path: args[0], Err: vfs.ErrNotFound}
			}

			target := archive.Filename(args[0], format)
			if len(args) == 2 {
				target = args[1]
			}
			f, err := os.Create(target)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(f)
			stats, err := archive.Export(cmd.Context(), a.engine, args[0], w, format)
			if err == nil {
				err = w.Flush()
			}
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return errors.Join(err, os.Remove(target))
			}
			fmt.Fprintf(a.errOut, "%s: %d file(s), %d folder(s), %s\n",
				target, stats.Files, stats.Folders, humanize.IBytes(uint64(stats.Bytes)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", string(archive.FormatGzip), "tar, tar.gz or tar.zst")
	return cmd
}

func (a *app) repoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repo",
		Short: "show the backing repository and its size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.engine.Repository(cmd.Context())
			if err != nil {
				return err
			}
			visibility := "public"
			if info.Private {
				visibility = "private"
			}
			fmt.Fprintf(a.out, "%s (%s, default branch %s)\n", info.FullName, visibility, info.DefaultBranch)
			fmt.Fprintf(a.out, "size: %s\n", humanize.IBytes(uint64(info.SizeBytes())))
			if info.HTMLURL != "" {
				fmt.Fprintln(a.out, a.style.dim.Render(info.HTMLURL))
			}
			return nil
		},
	}
}
