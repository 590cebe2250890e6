package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "put <local> [remote]",
		Short:   "upload one file, replacing any file already there",
		Long:    "Upload one file. Without remote the file keeps its name at the drive root; a remote ending in / names a folder.",
		Example: "drivectl put ./report.pdf docs/",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := filepath.Base(args[0])
			if len(args) == 2 {
				target = args[1]
				if target == "" || target[len(target)-1] == '/' {
					target = pathutil.Join(target, filepath.Base(args[0]))
				}
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory; use push", args[0])
			}
			if err := a.engine.Codec().EnforceLimit(info.Size()); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ent, err := a.engine.UploadFile(cmd.Context(), target, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s)\n", ent.Path, humanize.IBytes(uint64(len(data))))
			return nil
		},
	}
}

func (a *app) mkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>...",
		Short: "create folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := a.engine.CreateDirectory(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Fprintln(a.out, a.style.dir.Render(p+"/"))
			}
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	var sha string
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "delete a file",
		Long:  "Delete a file. With --sha the delete only succeeds if the file still has that hash.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.engine.DeleteFile(cmd.Context(), args[0], sha)
		},
	}
	cmd.Flags().StringVar(&sha, "sha", "", "expected blob hash of the file")
	return cmd
}

func (a *app) rmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <path>",
		Short: "delete a folder and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := vfs.WithObserver(cmd.Context(), a.progress)
			return a.report(a.engine.DeleteDirectory(ctx, args[0]))
		},
	}
}

func (a *app) mvCmd() *cobra.Command {
	var dir bool
	cmd := &cobra.Command{
		Use:     "mv <path> <new-name>",
		Aliases: []string{"rename"},
		Short:   "rename a file, or a folder with --dir, within its parent",
		Example: "drivectl mv photos/img1.png beach.png\ndrivectl mv --dir photos/2023 archive-2023",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := vfs.WithObserver(cmd.Context(), a.progress)
			var (
				target string
				err    error
			)
			if dir {
				target, err = a.engine.RenameFolder(ctx, args[0], args[1])
			} else {
				target, err = a.engine.RenameFile(ctx, args[0], args[1])
			}
			if target != "" {
				fmt.Fprintln(a.out, target)
			}
			return a.report(err)
		},
	}
	cmd.Flags().BoolVarP(&dir, "dir", "d", false, "rename a folder")
	return cmd
}

func (a *app) cpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "copy a folder and everything below it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := vfs.WithObserver(cmd.Context(), a.progress)
			return a.report(a.engine.CopyDirectory(ctx, args[0], args[1]))
		},
	}
}
