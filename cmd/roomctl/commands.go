package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dataroom/internal/domain"
	"dataroom/internal/tree"

	"github.com/spf13/cobra"
)

var (
	makeParents bool
	recursive   bool
)

func init() {
	Root.AddCommand(lsCommand, mkdirCommand, mvCommand, renameCommand, rmCommand, uploadCommand, whoamiCommand)
	mkdirCommand.Flags().BoolVarP(&makeParents, "parents", "p", false, "Create missing parent folders")
	rmCommand.Flags().BoolVarP(&recursive, "recursive", "r", false, "Allow deleting a folder with everything in it")
}

var lsCommand = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		folder, err := eng.Resolve(ctx, encodePath(path))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderTrail(eng.Breadcrumbs(ctx, folder), width))

		var folders []tree.Folder
		var files []tree.File
		if folder == nil {
			listing, err := eng.Listing(ctx)
			if err != nil {
				return err
			}
			folders, files = listing.Folders, listing.Files
		} else {
			contents, err := eng.Contents(ctx, *folder)
			if err != nil {
				return err
			}
			folders, files = contents.Children, contents.Files
		}
		printEntries(out, folders, files)
		return nil
	},
}

var mkdirCommand = &cobra.Command{
	Use:   "mkdir path",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		names := splitPath(args[0])
		if len(names) == 0 {
			return errors.New("mkdir needs a folder name")
		}

		var parent *tree.ID
		for i, name := range names {
			last := i == len(names)-1
			existing, err := eng.Resolve(ctx, tree.BuildPath(names[:i+1]))
			switch {
			case err == nil && !last:
				parent = existing
				continue
			case err == nil && last:
				return fmt.Errorf("%s already exists", strings.Join(names, "/"))
			case !errors.Is(err, domain.ErrNotFound):
				return err
			case !last && !makeParents:
				return fmt.Errorf("%s does not exist (use -p to create it)", strings.Join(names[:i+1], "/"))
			}

			created, err := eng.CreateFolder(ctx, name, parent)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", strings.Join(names[:i+1], "/"))
			parent = &created.ID
		}
		return nil
	},
}

var mvCommand = &cobra.Command{
	Use:   "mv folder destination",
	Short: "Move a folder into another folder (\"/\" for the room root)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, err := eng.Resolve(ctx, encodePath(args[0]))
		if err != nil {
			return err
		}
		if src == nil {
			return errors.New("cannot move the room root")
		}
		dst, err := eng.Resolve(ctx, encodePath(args[1]))
		if err != nil {
			return err
		}
		moved, err := eng.MoveFolder(ctx, *src, dst)
		if err != nil {
			return err
		}
		path, _ := eng.PathOf(ctx, &moved.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "moved to /%s\n", tree.DecodeSegment(path))
		return nil
	},
}

var renameCommand = &cobra.Command{
	Use:   "rename path new-name",
	Short: "Rename a folder or file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		target, err := locate(ctx, args[0])
		if err != nil {
			return err
		}
		if target.folder != nil {
			_, err = eng.RenameFolder(ctx, *target.folder, args[1])
		} else {
			_, err = eng.RenameFile(ctx, target.file.ID, args[1])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var rmCommand = &cobra.Command{
	Use:   "rm path",
	Short: "Delete a file, or a folder with -r",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		target, err := locate(ctx, args[0])
		if err != nil {
			return err
		}
		if target.folder != nil {
			if !recursive {
				return fmt.Errorf("%s is a folder (use -r to delete it and its contents)", args[0])
			}
			err = eng.DeleteFolder(ctx, *target.folder)
		} else {
			err = eng.DeleteFile(ctx, target.file.ID)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var uploadCommand = &cobra.Command{
	Use:   "upload local-file [folder]",
	Short: "Upload a local file into a folder",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var folder *tree.ID
		if len(args) == 2 {
			var err error
			if folder, err = eng.Resolve(ctx, encodePath(args[1])); err != nil {
				return err
			}
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		uploaded, err := eng.UploadFile(ctx, filepath.Base(args[0]), folder, "", f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes, %s)\n", uploaded.Name, uploaded.SizeBytes, uploaded.MimeType)
		return nil
	},
}

var whoamiCommand = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and their data room",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
		fmt.Fprintf(out, "data room: %s (%s)\n", eng.Room().Name, eng.Room().ID)
		return nil
	},
}

// target is a located folder or file
type target struct {
	folder *tree.ID
	file   *tree.File
}

// locate finds the folder or file at a user path. Folders win over files
// of the same name.
func locate(ctx context.Context, path string) (target, error) {
	names := splitPath(path)
	if len(names) == 0 {
		return target{}, errors.New("the room root cannot be changed")
	}
	id, err := eng.Resolve(ctx, tree.BuildPath(names))
	if err == nil {
		return target{folder: id}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return target{}, err
	}

	parent, err := eng.Resolve(ctx, tree.BuildPath(names[:len(names)-1]))
	if err != nil {
		return target{}, err
	}
	var files []tree.File
	if parent == nil {
		listing, err := eng.Listing(ctx)
		if err != nil {
			return target{}, err
		}
		files = listing.Files
	} else {
		contents, err := eng.Contents(ctx, *parent)
		if err != nil {
			return target{}, err
		}
		files = contents.Files
	}
	base := names[len(names)-1]
	for i := range files {
		if tree.SameName(files[i].Name, base) {
			return target{file: &files[i]}, nil
		}
	}
	return target{}, &domain.NotFoundError{Message: fmt.Sprintf("nothing at %s", path)}
}

// splitPath turns "Reports/2024" into its names. Names cannot contain "/".
func splitPath(path string) []string {
	var names []string
	for _, part := range strings.Split(path, "/") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func encodePath(path string) string {
	return tree.BuildPath(splitPath(path))
}

// renderTrail prints the breadcrumb on one line, collapsing the middle
// entries into "…" when it does not fit
func renderTrail(trail tree.Trail, available int) string {
	const sep, ellipsis = " > ", "…"
	widths := make([]int, len(trail.Crumbs))
	for i, c := range trail.Crumbs {
		widths[i] = len([]rune(c.Name)) + len(sep)
	}
	layout := tree.CollapseTrail(widths, available, len([]rune(ellipsis))+len(sep))

	var parts []string
	for i, idx := range layout.Visible {
		if layout.Collapsed() && i > 0 && layout.Visible[i-1] < layout.HiddenFrom && idx >= layout.HiddenTo {
			parts = append(parts, ellipsis)
		}
		parts = append(parts, trail.Crumbs[idx].Name)
	}
	line := strings.Join(parts, sep)
	if trail.Diagnostic != nil {
		line += fmt.Sprintf("  (incomplete: %s)", trail.Diagnostic.Kind)
	}
	return line
}

func printEntries(out io.Writer, folders []tree.Folder, files []tree.File) {
	for _, f := range folders {
		count := ""
		if f.Count != nil {
			count = fmt.Sprintf("%d folders, %d files", f.Count.Children, f.Count.Files)
		}
		fmt.Fprintf(out, "d %-40s %s\n", f.Name+"/", count)
	}
	for _, f := range files {
		fmt.Fprintf(out, "- %-40s %10d  %s\n", f.Name, f.SizeBytes, f.MimeType)
	}
	if len(folders) == 0 && len(files) == 0 {
		fmt.Fprintln(out, "(empty)")
	}
}
