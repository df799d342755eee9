// treefs is a small command line front end for the treefs backends.
package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/treefs/treefs/backend/drive"
	"github.com/treefs/treefs/backend/local"
	"github.com/treefs/treefs/backend/memory"
	"github.com/treefs/treefs/fs"
	"github.com/treefs/treefs/graphfs"
)

var (
	backendName        string
	localRoot          string
	driveRootID        string
	allDrives          bool
	serviceAccountFile string
	verbose            int
)

// newFileSystem builds the selected backend.
func newFileSystem(cmd *cobra.Command) (fs.FileSystem, error) {
	switch backendName {
	case "local":
		return local.New(localRoot)
	case "memory":
		return graphfs.New(memory.New()), nil
	case "drive":
		store, err := drive.NewStore(cmd.Context(), drive.Options{
			RootFolderID:       driveRootID,
			AllDrives:          allDrives,
			ServiceAccountFile: serviceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		return graphfs.New(store), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backendName)
}

func main() {
	root := &cobra.Command{
		Use:           "treefs",
		Short:         "path-addressed file operations over local disk or an ID-addressed cloud store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env carries credentials locations during development
			_ = godotenv.Load()
			switch {
			case verbose >= 2:
				fs.SetLogLevel(fs.LogLevelDebug)
			case verbose == 1:
				fs.SetLogLevel(fs.LogLevelInfo)
			default:
				fs.SetLogLevel(fs.LogLevelError)
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&backendName, "backend", "local", "backend to use: local, drive or memory")
	flags.StringVar(&localRoot, "root", ".", "base directory for the local backend")
	flags.StringVar(&driveRootID, "drive-root-id", "", "folder ID to use as the drive root scope")
	flags.BoolVar(&allDrives, "all-drives", false, "search across all shared drives")
	flags.StringVar(&serviceAccountFile, "service-account-file", "", "service account credentials JSON file path")
	flags.CountVarP(&verbose, "verbose", "v", "print info (-v) or debug (-vv) output")

	root.AddCommand(
		lsCommand(),
		catCommand(),
		putCommand(),
		rmCommand(),
		mkdirCommand(),
		cpCommand(),
		mvCommand(),
		renameCommand(),
		syncFilesCommand(),
		existsCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "treefs:", err)
		os.Exit(1)
	}
}

func lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "list a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			entries, err := f.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if entry.Kind == fs.KindFolder {
					fmt.Printf("%10s %s/\n", "-", entry.Name)
				} else {
					fmt.Printf("%10d %s\n", entry.Size, entry.Name)
				}
			}
			return nil
		},
	}
}

func catCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "print a file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			data, err := f.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func putCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-file> <path>",
		Short: "upload a local file, replacing any existing file at path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = ioutil.ReadAll(os.Stdin)
			} else {
				data, err = ioutil.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			return f.WriteFile(cmd.Context(), args[1], data)
		},
	}
}

func rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "delete a file or directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			return f.Delete(cmd.Context(), args[0])
		},
	}
}

func mkdirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "create a directory and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			return f.Mkdir(cmd.Context(), args[0])
		},
	}
}

func cpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "copy a file or directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			return f.Copy(cmd.Context(), args[0], args[1])
		},
	}
}

func mvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "move a file or directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			return f.Move(cmd.Context(), args[0], args[1])
		},
	}
}

func renameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "rename a file or directory in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			return f.Rename(cmd.Context(), args[0], args[1])
		},
	}
}

func syncFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-files <src> <dst>",
		Short: "overlay every file under src onto dst",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			return f.CopyAllFiles(cmd.Context(), args[0], args[1])
		},
	}
}

func existsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <path>",
		Short: "report whether a path exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFileSystem(cmd)
			if err != nil {
				return err
			}
			ok, err := f.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
}
