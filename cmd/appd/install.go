package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func defaultBinDir() string {
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		return gobin
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, "bin")
	}
	return "bin"
}

func newInstallCmd() *cobra.Command {
	var binDir string
	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Copy the running binary into a bin directory.",
		Example: "appd install --bin-dir /usr/local/bin",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			self, err := os.Executable()
			if err != nil {
				return errors.Wrap(err, "failed to locate the running binary")
			}
			dst := filepath.Join(binDir, "appd")
			if err := installBinary(self, dst); err != nil {
				return err
			}
			cmd.Printf("installed %s\n", dst)
			return nil
		},
	}
	cmd.Flags().StringVar(&binDir, "bin-dir", defaultBinDir(), "directory to install into")
	return cmd
}

// installBinary atomically replaces dst with a copy of src. A process
// running the old dst keeps its inode.
func installBinary(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(dst))
	}
	out, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o755))
	if err != nil {
		return errors.Wrapf(err, "failed to stage %s", dst)
	}
	defer out.Cleanup()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "failed to copy %s", src)
	}
	return errors.Wrapf(out.CloseAtomicallyReplace(), "failed to replace %s", dst)
}
