// Package extract holds the extract command.
package extract

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/conf"
	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/emit"
)

// CmdExtract represents the extract command.
var CmdExtract = New()

// New returns an extract command.
func New() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "extract <dir>",
		Short: "Write the template corpus to a directory",
		Long: "Write the template corpus to a directory for customisation, then pass it with --templates. " +
			"Example: abpgen extract ./abp-templates",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := conf.Load(cmd.Flags())
			if err != nil {
				return err
			}
			l, err := c.Loader()
			if err != nil {
				return err
			}
			e := emit.New(afero.NewOsFs(), args[0],
				emit.WithCreateDirs(true),
				emit.WithOverwrite(overwrite),
				emit.WithLogger(c.Logger(cmd.ErrOrStderr())),
			)
			return Extract(cmd.OutOrStdout(), l, e)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	return cmd
}

// Extract writes every file of the corpus through e. Conflicts are checked for
// all files before the first write.
func Extract(w io.Writer, l *corpus.Loader, e *emit.Emitter) error {
	files, err := l.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err = e.Check(f.Path); err != nil {
			return err
		}
	}
	for _, f := range files {
		if _, err = e.Emit(f.Path, f.Data); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(w, "extracted corpus %s (%d files) to %s\n", l.Manifest().Version, len(files), e.Root())
	return nil
}
