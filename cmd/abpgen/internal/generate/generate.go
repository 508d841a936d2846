package generate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/conf"
	"github.com/mohamedhabibwork/abp-script/emit"
	"github.com/mohamedhabibwork/abp-script/scaffold"
)

// CmdGenerate represents the generate command.
var CmdGenerate = New()

type options struct {
	seed           conf.SeedFlags
	presets        []string
	templates      []string
	file           string
	dryRun         bool
	print          bool
	keepBlankLines bool
}

// New returns a generate command.
func New() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate ABP module source files",
		Long: "Generate ABP module source files from the template corpus. " +
			"Example: abpgen generate -n Acme.Shop -m Catalog -e Product --preset crud",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, o)
		},
	}
	fs := cmd.Flags()
	o.seed.AddFlags(fs)
	conf.AddOutputFlags(fs)
	conf.AddCheckFlags(fs)
	fs.StringSliceVarP(&o.presets, "preset", "p", nil, "template presets, e.g. crud,events")
	fs.StringSliceVarP(&o.templates, "template", "t", nil, "templates by name, e.g. api/controller-crud")
	fs.StringVarP(&o.file, "file", "f", "", "batch file listing several entities")
	fs.Int("workers", 4, "entities generated at once from a batch file")
	fs.BoolVar(&o.dryRun, "dry-run", false, "render and validate without writing")
	fs.BoolVar(&o.print, "print", false, "print the rendered text (with --dry-run)")
	fs.BoolVar(&o.keepBlankLines, "keep-blank-lines", false, "keep the line of an empty optional block")
	return cmd
}

func run(cmd *cobra.Command, o *options) error {
	c, err := conf.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger := c.Logger(cmd.ErrOrStderr())
	loader, err := c.Loader()
	if err != nil {
		return err
	}

	var reqs []scaffold.Request
	if o.file != "" {
		if reqs, err = readBatch(o.file, c); err != nil {
			return err
		}
	} else {
		seed, err := o.seed.Seed(c)
		if err != nil {
			return err
		}
		reqs = []scaffold.Request{{Seed: seed, Presets: o.presets, Templates: o.templates}}
	}
	for i := range reqs {
		reqs[i].Strict = c.Strict
		reqs[i].Partial = c.Partial
		reqs[i].DryRun = o.dryRun
		reqs[i].KeepBlankLines = o.keepBlankLines
	}

	var e *emit.Emitter
	if !o.dryRun {
		e = c.Emitter(afero.NewOsFs(), logger)
	}
	g := scaffold.New(
		scaffold.WithLoader(loader),
		scaffold.WithValidator(c.Validator()),
		scaffold.WithEmitter(e),
		scaffold.WithWorkers(c.Workers),
		scaffold.WithLogger(logger),
	)
	reports := g.GenerateAll(cmd.Context(), reqs)
	return Print(cmd.OutOrStdout(), reqs, reports, o.dryRun && o.print)
}

func readBatch(file string, c *conf.Config) ([]scaffold.Request, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open batch file")
	}
	defer func() {
		_ = f.Close()
	}()
	b, err := ParseBatch(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", file)
	}
	return b.Requests(c, filepath.Dir(file))
}

// Print writes a summary of the reports and returns the combined failure.
func Print(w io.Writer, reqs []scaffold.Request, reports []*scaffold.Report, text bool) error {
	failed := 0
	for i, r := range reports {
		name := reqs[i].Name
		if name == "" {
			name = reqs[i].Seed.ModuleName + "/" + reqs[i].Seed.EntityName
		}
		_, _ = fmt.Fprintf(w, "%s:\n", name)
		for _, f := range r.Findings {
			_, _ = fmt.Fprintf(w, "  %s\n", f.Error())
		}
		for _, o := range r.Outputs {
			switch {
			case o.Written != "":
				_, _ = fmt.Fprintf(w, "  wrote %s\n", o.Written)
			case o.Shared != "":
				_, _ = fmt.Fprintf(w, "  %s (written by %s)\n", o.Path, o.Shared)
			default:
				_, _ = fmt.Fprintf(w, "  %s (not written)\n", o.Path)
			}
			if text {
				_, _ = fmt.Fprintf(w, "--- %s\n%s\n", o.Path, o.Text)
			}
		}
		for _, err := range r.Errors {
			PrintError(w, err)
		}
		if r.Err() != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d entities failed", failed, len(reports))
	}
	return nil
}

// PrintError writes err and its hints.
func PrintError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "  error: %v\n", err)
	if hint := errors.FlattenHints(err); hint != "" {
		_, _ = fmt.Fprintf(w, "    hint: %s\n", hint)
	}
}
