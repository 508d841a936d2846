// Package check holds the validate command.
package check

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/conf"
	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/generate"
	"github.com/mohamedhabibwork/abp-script/scaffold"
)

// CmdValidate represents the validate command.
var CmdValidate = New()

// New returns a validate command.
func New() *cobra.Command {
	var (
		seed      conf.SeedFlags
		presets   []string
		templates []string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a seed against templates without rendering",
		Long:  "Check a seed against templates without rendering. Example: abpgen validate -n Acme.Shop -m Catalog -e Product --id-type int --preset crud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := conf.Load(cmd.Flags())
			if err != nil {
				return err
			}
			l, err := c.Loader()
			if err != nil {
				return err
			}
			s, err := seed.Seed(c)
			if err != nil {
				return err
			}
			g := scaffold.New(scaffold.WithLoader(l), scaffold.WithValidator(c.Validator()))
			_, r := g.Plan(scaffold.Request{Seed: s, Presets: presets, Templates: templates, Strict: c.Strict})
			return Print(cmd.OutOrStdout(), r)
		},
	}
	seed.AddFlags(cmd.Flags())
	conf.AddCheckFlags(cmd.Flags())
	cmd.Flags().StringSliceVarP(&presets, "preset", "p", nil, "template presets")
	cmd.Flags().StringSliceVarP(&templates, "template", "t", nil, "templates by name")
	return cmd
}

// Print writes the findings and errors of r and fails when any of them blocks.
func Print(w io.Writer, r *scaffold.Report) error {
	for _, f := range r.Findings {
		_, _ = fmt.Fprintln(w, f.Error())
	}
	for _, err := range r.Errors {
		generate.PrintError(w, err)
	}
	if r.Err() != nil {
		return errors.Newf("%d errors, %d findings", len(r.Errors), len(r.Findings))
	}
	if len(r.Findings) == 0 {
		_, _ = fmt.Fprintln(w, "ok")
	}
	return nil
}
