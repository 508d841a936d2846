// Package inspect holds the read-only commands: list and placeholders.
package inspect

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mohamedhabibwork/abp-script/cmd/abpgen/internal/conf"
	"github.com/mohamedhabibwork/abp-script/corpus"
	"github.com/mohamedhabibwork/abp-script/placeholder"
)

// CmdList represents the list command.
var CmdList = NewList()

// CmdPlaceholders represents the placeholders command.
var CmdPlaceholders = NewPlaceholders()

// NewList returns a list command.
func NewList() *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates and presets",
		Long:  "List the templates of the corpus with their output paths, and the presets. Example: abpgen list --preset crud",
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
			return List(cmd.OutOrStdout(), l, preset)
		},
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "only the templates of this preset")
	return cmd
}

// List writes the templates, or those of one preset, followed by the presets.
func List(w io.Writer, l *corpus.Loader, preset string) error {
	m := l.Manifest()
	names := m.Names()
	if preset != "" {
		var err error
		if names, err = m.Preset(preset); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TEMPLATE\tID TYPES\tOUTPUT")
	for _, n := range names {
		e, _ := m.Entry(n)
		ids := "any"
		if len(e.IDTypes) > 0 {
			ids = strings.Join(e.IDTypes, ",")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, ids, e.Output)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if preset != "" {
		return nil
	}
	_, _ = fmt.Fprintln(w)
	for _, p := range m.PresetNames() {
		ns, _ := m.Preset(p)
		_, _ = fmt.Fprintf(w, "preset %s: %s\n", p, strings.Join(ns, " "))
	}
	return nil
}

// NewPlaceholders returns a placeholders command.
func NewPlaceholders() *cobra.Command {
	var (
		seed      conf.SeedFlags
		templates []string
		blocks    bool
	)
	cmd := &cobra.Command{
		Use:   "placeholders",
		Short: "Print placeholder values or the keys of templates",
		Long: "With a seed, print the resolved placeholder table. With --template, print the keys the templates use. " +
			"Example: abpgen placeholders -n Acme.Shop -m Catalog -e Product",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := conf.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if blocks {
				return Blocks(cmd.OutOrStdout())
			}
			if len(templates) > 0 {
				l, err := c.Loader()
				if err != nil {
					return err
				}
				return Keys(cmd.OutOrStdout(), l, templates)
			}
			s, err := seed.Seed(c)
			if err != nil {
				return err
			}
			t, err := placeholder.Resolve(s)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), t.String())
			return err
		},
	}
	seed.AddFlags(cmd.Flags())
	cmd.Flags().StringSliceVarP(&templates, "template", "t", nil, "print the keys of these templates")
	cmd.Flags().BoolVar(&blocks, "blocks", false, "print the optional block keys")
	return cmd
}

// Keys writes the required and optional keys of each template.
func Keys(w io.Writer, l *corpus.Loader, names []string) error {
	for _, n := range names {
		t, err := l.Load(n)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\n  required: %s\n  optional: %s\n",
			t.Name, strings.Join(t.Required(), " "), strings.Join(t.Optional(), " "))
	}
	return nil
}

// Blocks writes the catalogued optional block keys and the prefixes that make a
// key optional.
func Blocks(w io.Writer) error {
	for _, k := range placeholder.OptionalBlocks() {
		if _, err := fmt.Fprintln(w, k); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s*\n%s*\n", placeholder.PrefixAdditional, placeholder.PrefixCustom)
	return err
}
