package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) templatesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "templates [id]",
		Aliases: []string{"tpl"},
		Short:   "List templates, or show the fields of one template",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				tpl, err := c.session.Catalog.Get(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(c.out, tpl)
				}
				fmt.Fprintf(c.out, "%s (%s)\n%s\n\n", tpl.Name, tpl.ID, tpl.Description)
				w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "FIELD\tTYPE\tLABEL\tDEFAULT / OPTIONS")
				for _, f := range tpl.Fields {
					extra := f.DefaultValue
					if len(f.Options) > 0 {
						extra = strings.Join(f.Options, " | ")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Kind, f.Label, extra)
				}
				return w.Flush()
			}

			templates := c.session.Catalog.List()
			if asJSON {
				return writeJSON(c.out, templates)
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, t := range templates {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
