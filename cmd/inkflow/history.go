package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"inkflow-ai-api/internal/domain/entity"
	apperrors "inkflow-ai-api/pkg/errors"
)

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "List, show and delete generated content",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			records := c.session.Controller.History()
			if asJSON {
				return writeJSON(c.out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(c.errOut, "no history yet")
				return nil
			}
			w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tTEMPLATE\tTITLE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt().Local().Format(time.DateTime), r.TemplateID, r.Title)
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print the content of a history record",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rec, err := c.findRecord(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, rec.Content)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a history record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remaining := c.session.Controller.DeleteHistoryItem(cmd.Context(), args[0])
			fmt.Fprintf(c.errOut, "%d record(s) left\n", len(remaining))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.session.Controller.ClearHistory(cmd.Context())
			fmt.Fprintln(c.errOut, "history cleared")
			return nil
		},
	}

	cmd.AddCommand(list, show, rm, clearCmd)
	return cmd
}

func (c *cli) findRecord(id string) (entity.HistoryRecord, error) {
	for _, r := range c.session.Controller.History() {
		if r.ID == id {
			return r, nil
		}
	}
	return entity.HistoryRecord{}, apperrors.New(apperrors.CodeHistoryNotFound, "history record not found").WithDetail(id)
}
