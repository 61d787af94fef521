package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"inkflow-ai-api/internal/application/session"
	apperrors "inkflow-ai-api/pkg/errors"
)

func (c *cli) generateCmd() *cobra.Command {
	var (
		templateID string
		fields     []string
		model      string
		pro        bool
		copyOut    bool
	)

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate content from a template and stream it to stdout",
		Long: `Fill a template with --field id=value pairs and stream the generated text.

Fields not given keep the template defaults. Text fields are required.
The finished text is saved to history; press Ctrl+C to abandon a generation.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ctrl := c.session.Controller

			if templateID != "" {
				if _, err := ctrl.SelectTemplate(ctx, templateID); err != nil {
					return err
				}
			}
			for _, kv := range fields {
				id, value, ok := strings.Cut(kv, "=")
				if !ok {
					return apperrors.New(apperrors.CodeInvalidParam, "field must be written as id=value").WithDetail(kv)
				}
				if _, err := ctrl.UpdateField(strings.TrimSpace(id), value); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
			}
			switch {
			case model != "":
				ctrl.SelectModel(model)
			case pro:
				ctrl.SelectModel(ctrl.ModelPresets().Pro)
			}

			if err := ctrl.Validate(); err != nil {
				return fmt.Errorf("%s: %s", apperrors.UserMessage(err), apperrors.AsAppError(err).Detail)
			}

			// 快照是累积文本，只写出新增部分
			written := 0
			rec, err := ctrl.Submit(ctx, func(acc string) {
				if len(acc) > written {
					fmt.Fprint(c.out, acc[written:])
					written = len(acc)
				}
			})
			if written > 0 {
				fmt.Fprintln(c.out)
			}
			if err != nil {
				return errors.New(session.ErrorMessage(err))
			}
			fmt.Fprintf(c.errOut, "saved to history: %s (%s)\n", rec.Title, rec.ID)

			if copyOut {
				if err := ctrl.CopyOutput(ctx); err != nil {
					fmt.Fprintln(c.errOut, "copy failed:", apperrors.UserMessage(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Template ID (default: first template)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Field value as id=value (repeatable)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name, optionally prefixed with a provider (openai:gpt-4o-mini)")
	cmd.Flags().BoolVar(&pro, "pro", false, "Use the high quality model preset")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "Copy the result to the clipboard")
	return cmd
}
