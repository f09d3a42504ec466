package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/MeKo-Tech/comicocr/internal/models"
	"github.com/spf13/cobra"
)

func newModelsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model files the scanner uses and whether they are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := models.GetModelsDir(a.cfg.ModelsDir)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "NAME\tSTATUS\tPATH\tDESCRIPTION\n")
			for _, m := range models.ListAvailableModels() {
				path := models.ResolveModelPath(dir, m.Type, m.Filename)
				status := "ok"
				if err := models.ValidateModelExists(path); err != nil {
					status = "missing"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, status, path, m.Description)
			}
			return tw.Flush()
		},
	}
}
