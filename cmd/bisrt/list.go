package main

import (
	"fmt"

	"github.com/oukeidos/bisrt/internal/language"
	"github.com/oukeidos/bisrt/internal/metadata"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var models bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported languages (or models with --models)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if models {
				fmt.Fprintln(out, "Known Models:")
				for _, m := range metadata.Models {
					fmt.Fprintf(out, "  %-8s %-24s %s\n", m.Backend, m.ID, m.Label)
				}
				return
			}
			fmt.Fprintln(out, "Supported Languages:")
			for _, l := range language.GetSupportedLanguages() {
				deepl := ""
				if l.DeepLTarget == "" {
					deepl = " (not on DeepL)"
				}
				fmt.Fprintf(out, "  %-35s [%s]%s\n", l.Name, l.ID, deepl)
			}
		},
	}
	cmd.Flags().BoolVar(&models, "models", false, "List known models and services instead")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
