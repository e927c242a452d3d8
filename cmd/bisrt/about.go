package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const disclaimer = `Translations are produced by third-party machine translation services and may
contain errors. Segments that could not be translated are kept in the output
with a "[TRANSLATION FAILED]" tag so they can be found and fixed by hand.`

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "bisrt: bilingual subtitles from a speech transcript")
			fmt.Fprintln(out, "https://github.com/oukeidos/bisrt")
			fmt.Fprintln(out)
			fmt.Fprintln(out, disclaimer)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
