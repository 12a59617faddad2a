package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
)

var citeCmd = &cobra.Command{
	Use:   "cite <citation-key>",
	Short: "Register a citation key and print its number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		reg, err := cc.client.RegisterCitation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.WriteRegistration(cmd.OutOrStdout(), args[0], reg, cc.format)
	},
}

func init() {
	rootCmd.AddCommand(citeCmd)
}
