package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/models"
)

var (
	searchDocs []string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search document chunks",
	Long: `Search document chunks with combined keyword and semantic ranking.

Multi-word queries work with or without quotes. Restrict the search to
specific documents with --doc (repeatable).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		format := cc.format
		if searchJSON {
			format = cli.OutputJSON
		}
		resp, err := cc.client.Search(cmd.Context(), &models.SearchQuery{
			Query:       buildSearchQuery(args),
			DocumentIDs: searchDocs,
			TopK:        searchTopK,
		})
		if err != nil {
			return err
		}
		return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format, cc.cfg.Search.SnippetLength)
	},
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchDocs, "doc", nil, "restrict to document id (repeatable)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from server config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output JSON (same as --output json)")
	rootCmd.AddCommand(searchCmd)
}
