package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload PDF, DOCX or TXT files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var failed int
		for _, path := range args {
			resp, err := cc.client.Upload(cmd.Context(), path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			if err := cli.WriteDocument(out, resp.Document, cc.format); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show library status, or the processing state of one document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			doc, err := cc.client.Document(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.WriteDocument(cmd.OutOrStdout(), doc, cc.format)
		}
		st, err := cc.client.Status(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteStatus(cmd.OutOrStdout(), st, cc.format)
	},
}

var (
	libraryPage  int
	libraryLimit int
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		list, err := cc.client.Documents(cmd.Context(), libraryPage, libraryLimit)
		if err != nil {
			return err
		}
		return cli.WriteDocumentList(cmd.OutOrStdout(), list, cc.format)
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <document-id>",
	Short: "Re-run the failed stage of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		doc, err := cc.client.Retry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.WriteDocument(cmd.OutOrStdout(), doc, cc.format)
	},
}

func init() {
	libraryCmd.Flags().IntVar(&libraryPage, "page", 1, "page number")
	libraryCmd.Flags().IntVar(&libraryLimit, "limit", 20, "documents per page (max 100)")
	rootCmd.AddCommand(uploadCmd, statusCmd, libraryCmd, retryCmd)
}
