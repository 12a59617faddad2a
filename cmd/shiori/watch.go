package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var watchSync bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the inbox directories of a running server",
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inbox directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		dirs, err := cc.client.WatchDirectories(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(dirs) == 0 {
			fmt.Fprintln(out, "No inbox directories")
			return nil
		}
		for _, d := range dirs {
			fmt.Fprintln(out, d)
		}
		return nil
	},
}

var watchAddCmd = &cobra.Command{
	Use:   "add <directory>",
	Short: "Watch a directory and upload new files from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := cc.client.AddWatchDirectory(cmd.Context(), dir, watchSync); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", dir)
		return nil
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:   "remove <directory>",
	Short: "Stop watching a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := newClientContext()
		if err != nil {
			return err
		}
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := cc.client.RemoveWatchDirectory(cmd.Context(), dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped watching %s\n", dir)
		return nil
	},
}

func init() {
	watchAddCmd.Flags().BoolVar(&watchSync, "sync", true, "upload files already in the directory")
	watchCmd.AddCommand(watchListCmd, watchAddCmd, watchRemoveCmd)
	rootCmd.AddCommand(watchCmd)
}
