package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var refreshForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download the oracle snapshot if it is missing or stale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := newCache()

		downloaded, err := cache.Refresh(cmd.Context(), refreshForce)
		if err != nil {
			return err
		}
		count, err := cache.Len(cmd.Context())
		if err != nil {
			return err
		}

		state := "up to date"
		if downloaded {
			state = "downloaded"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s: %d cards, refreshed %s\n", state, count, cache.LastRefreshedAt().Format(time.RFC1123))
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVarP(&refreshForce, "force", "f", false, "download even if the snapshot is fresh")
}
