package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Granipouss/mtg-collection-pipe/internal/preview"
	"github.com/spf13/cobra"
)

var (
	lookupImageDir string
	lookupWidth    int
)

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

var lookupCmd = &cobra.Command{
	Use:   "lookup <card name>...",
	Short: "Resolve card names against the local oracle snapshot",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := newCache()

		var downloader *preview.Downloader
		if lookupImageDir != "" {
			downloader = preview.NewDownloader(logger, httpClient())
		}

		for _, name := range args {
			meta, err := cache.Resolve(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", meta.Name, meta.Printing, meta.Image)

			if downloader == nil {
				continue
			}
			dest := filepath.Join(lookupImageDir, fileName(meta.Name)+".jpg")
			if err := downloader.Thumbnail(cmd.Context(), meta.Image, dest, lookupWidth); err != nil {
				return fmt.Errorf("preview of %s: %w", meta.Name, err)
			}
		}
		return nil
	},
}

func fileName(name string) string {
	return strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func init() {
	lookupCmd.Flags().StringVar(&lookupImageDir, "image", "", "save a thumbnail of each card in this directory")
	lookupCmd.Flags().IntVar(&lookupWidth, "width", preview.DefaultWidth, "thumbnail width in pixels")
}
