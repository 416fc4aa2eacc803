package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Granipouss/mtg-collection-pipe/internal/auth"
	"github.com/Granipouss/mtg-collection-pipe/internal/dragonshield"
	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/spf13/cobra"
)

// folderCmd inspects DragonShield folders
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Inspect DragonShield folders",
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders with their versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := dragonShieldAuth().Authenticate(cmd.Context())
		if err != nil {
			return err
		}
		folders, err := dragonShieldClient().ListFolders(cmd.Context(), token)
		if err != nil {
			return err
		}
		for _, f := range folders {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-12s v%d\n", f.Name, f.ID, f.Version)
		}
		return nil
	},
}

var folderShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "List the cards of a folder (default: the import folder)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.DragonShield.Folder
		if len(args) == 1 {
			name = args[0]
		}

		token, err := dragonShieldAuth().Authenticate(cmd.Context())
		if err != nil {
			return err
		}
		client := dragonShieldClient()
		folders, err := client.ListFolders(cmd.Context(), token)
		if err != nil {
			return err
		}
		found, err := dragonshield.FindFolder(folders, name)
		if err != nil {
			return err
		}
		folder, err := client.GetFolder(cmd.Context(), token, found.ID)
		if err != nil {
			return err
		}
		cards, err := client.AllFolderCards(cmd.Context(), token, folder.ID)
		if err != nil {
			return err
		}

		total := 0
		for _, c := range cards {
			fmt.Fprintf(cmd.OutOrStdout(), "   + %2d %s (%s)\n", c.Quantity, c.Name, c.SetCode)
			total += c.Quantity
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%d: %d cards\n", folder.Name, folder.Version, total)
		return nil
	},
}

var (
	folderExportAll    bool
	folderExportOutput string
)

var folderExportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Download the CSV export of a folder (default: the import folder)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.DragonShield.Folder
		if len(args) == 1 {
			name = args[0]
		}
		if folderExportAll && len(args) == 1 {
			return errors.New("--all takes no folder name")
		}

		token, err := dragonShieldAuth().Authenticate(cmd.Context())
		if err != nil {
			return err
		}
		if err := exportFolders(cmd.Context(), dragonShieldClient(), token, name, folderExportAll, folderExportOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Export written to %s\n", folderExportOutput)
		return nil
	},
}

type folderExporter interface {
	ListFolders(ctx context.Context, token auth.Token) ([]models.Folder, error)
	ExportFolder(ctx context.Context, token auth.Token, id, dest string) error
	ExportAll(ctx context.Context, token auth.Token, dest string) error
}

// exportFolders writes either every folder or the folder called name to dest
func exportFolders(ctx context.Context, client folderExporter, token auth.Token, name string, all bool, dest string) error {
	if all {
		return client.ExportAll(ctx, token, dest)
	}
	folders, err := client.ListFolders(ctx, token)
	if err != nil {
		return err
	}
	folder, err := dragonshield.FindFolder(folders, name)
	if err != nil {
		return err
	}
	return client.ExportFolder(ctx, token, folder.ID, dest)
}

func init() {
	folderExportCmd.Flags().BoolVar(&folderExportAll, "all", false, "export every folder of the account")
	folderExportCmd.Flags().StringVarP(&folderExportOutput, "output", "o", "export.csv", "CSV file to write")

	folderCmd.AddCommand(folderListCmd, folderShowCmd, folderExportCmd)
}
