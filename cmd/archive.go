/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/config"
	"github.com/postboard/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

var (
	archiveOwner string
	archivePost  string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Read archived snapshots of deleted posts",
}

var archiveGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the archived snapshot of a deleted post",
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := uuid.Parse(archiveOwner)
		if err != nil {
			return fmt.Errorf("invalid --owner: %w", err)
		}
		postID, err := uuid.Parse(archivePost)
		if err != nil {
			return fmt.Errorf("invalid --post: %w", err)
		}

		cfg, err := config.LoadSection[config.ArchiveConfig]()
		if err != nil {
			return err
		}
		store, err := storage.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("ARCHIVE_BACKEND is not set")
		}

		snapshot, err := storage.NewPostArchive(store).Load(cmd.Context(), ownerID, postID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveGetCmd)
	archiveGetCmd.Flags().StringVar(&archiveOwner, "owner", "", "owner user id")
	archiveGetCmd.Flags().StringVar(&archivePost, "post", "", "post id")
	_ = archiveGetCmd.MarkFlagRequired("owner")
	_ = archiveGetCmd.MarkFlagRequired("post")
}
