package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/AzielCF/az-aiwa/botengine/repository"
	coreconfig "github.com/AzielCF/az-aiwa/core/config"
	coreDB "github.com/AzielCF/az-aiwa/core/database"
	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the document and image tables",
	Run: func(cmd *cobra.Command, _ []string) {
		if _, err := openMediaRepository(cmd.Context()); err != nil {
			logrus.Fatalf("[MIGRATE] %v", err)
		}
		logrus.Info("[MIGRATE] Media tables are up to date")
	},
}

var (
	mediaKind        string
	mediaTitle       string
	mediaDescription string
)

var mediaAddCmd = &cobra.Command{
	Use:   "media-add <file>",
	Short: "Store a document or image so the bot can send it",
	Args:  cobra.ExactArgs(1),
	Run:   mediaAdd,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(mediaAddCmd)

	mediaAddCmd.Flags().StringVar(&mediaKind, "kind", string(domainMedia.KindDocument), "document or image")
	mediaAddCmd.Flags().StringVar(&mediaTitle, "title", "", "title matched against user requests (defaults to the file name)")
	mediaAddCmd.Flags().StringVar(&mediaDescription, "description", "", "description matched against user requests")
}

func openMediaRepository(ctx context.Context) (*repository.MediaGormRepository, error) {
	db, err := coreDB.NewDatabase(coreconfig.Global)
	if err != nil {
		return nil, err
	}
	repo := repository.NewMediaGormRepository(db)
	if err := repo.Init(ctx); err != nil {
		_ = coreDB.Close(db)
		return nil, err
	}
	return repo, nil
}

func mediaAdd(cmd *cobra.Command, args []string) {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("[MEDIA] read %s: %v", path, err)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	title := mediaTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	repo, err := openMediaRepository(cmd.Context())
	if err != nil {
		logrus.Fatalf("[MEDIA] %v", err)
	}

	asset := domainMedia.Asset{
		Kind:          domainMedia.Kind(strings.ToLower(mediaKind)),
		Title:         title,
		Description:   mediaDescription,
		FileData:      data,
		FileExtension: ext,
	}
	if err := repo.Create(cmd.Context(), &asset); err != nil {
		logrus.Fatalf("[MEDIA] %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"id":    asset.ID,
		"kind":  asset.Kind,
		"title": asset.Title,
		"bytes": len(data),
	}).Info("[MEDIA] Asset stored")
}
