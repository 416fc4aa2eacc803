package main

import (
	"context"
	"testing"

	"github.com/Granipouss/mtg-collection-pipe/internal/auth"
	"github.com/Granipouss/mtg-collection-pipe/internal/dragonshield"
	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExporter struct {
	calls []string
}

func (r *recordingExporter) ListFolders(ctx context.Context, token auth.Token) ([]models.Folder, error) {
	r.calls = append(r.calls, "list")
	return []models.Folder{{ID: "abc", Name: "Binder"}, {ID: "def", Name: "AUTO-IMPORT"}}, nil
}

func (r *recordingExporter) ExportFolder(ctx context.Context, token auth.Token, id, dest string) error {
	r.calls = append(r.calls, "folder:"+id+":"+dest)
	return nil
}

func (r *recordingExporter) ExportAll(ctx context.Context, token auth.Token, dest string) error {
	r.calls = append(r.calls, "all:"+dest)
	return nil
}

func TestExportFolders(t *testing.T) {
	ctx := context.Background()

	r := &recordingExporter{}
	require.NoError(t, exportFolders(ctx, r, "tok", "Binder", false, "out.csv"))
	assert.Equal(t, []string{"list", "folder:abc:out.csv"}, r.calls)

	r = &recordingExporter{}
	require.NoError(t, exportFolders(ctx, r, "tok", "AUTO-IMPORT", true, "all.csv"))
	assert.Equal(t, []string{"all:all.csv"}, r.calls)

	r = &recordingExporter{}
	err := exportFolders(ctx, r, "tok", "Missing", false, "out.csv")
	assert.ErrorIs(t, err, dragonshield.ErrFolderNotFound)
	assert.Equal(t, []string{"list"}, r.calls)
}
