package dragonshield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(logger, ts.Client(), ts.URL+"/api/v1"), ts
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func TestListFolders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/portalfolders", r.URL.Path)
		assert.Equal(t, "bearer tok", r.Header.Get("Authorization"))
		writeData(w, []map[string]interface{}{
			{"friendlyId": "abc", "name": "Binder", "version": 3},
			{"friendlyId": "def", "name": "AUTO-IMPORT", "version": 7},
		})
	}))

	folders, err := client.ListFolders(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []models.Folder{
		{ID: "abc", Name: "Binder", Version: 3},
		{ID: "def", Name: "AUTO-IMPORT", Version: 7},
	}, folders)

	folder, err := FindFolder(folders, "AUTO-IMPORT")
	require.NoError(t, err)
	assert.Equal(t, "def", folder.ID)

	_, err = FindFolder(folders, "Missing")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestGetFolder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/portalfolders/def", r.URL.Path)
		writeData(w, map[string]interface{}{"friendlyId": "def", "name": "AUTO-IMPORT", "version": 7})
	}))

	folder, err := client.GetFolder(context.Background(), "tok", "def")
	require.NoError(t, err)
	assert.Equal(t, int64(7), folder.Version)
}

func TestAllFolderCards_Pages(t *testing.T) {
	total := PageSize + 3
	var pages []int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/portalfolders/def/cards", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("pageSize"))
		assert.Equal(t, "nameAsc", q.Get("orderBy"))
		assert.Equal(t, "en", q.Get("lang"))

		page, err := strconv.Atoi(q.Get("pageNumber"))
		assert.NoError(t, err)
		pages = append(pages, page)

		var cards []map[string]interface{}
		for i := (page - 1) * PageSize; i < total && i < page*PageSize; i++ {
			cards = append(cards, map[string]interface{}{"cardName": fmt.Sprintf("Card %03d", i), "quantity": 1})
		}
		writeData(w, cards)
	}))

	cards, err := client.AllFolderCards(context.Background(), "tok", "def")
	require.NoError(t, err)
	assert.Len(t, cards, total)
	assert.Equal(t, []int{1, 2}, pages)
	assert.Equal(t, "Card 000", cards[0].Name)
}

func TestCreateFolder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/portalfolders", r.URL.Path)
		assert.Equal(t, "tcgplayer", r.URL.Query().Get("provider"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "AUTO-IMPORT", body["name"])
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, client.CreateFolder(context.Background(), "tok", "AUTO-IMPORT"))
}

func TestDeleteFolder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/portalfolders/def/version/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.DeleteFolder(context.Background(), "tok", "def", 7))
}

func TestDeleteFolder_VersionConflict(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "version mismatch", http.StatusConflict)
	}))

	err := client.DeleteFolder(context.Background(), "tok", "def", 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequest)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Body, "version mismatch")
}

func TestExportFolder(t *testing.T) {
	const export = "sep=,\nCard Name,Quantity\nIsland,40\n"
	var exportAuth string

	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/api/v1/folders/def/export", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"exportUrl": ts.URL + "/files/export.csv"})
	})
	mux.HandleFunc("/files/export.csv", func(w http.ResponseWriter, r *http.Request) {
		exportAuth = r.Header.Get("Authorization")
		io.WriteString(w, export)
	})
	client, server := newTestClient(t, mux)
	ts = server

	dest := filepath.Join(t.TempDir(), "nested", "tmp-ds.csv")
	require.NoError(t, client.ExportFolder(context.Background(), "tok", "def", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, export, string(data))
	assert.Empty(t, exportAuth)
}

func TestExportAll(t *testing.T) {
	const export = "sep=,\nFolder Name,Card Name,Quantity\nBinder,Island,40\nAUTO-IMPORT,Opt,2\n"
	var exportAuth string

	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/api/v1/folders/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer tok", r.Header.Get("Authorization"))
		writeData(w, map[string]string{"exportUrl": ts.URL + "/files/all.csv"})
	})
	mux.HandleFunc("/files/all.csv", func(w http.ResponseWriter, r *http.Request) {
		exportAuth = r.Header.Get("Authorization")
		io.WriteString(w, export)
	})
	client, server := newTestClient(t, mux)
	ts = server

	dest := filepath.Join(t.TempDir(), "all.csv")
	require.NoError(t, client.ExportAll(context.Background(), "tok", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, export, string(data))
	assert.Empty(t, exportAuth)
}

func TestExportFolder_Errors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{})
	}))
	err := client.ExportFolder(context.Background(), "tok", "def", filepath.Join(t.TempDir(), "x.csv"))
	assert.ErrorIs(t, err, ErrRequest)

	client, _ = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	err = client.ExportFolder(context.Background(), "expired", "def", filepath.Join(t.TempDir(), "x.csv"))
	assert.ErrorIs(t, err, ErrRequest)

	err = client.ExportAll(context.Background(), "expired", filepath.Join(t.TempDir(), "x.csv"))
	assert.ErrorIs(t, err, ErrRequest)
}
