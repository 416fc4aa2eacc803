package moxfield

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importCSV = "\"Count\",\"Name\"\n\"3\",\"Lightning Bolt\"\n"

func writeImportFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmp-mf.csv")
	require.NoError(t, os.WriteFile(path, []byte(importCSV), 0o644))
	return path
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(logger, ts.Client(), ts.URL)
}

func TestImportFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/collections/import-file", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "paper", q.Get("game"))
		assert.Equal(t, "nearMint", q.Get("defaultCondition"))
		assert.Equal(t, "LD58x", q.Get("defaultCardLanguageId"))
		assert.Equal(t, "1", q.Get("defaultQuantity"))
		assert.Equal(t, "paperDollars", q.Get("playStay"))
		assert.Equal(t, "moxfield", q.Get("format"))

		file, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer file.Close()
			content, _ := io.ReadAll(file)
			assert.Equal(t, importCSV, string(content))
			assert.Equal(t, "tmp-mf.csv", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"imp1","totalImported":1,"totalFailed":0}`)
	})

	result, err := client.ImportFile(context.Background(), "tok", writeImportFile(t))
	require.NoError(t, err)
	assert.Equal(t, "imp1", result.ID)
	assert.Equal(t, 1, result.TotalImported)
}

func TestImportFile_UnreadableBodyStillSucceeds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "OK")
	})

	result, err := client.ImportFile(context.Background(), "tok", writeImportFile(t))
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestImportFile_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})

	_, err := client.ImportFile(context.Background(), "tok", writeImportFile(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequest)
	assert.Contains(t, err.Error(), "401")
}

func TestImportFile_MissingFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.ImportFile(context.Background(), "tok", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
