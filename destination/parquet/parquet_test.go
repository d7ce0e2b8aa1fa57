package parquet

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/datazip-inc/olake-intercom/types"
	"github.com/goccy/go-json"
	pqgo "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T, maxRows int) (*Parquet, string) {
	t.Helper()
	dir := t.TempDir()

	writer := &Parquet{}
	config := writer.GetConfigRef().(*Config)
	config.Path = dir
	config.MaxRowsPerFile = maxRows
	require.NoError(t, writer.Check(context.Background()))

	stream := (&types.Stream{
		Name:        "tags",
		PrimaryKey:  types.NewSet("id"),
		SyncMode:    types.INCREMENTAL,
		CursorField: "updated_at",
		Schema:      map[string]any{"type": "object"},
	}).Wrap()
	require.NoError(t, writer.Setup(context.Background(), stream))
	return writer, filepath.Join(dir, "tags")
}

func dataFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	files := []string{}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".parquet") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files
}

func rawRecords(ids ...string) []types.RawRecord {
	extracted := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.RawRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.CreateRawRecord("tags", types.Record{"id": id, "name": "tag-" + id}, 5, extracted))
	}
	return out
}

func TestParquetWriteAndFlush(t *testing.T) {
	ctx := context.Background()
	writer, dir := newWriter(t, 100)

	assert.FileExists(t, filepath.Join(dir, "schema.json"))

	require.NoError(t, writer.Write(ctx, rawRecords("1", "2")))
	require.NoError(t, writer.Flush(ctx))

	files := dataFiles(t, dir)
	require.Len(t, files, 1)

	rows, err := pqgo.ReadFile[row](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "tags", rows[0].Stream)
	assert.Equal(t, int64(5), rows[0].Version)
	assert.NotEmpty(t, rows[0].PrimaryKey)
	assert.NotEqual(t, rows[0].PrimaryKey, rows[1].PrimaryKey)
	assert.True(t, rows[0].ExtractedAt.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(rows[1].Data), &data))
	assert.Equal(t, map[string]any{"id": "2", "name": "tag-2"}, data)

	// flushing without pending rows leaves no empty file behind
	require.NoError(t, writer.Flush(ctx))
	require.NoError(t, writer.Close(ctx))
	assert.Len(t, dataFiles(t, dir), 1)
}

func TestParquetRotatesOnMaxRows(t *testing.T) {
	ctx := context.Background()
	writer, dir := newWriter(t, 2)

	require.NoError(t, writer.Write(ctx, rawRecords("1", "2", "3", "4", "5")))
	require.NoError(t, writer.Close(ctx))

	files := dataFiles(t, dir)
	require.Len(t, files, 3)

	total := 0
	for _, file := range files {
		rows, err := pqgo.ReadFile[row](file)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(rows), 2)
		total += len(rows)
	}
	assert.Equal(t, 5, total)
}

func TestParquetActivateVersion(t *testing.T) {
	ctx := context.Background()
	writer, dir := newWriter(t, 100)

	require.NoError(t, writer.Write(ctx, rawRecords("1")))
	require.NoError(t, writer.ActivateVersion(ctx, 5))

	assert.Len(t, dataFiles(t, dir), 1)
	marker, err := os.ReadFile(filepath.Join(dir, versionFile))
	require.NoError(t, err)
	assert.Equal(t, "5", string(marker))
}
