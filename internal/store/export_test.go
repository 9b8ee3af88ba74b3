package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmapper/internal/models"
)

func TestExportDocument(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Put(testRoute("A", time.Now().UTC()))
	require.NoError(t, err)
	_, err = s.Put(testRoute("B", time.Now().UTC()))
	require.NoError(t, err)

	doc, err := s.Export("1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", doc.AppVersion)
	assert.Equal(t, 2, doc.RouteCount)
	assert.Len(t, doc.Routes, 2)
	assert.False(t, doc.ExportedAt.IsZero())
}

func TestParseExportDocument(t *testing.T) {
	valid := `{"exportedAt":"2026-06-01T00:00:00Z","appVersion":"1.0.0","routeCount":1,"routes":[{"id":"r1","name":"A"}]}`
	doc, err := ParseExportDocument([]byte(valid))
	require.NoError(t, err)
	assert.Equal(t, 1, len(doc.Routes))

	_, err = ParseExportDocument([]byte(`{"appVersion":"1.0.0"}`))
	assert.Error(t, err, "Missing routes field should be rejected")

	_, err = ParseExportDocument([]byte(`{"routes":[{"name":"no id"}]}`))
	assert.Error(t, err, "Routes without ids should be rejected")

	_, err = ParseExportDocument([]byte(`not json`))
	assert.Error(t, err)
}

func TestImportReplace(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Put(testRoute("Local only", time.Now().UTC()))
	require.NoError(t, err)

	incoming := testRoute("From file", time.Now().UTC())
	doc := &ExportDocument{Routes: []*models.Route{incoming}}

	result, err := s.Import(doc, ModeReplace, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.TotalInFile)

	routes, err := s.GetAll()
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "From file", routes[0].Name)
}

func TestImportNewOnly(t *testing.T) {
	s := openTestStore(t)

	local := testRoute("Local", time.Now().UTC())
	_, err := s.Put(local)
	require.NoError(t, err)

	// Same id but newer in the file: new-only must not touch it
	modified := local.Clone()
	modified.Name = "Modified in file"
	modified.UpdatedAt = local.UpdatedAt.Add(time.Hour)
	fresh := testRoute("Fresh", time.Now().UTC())

	result, err := s.Import(&ExportDocument{Routes: []*models.Route{modified, fresh}}, ModeNewOnly, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Updated)

	got, err := s.Get(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local", got.Name)
}

func TestImportMerge(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := testRoute("Stale locally", base)
	current := testRoute("Current locally", base)
	_, err := s.Put(stale)
	require.NoError(t, err)
	_, err = s.Put(current)
	require.NoError(t, err)

	newerCopy := stale.Clone()
	newerCopy.Name = "Updated elsewhere"
	newerCopy.UpdatedAt = base.Add(time.Hour)

	olderCopy := current.Clone()
	olderCopy.Name = "Out of date copy"
	olderCopy.UpdatedAt = base.Add(-time.Hour)

	brandNew := testRoute("Brand new", base)

	doc := &ExportDocument{Routes: []*models.Route{newerCopy, olderCopy, brandNew}}
	result, err := s.Import(doc, ModeMerge, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	got, err := s.Get(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated elsewhere", got.Name)

	got, err = s.Get(current.ID)
	require.NoError(t, err)
	assert.Equal(t, "Current locally", got.Name, "Older incoming copy must not overwrite")
}

func TestImportMergeTieKeepsLocal(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	local := testRoute("Local wording", base)
	_, err := s.Put(local)
	require.NoError(t, err)

	tied := local.Clone()
	tied.Name = "Remote wording"

	result, err := s.Import(&ExportDocument{Routes: []*models.Route{tied}}, ModeMerge, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)

	got, err := s.Get(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local wording", got.Name)
}

func TestImportMergeFallsBackToCreatedAt(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	local := testRoute("Local", base)
	local.UpdatedAt = time.Time{}
	local.CreatedAt = base
	_, err := s.Put(local)
	require.NoError(t, err)

	incoming := local.Clone()
	incoming.Name = "Created later"
	incoming.CreatedAt = base.Add(time.Hour)

	result, err := s.Import(&ExportDocument{Routes: []*models.Route{incoming}}, ModeMerge, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
}

func TestImportMergeIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	doc := &ExportDocument{Routes: []*models.Route{
		testRoute("A", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)),
		testRoute("B", time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)),
	}}

	first, err := s.Import(doc, ModeMerge, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added)

	second, err := s.Import(doc, ModeMerge, t.TempDir(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Skipped)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportWritesBackupWhenLocalDataExists(t *testing.T) {
	s := openTestStore(t)
	backupDir := t.TempDir()

	_, err := s.Put(testRoute("Precious", time.Now().UTC()))
	require.NoError(t, err)

	result, err := s.Import(&ExportDocument{Routes: []*models.Route{testRoute("Incoming", time.Now().UTC())}}, ModeReplace, backupDir, "1.0.0")
	require.NoError(t, err)
	require.NotEmpty(t, result.BackupPath)
	assert.Equal(t, backupDir, filepath.Dir(result.BackupPath))

	data, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	var backup ExportDocument
	require.NoError(t, json.Unmarshal(data, &backup))
	require.Len(t, backup.Routes, 1)
	assert.Equal(t, "Precious", backup.Routes[0].Name)
}

func TestImportSkipsBackupWhenStoreEmpty(t *testing.T) {
	s := openTestStore(t)
	backupDir := t.TempDir()

	result, err := s.Import(&ExportDocument{Routes: []*models.Route{testRoute("Incoming", time.Now().UTC())}}, ModeMerge, backupDir, "1.0.0")
	require.NoError(t, err)
	assert.Empty(t, result.BackupPath)

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportRejectsUnknownMode(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Import(&ExportDocument{}, ImportMode("overwrite"), t.TempDir(), "1.0.0")
	assert.Error(t, err)
}
