package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqrlplanner/timetable-sync/internal/models"
	"github.com/sqrlplanner/timetable-sync/pkg/storage"
)

func TestReportDataset(t *testing.T) {
	report := &models.SyncReport{
		Organisations: []models.OrganisationOutcome{
			{Code: "CSC", Courses: 412},
			{Code: "MAT", Error: "fetch failed"},
		},
	}

	dataset := ReportDataset(report)
	assert.Equal(t, []string{"organisation", "courses", "error"}, dataset.Headers)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, []string{"CSC", "412", ""}, dataset.Rows[0])
	assert.Equal(t, []string{"MAT", "0", "fetch failed"}, dataset.Rows[1])
}

func TestReportArchiveServiceArchive(t *testing.T) {
	dir := t.TempDir()
	archive, err := storage.NewArchive(dir)
	require.NoError(t, err)

	svc := NewReportArchiveService(archive, 0, nil)
	report := &models.SyncReport{
		RunID:       "run-1",
		SessionCode: "20219",
		StartedAt:   time.Date(2021, 9, 7, 4, 0, 0, 0, time.UTC),
		Organisations: []models.OrganisationOutcome{
			{Code: "CSC", Courses: 412},
		},
	}

	name, err := svc.Archive(report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("20219", "20210907T040000Z-run-1.csv"), name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CSC,412,")
}

func TestReportArchiveServiceOpenAndRemove(t *testing.T) {
	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)

	svc := NewReportArchiveService(archive, 0, nil)
	report := &models.SyncReport{
		RunID:       "run-1",
		SessionCode: "20219",
		StartedAt:   time.Date(2021, 9, 7, 4, 0, 0, 0, time.UTC),
		Organisations: []models.OrganisationOutcome{
			{Code: "CSC", Courses: 412},
		},
	}

	name, err := svc.Archive(report)
	require.NoError(t, err)

	file, err := svc.Open(name)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, svc.Remove(name))
	_, err = svc.Open(name)
	require.Error(t, err)
}

func TestReportArchiveServiceRejectsEscapingNames(t *testing.T) {
	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	svc := NewReportArchiveService(archive, 0, nil)

	for _, name := range []string{"", "../../etc/passwd", "/etc/passwd", "20219/../../secret.csv"} {
		_, err := svc.Open(name)
		assert.Error(t, err, "name %q", name)
	}
}
