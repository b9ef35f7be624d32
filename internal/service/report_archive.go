package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
	"github.com/sqrlplanner/timetable-sync/pkg/export"
	"github.com/sqrlplanner/timetable-sync/pkg/storage"
)

// ReportDataset flattens a run report into the tabular export format, one
// row per crawled organisation.
func ReportDataset(report *models.SyncReport) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"organisation", "courses", "error"},
	}
	for _, outcome := range report.Organisations {
		dataset.Rows = append(dataset.Rows, []string{
			outcome.Code, strconv.Itoa(outcome.Courses), outcome.Error,
		})
	}
	return dataset
}

// ReportArchiveService writes one CSV artifact per completed sync run and
// reaps artifacts past the retention window.
type ReportArchiveService struct {
	archive   *storage.Archive
	exporter  *export.CSVExporter
	retention time.Duration
	logger    *zap.Logger
}

// NewReportArchiveService constructs a ReportArchiveService.
func NewReportArchiveService(archive *storage.Archive, retention time.Duration, logger *zap.Logger) *ReportArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportArchiveService{
		archive:   archive,
		exporter:  export.NewCSVExporter(),
		retention: retention,
		logger:    logger,
	}
}

// Archive renders and stores the report, returning the artifact name.
func (s *ReportArchiveService) Archive(report *models.SyncReport) (string, error) {
	data, err := s.exporter.Render(ReportDataset(report))
	if err != nil {
		return "", fmt.Errorf("render run report: %w", err)
	}

	name := fmt.Sprintf("%s-%s.csv", report.StartedAt.UTC().Format("20060102T150405Z"), report.RunID)
	if report.SessionCode != "" {
		name = filepath.Join(report.SessionCode, name)
	}
	if _, err := s.archive.Save(name, data); err != nil {
		return "", err
	}

	if s.retention > 0 {
		deleted, err := s.archive.CleanupOlderThan(s.retention)
		if err != nil {
			s.logger.Sugar().Warnw("report archive cleanup failed", "error", err)
		} else if len(deleted) > 0 {
			s.logger.Sugar().Infow("reaped old run reports", "count", len(deleted))
		}
	}
	return name, nil
}

// Open returns a read-only handle on a stored artifact by name.
func (s *ReportArchiveService) Open(name string) (*os.File, error) {
	cleaned, err := cleanArtifactName(name)
	if err != nil {
		return nil, err
	}
	return s.archive.Open(cleaned)
}

// Remove deletes a stored artifact by name.
func (s *ReportArchiveService) Remove(name string) error {
	cleaned, err := cleanArtifactName(name)
	if err != nil {
		return err
	}
	return s.archive.Delete(cleaned)
}

// cleanArtifactName keeps artifact access inside the archive directory:
// absolute paths and parent-directory escapes are rejected.
func cleanArtifactName(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", apperrors.Clone(apperrors.ErrValidation, "missing artifact name")
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", apperrors.Clone(apperrors.ErrValidation, "invalid artifact name")
	}
	return cleaned, nil
}
