package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqrlplanner/timetable-sync/internal/artsci"
	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	"github.com/sqrlplanner/timetable-sync/internal/normalize"
	"github.com/sqrlplanner/timetable-sync/internal/repository"
)

// SyncStore is the persistence capability a dataset source syncs into.
type SyncStore interface {
	Begin(ctx context.Context) (SyncTx, error)
}

// SyncTx is one staged sync run: upserts accumulate and become durable on
// Commit, so an aborted run leaves storage untouched.
type SyncTx interface {
	UpsertOrganisation(ctx context.Context, org *models.Organisation) error
	UpsertCourse(ctx context.Context, course *models.Course) error
	Commit() error
	Rollback() error
}

// Source is a remote dataset that can synchronize itself into a store. New
// sources implement this interface directly; there is no inheritance depth.
type Source interface {
	Name() string
	Sync(ctx context.Context, store SyncStore) (*models.SyncReport, error)
}

// WrapStore adapts the sqlx-backed repository store to the SyncStore
// capability interface.
func WrapStore(store *repository.Store) SyncStore {
	return sqlStore{store}
}

type sqlStore struct {
	store *repository.Store
}

func (s sqlStore) Begin(ctx context.Context) (SyncTx, error) {
	return s.store.Begin(ctx)
}

type timetableCrawler interface {
	ResolveCurrentSession(ctx context.Context, verify bool) (models.Session, error)
	CrawlAll(ctx context.Context, session models.Session, policy artsci.DuplicatePolicy) (*artsci.CrawlResult, error)
}

// SessionCodeCache remembers the most recently resolved session code across
// runs. pkg/cache.SessionCache is the Redis-backed implementation.
type SessionCodeCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, code string) error
}

// TimetableSyncConfig tunes a TimetableSyncService.
type TimetableSyncConfig struct {
	// SessionCode pins the run to a fixed session instead of discovering the
	// current one from the landing page.
	SessionCode     string
	VerifySession   bool
	DuplicatePolicy artsci.DuplicatePolicy
	// SessionCache, when set, short-circuits landing-page resolution while a
	// previously resolved code is still cached.
	SessionCache SessionCodeCache
}

// TimetableSyncService ingests the Arts and Science timetable: crawl the
// source, normalize raw payloads into canonical entities and upsert them
// into the store. Running it twice against identical upstream data leaves
// storage unchanged.
type TimetableSyncService struct {
	crawler timetableCrawler
	cfg     TimetableSyncConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewTimetableSyncService constructs a TimetableSyncService.
func NewTimetableSyncService(crawler timetableCrawler, cfg TimetableSyncConfig, metrics *MetricsService, logger *zap.Logger) *TimetableSyncService {
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = artsci.DuplicateSkip
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableSyncService{crawler: crawler, cfg: cfg, metrics: metrics, logger: logger}
}

// Name implements Source.
func (s *TimetableSyncService) Name() string {
	return "artsci-timetable"
}

// WithSession implements SessionScoped: it returns a copy of the source
// pinned to the given session code for one run.
func (s *TimetableSyncService) WithSession(code string) Source {
	scoped := *s
	scoped.cfg.SessionCode = code
	return &scoped
}

// Sync implements Source. Session resolution and the organisation list are
// fatal: without them there is nothing to sync. Individual course failures
// are collected into the report and do not abort sibling courses.
func (s *TimetableSyncService) Sync(ctx context.Context, store SyncStore) (*models.SyncReport, error) {
	session, err := s.session(ctx)
	if err != nil {
		s.observeRun(nil, err)
		return nil, err
	}

	crawl, err := s.crawler.CrawlAll(ctx, session, s.cfg.DuplicatePolicy)
	if err != nil {
		s.observeRun(nil, err)
		return nil, err
	}

	report := &models.SyncReport{
		RunID:              uuid.NewString(),
		SessionCode:        session.Code(),
		StartedAt:          time.Now().UTC(),
		Organisations:      crawl.Outcomes,
		DuplicatesSkipped:  crawl.DuplicatesSkipped,
		OrganisationsTotal: len(crawl.Organisations),
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		s.observeRun(report, err)
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	organisations, err := s.writeOrganisations(ctx, tx, crawl.Organisations)
	if err != nil {
		s.observeRun(report, err)
		return nil, err
	}

	for _, payload := range crawl.Payloads {
		if err := ctx.Err(); err != nil {
			s.observeRun(report, err)
			return nil, err
		}
		s.syncCourse(ctx, tx, payload, organisations, report)
	}

	if err := tx.Commit(); err != nil {
		s.observeRun(report, err)
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	s.observeRun(report, nil)
	s.logger.Sugar().Infow("sync finished",
		"run_id", report.RunID,
		"session", report.SessionCode,
		"courses_synced", report.CoursesSynced,
		"course_failures", len(report.CourseFailures),
		"failed_organisations", report.FailedOrganisations(),
		"elapsed", report.Elapsed(),
	)
	return report, nil
}

// SyncFile ingests a raw JSON dump of course payloads from disk instead of
// the network. Organisations are reconstructed from the org/orgName fields
// embedded in each payload.
func (s *TimetableSyncService) SyncFile(ctx context.Context, store SyncStore, path string) (*models.SyncReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course dump: %w", err)
	}

	var payloads dto.PayloadMap[dto.CoursePayload]
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("decode course dump %s: %w", path, err)
	}

	report := &models.SyncReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	orgNames := make(map[string]string)
	keys := make([]string, 0, len(payloads))
	for key := range payloads {
		keys = append(keys, key)
		orgNames[payloads[key].Org] = payloads[key].OrgName
	}
	sort.Strings(keys)

	organisations, err := s.writeOrganisations(ctx, tx, orgNames)
	if err != nil {
		return nil, err
	}
	report.OrganisationsTotal = len(organisations)

	for _, key := range keys {
		s.syncCourse(ctx, tx, payloads[key], organisations, report)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func (s *TimetableSyncService) session(ctx context.Context) (models.Session, error) {
	if s.cfg.SessionCode != "" {
		return models.ParseSessionCode(s.cfg.SessionCode)
	}

	if s.cfg.SessionCache != nil {
		code, err := s.cfg.SessionCache.Get(ctx)
		if err != nil {
			s.logger.Sugar().Warnw("session cache lookup failed", "error", err)
		} else if code != "" {
			if session, err := models.ParseSessionCode(code); err == nil {
				s.logger.Sugar().Debugw("using cached session code", "session", code)
				return session, nil
			}
			s.logger.Sugar().Warnw("discarding malformed cached session code", "session", code)
		}
	}

	session, err := s.crawler.ResolveCurrentSession(ctx, s.cfg.VerifySession)
	if err != nil {
		return models.Session{}, err
	}
	if s.cfg.SessionCache != nil {
		if err := s.cfg.SessionCache.Set(ctx, session.Code()); err != nil {
			s.logger.Sugar().Warnw("session cache store failed", "error", err)
		}
	}
	return session, nil
}

// writeOrganisations stages every organisation before any course write, so
// a course's organisation reference always resolves to a durable row.
func (s *TimetableSyncService) writeOrganisations(ctx context.Context, tx SyncTx, orgs map[string]string) (map[string]models.Organisation, error) {
	codes := make([]string, 0, len(orgs))
	for code := range orgs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	organisations := make(map[string]models.Organisation, len(codes))
	for _, code := range codes {
		org := models.Organisation{Code: code, Name: orgs[code]}
		if err := tx.UpsertOrganisation(ctx, &org); err != nil {
			return nil, err
		}
		organisations[code] = org
	}
	return organisations, nil
}

func (s *TimetableSyncService) syncCourse(ctx context.Context, tx SyncTx, payload dto.CoursePayload, organisations map[string]models.Organisation, report *models.SyncReport) {
	course, err := normalize.Course(payload, organisations)
	if err != nil {
		s.logger.Sugar().Warnw("course normalization failed", "course", payload.Code, "error", err)
		report.CourseFailures = append(report.CourseFailures, models.CourseFailure{
			CourseCode: payload.Code,
			Reason:     err.Error(),
		})
		return
	}

	for _, section := range course.Sections {
		if section.DeliveryMode != nil && !section.DeliveryMode.Recognized() {
			s.logger.Sugar().Warnw("unrecognized delivery mode",
				"course", course.ID, "section", section.Code(), "delivery_mode", string(*section.DeliveryMode))
		}
	}

	if err := tx.UpsertCourse(ctx, &course); err != nil {
		s.logger.Sugar().Warnw("course upsert failed", "course", course.ID, "error", err)
		report.CourseFailures = append(report.CourseFailures, models.CourseFailure{
			CourseCode: payload.Code,
			Reason:     err.Error(),
		})
		return
	}
	report.CoursesSynced++
}

func (s *TimetableSyncService) observeRun(report *models.SyncReport, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSyncRun(report, err)
}
