package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// CourseRepository manages persistence for courses. A course row embeds its
// sections (with their meetings and instructors) as a JSON document: the
// course exclusively owns them and every resync replaces the embedded list
// wholesale, so a section that disappeared upstream disappears from storage.
type CourseRepository struct {
	db sqlx.ExtContext
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db sqlx.ExtContext) *CourseRepository {
	return &CourseRepository{db: db}
}

type courseRow struct {
	ID                       string            `db:"id"`
	OrganisationCode         string            `db:"organisation_code"`
	Code                     string            `db:"code"`
	Title                    string            `db:"title"`
	Description              string            `db:"description"`
	Term                     models.CourseTerm `db:"term"`
	SessionCode              string            `db:"session_code"`
	Sections                 []byte            `db:"sections"`
	Prerequisites            string            `db:"prerequisites"`
	Corequisites             string            `db:"corequisites"`
	Exclusions               string            `db:"exclusions"`
	RecommendedPreparation   string            `db:"recommended_preparation"`
	BreadthCategories        string            `db:"breadth_categories"`
	DistributionCategories   string            `db:"distribution_categories"`
	WebTimetableInstructions string            `db:"web_timetable_instructions"`
	DeliveryInstructions     string            `db:"delivery_instructions"`
	Campus                   models.Campus     `db:"campus"`
	CreatedAt                time.Time         `db:"created_at"`
	UpdatedAt                time.Time         `db:"updated_at"`
}

func toRow(course *models.Course) (*courseRow, error) {
	sections := course.Sections
	if sections == nil {
		sections = []models.Section{}
	}
	encoded, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("encode sections for %s: %w", course.ID, err)
	}
	return &courseRow{
		ID:                       course.ID,
		OrganisationCode:         course.OrganisationCode,
		Code:                     course.Code,
		Title:                    course.Title,
		Description:              course.Description,
		Term:                     course.Term,
		SessionCode:              course.SessionCode,
		Sections:                 encoded,
		Prerequisites:            course.Prerequisites,
		Corequisites:             course.Corequisites,
		Exclusions:               course.Exclusions,
		RecommendedPreparation:   course.RecommendedPreparation,
		BreadthCategories:        course.BreadthCategories,
		DistributionCategories:   course.DistributionCategories,
		WebTimetableInstructions: course.WebTimetableInstructions,
		DeliveryInstructions:     course.DeliveryInstructions,
		Campus:                   course.Campus,
		CreatedAt:                course.CreatedAt,
		UpdatedAt:                course.UpdatedAt,
	}, nil
}

func fromRow(row *courseRow) (*models.Course, error) {
	course := &models.Course{
		ID:                       row.ID,
		OrganisationCode:         row.OrganisationCode,
		Code:                     row.Code,
		Title:                    row.Title,
		Description:              row.Description,
		Term:                     row.Term,
		SessionCode:              row.SessionCode,
		Prerequisites:            row.Prerequisites,
		Corequisites:             row.Corequisites,
		Exclusions:               row.Exclusions,
		RecommendedPreparation:   row.RecommendedPreparation,
		BreadthCategories:        row.BreadthCategories,
		DistributionCategories:   row.DistributionCategories,
		WebTimetableInstructions: row.WebTimetableInstructions,
		DeliveryInstructions:     row.DeliveryInstructions,
		Campus:                   row.Campus,
		CreatedAt:                row.CreatedAt,
		UpdatedAt:                row.UpdatedAt,
	}
	if len(row.Sections) > 0 {
		if err := json.Unmarshal(row.Sections, &course.Sections); err != nil {
			return nil, fmt.Errorf("decode sections for %s: %w", row.ID, err)
		}
	}
	return course, nil
}

// Upsert writes the course keyed by its composite id. The referenced
// organisation row must already be durable; the foreign key enforces the
// write ordering of a sync run.
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	row, err := toRow(course)
	if err != nil {
		return err
	}

	const query = `INSERT INTO courses (
			id, organisation_code, code, title, description, term, session_code, sections,
			prerequisites, corequisites, exclusions, recommended_preparation,
			breadth_categories, distribution_categories, web_timetable_instructions,
			delivery_instructions, campus, created_at, updated_at)
		VALUES (
			:id, :organisation_code, :code, :title, :description, :term, :session_code, :sections,
			:prerequisites, :corequisites, :exclusions, :recommended_preparation,
			:breadth_categories, :distribution_categories, :web_timetable_instructions,
			:delivery_instructions, :campus, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE
		SET organisation_code = EXCLUDED.organisation_code,
		    code = EXCLUDED.code,
		    title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    term = EXCLUDED.term,
		    session_code = EXCLUDED.session_code,
		    sections = EXCLUDED.sections,
		    prerequisites = EXCLUDED.prerequisites,
		    corequisites = EXCLUDED.corequisites,
		    exclusions = EXCLUDED.exclusions,
		    recommended_preparation = EXCLUDED.recommended_preparation,
		    breadth_categories = EXCLUDED.breadth_categories,
		    distribution_categories = EXCLUDED.distribution_categories,
		    web_timetable_instructions = EXCLUDED.web_timetable_instructions,
		    delivery_instructions = EXCLUDED.delivery_instructions,
		    campus = EXCLUDED.campus,
		    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, row); err != nil {
		return fmt.Errorf("upsert course %s: %w", course.ID, err)
	}
	return nil
}

const courseColumns = `id, organisation_code, code, title, description, term, session_code, sections,
	prerequisites, corequisites, exclusions, recommended_preparation, breadth_categories,
	distribution_categories, web_timetable_instructions, delivery_instructions, campus,
	created_at, updated_at`

// FindByID fetches a course by its composite id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var row courseRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find course %s: %w", id, err)
	}
	return fromRow(&row)
}

// ListByOrganisation returns every course owned by the organisation.
func (r *CourseRepository) ListByOrganisation(ctx context.Context, orgCode string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE organisation_code = $1 ORDER BY id`, courseColumns)
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, orgCode); err != nil {
		return nil, fmt.Errorf("list courses for %s: %w", orgCode, err)
	}

	courses := make([]models.Course, 0, len(rows))
	for i := range rows {
		course, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		courses = append(courses, *course)
	}
	return courses, nil
}

// Count returns the number of stored courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}
