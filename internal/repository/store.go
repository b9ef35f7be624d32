package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sqrlplanner/timetable-sync/internal/models"
)

// Store opens sync transactions over the timetable database. A run stages
// every upsert inside one transaction and commits once at the end, so an
// aborted run leaves no visible change.
type Store struct {
	db *sqlx.DB
}

// NewStore constructs a Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Begin starts a sync transaction.
func (s *Store) Begin(ctx context.Context) (*StoreTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync transaction: %w", err)
	}
	return &StoreTx{
		tx:            tx,
		organisations: NewOrganisationRepository(tx),
		courses:       NewCourseRepository(tx),
	}, nil
}

// Organisations returns a repository bound to the database connection, for
// reads outside a sync run.
func (s *Store) Organisations() *OrganisationRepository {
	return NewOrganisationRepository(s.db)
}

// Courses returns a repository bound to the database connection.
func (s *Store) Courses() *CourseRepository {
	return NewCourseRepository(s.db)
}

// StoreTx is one open sync transaction. Writes become visible to queries on
// the same transaction immediately, and to everyone else at Commit.
type StoreTx struct {
	tx            *sqlx.Tx
	organisations *OrganisationRepository
	courses       *CourseRepository
}

// UpsertOrganisation stages an organisation write.
func (t *StoreTx) UpsertOrganisation(ctx context.Context, org *models.Organisation) error {
	return t.organisations.Upsert(ctx, org)
}

// UpsertCourse stages a course write. The owning organisation must already
// have been staged in this transaction. The write runs behind a savepoint:
// Postgres aborts the whole transaction on any server-side error, so without
// it one rejected course would poison every sibling write and the final
// commit.
func (t *StoreTx) UpsertCourse(ctx context.Context, course *models.Course) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT course_upsert"); err != nil {
		return fmt.Errorf("savepoint course upsert: %w", err)
	}
	if err := t.courses.Upsert(ctx, course); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT course_upsert"); rbErr != nil {
			return fmt.Errorf("rollback course savepoint after %q: %w", err, rbErr)
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT course_upsert"); err != nil {
		return fmt.Errorf("release course savepoint: %w", err)
	}
	return nil
}

// Commit makes the run's writes durable.
func (t *StoreTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit sync transaction: %w", err)
	}
	return nil
}

// Rollback discards the run's writes. Safe to call after Commit.
func (t *StoreTx) Rollback() error {
	return t.tx.Rollback()
}
