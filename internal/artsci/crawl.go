package artsci

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// DuplicatePolicy controls what happens when two organisations both report
// a course with the same code.
type DuplicatePolicy string

const (
	// DuplicateSkip keeps the first occurrence and drops later ones.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateError fails the crawl on the first cross-organisation duplicate.
	DuplicateError DuplicatePolicy = "error"
)

// CrawlResult aggregates one full crawl of the source.
type CrawlResult struct {
	Organisations     map[string]string
	Payloads          []dto.CoursePayload
	Outcomes          []models.OrganisationOutcome
	DuplicatesSkipped int
}

// FetchOrganisations returns the code → name map of every organisation
// known to the source. A response without the orgs key is an upstream
// contract violation, not a transient failure.
func (c *Client) FetchOrganisations(ctx context.Context) (map[string]string, error) {
	var payload dto.OrganisationsPayload
	if err := c.getJSON(ctx, c.apiURL+"/orgs", &payload); err != nil {
		return nil, err
	}
	if payload.Orgs == nil {
		return nil, apperrors.Clone(apperrors.ErrSourceUnavailable,
			`could not get organisations: "orgs" key not found in response payload`)
	}
	return payload.Orgs, nil
}

// FetchCourses returns the raw course payloads for one organisation in the
// given session. An empty map is a valid result: the organisation currently
// offers nothing.
func (c *Client) FetchCourses(ctx context.Context, session models.Session, orgCode string) (map[string]dto.CoursePayload, error) {
	url := fmt.Sprintf("%s/%s/courses?org=%s", c.apiURL, session.Code(), orgCode)

	var courses dto.PayloadMap[dto.CoursePayload]
	if err := c.getJSON(ctx, url, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

type orgFetch struct {
	code    string
	courses map[string]dto.CoursePayload
	err     error
}

// CrawlAll fetches all organisations, then fans out per-organisation course
// fetches across a bounded worker pool. A failed organisation is recorded
// in its outcome and does not abort the remaining ones. Course codes are
// deduplicated across organisations, first occurrence wins.
func (c *Client) CrawlAll(ctx context.Context, session models.Session, policy DuplicatePolicy) (*CrawlResult, error) {
	orgs, err := c.FetchOrganisations(ctx)
	if err != nil {
		return nil, err
	}

	// An early return below must unblock any worker still trying to send.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	codes := make([]string, 0, len(orgs))
	for code := range orgs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	jobs := make(chan string)
	fetches := make(chan orgFetch)

	var wg sync.WaitGroup
	for i := 0; i < c.crawlWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				courses, err := c.FetchCourses(ctx, session, code)
				select {
				case fetches <- orgFetch{code: code, courses: courses, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, code := range codes {
			select {
			case jobs <- code:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(fetches)
	}()

	result := &CrawlResult{Organisations: orgs}
	seen := make(map[string]string)

	for fetch := range fetches {
		if fetch.err != nil {
			c.logger.Sugar().Warnw("organisation crawl failed", "org", fetch.code, "error", fetch.err)
			result.Outcomes = append(result.Outcomes, models.OrganisationOutcome{
				Code: fetch.code, Error: fetch.err.Error(),
			})
			continue
		}

		kept := 0
		for courseCode, payload := range fetch.courses {
			if firstOrg, dup := seen[courseCode]; dup {
				if policy == DuplicateError {
					return nil, apperrors.Clone(apperrors.ErrDuplicateCourse,
						fmt.Sprintf("course %s reported by both %s and %s", courseCode, firstOrg, fetch.code))
				}
				c.logger.Sugar().Warnw("duplicate course code across organisations",
					"course", courseCode, "kept_org", firstOrg, "skipped_org", fetch.code)
				result.DuplicatesSkipped++
				continue
			}
			seen[courseCode] = fetch.code
			result.Payloads = append(result.Payloads, payload)
			kept++
		}
		result.Outcomes = append(result.Outcomes, models.OrganisationOutcome{
			Code: fetch.code, Courses: kept,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result.Outcomes, func(i, j int) bool {
		return result.Outcomes[i].Code < result.Outcomes[j].Code
	})

	c.logger.Sugar().Infow("crawl finished",
		"session", session.Code(),
		"organisations", len(orgs),
		"courses", len(result.Payloads),
		"duplicates_skipped", result.DuplicatesSkipped,
	)
	return result, nil
}
