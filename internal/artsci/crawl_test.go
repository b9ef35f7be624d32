package artsci

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

var testSession = models.Session{Year: 2021}

func TestFetchOrganisations(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orgs", r.URL.Path)
		fmt.Fprint(w, `{"orgs": {"CSC": "Computer Science", "MAT": "Mathematics"}}`)
	}))

	orgs, err := client.FetchOrganisations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CSC": "Computer Science", "MAT": "Mathematics"}, orgs)
}

func TestFetchOrganisationsMissingKey(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"departments": {}}`)
	}))

	_, err := client.FetchOrganisations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))
}

func TestFetchCoursesEmptyOrganisation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/20219/courses", r.URL.Path)
		assert.Equal(t, "JOU", r.URL.Query().Get("org"))
		fmt.Fprint(w, `[]`)
	}))

	courses, err := client.FetchCourses(context.Background(), testSession, "JOU")
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func crawlMux(t *testing.T, perOrg map[string]string) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orgs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"orgs": {"CSC": "Computer Science", "MAT": "Mathematics", "PHY": "Physics"}}`)
	})
	mux.HandleFunc("/api/20219/courses", func(w http.ResponseWriter, r *http.Request) {
		body, ok := perOrg[r.URL.Query().Get("org")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, body)
	})
	return mux
}

func TestCrawlAll(t *testing.T) {
	client, _ := newTestClient(t, crawlMux(t, map[string]string{
		"CSC": `{"CSC108H1-F-20219": {"code": "CSC108H1", "org": "CSC"}}`,
		"MAT": `{"MAT137Y1-Y-20219": {"code": "MAT137Y1", "org": "MAT"}}`,
		"PHY": `[]`,
	}))

	result, err := client.CrawlAll(context.Background(), testSession, DuplicateSkip)
	require.NoError(t, err)

	assert.Len(t, result.Organisations, 3)
	assert.Len(t, result.Payloads, 2)
	assert.Zero(t, result.DuplicatesSkipped)

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, models.OrganisationOutcome{Code: "CSC", Courses: 1}, result.Outcomes[0])
	assert.Equal(t, models.OrganisationOutcome{Code: "MAT", Courses: 1}, result.Outcomes[1])
	assert.Equal(t, models.OrganisationOutcome{Code: "PHY", Courses: 0}, result.Outcomes[2])
}

func TestCrawlAllIsolatesFailedOrganisations(t *testing.T) {
	client, _ := newTestClient(t, crawlMux(t, map[string]string{
		"CSC": `{"CSC108H1-F-20219": {"code": "CSC108H1", "org": "CSC"}}`,
		"PHY": `{"PHY131H1-F-20219": {"code": "PHY131H1", "org": "PHY"}}`,
	}))

	result, err := client.CrawlAll(context.Background(), testSession, DuplicateSkip)
	require.NoError(t, err)

	assert.Len(t, result.Payloads, 2)
	require.Len(t, result.Outcomes, 3)
	assert.Empty(t, result.Outcomes[0].Error)
	assert.NotEmpty(t, result.Outcomes[1].Error)
	assert.Equal(t, "MAT", result.Outcomes[1].Code)

	failed := []models.OrganisationOutcome{}
	for _, outcome := range result.Outcomes {
		if outcome.Error != "" {
			failed = append(failed, outcome)
		}
	}
	assert.Len(t, failed, 1)
}

func TestCrawlAllSkipsDuplicateCourses(t *testing.T) {
	// Single worker, so organisations are crawled in sorted order and the
	// first occurrence deterministically wins.
	client, _ := newTestClient(t, crawlMux(t, map[string]string{
		"CSC": `{"JSC270H1-S-20219": {"code": "JSC270H1", "org": "CSC", "courseTitle": "from CSC"}}`,
		"MAT": `{"JSC270H1-S-20219": {"code": "JSC270H1", "org": "MAT", "courseTitle": "from MAT"}}`,
		"PHY": `[]`,
	}))

	result, err := client.CrawlAll(context.Background(), testSession, DuplicateSkip)
	require.NoError(t, err)

	require.Len(t, result.Payloads, 1)
	assert.Equal(t, "CSC", result.Payloads[0].Org)
	assert.Equal(t, 1, result.DuplicatesSkipped)
}

func TestCrawlAllDuplicateErrorPolicy(t *testing.T) {
	client, _ := newTestClient(t, crawlMux(t, map[string]string{
		"CSC": `{"JSC270H1-S-20219": {"code": "JSC270H1", "org": "CSC"}}`,
		"MAT": `{"JSC270H1-S-20219": {"code": "JSC270H1", "org": "MAT"}}`,
		"PHY": `[]`,
	}))

	_, err := client.CrawlAll(context.Background(), testSession, DuplicateError)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateCourse))
}

func TestCrawlAllOrganisationsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.CrawlAll(context.Background(), testSession, DuplicateSkip)
	require.Error(t, err)
}
