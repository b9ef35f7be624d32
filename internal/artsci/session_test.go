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

const landingPage = `<html><body>
<div id="searchForm">
  <input type="button" id="searchButton" class="btnSearch" value="Search"
         onclick="searchCourses('20219')" />
</div>
</body></html>`

func TestResolveCurrentSession(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, landingPage)
	}))

	session, err := client.ResolveCurrentSession(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, models.Session{Year: 2021, Summer: false}, session)
	assert.Equal(t, "20219", session.Code())
}

func TestResolveCurrentSessionMissingButton(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>down for maintenance</p></body></html>`)
	}))

	_, err := client.ResolveCurrentSession(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestResolveCurrentSessionUnparseableOnclick(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<input type="button" id="searchButton" class="btnSearch" onclick="showHelp()" />
</body></html>`)
	}))

	_, err := client.ResolveCurrentSession(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestResolveCurrentSessionVerified(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, landingPage)
	})
	mux.HandleFunc("/api/20219/courses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MAT137", r.URL.Query().Get("code"))
		fmt.Fprint(w, `{"MAT137Y1-Y-20219": {"code": "MAT137Y1"}}`)
	})

	client, _ := newTestClient(t, mux)
	session, err := client.ResolveCurrentSession(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "20219", session.Code())
}

func TestResolveCurrentSessionVerifyFailsOnEmptyProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, landingPage)
	})
	mux.HandleFunc("/api/20219/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.ResolveCurrentSession(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSessionInvalid))
}
