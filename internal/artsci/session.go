package artsci

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// The source has no "current term" endpoint. The current session only
// appears inside the search widget's client-side script, as the argument of
// a searchCourses('DDDDD') call on the search button.
var sessionCodePattern = regexp.MustCompile(`searchCourses\('(\d{5})'\)`)

// ResolveCurrentSession scrapes the landing page for the current session
// code. With verify set, the session is additionally confirmed populated by
// probing for a course that has historically been offered every session.
func (c *Client) ResolveCurrentSession(ctx context.Context, verify bool) (models.Session, error) {
	body, err := c.get(ctx, c.rootURL)
	if err != nil {
		return models.Session{}, apperrors.Wrap(err, apperrors.ErrSessionNotFound.Code,
			apperrors.ErrSessionNotFound.Status, "failed to fetch landing page")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Session{}, apperrors.Wrap(err, apperrors.ErrSessionNotFound.Code,
			apperrors.ErrSessionNotFound.Status, "failed to parse landing page")
	}

	onclick, ok := doc.Find("input#searchButton.btnSearch").Attr("onclick")
	if !ok {
		return models.Session{}, apperrors.ErrSessionNotFound
	}

	match := sessionCodePattern.FindStringSubmatch(onclick)
	if match == nil {
		return models.Session{}, apperrors.ErrSessionNotFound
	}

	session, err := models.ParseSessionCode(match[1])
	if err != nil {
		return models.Session{}, err
	}

	if verify {
		valid, err := c.isSessionValid(ctx, session)
		if err != nil {
			return models.Session{}, err
		}
		if !valid {
			return models.Session{}, apperrors.Clone(apperrors.ErrSessionInvalid,
				fmt.Sprintf("session %s failed validity probe", session))
		}
	}

	c.logger.Sugar().Infow("resolved current session", "session", session.Code(), "verified", verify)
	return session, nil
}

// isSessionValid issues the probe query. The probe course is assumed to be
// offered in every session; an empty result means the session is not yet
// populated on the source.
func (c *Client) isSessionValid(ctx context.Context, session models.Session) (bool, error) {
	url := fmt.Sprintf("%s/%s/courses?code=%s", c.apiURL, session.Code(), c.probeCourse)

	var courses dto.PayloadMap[dto.CoursePayload]
	if err := c.getJSON(ctx, url, &courses); err != nil {
		return false, err
	}
	return len(courses) > 0, nil
}
