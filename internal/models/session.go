package models

import (
	"fmt"

	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// Session identifies an academic term-year on the timetable source.
//
// The canonical external form is a five character numeric code: the first
// four digits are the zero-padded year and the last digit is 9 for a
// fall/winter session or 5 for a summer session. For example "20209" is the
// fall/winter session of 2020.
type Session struct {
	Year   int  `json:"year"`
	Summer bool `json:"summer"`
}

// Code renders the session in its canonical five character form.
func (s Session) Code() string {
	suffix := 9
	if s.Summer {
		suffix = 5
	}
	return fmt.Sprintf("%04d%d", s.Year, suffix)
}

// String implements fmt.Stringer.
func (s Session) String() string {
	return s.Code()
}

// ParseSessionCode parses a five character session code into a Session.
// ParseSessionCode(s.Code()) round-trips for every valid Session.
func ParseSessionCode(code string) (Session, error) {
	if len(code) != 5 {
		return Session{}, apperrors.Wrap(
			fmt.Errorf("expected string of length 5, not %d", len(code)),
			apperrors.ErrInvalidSessionCode.Code,
			apperrors.ErrInvalidSessionCode.Status,
			fmt.Sprintf("invalid session code %q", code),
		)
	}

	year := 0
	for _, r := range code {
		if r < '0' || r > '9' {
			return Session{}, apperrors.Wrap(
				fmt.Errorf("expected numeric string"),
				apperrors.ErrInvalidSessionCode.Code,
				apperrors.ErrInvalidSessionCode.Status,
				fmt.Sprintf("invalid session code %q", code),
			)
		}
	}
	for _, r := range code[:4] {
		year = year*10 + int(r-'0')
	}

	suffix := code[4]
	if suffix != '9' && suffix != '5' {
		return Session{}, apperrors.Wrap(
			fmt.Errorf("expected code to end in one of {9, 5}, not %c", suffix),
			apperrors.ErrInvalidSessionCode.Code,
			apperrors.ErrInvalidSessionCode.Status,
			fmt.Sprintf("invalid session code %q", code),
		)
	}

	return Session{Year: year, Summer: suffix == '5'}, nil
}
