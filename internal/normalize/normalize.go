// Package normalize converts raw timetable payloads into canonical model
// entities. Every function is pure: malformed input is reported through the
// returned error and nothing is logged or stored.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// Course builds a canonical Course from a raw payload. The organisation map
// must already hold every organisation discovered by the crawl; a missing
// entry is an upstream contract violation.
func Course(payload dto.CoursePayload, organisations map[string]models.Organisation) (models.Course, error) {
	org, ok := organisations[payload.Org]
	if !ok {
		return models.Course{}, apperrors.Clone(apperrors.ErrUnknownOrganisation,
			fmt.Sprintf("course %s references unknown organisation %q", payload.Code, payload.Org))
	}

	term, err := models.ParseCourseTerm(payload.Section)
	if err != nil {
		return models.Course{}, apperrors.Wrap(err, apperrors.ErrUnknownEnumValue.Code,
			apperrors.ErrUnknownEnumValue.Status, apperrors.ErrUnknownEnumValue.Message)
	}

	sections, err := sections(payload.Meetings)
	if err != nil {
		return models.Course{}, err
	}

	return models.Course{
		ID:                       models.CourseID(payload.Code, term, payload.Session),
		OrganisationCode:         org.Code,
		Code:                     payload.Code,
		Title:                    payload.CourseTitle,
		Description:              payload.CourseDescription,
		Term:                     term,
		SessionCode:              payload.Session,
		Sections:                 sections,
		Prerequisites:            payload.Prerequisite,
		Corequisites:             payload.Corequisite,
		Exclusions:               payload.Exclusion,
		RecommendedPreparation:   payload.RecommendedPreparation,
		BreadthCategories:        payload.BreadthCategories,
		DistributionCategories:   payload.DistributionCategories,
		WebTimetableInstructions: payload.WebTimetableInstructions,
		DeliveryInstructions:     payload.DeliveryInstructions,
		Campus:                   models.CampusStGeorge,
	}, nil
}

// sections converts the meetings sub-map into an ordered section list,
// sorted by payload key so repeated runs see the same order.
func sections(payload dto.PayloadMap[dto.SectionPayload]) ([]models.Section, error) {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]models.Section, 0, len(keys))
	for _, key := range keys {
		section, err := Section(payload[key])
		if err != nil {
			return nil, err
		}
		result = append(result, section)
	}
	return result, nil
}

// Section builds a canonical Section from a raw payload.
func Section(payload dto.SectionPayload) (models.Section, error) {
	var method *models.TeachingMethod
	if payload.TeachingMethod != nil {
		parsed, err := models.ParseTeachingMethod(*payload.TeachingMethod)
		if err != nil {
			return models.Section{}, apperrors.Wrap(err, apperrors.ErrUnknownEnumValue.Code,
				apperrors.ErrUnknownEnumValue.Status, apperrors.ErrUnknownEnumValue.Message)
		}
		method = &parsed
	}

	// Delivery modes are the one enumeration the source is known to grow
	// without notice. An unrecognized literal is preserved verbatim instead
	// of failing the course.
	var delivery *models.DeliveryMode
	if payload.DeliveryMode != nil {
		mode := models.DeliveryMode(*payload.DeliveryMode)
		delivery = &mode
	}

	instructors := make([]models.Instructor, 0, len(payload.Instructors))
	for _, key := range sortedKeys(payload.Instructors) {
		entry := payload.Instructors[key]
		instructors = append(instructors, models.Instructor{
			FirstName: entry.FirstName,
			LastName:  entry.LastName,
		})
	}

	meetings := make([]models.Meeting, 0, len(payload.Schedule))
	for _, key := range sortedKeys(payload.Schedule) {
		meeting, ok, err := Meeting(payload.Schedule[key])
		if err != nil {
			return models.Section{}, err
		}
		if !ok {
			continue
		}
		meetings = append(meetings, meeting)
	}

	capacity, err := intOrNil(payload.EnrollmentCapacity)
	if err != nil {
		return models.Section{}, err
	}
	enrolment, err := intOrNil(payload.ActualEnrolment)
	if err != nil {
		return models.Section{}, err
	}
	waitlisted, err := intOrNil(payload.ActualWaitlist)
	if err != nil {
		return models.Section{}, err
	}

	return models.Section{
		TeachingMethod:     method,
		SectionNumber:      payload.SectionNumber,
		Subtitle:           payload.Subtitle,
		Instructors:        instructors,
		Meetings:           meetings,
		DeliveryMode:       delivery,
		Cancelled:          payload.Cancel != nil && *payload.Cancel == "Cancelled",
		HasWaitlist:        payload.Waitlist != nil && *payload.Waitlist == "Y",
		EnrolmentCapacity:  capacity,
		ActualEnrolment:    enrolment,
		ActualWaitlist:     waitlisted,
		EnrolmentIndicator: payload.EnrollmentIndicator,
	}, nil
}

// Meeting builds a canonical Meeting. A payload missing its day, start time
// or end time cannot be constructed; it is dropped (ok=false) rather than
// stored with null core fields.
func Meeting(payload dto.MeetingPayload) (models.Meeting, bool, error) {
	if payload.MeetingDay == nil || payload.MeetingStartTime == nil || payload.MeetingEndTime == nil {
		return models.Meeting{}, false, nil
	}

	day, err := models.ParseMeetingDay(*payload.MeetingDay)
	if err != nil {
		return models.Meeting{}, false, apperrors.Wrap(err, apperrors.ErrUnknownEnumValue.Code,
			apperrors.ErrUnknownEnumValue.Status, apperrors.ErrUnknownEnumValue.Message)
	}

	start, err := Time(*payload.MeetingStartTime)
	if err != nil {
		return models.Meeting{}, false, err
	}
	end, err := Time(*payload.MeetingEndTime)
	if err != nil {
		return models.Meeting{}, false, err
	}

	return models.Meeting{
		Day:       day,
		StartTime: start,
		EndTime:   end,
		Room1:     payload.AssignedRoom1,
		Room2:     payload.AssignedRoom2,
	}, true, nil
}

// Time parses a 24-hour clock "HH:MM" string.
func Time(raw string) (models.TimeOfDay, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return models.TimeOfDay{}, apperrors.Clone(apperrors.ErrMalformedTime,
			fmt.Sprintf("malformed time %q: expected HH:MM", raw))
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return models.TimeOfDay{}, apperrors.Wrap(err, apperrors.ErrMalformedTime.Code,
			apperrors.ErrMalformedTime.Status, fmt.Sprintf("malformed time %q", raw))
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.TimeOfDay{}, apperrors.Wrap(err, apperrors.ErrMalformedTime.Code,
			apperrors.ErrMalformedTime.Status, fmt.Sprintf("malformed time %q", raw))
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return models.TimeOfDay{}, apperrors.Clone(apperrors.ErrMalformedTime,
			fmt.Sprintf("time %q out of range", raw))
	}

	return models.TimeOfDay{Hour: hour, Minute: minute}, nil
}

// intOrNil converts an optional numeric string, mapping absent and empty to
// nil rather than zero.
func intOrNil(raw *string) (*int, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, fmt.Errorf("expected numeric string, got %q", *raw)
	}
	return &value, nil
}

func sortedKeys[T any](m dto.PayloadMap[T]) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
