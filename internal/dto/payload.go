package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PayloadMap decodes a JSON object keyed by arbitrary ids. The source
// inconsistently emits an empty array instead of an empty object for "no
// entries"; both decode to an empty map.
type PayloadMap[T any] map[string]T

// UnmarshalJSON implements json.Unmarshaler.
func (m *PayloadMap[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}

	if trimmed[0] == '[' {
		var entries []T
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		if len(entries) > 0 {
			return fmt.Errorf("expected object, got non-empty array")
		}
		*m = PayloadMap[T]{}
		return nil
	}

	var entries map[string]T
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return err
	}
	*m = entries
	return nil
}

// OrganisationsPayload is the /api/orgs response. The Orgs key is the
// upstream contract; its absence is treated as a source failure.
type OrganisationsPayload struct {
	Orgs map[string]string `json:"orgs"`
}

// InstructorPayload is one instructor entry of a section. The remote id is
// present in only some schema versions and is never relied upon.
type InstructorPayload struct {
	InstructorID string `json:"instructorId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

// MeetingPayload is one schedule entry of a section. Day and times may be
// absent; such meetings are excluded during normalization.
type MeetingPayload struct {
	MeetingDay       *string `json:"meetingDay"`
	MeetingStartTime *string `json:"meetingStartTime"`
	MeetingEndTime   *string `json:"meetingEndTime"`
	AssignedRoom1    *string `json:"assignedRoom1"`
	AssignedRoom2    *string `json:"assignedRoom2"`
}

// SectionPayload is one meeting entry of a course payload.
type SectionPayload struct {
	TeachingMethod      *string                       `json:"teachingMethod"`
	SectionNumber       string                        `json:"sectionNumber"`
	Subtitle            *string                       `json:"subtitle"`
	Instructors         PayloadMap[InstructorPayload] `json:"instructors"`
	Schedule            PayloadMap[MeetingPayload]    `json:"schedule"`
	DeliveryMode        *string                       `json:"deliveryMode"`
	Cancel              *string                       `json:"cancel"`
	Waitlist            *string                       `json:"waitlist"`
	EnrollmentCapacity  *string                       `json:"enrollmentCapacity"`
	ActualEnrolment     *string                       `json:"actualEnrolment"`
	ActualWaitlist      *string                       `json:"actualWaitlist"`
	EnrollmentIndicator *string                       `json:"enrollmentIndicator"`
}

// CoursePayload is one raw course entry from the per-organisation endpoint.
type CoursePayload struct {
	Code                     string                     `json:"code"`
	Org                      string                     `json:"org"`
	OrgName                  string                     `json:"orgName"`
	CourseTitle              string                     `json:"courseTitle"`
	CourseDescription        string                     `json:"courseDescription"`
	Section                  string                     `json:"section"`
	Session                  string                     `json:"session"`
	Meetings                 PayloadMap[SectionPayload] `json:"meetings"`
	Prerequisite             string                     `json:"prerequisite"`
	Corequisite              string                     `json:"corequisite"`
	Exclusion                string                     `json:"exclusion"`
	RecommendedPreparation   string                     `json:"recommendedPreparation"`
	BreadthCategories        string                     `json:"breadthCategories"`
	DistributionCategories   string                     `json:"distributionCategories"`
	WebTimetableInstructions string                     `json:"webTimetableInstructions"`
	DeliveryInstructions     string                     `json:"deliveryInstructions"`
}
