package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

func strPtr(s string) *string { return &s }

func testOrganisations() map[string]models.Organisation {
	return map[string]models.Organisation{
		"CSC": {Code: "CSC", Name: "Computer Science"},
	}
}

func TestTime(t *testing.T) {
	parsed, err := Time("08:30")
	require.NoError(t, err)
	assert.Equal(t, models.TimeOfDay{Hour: 8, Minute: 30}, parsed)

	parsed, err = Time("11:00")
	require.NoError(t, err)
	assert.Equal(t, models.TimeOfDay{Hour: 11, Minute: 0}, parsed)
}

func TestTimeMalformed(t *testing.T) {
	for _, raw := range []string{"bad", "11", "11:00:00", "aa:30", "11:bb", "25:00", "11:75"} {
		_, err := Time(raw)
		require.Error(t, err, "time %q", raw)
		assert.True(t, errors.Is(err, apperrors.ErrMalformedTime), "time %q", raw)
	}
}

func TestMeeting(t *testing.T) {
	meeting, ok, err := Meeting(dto.MeetingPayload{
		MeetingDay:       strPtr("MO"),
		MeetingStartTime: strPtr("09:00"),
		MeetingEndTime:   strPtr("10:00"),
		AssignedRoom1:    strPtr("BA 1190"),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.DayMonday, meeting.Day)
	assert.Equal(t, models.TimeOfDay{Hour: 9}, meeting.StartTime)
	assert.Equal(t, models.TimeOfDay{Hour: 10}, meeting.EndTime)
	require.NotNil(t, meeting.Room1)
	assert.Equal(t, "BA 1190", *meeting.Room1)
	assert.Nil(t, meeting.Room2)
}

func TestMeetingMissingCoreFieldIsDropped(t *testing.T) {
	for _, payload := range []dto.MeetingPayload{
		{MeetingStartTime: strPtr("09:00"), MeetingEndTime: strPtr("10:00")},
		{MeetingDay: strPtr("MO"), MeetingEndTime: strPtr("10:00")},
		{MeetingDay: strPtr("MO"), MeetingStartTime: strPtr("09:00")},
	} {
		_, ok, err := Meeting(payload)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestMeetingUnknownDay(t *testing.T) {
	_, _, err := Meeting(dto.MeetingPayload{
		MeetingDay:       strPtr("XX"),
		MeetingStartTime: strPtr("09:00"),
		MeetingEndTime:   strPtr("10:00"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownEnumValue))
}

func TestSectionDropsIncompleteMeetings(t *testing.T) {
	section, err := Section(dto.SectionPayload{
		SectionNumber:  "0101",
		TeachingMethod: strPtr("LEC"),
		Schedule: dto.PayloadMap[dto.MeetingPayload]{
			"1": {MeetingDay: strPtr("MO"), MeetingStartTime: strPtr("09:00"), MeetingEndTime: strPtr("10:00")},
			"2": {MeetingStartTime: strPtr("13:00"), MeetingEndTime: strPtr("14:00")},
		},
	})
	require.NoError(t, err)
	require.Len(t, section.Meetings, 1)
	assert.Equal(t, models.DayMonday, section.Meetings[0].Day)
}

func TestSectionCoercions(t *testing.T) {
	section, err := Section(dto.SectionPayload{
		SectionNumber:      "0201",
		TeachingMethod:     strPtr("TUT"),
		DeliveryMode:       strPtr("ONLSYNC"),
		Cancel:             strPtr("Cancelled"),
		Waitlist:           strPtr("Y"),
		EnrollmentCapacity: strPtr("150"),
		ActualEnrolment:    strPtr("93"),
	})
	require.NoError(t, err)

	require.NotNil(t, section.TeachingMethod)
	assert.Equal(t, models.TeachingMethodTutorial, *section.TeachingMethod)
	require.NotNil(t, section.DeliveryMode)
	assert.Equal(t, models.DeliveryModeOnlineSync, *section.DeliveryMode)
	assert.True(t, section.Cancelled)
	assert.True(t, section.HasWaitlist)
	require.NotNil(t, section.EnrolmentCapacity)
	assert.Equal(t, 150, *section.EnrolmentCapacity)
	require.NotNil(t, section.ActualEnrolment)
	assert.Equal(t, 93, *section.ActualEnrolment)
	assert.Nil(t, section.ActualWaitlist)
}

func TestSectionAbsentOptionalFields(t *testing.T) {
	section, err := Section(dto.SectionPayload{SectionNumber: "5101"})
	require.NoError(t, err)

	assert.Nil(t, section.TeachingMethod)
	assert.Nil(t, section.DeliveryMode)
	assert.False(t, section.Cancelled)
	assert.False(t, section.HasWaitlist)
	assert.Nil(t, section.EnrolmentCapacity)
	assert.Empty(t, section.Instructors)
	assert.Empty(t, section.Meetings)
}

func TestSectionEmptyCountIsNil(t *testing.T) {
	section, err := Section(dto.SectionPayload{
		SectionNumber:      "0101",
		EnrollmentCapacity: strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, section.EnrolmentCapacity)
}

func TestSectionPreservesUnrecognizedDeliveryMode(t *testing.T) {
	section, err := Section(dto.SectionPayload{
		SectionNumber: "0101",
		DeliveryMode:  strPtr("HYBR"),
	})
	require.NoError(t, err)
	require.NotNil(t, section.DeliveryMode)
	assert.Equal(t, models.DeliveryMode("HYBR"), *section.DeliveryMode)
	assert.False(t, section.DeliveryMode.Recognized())
}

func TestSectionUnknownTeachingMethod(t *testing.T) {
	_, err := Section(dto.SectionPayload{
		SectionNumber:  "0101",
		TeachingMethod: strPtr("SEM"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownEnumValue))
}

func TestSectionTreatsEmptyListAsNoEntries(t *testing.T) {
	raw := `{
		"sectionNumber": "0101",
		"teachingMethod": "LEC",
		"instructors": [],
		"schedule": []
	}`
	var payload dto.SectionPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	section, err := Section(payload)
	require.NoError(t, err)
	assert.Empty(t, section.Instructors)
	assert.Empty(t, section.Meetings)
}

func TestSectionInstructors(t *testing.T) {
	raw := `{
		"sectionNumber": "0101",
		"instructors": {
			"2": {"instructorId": "42", "firstName": "Alfonso", "lastName": "Gracia-Saz"},
			"1": {"firstName": "David", "lastName": "Liu"}
		}
	}`
	var payload dto.SectionPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	section, err := Section(payload)
	require.NoError(t, err)
	require.Len(t, section.Instructors, 2)
	assert.Equal(t, models.Instructor{FirstName: "David", LastName: "Liu"}, section.Instructors[0])
	assert.Equal(t, models.Instructor{FirstName: "Alfonso", LastName: "Gracia-Saz"}, section.Instructors[1])
}

func courseFixture() dto.CoursePayload {
	return dto.CoursePayload{
		Code:              "CSC108H1",
		Org:               "CSC",
		OrgName:           "Computer Science",
		CourseTitle:       "Introduction to Computer Programming",
		CourseDescription: "Programming in a language such as Python.",
		Section:           "F",
		Session:           "20219",
		Prerequisite:      "",
		BreadthCategories: "The Physical and Mathematical Universes (5)",
		Meetings: dto.PayloadMap[dto.SectionPayload]{
			"LEC-0101": {
				SectionNumber:  "0101",
				TeachingMethod: strPtr("LEC"),
			},
		},
	}
}

func TestCourse(t *testing.T) {
	course, err := Course(courseFixture(), testOrganisations())
	require.NoError(t, err)

	assert.Equal(t, "CSC108H1-F-20219", course.ID)
	assert.Equal(t, "CSC", course.OrganisationCode)
	assert.Equal(t, "Introduction to Computer Programming", course.Title)
	assert.Equal(t, models.TermFirstSemester, course.Term)
	assert.Equal(t, "20219", course.SessionCode)
	assert.Equal(t, models.CampusStGeorge, course.Campus)
	require.Len(t, course.Sections, 1)
	assert.Equal(t, "LEC-0101", course.Sections[0].Code())
}

func TestCourseUnknownOrganisation(t *testing.T) {
	payload := courseFixture()
	payload.Org = "NONE"

	_, err := Course(payload, testOrganisations())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownOrganisation))
}

func TestCourseUnknownTerm(t *testing.T) {
	payload := courseFixture()
	payload.Section = "Q"

	_, err := Course(payload, testOrganisations())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownEnumValue))
}

func TestCourseSectionOrderIsStable(t *testing.T) {
	payload := courseFixture()
	payload.Meetings = dto.PayloadMap[dto.SectionPayload]{
		"TUT-0201": {SectionNumber: "0201", TeachingMethod: strPtr("TUT")},
		"LEC-0101": {SectionNumber: "0101", TeachingMethod: strPtr("LEC")},
	}

	course, err := Course(payload, testOrganisations())
	require.NoError(t, err)
	require.Len(t, course.Sections, 2)
	assert.Equal(t, "LEC-0101", course.Sections[0].Code())
	assert.Equal(t, "TUT-0201", course.Sections[1].Code())
}
