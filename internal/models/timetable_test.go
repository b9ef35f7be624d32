package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseID(t *testing.T) {
	assert.Equal(t, "MAT137Y1-F-20219", CourseID("MAT137Y1", TermFirstSemester, "20219"))
}

func TestSectionCode(t *testing.T) {
	method := TeachingMethodLecture
	assert.Equal(t, "LEC-0101", Section{TeachingMethod: &method, SectionNumber: "0101"}.Code())
	assert.Equal(t, "-0201", Section{SectionNumber: "0201"}.Code())
}

func TestDeliveryModeRecognized(t *testing.T) {
	assert.True(t, DeliveryModeInPerson.Recognized())
	assert.True(t, DeliveryModeOnlineSync.Recognized())
	assert.False(t, DeliveryMode("HYBR").Recognized())
}

func TestParseCourseTerm(t *testing.T) {
	term, err := ParseCourseTerm("Y")
	require.NoError(t, err)
	assert.Equal(t, TermFullYear, term)

	_, err = ParseCourseTerm("Q")
	assert.Error(t, err)
}

func TestParseTeachingMethod(t *testing.T) {
	method, err := ParseTeachingMethod("TUT")
	require.NoError(t, err)
	assert.Equal(t, TeachingMethodTutorial, method)

	_, err = ParseTeachingMethod("SEM")
	assert.Error(t, err)
}

func TestParseMeetingDay(t *testing.T) {
	day, err := ParseMeetingDay("WE")
	require.NoError(t, err)
	assert.Equal(t, DayWednesday, day)

	_, err = ParseMeetingDay("XX")
	assert.Error(t, err)
}

func TestReportCounters(t *testing.T) {
	report := SyncReport{
		Organisations: []OrganisationOutcome{
			{Code: "CSC", Courses: 12},
			{Code: "MAT", Error: "boom"},
		},
	}
	assert.Equal(t, 1, report.FailedOrganisations())
}
