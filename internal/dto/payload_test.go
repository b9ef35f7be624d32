package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadMapDecodesObject(t *testing.T) {
	var m PayloadMap[InstructorPayload]
	raw := `{"1": {"firstName": "David", "lastName": "Liu"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Len(t, m, 1)
	assert.Equal(t, "Liu", m["1"].LastName)
}

func TestPayloadMapDecodesEmptyArray(t *testing.T) {
	var m PayloadMap[InstructorPayload]
	require.NoError(t, json.Unmarshal([]byte(`[]`), &m))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestPayloadMapDecodesNull(t *testing.T) {
	var m PayloadMap[InstructorPayload]
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Nil(t, m)
}

func TestPayloadMapRejectsNonEmptyArray(t *testing.T) {
	var m PayloadMap[InstructorPayload]
	err := json.Unmarshal([]byte(`[{"firstName": "David"}]`), &m)
	require.Error(t, err)
}

func TestCoursePayloadDecode(t *testing.T) {
	raw := `{
		"code": "CSC108H1",
		"org": "CSC",
		"orgName": "Computer Science",
		"courseTitle": "Introduction to Computer Programming",
		"section": "F",
		"session": "20219",
		"meetings": {
			"LEC-0101": {
				"teachingMethod": "LEC",
				"sectionNumber": "0101",
				"instructors": [],
				"schedule": {
					"1": {
						"meetingDay": "MO",
						"meetingStartTime": "09:00",
						"meetingEndTime": "10:00",
						"assignedRoom1": null
					}
				},
				"enrollmentCapacity": "500"
			}
		}
	}`

	var payload CoursePayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, "CSC108H1", payload.Code)
	assert.Equal(t, "F", payload.Section)
	require.Contains(t, payload.Meetings, "LEC-0101")

	section := payload.Meetings["LEC-0101"]
	assert.Empty(t, section.Instructors)
	require.Contains(t, section.Schedule, "1")
	meeting := section.Schedule["1"]
	require.NotNil(t, meeting.MeetingDay)
	assert.Equal(t, "MO", *meeting.MeetingDay)
	assert.Nil(t, meeting.AssignedRoom1)
	require.NotNil(t, section.EnrollmentCapacity)
	assert.Equal(t, "500", *section.EnrollmentCapacity)
}
