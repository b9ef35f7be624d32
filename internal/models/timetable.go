package models

import (
	"fmt"
	"time"
)

// Organisation models an academic department offering courses. Organisations
// are shared by reference across many courses and upserted by code.
type Organisation struct {
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseTerm represents the term a course runs in.
type CourseTerm string

const (
	TermFirstSemester  CourseTerm = "F"
	TermSecondSemester CourseTerm = "S"
	TermFullYear       CourseTerm = "Y"
)

// ParseCourseTerm converts a source literal to a CourseTerm.
func ParseCourseTerm(raw string) (CourseTerm, error) {
	switch term := CourseTerm(raw); term {
	case TermFirstSemester, TermSecondSemester, TermFullYear:
		return term, nil
	default:
		return "", fmt.Errorf("unknown course term %q", raw)
	}
}

// Campus represents the campus a course is offered at.
type Campus string

const (
	CampusStGeorge    Campus = "ST_GEORGE"
	CampusMississauga Campus = "MISSISSAUGA"
	CampusScarborough Campus = "SCARBOROUGH"
)

// TeachingMethod represents how a section is taught.
type TeachingMethod string

const (
	TeachingMethodLecture   TeachingMethod = "LEC"
	TeachingMethodTutorial  TeachingMethod = "TUT"
	TeachingMethodPractical TeachingMethod = "PRA"
)

// ParseTeachingMethod converts a source literal to a TeachingMethod.
func ParseTeachingMethod(raw string) (TeachingMethod, error) {
	switch method := TeachingMethod(raw); method {
	case TeachingMethodLecture, TeachingMethodTutorial, TeachingMethodPractical:
		return method, nil
	default:
		return "", fmt.Errorf("unknown teaching method %q", raw)
	}
}

// DeliveryMode represents how a section is delivered. The source grows new
// delivery literals without notice, so unlike the other enumerations an
// unrecognized literal is preserved as-is rather than rejected; Recognized
// reports whether the value is one of the known constants.
type DeliveryMode string

const (
	DeliveryModeInPerson    DeliveryMode = "CLASS"
	DeliveryModeOnlineSync  DeliveryMode = "ONLSYNC"
	DeliveryModeOnlineAsync DeliveryMode = "ONLASYNC"
)

// Recognized reports whether the delivery mode is a known constant.
func (m DeliveryMode) Recognized() bool {
	switch m {
	case DeliveryModeInPerson, DeliveryModeOnlineSync, DeliveryModeOnlineAsync:
		return true
	default:
		return false
	}
}

// MeetingDay represents the day of the week a meeting occurs on.
type MeetingDay string

const (
	DayMonday    MeetingDay = "MO"
	DayTuesday   MeetingDay = "TU"
	DayWednesday MeetingDay = "WE"
	DayThursday  MeetingDay = "TH"
	DayFriday    MeetingDay = "FR"
	DaySaturday  MeetingDay = "SA"
	DaySunday    MeetingDay = "SU"
)

// ParseMeetingDay converts a source literal to a MeetingDay.
func ParseMeetingDay(raw string) (MeetingDay, error) {
	switch day := MeetingDay(raw); day {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday:
		return day, nil
	default:
		return "", fmt.Errorf("unknown meeting day %q", raw)
	}
}

// TimeOfDay is a 24-hour clock time with minute precision.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Instructor is a course instructor. The source exposes no stable instructor
// identifier across schema versions, so instructors are embedded values of
// their section with identity given by name equality.
type Instructor struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Meeting is one recurring time/day/room slot of a section. Day, start and
// end are always present; a source meeting missing any of them is dropped
// during normalization instead of being stored with null core fields.
type Meeting struct {
	Day       MeetingDay `json:"day"`
	StartTime TimeOfDay  `json:"start_time"`
	EndTime   TimeOfDay  `json:"end_time"`
	Room1     *string    `json:"room_1,omitempty"`
	Room2     *string    `json:"room_2,omitempty"`
}

// Section is a scheduled component (lecture/tutorial/practical) of a course.
// Sections are exclusively owned by their course and replaced wholesale on
// every resync.
type Section struct {
	TeachingMethod     *TeachingMethod `json:"teaching_method,omitempty"`
	SectionNumber      string          `json:"section_number"`
	Subtitle           *string         `json:"subtitle,omitempty"`
	Instructors        []Instructor    `json:"instructors"`
	Meetings           []Meeting       `json:"meetings"`
	DeliveryMode       *DeliveryMode   `json:"delivery_mode,omitempty"`
	Cancelled          bool            `json:"cancelled"`
	HasWaitlist        bool            `json:"has_waitlist"`
	EnrolmentCapacity  *int            `json:"enrolment_capacity,omitempty"`
	ActualEnrolment    *int            `json:"actual_enrolment,omitempty"`
	ActualWaitlist     *int            `json:"actual_waitlist,omitempty"`
	EnrolmentIndicator *string         `json:"enrolment_indicator,omitempty"`
}

// Code returns the derived section key, e.g. "LEC-0101".
func (s Section) Code() string {
	method := ""
	if s.TeachingMethod != nil {
		method = string(*s.TeachingMethod)
	}
	return fmt.Sprintf("%s-%s", method, s.SectionNumber)
}

// Course is a course offering identified by code, term and session, e.g.
// "MAT137Y1-F-20219".
type Course struct {
	ID                       string     `db:"id" json:"id"`
	OrganisationCode         string     `db:"organisation_code" json:"organisation_code"`
	Code                     string     `db:"code" json:"code"`
	Title                    string     `db:"title" json:"title"`
	Description              string     `db:"description" json:"description"`
	Term                     CourseTerm `db:"term" json:"term"`
	SessionCode              string     `db:"session_code" json:"session_code"`
	Sections                 []Section  `db:"-" json:"sections"`
	Prerequisites            string     `db:"prerequisites" json:"prerequisites"`
	Corequisites             string     `db:"corequisites" json:"corequisites"`
	Exclusions               string     `db:"exclusions" json:"exclusions"`
	RecommendedPreparation   string     `db:"recommended_preparation" json:"recommended_preparation"`
	BreadthCategories        string     `db:"breadth_categories" json:"breadth_categories"`
	DistributionCategories   string     `db:"distribution_categories" json:"distribution_categories"`
	WebTimetableInstructions string     `db:"web_timetable_instructions" json:"web_timetable_instructions"`
	DeliveryInstructions     string     `db:"delivery_instructions" json:"delivery_instructions"`
	Campus                   Campus     `db:"campus" json:"campus"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// CourseID builds the composite course identifier from its parts.
func CourseID(code string, term CourseTerm, sessionCode string) string {
	return fmt.Sprintf("%s-%s-%s", code, term, sessionCode)
}
