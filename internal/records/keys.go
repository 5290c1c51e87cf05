package records

import "github.com/egepakten/cognito-student-registry/internal/roles"

// Single-table key scheme. The base table is keyed PK/SK, the GSI1
// index inverts course and role lookups.
const (
	gsi1Name   = "GSI1"
	skProfile  = "PROFILE"
	skMetadata = "METADATA"
)

func userKey(identityID string) string { return "USER#" + identityID }

func courseKey(courseID string) string { return "COURSE#" + courseID }

func enrollmentKey(courseID string) string { return "ENROLLMENT#" + courseID }

func gradeKey(courseID string) string { return "GRADE#" + courseID }

func roleKey(role roles.Role) string { return "ROLE#" + string(role) }

func semesterKey(semester string) string { return "SEMESTER#" + semester }

func gradeRefKey(studentID string) string { return "GRADE#" + studentID }
