// Package records stores student-facing academic state in a single
// DynamoDB table. Every read and write runs with the caller's own
// federated credentials; the table's cloud policy is the real
// authorization boundary.
package records

import "time"

// Profile is the per-user profile item.
type Profile struct {
	UserID    string    `json:"userId" dynamodbav:"userId"`
	Email     string    `json:"email" dynamodbav:"email"`
	Name      string    `json:"name" dynamodbav:"name"`
	Role      string    `json:"role" dynamodbav:"role"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Enrollment links a user to a course. Course name and semester are
// denormalized onto the item so listings need no second lookup.
type Enrollment struct {
	UserID     string    `json:"userId" dynamodbav:"userId"`
	CourseID   string    `json:"courseId" dynamodbav:"courseId"`
	CourseName string    `json:"courseName" dynamodbav:"courseName"`
	Semester   string    `json:"semester" dynamodbav:"semester"`
	EnrolledAt time.Time `json:"enrolledAt" dynamodbav:"enrolledAt"`
}

// Grade lives in the graded student's partition. GradedBy records the
// acting identity at write time.
type Grade struct {
	StudentID string    `json:"studentId" dynamodbav:"studentId"`
	CourseID  string    `json:"courseId" dynamodbav:"courseId"`
	Grade     string    `json:"grade" dynamodbav:"grade"`
	GradedBy  string    `json:"gradedBy" dynamodbav:"gradedBy"`
	GradedAt  time.Time `json:"gradedAt" dynamodbav:"gradedAt"`
}

// Course is the course metadata item.
type Course struct {
	CourseID    string    `json:"courseId" dynamodbav:"courseId"`
	Name        string    `json:"name" dynamodbav:"name"`
	Semester    string    `json:"semester" dynamodbav:"semester"`
	ProfessorID string    `json:"professorId" dynamodbav:"professorId"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt"`
}
