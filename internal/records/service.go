package records

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/egepakten/cognito-student-registry/internal/federation"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// Store is the persistence surface the service drives.
type Store interface {
	GetProfile(ctx context.Context, creds aws.Credentials, identityID string) (*Profile, error)
	SaveProfile(ctx context.Context, creds aws.Credentials, profile Profile) error
	DeleteProfile(ctx context.Context, creds aws.Credentials, identityID string) error
	ListEnrollments(ctx context.Context, creds aws.Credentials, identityID string) ([]Enrollment, error)
	SaveEnrollment(ctx context.Context, creds aws.Credentials, enrollment Enrollment) error
	ListGrades(ctx context.Context, creds aws.Credentials, identityID string) ([]Grade, error)
	SaveGrade(ctx context.Context, creds aws.Credentials, grade Grade) error
	GetCourse(ctx context.Context, creds aws.Credentials, courseID string) (*Course, error)
	SaveCourse(ctx context.Context, creds aws.Credentials, course Course) error
	ListCourses(ctx context.Context, creds aws.Credentials, semester string) ([]Course, error)
	ListRoster(ctx context.Context, creds aws.Credentials, courseID string) ([]Enrollment, error)
	ListUsersByRole(ctx context.Context, creds aws.Credentials, role roles.Role) ([]Profile, error)
}

// CredentialSource exchanges a session's ID token for scoped AWS
// credentials.
type CredentialSource interface {
	ScopedCredentials(ctx context.Context, idToken string) (*federation.Identity, error)
}

// Service runs record operations on behalf of a session. Each
// operation federates fresh credentials first, so reads and writes
// always execute under the caller's own cloud permissions.
type Service struct {
	source CredentialSource
	store  Store
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(source CredentialSource, store Store) *Service {
	return &Service{source: source, store: store, now: time.Now}
}

func (s *Service) federate(ctx context.Context, sess *session.Session) (*federation.Identity, error) {
	if sess == nil || sess.Tokens.IDToken == "" {
		return nil, fmt.Errorf("federate: %w", shared.ErrNotAuthenticated)
	}
	return s.source.ScopedCredentials(ctx, sess.Tokens.IDToken)
}

// MyProfile returns the caller's profile, nil when none exists yet.
func (s *Service) MyProfile(ctx context.Context, sess *session.Session) (*Profile, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.GetProfile(ctx, identity.Credentials, identity.ID)
}

// SaveMyProfile writes the caller's profile. Identity, email, and
// role come from the session's verified claims, never from the
// request; only the display name is caller-supplied.
func (s *Service) SaveMyProfile(ctx context.Context, sess *session.Session, name string) (*Profile, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	profile := Profile{
		UserID:    identity.ID,
		Email:     sess.Email(),
		Name:      name,
		Role:      string(sess.Role()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveProfile(ctx, identity.Credentials, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// MyEnrollments lists the caller's enrollments.
func (s *Service) MyEnrollments(ctx context.Context, sess *session.Session) ([]Enrollment, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.ListEnrollments(ctx, identity.Credentials, identity.ID)
}

// Enroll records the caller into a course.
func (s *Service) Enroll(ctx context.Context, sess *session.Session, courseID, courseName, semester string) (*Enrollment, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	enrollment := Enrollment{
		UserID:     identity.ID,
		CourseID:   courseID,
		CourseName: courseName,
		Semester:   semester,
		EnrolledAt: s.now().UTC(),
	}
	if err := s.store.SaveEnrollment(ctx, identity.Credentials, enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// MyGrades lists the grades in the caller's partition.
func (s *Service) MyGrades(ctx context.Context, sess *session.Session) ([]Grade, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.ListGrades(ctx, identity.Credentials, identity.ID)
}

// AssignGrade writes a grade into the target student's partition,
// stamped with the acting identity. The write runs under the grader's
// credentials; whether they may touch that partition is the cloud
// policy's call.
func (s *Service) AssignGrade(ctx context.Context, sess *session.Session, studentID, courseID, grade string) (*Grade, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	record := Grade{
		StudentID: studentID,
		CourseID:  courseID,
		Grade:     grade,
		GradedBy:  identity.ID,
		GradedAt:  s.now().UTC(),
	}
	if err := s.store.SaveGrade(ctx, identity.Credentials, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Course returns course metadata, nil when the course is unknown.
func (s *Service) Course(ctx context.Context, sess *session.Session, courseID string) (*Course, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.GetCourse(ctx, identity.Credentials, courseID)
}

// Courses lists the courses offered in a semester, for the
// enrollment selection screen.
func (s *Service) Courses(ctx context.Context, sess *session.Session, semester string) ([]Course, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.ListCourses(ctx, identity.Credentials, semester)
}

// CreateCourse writes course metadata, attributed to the caller.
func (s *Service) CreateCourse(ctx context.Context, sess *session.Session, courseID, name, semester string) (*Course, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	course := Course{
		CourseID:    courseID,
		Name:        name,
		Semester:    semester,
		ProfessorID: identity.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.SaveCourse(ctx, identity.Credentials, course); err != nil {
		return nil, err
	}
	return &course, nil
}

// Roster lists the enrollments of everyone in a course.
func (s *Service) Roster(ctx context.Context, sess *session.Session, courseID string) ([]Enrollment, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.ListRoster(ctx, identity.Credentials, courseID)
}

// UsersByRole lists profiles carrying the given role.
func (s *Service) UsersByRole(ctx context.Context, sess *session.Session, role roles.Role) ([]Profile, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsersByRole(ctx, identity.Credentials, role)
}

// DeleteUser removes a user's profile item. Enrollments and grades in
// the partition survive; cleanup of those is a manual operation.
func (s *Service) DeleteUser(ctx context.Context, sess *session.Session, identityID string) error {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return err
	}
	return s.store.DeleteProfile(ctx, identity.Credentials, identityID)
}
