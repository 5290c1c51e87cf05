// Package dashboard composes the per-role landing views from the
// record layer.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/egepakten/cognito-student-registry/internal/records"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/session"
)

// RecordReader is the slice of the record service the dashboard
// reads from.
type RecordReader interface {
	MyProfile(ctx context.Context, sess *session.Session) (*records.Profile, error)
	MyEnrollments(ctx context.Context, sess *session.Session) ([]records.Enrollment, error)
	MyGrades(ctx context.Context, sess *session.Session) ([]records.Grade, error)
	Roster(ctx context.Context, sess *session.Session, courseID string) ([]records.Enrollment, error)
	UsersByRole(ctx context.Context, sess *session.Session, role roles.Role) ([]records.Profile, error)
}

// StudentView is the assembled student landing page data.
type StudentView struct {
	Profile     *records.Profile     `json:"profile"`
	Enrollments []records.Enrollment `json:"enrollments"`
	Grades      []records.Grade      `json:"grades"`
}

// Service assembles dashboard views.
type Service struct {
	reader RecordReader
}

// NewService constructs a Service.
func NewService(reader RecordReader) *Service {
	return &Service{reader: reader}
}

// Student fetches profile, enrollments, and grades concurrently. The
// view renders as a unit: any failed read fails the whole request
// rather than serving a partial page.
func (s *Service) Student(ctx context.Context, sess *session.Session) (*StudentView, error) {
	var view StudentView
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.reader.MyProfile(ctx, sess)
		if err != nil {
			return err
		}
		view.Profile = profile
		return nil
	})
	g.Go(func() error {
		enrollments, err := s.reader.MyEnrollments(ctx, sess)
		if err != nil {
			return err
		}
		view.Enrollments = enrollments
		return nil
	})
	g.Go(func() error {
		grades, err := s.reader.MyGrades(ctx, sess)
		if err != nil {
			return err
		}
		view.Grades = grades
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &view, nil
}

// Roster returns the professor view of one course.
func (s *Service) Roster(ctx context.Context, sess *session.Session, courseID string) ([]records.Enrollment, error) {
	return s.reader.Roster(ctx, sess, courseID)
}

// Users returns the admin view of accounts carrying a role.
func (s *Service) Users(ctx context.Context, sess *session.Session, role roles.Role) ([]records.Profile, error) {
	return s.reader.UsersByRole(ctx, sess, role)
}
