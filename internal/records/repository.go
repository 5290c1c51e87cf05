package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/roles"
)

// DynamoAPI is the slice of the DynamoDB client the repository uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ClientFactory builds a DynamoDB client bound to one user's
// federated credential triple. A fresh client per call keeps scoping
// honest: no request ever runs with another user's credentials.
type ClientFactory func(ctx context.Context, creds aws.Credentials) (DynamoAPI, error)

// NewClientFactory returns the production factory backed by static
// credential providers in the given region.
func NewClientFactory(region string) ClientFactory {
	return func(ctx context.Context, creds aws.Credentials) (DynamoAPI, error) {
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				creds.SessionToken,
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return dynamodb.NewFromConfig(cfg), nil
	}
}

// Repository executes single-table operations. Every method performs
// exactly one DynamoDB call with the credentials it was handed, and
// never retries.
type Repository struct {
	table     string
	clientFor ClientFactory
}

// NewRepository constructs a Repository over the given table.
func NewRepository(table string, clientFor ClientFactory) *Repository {
	return &Repository{table: table, clientFor: clientFor}
}

// item carries the key attributes shared by every stored record.
type item struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK string `dynamodbav:"GSI1SK,omitempty"`
}

type profileItem struct {
	item
	Profile
}

type enrollmentItem struct {
	item
	Enrollment
}

type gradeItem struct {
	item
	Grade
}

type courseItem struct {
	item
	Course
}

// translate maps provider failures onto the two categories callers
// distinguish: a rejected credential versus everything else. Missing
// items are handled before this point and are not errors.
func translate(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException", "InvalidSignatureException":
			return fmt.Errorf("%s: %w: %s", op, httpx.ErrDenied, apiErr.ErrorMessage())
		}
	}
	return fmt.Errorf("%s: %w: %v", op, httpx.ErrUpstream, err)
}

func (r *Repository) getItem(ctx context.Context, creds aws.Credentials, op, pk, sk string, target any) (bool, error) {
	client, err := r.clientFor(ctx, creds)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, translate(op, err)
	}
	if len(out.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, target); err != nil {
		return false, fmt.Errorf("%s: decode item: %w", op, err)
	}
	return true, nil
}

func (r *Repository) putItem(ctx context.Context, creds aws.Credentials, op string, record any) error {
	client, err := r.clientFor(ctx, creds)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	attrs, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("%s: encode item: %w", op, err)
	}
	if _, err := client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      attrs,
	}); err != nil {
		return translate(op, err)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, creds aws.Credentials, op string, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	client, err := r.clientFor(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	in.TableName = aws.String(r.table)
	out, err := client.Query(ctx, in)
	if err != nil {
		return nil, translate(op, err)
	}
	return out.Items, nil
}

// GetProfile returns the profile for the identity, or nil when none
// has been saved yet.
func (r *Repository) GetProfile(ctx context.Context, creds aws.Credentials, identityID string) (*Profile, error) {
	var record profileItem
	found, err := r.getItem(ctx, creds, "get profile", userKey(identityID), skProfile, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record.Profile, nil
}

// SaveProfile writes the profile item and its role index entry.
func (r *Repository) SaveProfile(ctx context.Context, creds aws.Credentials, profile Profile) error {
	return r.putItem(ctx, creds, "save profile", profileItem{
		item: item{
			PK:     userKey(profile.UserID),
			SK:     skProfile,
			GSI1PK: roleKey(roles.Role(profile.Role)),
			GSI1SK: userKey(profile.UserID),
		},
		Profile: profile,
	})
}

// DeleteProfile removes the profile item only. Enrollment and grade
// items under the same partition are left in place.
func (r *Repository) DeleteProfile(ctx context.Context, creds aws.Credentials, identityID string) error {
	client, err := r.clientFor(ctx, creds)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if _, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userKey(identityID)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
	}); err != nil {
		return translate("delete profile", err)
	}
	return nil
}

// ListEnrollments returns the identity's enrollments.
func (r *Repository) ListEnrollments(ctx context.Context, creds aws.Credentials, identityID string) ([]Enrollment, error) {
	items, err := r.query(ctx, creds, "list enrollments", &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userKey(identityID)},
			":sk": &types.AttributeValueMemberS{Value: "ENROLLMENT#"},
		},
	})
	if err != nil {
		return nil, err
	}
	enrollments := make([]Enrollment, 0, len(items))
	for _, raw := range items {
		var record enrollmentItem
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("list enrollments: decode item: %w", err)
		}
		enrollments = append(enrollments, record.Enrollment)
	}
	return enrollments, nil
}

// SaveEnrollment writes an enrollment and its course index entry.
func (r *Repository) SaveEnrollment(ctx context.Context, creds aws.Credentials, enrollment Enrollment) error {
	return r.putItem(ctx, creds, "save enrollment", enrollmentItem{
		item: item{
			PK:     userKey(enrollment.UserID),
			SK:     enrollmentKey(enrollment.CourseID),
			GSI1PK: courseKey(enrollment.CourseID),
			GSI1SK: userKey(enrollment.UserID),
		},
		Enrollment: enrollment,
	})
}

// ListGrades returns the grades recorded in the identity's partition.
func (r *Repository) ListGrades(ctx context.Context, creds aws.Credentials, identityID string) ([]Grade, error) {
	items, err := r.query(ctx, creds, "list grades", &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userKey(identityID)},
			":sk": &types.AttributeValueMemberS{Value: "GRADE#"},
		},
	})
	if err != nil {
		return nil, err
	}
	grades := make([]Grade, 0, len(items))
	for _, raw := range items {
		var record gradeItem
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("list grades: decode item: %w", err)
		}
		grades = append(grades, record.Grade)
	}
	return grades, nil
}

// SaveGrade writes a grade into the student's partition, indexed by
// course for per-course listings.
func (r *Repository) SaveGrade(ctx context.Context, creds aws.Credentials, grade Grade) error {
	return r.putItem(ctx, creds, "save grade", gradeItem{
		item: item{
			PK:     userKey(grade.StudentID),
			SK:     gradeKey(grade.CourseID),
			GSI1PK: courseKey(grade.CourseID),
			GSI1SK: gradeRefKey(grade.StudentID),
		},
		Grade: grade,
	})
}

// GetCourse returns course metadata, or nil when the course does not
// exist.
func (r *Repository) GetCourse(ctx context.Context, creds aws.Credentials, courseID string) (*Course, error) {
	var record courseItem
	found, err := r.getItem(ctx, creds, "get course", courseKey(courseID), skMetadata, &record)
	if err != nil || !found {
		return nil, err
	}
	return &record.Course, nil
}

// SaveCourse writes course metadata and its semester index entry.
func (r *Repository) SaveCourse(ctx context.Context, creds aws.Credentials, course Course) error {
	return r.putItem(ctx, creds, "save course", courseItem{
		item: item{
			PK:     courseKey(course.CourseID),
			SK:     skMetadata,
			GSI1PK: semesterKey(course.Semester),
			GSI1SK: courseKey(course.CourseID),
		},
		Course: course,
	})
}

// ListCourses returns the courses offered in a semester via the
// semester index.
func (r *Repository) ListCourses(ctx context.Context, creds aws.Credentials, semester string) ([]Course, error) {
	items, err := r.query(ctx, creds, "list courses", &dynamodb.QueryInput{
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: semesterKey(semester)},
		},
	})
	if err != nil {
		return nil, err
	}
	courses := make([]Course, 0, len(items))
	for _, raw := range items {
		var record courseItem
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("list courses: decode item: %w", err)
		}
		courses = append(courses, record.Course)
	}
	return courses, nil
}

// ListRoster returns the enrollments of everyone in a course via the
// course index.
func (r *Repository) ListRoster(ctx context.Context, creds aws.Credentials, courseID string) ([]Enrollment, error) {
	items, err := r.query(ctx, creds, "list roster", &dynamodb.QueryInput{
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: courseKey(courseID)},
			":sk": &types.AttributeValueMemberS{Value: "USER#"},
		},
	})
	if err != nil {
		return nil, err
	}
	roster := make([]Enrollment, 0, len(items))
	for _, raw := range items {
		var record enrollmentItem
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("list roster: decode item: %w", err)
		}
		roster = append(roster, record.Enrollment)
	}
	return roster, nil
}

// ListUsersByRole returns the profiles indexed under a role.
func (r *Repository) ListUsersByRole(ctx context.Context, creds aws.Credentials, role roles.Role) ([]Profile, error) {
	items, err := r.query(ctx, creds, "list users", &dynamodb.QueryInput{
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: roleKey(role)},
		},
	})
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(items))
	for _, raw := range items {
		var record profileItem
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			return nil, fmt.Errorf("list users: decode item: %w", err)
		}
		profiles = append(profiles, record.Profile)
	}
	return profiles, nil
}
