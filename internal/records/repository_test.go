package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	_ "github.com/egepakten/cognito-student-registry/testing"
)

type fakeDynamo struct {
	err error

	getInput    *dynamodb.GetItemInput
	putInput    *dynamodb.PutItemInput
	deleteInput *dynamodb.DeleteItemInput
	queryInput  *dynamodb.QueryInput

	getOutput   *dynamodb.GetItemOutput
	queryOutput *dynamodb.QueryOutput
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getInput = in
	if f.err != nil {
		return nil, f.err
	}
	if f.getOutput != nil {
		return f.getOutput, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleteInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInput = in
	if f.err != nil {
		return nil, f.err
	}
	if f.queryOutput != nil {
		return f.queryOutput, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func newFakeRepository(fake *fakeDynamo) *Repository {
	factory := func(ctx context.Context, creds aws.Credentials) (DynamoAPI, error) {
		return fake, nil
	}
	return NewRepository("registry-records", factory)
}

func stringAttr(m map[string]types.AttributeValue, name string) string {
	s, ok := m[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return s.Value
}

func TestGetProfileMissIsNotAnError(t *testing.T) {
	fake := &fakeDynamo{}
	repo := newFakeRepository(fake)

	profile, err := repo.GetProfile(context.Background(), aws.Credentials{}, "eu-west-2:abc")
	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NotNil(t, fake.getInput)
	assert.Equal(t, "USER#eu-west-2:abc", stringAttr(fake.getInput.Key, "PK"))
	assert.Equal(t, "PROFILE", stringAttr(fake.getInput.Key, "SK"))
}

func TestGetProfileRoundTripsItem(t *testing.T) {
	stored, err := attributevalue.MarshalMap(profileItem{
		item: item{PK: "USER#eu-west-2:abc", SK: "PROFILE"},
		Profile: Profile{
			UserID: "eu-west-2:abc",
			Email:  "jane@wiseuni.edu",
			Name:   "Jane Doe",
			Role:   "student",
		},
	})
	require.NoError(t, err)
	fake := &fakeDynamo{getOutput: &dynamodb.GetItemOutput{Item: stored}}
	repo := newFakeRepository(fake)

	profile, err := repo.GetProfile(context.Background(), aws.Credentials{}, "eu-west-2:abc")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "jane@wiseuni.edu", profile.Email)
	assert.Equal(t, "student", profile.Role)
}

func TestSaveProfileWritesRoleIndex(t *testing.T) {
	fake := &fakeDynamo{}
	repo := newFakeRepository(fake)

	err := repo.SaveProfile(context.Background(), aws.Credentials{}, Profile{
		UserID: "eu-west-2:abc",
		Email:  "jane@wiseuni.edu",
		Role:   "student",
	})
	require.NoError(t, err)

	require.NotNil(t, fake.putInput)
	assert.Equal(t, "registry-records", aws.ToString(fake.putInput.TableName))
	assert.Equal(t, "USER#eu-west-2:abc", stringAttr(fake.putInput.Item, "PK"))
	assert.Equal(t, "PROFILE", stringAttr(fake.putInput.Item, "SK"))
	assert.Equal(t, "ROLE#student", stringAttr(fake.putInput.Item, "GSI1PK"))
	assert.Equal(t, "USER#eu-west-2:abc", stringAttr(fake.putInput.Item, "GSI1SK"))
}

func TestSaveGradeTargetsStudentPartition(t *testing.T) {
	fake := &fakeDynamo{}
	repo := newFakeRepository(fake)

	err := repo.SaveGrade(context.Background(), aws.Credentials{}, Grade{
		StudentID: "eu-west-2:student",
		CourseID:  "CS101",
		Grade:     "A",
		GradedBy:  "eu-west-2:prof",
		GradedAt:  time.Now(),
	})
	require.NoError(t, err)

	require.NotNil(t, fake.putInput)
	assert.Equal(t, "USER#eu-west-2:student", stringAttr(fake.putInput.Item, "PK"))
	assert.Equal(t, "GRADE#CS101", stringAttr(fake.putInput.Item, "SK"))
	assert.Equal(t, "COURSE#CS101", stringAttr(fake.putInput.Item, "GSI1PK"))
	assert.Equal(t, "GRADE#eu-west-2:student", stringAttr(fake.putInput.Item, "GSI1SK"))
	assert.Equal(t, "eu-west-2:prof", stringAttr(fake.putInput.Item, "gradedBy"))
}

func TestListEnrollmentsQueriesPartitionPrefix(t *testing.T) {
	stored, err := attributevalue.MarshalMap(enrollmentItem{
		item:       item{PK: "USER#eu-west-2:abc", SK: "ENROLLMENT#CS101"},
		Enrollment: Enrollment{UserID: "eu-west-2:abc", CourseID: "CS101", CourseName: "Algorithms"},
	})
	require.NoError(t, err)
	fake := &fakeDynamo{queryOutput: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{stored}}}
	repo := newFakeRepository(fake)

	enrollments, err := repo.ListEnrollments(context.Background(), aws.Credentials{}, "eu-west-2:abc")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "CS101", enrollments[0].CourseID)

	require.NotNil(t, fake.queryInput)
	assert.Nil(t, fake.queryInput.IndexName)
	assert.Equal(t, "USER#eu-west-2:abc", stringAttr(fake.queryInput.ExpressionAttributeValues, ":pk"))
	assert.Equal(t, "ENROLLMENT#", stringAttr(fake.queryInput.ExpressionAttributeValues, ":sk"))
}

func TestListRosterQueriesCourseIndex(t *testing.T) {
	fake := &fakeDynamo{}
	repo := newFakeRepository(fake)

	_, err := repo.ListRoster(context.Background(), aws.Credentials{}, "CS101")
	require.NoError(t, err)

	require.NotNil(t, fake.queryInput)
	assert.Equal(t, "GSI1", aws.ToString(fake.queryInput.IndexName))
	assert.Equal(t, "COURSE#CS101", stringAttr(fake.queryInput.ExpressionAttributeValues, ":pk"))
	assert.Equal(t, "USER#", stringAttr(fake.queryInput.ExpressionAttributeValues, ":sk"))
}

func TestListCoursesQueriesSemesterIndex(t *testing.T) {
	fake := &fakeDynamo{}
	raw, err := attributevalue.MarshalMap(courseItem{
		item:   item{PK: "COURSE#CS101", SK: "METADATA", GSI1PK: "SEMESTER#2026-spring", GSI1SK: "COURSE#CS101"},
		Course: Course{CourseID: "CS101", Name: "Algorithms", Semester: "2026-spring"},
	})
	require.NoError(t, err)
	fake.queryOutput = &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{raw}}
	repo := newFakeRepository(fake)

	courses, err := repo.ListCourses(context.Background(), aws.Credentials{}, "2026-spring")
	require.NoError(t, err)

	require.NotNil(t, fake.queryInput)
	assert.Equal(t, "GSI1", aws.ToString(fake.queryInput.IndexName))
	assert.Equal(t, "SEMESTER#2026-spring", stringAttr(fake.queryInput.ExpressionAttributeValues, ":pk"))

	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].CourseID)
	assert.Equal(t, "Algorithms", courses[0].Name)
}

func TestListUsersByRoleQueriesRoleIndex(t *testing.T) {
	fake := &fakeDynamo{}
	repo := newFakeRepository(fake)

	_, err := repo.ListUsersByRole(context.Background(), aws.Credentials{}, roles.RoleProfessor)
	require.NoError(t, err)

	require.NotNil(t, fake.queryInput)
	assert.Equal(t, "GSI1", aws.ToString(fake.queryInput.IndexName))
	assert.Equal(t, "ROLE#professor", stringAttr(fake.queryInput.ExpressionAttributeValues, ":pk"))
}

func TestDeleteProfileRemovesOnlyProfileItem(t *testing.T) {
	fake := &fakeDynamo{}
	repo := newFakeRepository(fake)

	require.NoError(t, repo.DeleteProfile(context.Background(), aws.Credentials{}, "eu-west-2:abc"))

	require.NotNil(t, fake.deleteInput)
	assert.Equal(t, "USER#eu-west-2:abc", stringAttr(fake.deleteInput.Key, "PK"))
	assert.Equal(t, "PROFILE", stringAttr(fake.deleteInput.Key, "SK"))
}

func TestAccessDeniedTranslatesToDenied(t *testing.T) {
	fake := &fakeDynamo{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}}
	repo := newFakeRepository(fake)

	_, err := repo.GetProfile(context.Background(), aws.Credentials{}, "eu-west-2:abc")
	assert.ErrorIs(t, err, httpx.ErrDenied)

	err = repo.SaveProfile(context.Background(), aws.Credentials{}, Profile{UserID: "eu-west-2:abc"})
	assert.ErrorIs(t, err, httpx.ErrDenied)
}

func TestOtherFailuresTranslateToUpstream(t *testing.T) {
	fake := &fakeDynamo{err: errors.New("connection reset")}
	repo := newFakeRepository(fake)

	_, err := repo.ListGrades(context.Background(), aws.Credentials{}, "eu-west-2:abc")
	assert.ErrorIs(t, err, httpx.ErrUpstream)
	assert.NotErrorIs(t, err, httpx.ErrDenied)
}
