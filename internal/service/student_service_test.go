package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniexam/exam-scheduler-api/internal/models"
	appErrors "github.com/uniexam/exam-scheduler-api/pkg/errors"
)

type studentRepoStub struct {
	byID    map[string]*models.Student
	numbers map[string]string // number -> student ID
	created []*models.Student
	updated []*models.Student
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{byID: map[string]*models.Student{}, numbers: map[string]string{}}
}

func (r *studentRepoStub) List(_ context.Context, _ models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (r *studentRepoStub) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (r *studentRepoStub) ExistsByNumber(_ context.Context, number, excludeID string) (bool, error) {
	id, ok := r.numbers[number]
	return ok && id != excludeID, nil
}

func (r *studentRepoStub) Create(_ context.Context, student *models.Student) error {
	student.ID = "s-new"
	r.created = append(r.created, student)
	return nil
}

func (r *studentRepoStub) Update(_ context.Context, student *models.Student) error {
	r.updated = append(r.updated, student)
	return nil
}

func (r *studentRepoStub) Delete(_ context.Context, id string) error { return nil }

type studentEnrollmentStoreStub struct{}

func (studentEnrollmentStoreStub) Exists(_ context.Context, _, _ string) (bool, error) { return false, nil }
func (studentEnrollmentStoreStub) Create(_ context.Context, _ *models.Enrollment) error {
	return nil
}
func (studentEnrollmentStoreStub) Delete(_ context.Context, _ string) error { return nil }

func TestStudentCreateRejectsDuplicateNumber(t *testing.T) {
	repo := newStudentRepoStub()
	repo.byID["s1"] = &models.Student{ID: "s1", Number: "20260001", FullName: "Ada Kaya", Year: 2}
	repo.numbers["20260001"] = "s1"
	svc := NewStudentService(repo, studentEnrollmentStoreStub{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Number:       "20260001",
		FullName:     "Deniz Arslan",
		DepartmentID: "d1",
		Year:         1,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestStudentCreateAcceptsFreshNumber(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, studentEnrollmentStoreStub{}, nil, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		Number:       " 20260002 ",
		FullName:     "Deniz Arslan",
		DepartmentID: "d1",
		Year:         1,
	})

	require.NoError(t, err)
	assert.Equal(t, "20260002", student.Number)
	require.Len(t, repo.created, 1)
}

func TestStudentUpdateKeepsOwnNumber(t *testing.T) {
	repo := newStudentRepoStub()
	repo.byID["s1"] = &models.Student{ID: "s1", Number: "20260001", FullName: "Ada Kaya", Year: 2}
	repo.numbers["20260001"] = "s1"
	svc := NewStudentService(repo, studentEnrollmentStoreStub{}, nil, nil)

	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		Number:   "20260001",
		FullName: "Ada Kaya",
		Year:     3,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, updated.Year)
}

func TestStudentUpdateRejectsNumberOwnedByAnother(t *testing.T) {
	repo := newStudentRepoStub()
	repo.byID["s1"] = &models.Student{ID: "s1", Number: "20260001", FullName: "Ada Kaya", Year: 2}
	repo.byID["s2"] = &models.Student{ID: "s2", Number: "20260002", FullName: "Deniz Arslan", Year: 2}
	repo.numbers["20260001"] = "s1"
	repo.numbers["20260002"] = "s2"
	svc := NewStudentService(repo, studentEnrollmentStoreStub{}, nil, nil)

	_, err := svc.Update(context.Background(), "s2", UpdateStudentRequest{
		Number:   "20260001",
		FullName: "Deniz Arslan",
		Year:     2,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}
