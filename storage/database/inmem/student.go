package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

var (
	profileComparators = comparators[student.Profile]{
		"student_id": func(a, b student.Profile) int { return cmpStrings(a.StudentID, b.StudentID) },
		"created_at": func(a, b student.Profile) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"updated_at": func(a, b student.Profile) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	}

	enrollmentComparators = comparators[student.Enrollment]{
		"enrollment_date": func(a, b student.Enrollment) int { return a.EnrollmentDate.Compare(b.EnrollmentDate.Time) },
		"status":          func(a, b student.Enrollment) int { return cmpStrings(a.Status, b.Status) },
		"total_fee":       func(a, b student.Enrollment) int { return a.TotalFee.Cmp(b.TotalFee) },
		"final_fee":       func(a, b student.Enrollment) int { return a.FinalFee.Cmp(b.FinalFee) },
		"created_at":      func(a, b student.Enrollment) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"updated_at":      func(a, b student.Enrollment) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	}
)

// Profiles

func (repo *studentRepository) CreateProfile(_ context.Context, p student.Profile) (student.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[p.UserID]; !ok {
		return student.Profile{}, user.ErrNotFound
	}
	for _, other := range repo.db.profiles {
		if other.UserID == p.UserID {
			return student.Profile{}, uniqueViolation(student.ProfileUserConstraint)
		}
		if other.StudentID == p.StudentID {
			return student.Profile{}, uniqueViolation(student.ProfileStudentIDConstraint)
		}
	}
	p.ID = newID()
	repo.db.profiles[p.ID] = &p
	return p, nil
}

func (repo *studentRepository) QueryProfiles(_ context.Context, filter *student.ProfileFilter, ordering []core.DBOrdering) ([]student.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	profiles := make([]student.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		if filter != nil && filter.Search != "" && !strings.HasPrefix(p.StudentID, strings.ToUpper(filter.Search)) {
			continue
		}
		profiles = append(profiles, *p)
	}
	sortRows(profiles, ordering, profileComparators, core.DBOrdering{Field: "created_at"})
	return profiles, nil
}

func (repo *studentRepository) GetProfile(_ context.Context, id string) (student.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.profiles[id]; ok {
		return *p, nil
	}
	return student.Profile{}, student.ErrProfileNotFound
}

func (repo *studentRepository) GetProfileByUser(_ context.Context, userID string) (student.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.profiles {
		if p.UserID == userID {
			return *p, nil
		}
	}
	return student.Profile{}, student.ErrProfileNotFound
}

func (repo *studentRepository) UpdateProfile(_ context.Context, p student.Profile) (student.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.profiles[p.ID]
	if !ok {
		return student.Profile{}, student.ErrProfileNotFound
	}
	p.UserID = orig.UserID
	p.StudentID = orig.StudentID
	p.CreatedAt = orig.CreatedAt
	repo.db.profiles[p.ID] = &p
	return p, nil
}

func (repo *studentRepository) DeleteProfile(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.profiles[id]; !ok {
		return student.ErrProfileNotFound
	}
	delete(repo.db.profiles, id)
	return nil
}

// Enrollments

// checkEnrollmentRefs mirrors the enrollments foreign keys; callers hold the lock.
func (repo *studentRepository) checkEnrollmentRefs(e student.Enrollment) error {
	if _, ok := repo.db.users[e.StudentID]; !ok {
		return user.ErrNotFound
	}
	if _, ok := repo.db.batches[e.BatchID]; !ok {
		return batch.ErrNotFound
	}
	if e.CourseID.Valid {
		if _, ok := repo.db.courses[e.CourseID.String]; !ok {
			return course.ErrNotFound
		}
	}
	return nil
}

func (repo *studentRepository) CreateEnrollment(_ context.Context, e student.Enrollment) (student.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkEnrollmentRefs(e); err != nil {
		return student.Enrollment{}, err
	}
	e.ID = newID()
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func matchesEnrollment(e *student.Enrollment, filter *student.EnrollmentFilter) bool {
	if filter == nil {
		return true
	}
	return (filter.StudentID == "" || e.StudentID == filter.StudentID) &&
		(filter.BatchID == "" || e.BatchID == filter.BatchID) &&
		(filter.Status == "" || e.Status == filter.Status)
}

func (repo *studentRepository) QueryEnrollments(_ context.Context, filter *student.EnrollmentFilter, ordering []core.DBOrdering) ([]student.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]student.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if matchesEnrollment(e, filter) {
			enrollments = append(enrollments, *e)
		}
	}
	sortRows(enrollments, ordering, enrollmentComparators, core.DBOrdering{Field: "created_at"})
	return enrollments, nil
}

func (repo *studentRepository) GetEnrollment(_ context.Context, id string) (student.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.enrollments[id]; ok {
		return *e, nil
	}
	return student.Enrollment{}, student.ErrEnrollmentNotFound
}

func (repo *studentRepository) UpdateEnrollment(_ context.Context, e student.Enrollment) (student.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.enrollments[e.ID]
	if !ok {
		return student.Enrollment{}, student.ErrEnrollmentNotFound
	}
	if err := repo.checkEnrollmentRefs(e); err != nil {
		return student.Enrollment{}, err
	}
	e.CreatedAt = orig.CreatedAt
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *studentRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return student.ErrEnrollmentNotFound
	}
	repo.db.deleteEnrollment(id)
	return nil
}
