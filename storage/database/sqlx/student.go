package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/storage/database"
)

const (
	profileColumns    = "id, user_id, student_id, date_of_birth, gender, phone_number, address, city, state, created_at, updated_at"
	enrollmentColumns = "id, student_id, batch_id, course_id, enrollment_date, status, total_fee, discount_amount, final_fee, created_at, updated_at"
)

var errEnrollmentRefMissing = core.NewNotFoundError("enrollment student, batch or course not found")

type profileRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	StudentID   string      `db:"student_id"`
	DateOfBirth core.Date   `db:"date_of_birth"`
	Gender      null.String `db:"gender"`
	PhoneNumber null.String `db:"phone_number"`
	Address     null.String `db:"address"`
	City        null.String `db:"city"`
	State       null.String `db:"state"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toProfileRow(p student.Profile) profileRow {
	return profileRow{
		ID:          p.ID,
		UserID:      p.UserID,
		StudentID:   p.StudentID,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
		PhoneNumber: p.PhoneNumber,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func (r profileRow) toProfile() student.Profile {
	return student.Profile{
		ID:          r.ID,
		UserID:      r.UserID,
		StudentID:   r.StudentID,
		DateOfBirth: r.DateOfBirth,
		Gender:      r.Gender,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type enrollmentRow struct {
	ID             string          `db:"id"`
	StudentID      string          `db:"student_id"`
	BatchID        string          `db:"batch_id"`
	CourseID       null.String     `db:"course_id"`
	EnrollmentDate core.Date       `db:"enrollment_date"`
	Status         string          `db:"status"`
	TotalFee       decimal.Decimal `db:"total_fee"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	FinalFee       decimal.Decimal `db:"final_fee"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toEnrollmentRow(e student.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:             e.ID,
		StudentID:      e.StudentID,
		BatchID:        e.BatchID,
		CourseID:       e.CourseID,
		EnrollmentDate: e.EnrollmentDate,
		Status:         e.Status,
		TotalFee:       e.TotalFee,
		DiscountAmount: e.DiscountAmount,
		FinalFee:       e.FinalFee,
		CreatedAt:      e.CreatedAt.UTC(),
		UpdatedAt:      e.UpdatedAt.UTC(),
	}
}

func (r enrollmentRow) toEnrollment() student.Enrollment {
	return student.Enrollment{
		ID:             r.ID,
		StudentID:      r.StudentID,
		BatchID:        r.BatchID,
		CourseID:       r.CourseID,
		EnrollmentDate: r.EnrollmentDate,
		Status:         r.Status,
		TotalFee:       r.TotalFee,
		DiscountAmount: r.DiscountAmount,
		FinalFee:       r.FinalFee,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	ext sqlx.ExtContext
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(ext sqlx.ExtContext) *studentRepository {
	return &studentRepository{ext: ext}
}

// Profiles

func (repo *studentRepository) CreateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	p.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO student_profiles (`+profileColumns+`)
		VALUES (:id, :user_id, :student_id, :date_of_birth, :gender, :phone_number, :address, :city, :state, :created_at, :updated_at)`,
		toProfileRow(p),
	)
	if err != nil {
		return student.Profile{}, database.TranslateError(err, "inserting student profile", core.NewNotFoundError("user not found"))
	}
	return p, nil
}

func (repo *studentRepository) QueryProfiles(ctx context.Context, filter *student.ProfileFilter, ordering []core.DBOrdering) ([]student.Profile, error) {
	q := new(query)
	if filter != nil && filter.Search != "" {
		q.where("student_id LIKE ?", strings.ToUpper(filter.Search)+"%")
	}

	var rows []profileRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+profileColumns+" FROM student_profiles", ordering, "created_at DESC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying student profiles")
	}
	profiles := make([]student.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.toProfile())
	}
	return profiles, nil
}

func (repo *studentRepository) getProfile(ctx context.Context, column, value string) (student.Profile, error) {
	if !isUUID(value) {
		return student.Profile{}, student.ErrProfileNotFound
	}
	var r profileRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+profileColumns+" FROM student_profiles WHERE "+column+" = $1", value); err != nil {
		return student.Profile{}, trapNoRowsErr(err, student.ErrProfileNotFound, "finding student profile")
	}
	return r.toProfile(), nil
}

func (repo *studentRepository) GetProfile(ctx context.Context, id string) (student.Profile, error) {
	return repo.getProfile(ctx, "id", id)
}

func (repo *studentRepository) GetProfileByUser(ctx context.Context, userID string) (student.Profile, error) {
	return repo.getProfile(ctx, "user_id", userID)
}

func (repo *studentRepository) UpdateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	var r profileRow
	err := sqlx.GetContext(ctx, repo.ext, &r, `
		UPDATE student_profiles SET
			date_of_birth = $2, gender = $3, phone_number = $4, address = $5, city = $6, state = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+profileColumns,
		p.ID, p.DateOfBirth, p.Gender, p.PhoneNumber, p.Address, p.City, p.State, p.UpdatedAt.UTC(),
	)
	if err != nil {
		return student.Profile{}, trapNoRowsErr(err, student.ErrProfileNotFound, "updating student profile")
	}
	return r.toProfile(), nil
}

func (repo *studentRepository) DeleteProfile(ctx context.Context, id string) error {
	if !isUUID(id) {
		return student.ErrProfileNotFound
	}
	return execOne(ctx, repo.ext, student.ErrProfileNotFound, "DELETE FROM student_profiles WHERE id = ?", id)
}

// Enrollments

func (repo *studentRepository) CreateEnrollment(ctx context.Context, e student.Enrollment) (student.Enrollment, error) {
	e.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO enrollments (`+enrollmentColumns+`)
		VALUES (:id, :student_id, :batch_id, :course_id, :enrollment_date, :status, :total_fee, :discount_amount, :final_fee, :created_at, :updated_at)`,
		toEnrollmentRow(e),
	)
	if err != nil {
		return student.Enrollment{}, database.TranslateError(err, "inserting enrollment", errEnrollmentRefMissing)
	}
	return e, nil
}

func (repo *studentRepository) QueryEnrollments(ctx context.Context, filter *student.EnrollmentFilter, ordering []core.DBOrdering) ([]student.Enrollment, error) {
	q := new(query)
	if filter != nil {
		if filter.StudentID != "" {
			if !isUUID(filter.StudentID) {
				return []student.Enrollment{}, nil
			}
			q.where("student_id = ?", filter.StudentID)
		}
		if filter.BatchID != "" {
			if !isUUID(filter.BatchID) {
				return []student.Enrollment{}, nil
			}
			q.where("batch_id = ?", filter.BatchID)
		}
		if filter.Status != "" {
			q.where("status = ?", filter.Status)
		}
	}

	var rows []enrollmentRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+enrollmentColumns+" FROM enrollments", ordering, "created_at DESC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]student.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.toEnrollment())
	}
	return enrollments, nil
}

func (repo *studentRepository) GetEnrollment(ctx context.Context, id string) (student.Enrollment, error) {
	if !isUUID(id) {
		return student.Enrollment{}, student.ErrEnrollmentNotFound
	}
	var r enrollmentRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = $1", id); err != nil {
		return student.Enrollment{}, trapNoRowsErr(err, student.ErrEnrollmentNotFound, "finding enrollment")
	}
	return r.toEnrollment(), nil
}

func (repo *studentRepository) UpdateEnrollment(ctx context.Context, e student.Enrollment) (student.Enrollment, error) {
	var r enrollmentRow
	err := sqlx.GetContext(ctx, repo.ext, &r, `
		UPDATE enrollments SET
			course_id = $2, enrollment_date = $3, status = $4, total_fee = $5, discount_amount = $6, final_fee = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+enrollmentColumns,
		e.ID, e.CourseID, e.EnrollmentDate, e.Status, e.TotalFee, e.DiscountAmount, e.FinalFee, e.UpdatedAt.UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Enrollment{}, student.ErrEnrollmentNotFound
		}
		return student.Enrollment{}, database.TranslateError(err, "updating enrollment", errEnrollmentRefMissing)
	}
	return r.toEnrollment(), nil
}

func (repo *studentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	if !isUUID(id) {
		return student.ErrEnrollmentNotFound
	}
	return execOne(ctx, repo.ext, student.ErrEnrollmentNotFound, "DELETE FROM enrollments WHERE id = ?", id)
}
