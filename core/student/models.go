package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

// Genders
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// Enrollment statuses
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusDropped   = "DROPPED"
	StatusSuspended = "SUSPENDED"
)

var Statuses = []string{StatusActive, StatusCompleted, StatusDropped, StatusSuspended}

// Profile holds the student-specific data of a User (one per user).
type Profile struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	StudentID   string      `json:"student_id"` // STD-XXXXXX, assigned once
	DateOfBirth core.Date   `json:"date_of_birth"`
	Gender      null.String `json:"gender"`
	PhoneNumber null.String `json:"phone_number"`
	Address     null.String `json:"address"`
	City        null.String `json:"city"`
	State       null.String `json:"state"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

type ProfileWithEnrollments struct {
	Profile
	Enrollments []Enrollment `json:"enrollments"`
}

// NewProfile contains information needed to create a Profile.
// UserID is only read from admin requests; students always create their own.
type NewProfile struct {
	UserID      string      `json:"user_id" validate:"required"`
	DateOfBirth core.Date   `json:"date_of_birth"`
	Gender      null.String `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	PhoneNumber null.String `json:"phone_number" validate:"omitempty,max=20"`
	Address     null.String `json:"address"`
	City        null.String `json:"city" validate:"omitempty,max=100"`
	State       null.String `json:"state" validate:"omitempty,max=100"`
}

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.UserID = core.CleanString(np.UserID)
	return validate.Struct(np)
}

// UpdateProfile: unset fields are left untouched. StudentID & UserID cannot be changed.
type UpdateProfile struct {
	DateOfBirth core.Date   `json:"date_of_birth"`
	Gender      null.String `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	PhoneNumber null.String `json:"phone_number" validate:"omitempty,max=20"`
	Address     null.String `json:"address"`
	City        null.String `json:"city" validate:"omitempty,max=100"`
	State       null.String `json:"state" validate:"omitempty,max=100"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

func (up UpdateProfile) apply(p *Profile) {
	if !up.DateOfBirth.IsZero() {
		p.DateOfBirth = up.DateOfBirth
	}
	if up.Gender.Valid {
		p.Gender = up.Gender
	}
	if up.PhoneNumber.Valid {
		p.PhoneNumber = up.PhoneNumber
	}
	if up.Address.Valid {
		p.Address = up.Address
	}
	if up.City.Valid {
		p.City = up.City
	}
	if up.State.Valid {
		p.State = up.State
	}
}

type ProfileFilter struct {
	Search string `query:"search"` // student_id prefix
}

// Enrollment associates one student to one batch (and course) with fee terms.
// FinalFee == TotalFee - DiscountAmount after every write.
type Enrollment struct {
	ID             string          `json:"id"`
	StudentID      string          `json:"student_id"` // the enrolled User
	BatchID        string          `json:"batch_id"`
	CourseID       null.String     `json:"course_id"`
	EnrollmentDate core.Date       `json:"enrollment_date"`
	Status         string          `json:"status"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalFee       decimal.Decimal `json:"final_fee"`
	CreatedAt      time.Time       `json:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
}

type NewEnrollment struct {
	StudentID      string           `json:"student_id" validate:"required"`
	BatchID        string           `json:"batch_id" validate:"required"`
	CourseID       null.String      `json:"course_id"`
	EnrollmentDate core.Date        `json:"enrollment_date"`
	Status         string           `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED DROPPED SUSPENDED"`
	TotalFee       *decimal.Decimal `json:"total_fee" validate:"required,gte=0,lte=99999999.99"`
	DiscountAmount decimal.Decimal  `json:"discount_amount" validate:"gte=0,lte=99999999.99"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.BatchID = core.CleanString(ne.BatchID)
	ne.Status = core.CleanString(ne.Status)
	return validate.Struct(ne)
}

type UpdateEnrollment struct {
	CourseID       null.String      `json:"course_id"`
	EnrollmentDate core.Date        `json:"enrollment_date"`
	Status         string           `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED DROPPED SUSPENDED"`
	TotalFee       *decimal.Decimal `json:"total_fee" validate:"omitempty,gte=0,lte=99999999.99"`
	DiscountAmount *decimal.Decimal `json:"discount_amount" validate:"omitempty,gte=0,lte=99999999.99"`
}

func (ue *UpdateEnrollment) Validate(validate *validator.Validate) error {
	ue.Status = core.CleanString(ue.Status)
	return validate.Struct(ue)
}

type EnrollmentFilter struct {
	StudentID string `query:"student_id"`
	BatchID   string `query:"batch_id"`
	Status    string `query:"status"`
}

// EnrollmentDetails is the enrollment.created event payload.
type EnrollmentDetails struct {
	Enrollment Enrollment
	Student    user.User
	Batch      batch.Batch
	Course     *course.Course
}
