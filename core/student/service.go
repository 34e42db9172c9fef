package student

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/event"
	"github.com/trezcool/academia/core/user"
)

// unique constraints, as named by the store
const (
	ProfileUserConstraint      = "student_profiles_user_id_key"
	ProfileStudentIDConstraint = "student_profiles_student_id_key"

	studentIDPrefix = "STD-"
)

var (
	// errors
	ErrProfileNotFound    = core.NewNotFoundError("student profile not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrProfileExists      = core.NewConflictError("user_id", "this user already has a student profile")
	ErrStudentIDConflict  = core.NewConflictError("student_id", "could not generate a unique student ID")

	ProfileOrderingFields    = []string{"student_id", "created_at", "updated_at"}
	EnrollmentOrderingFields = []string{"enrollment_date", "status", "total_fee", "final_fee", "created_at", "updated_at"}

	GenerateStudentID = generateStudentID // mockable
)

// generateStudentID returns "STD-" followed by 6 uppercase hex characters.
func generateStudentID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return studentIDPrefix + strings.ToUpper(hex[:6])
}

type (
	Repository interface {
		// CreateProfile inserts `p` as is; collisions yield a core.UniqueViolation on
		// ProfileUserConstraint or ProfileStudentIDConstraint.
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		QueryProfiles(ctx context.Context, filter *ProfileFilter, ordering []core.DBOrdering) ([]Profile, error)
		GetProfile(ctx context.Context, id string) (Profile, error)
		GetProfileByUser(ctx context.Context, userID string) (Profile, error)
		// UpdateProfile never writes UserID nor StudentID.
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)
		DeleteProfile(ctx context.Context, id string) error

		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *EnrollmentFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}

	Service interface {
		CreateProfile(ctx context.Context, np NewProfile) (Profile, error)
		QueryProfiles(ctx context.Context, filter *ProfileFilter, ordering []core.DBOrdering) ([]Profile, error)
		GetProfile(ctx context.Context, id string) (Profile, error)
		GetProfileByUser(ctx context.Context, userID string) (Profile, error)
		GetProfileWithEnrollments(ctx context.Context, userID string) (ProfileWithEnrollments, error)
		UpdateProfile(ctx context.Context, p Profile, up UpdateProfile) (Profile, error)
		DeleteProfile(ctx context.Context, id string) error

		Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *EnrollmentFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment, ue UpdateEnrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error
	}

	service struct {
		repo              Repository
		usrSvc            user.Service
		batchSvc          batch.Service
		courseSvc         course.Service
		validate          *validator.Validate
		publisher         event.Publisher
		studentIDAttempts int
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	batchSvc batch.Service,
	courseSvc course.Service,
	validate *validator.Validate,
	publisher event.Publisher,
	conf *core.Config,
) Service {
	attempts := conf.Identifiers.StudentIDAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &service{
		repo:              repo,
		usrSvc:            usrSvc,
		batchSvc:          batchSvc,
		courseSvc:         courseSvc,
		validate:          validate,
		publisher:         publisher,
		studentIDAttempts: attempts,
	}
}

// Profiles

func (svc *service) CreateProfile(ctx context.Context, np NewProfile) (Profile, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	if _, err := svc.usrSvc.GetByID(ctx, np.UserID); err != nil {
		return Profile{}, errors.Wrap(err, "finding profile user")
	}

	now := time.Now().UTC()
	p := Profile{
		UserID:      np.UserID,
		DateOfBirth: np.DateOfBirth,
		Gender:      np.Gender,
		PhoneNumber: np.PhoneNumber,
		Address:     np.Address,
		City:        np.City,
		State:       np.State,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// student IDs are random: a collision is retried with a fresh one
	for attempt := 0; attempt < svc.studentIDAttempts; attempt++ {
		p.StudentID = GenerateStudentID()
		created, err := svc.repo.CreateProfile(ctx, p)
		switch {
		case err == nil:
			return created, nil
		case core.IsUniqueViolation(err, ProfileUserConstraint):
			return Profile{}, ErrProfileExists
		case !core.IsUniqueViolation(err, ProfileStudentIDConstraint):
			return Profile{}, errors.Wrap(err, "creating student profile")
		}
	}
	return Profile{}, ErrStudentIDConflict
}

func (svc *service) QueryProfiles(ctx context.Context, filter *ProfileFilter, ordering []core.DBOrdering) ([]Profile, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
	}
	return svc.repo.QueryProfiles(ctx, filter, core.FilterOrderings(ordering, ProfileOrderingFields...))
}

func (svc *service) GetProfile(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

func (svc *service) GetProfileByUser(ctx context.Context, userID string) (Profile, error) {
	return svc.repo.GetProfileByUser(ctx, userID)
}

func (svc *service) GetProfileWithEnrollments(ctx context.Context, userID string) (ProfileWithEnrollments, error) {
	p, err := svc.repo.GetProfileByUser(ctx, userID)
	if err != nil {
		return ProfileWithEnrollments{}, err
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, &EnrollmentFilter{StudentID: userID}, nil)
	if err != nil {
		return ProfileWithEnrollments{}, errors.Wrap(err, "querying profile enrollments")
	}
	if enrollments == nil {
		enrollments = []Enrollment{}
	}
	return ProfileWithEnrollments{Profile: p, Enrollments: enrollments}, nil
}

func (svc *service) UpdateProfile(ctx context.Context, p Profile, up UpdateProfile) (Profile, error) {
	if err := up.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	up.apply(&p)
	p.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdateProfile(ctx, p)
	if err != nil {
		if core.IsNotFound(err) {
			return Profile{}, err
		}
		return Profile{}, errors.Wrap(err, "updating student profile")
	}
	return updated, nil
}

func (svc *service) DeleteProfile(ctx context.Context, id string) error {
	return svc.repo.DeleteProfile(ctx, id)
}

// Enrollments

func (svc *service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Enrollment{}, err
	}

	student, err := svc.usrSvc.GetByID(ctx, ne.StudentID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "finding student")
	}
	b, err := svc.batchSvc.GetByID(ctx, ne.BatchID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "finding batch")
	}
	var c *course.Course
	if ne.CourseID.Valid && ne.CourseID.String != "" {
		crs, err := svc.courseSvc.GetByID(ctx, ne.CourseID.String)
		if err != nil {
			return Enrollment{}, errors.Wrap(err, "finding course")
		}
		c = &crs
	}

	now := time.Now().UTC()
	e := Enrollment{
		StudentID:      student.ID,
		BatchID:        b.ID,
		CourseID:       ne.CourseID,
		EnrollmentDate: ne.EnrollmentDate,
		Status:         ne.Status,
		TotalFee:       *ne.TotalFee,
		DiscountAmount: ne.DiscountAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c == nil {
		e.CourseID.Valid = false
	}
	if e.EnrollmentDate.IsZero() {
		e.EnrollmentDate = core.DateOf(now)
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
	e.applyFees()

	e, err = svc.repo.CreateEnrollment(ctx, e)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}

	svc.publisher.Publish(ctx, event.New(event.EnrollmentCreated, core.ActorID(ctx), EnrollmentDetails{
		Enrollment: e,
		Student:    student,
		Batch:      b,
		Course:     c,
	}))
	return e, nil
}

func (svc *service) QueryEnrollments(ctx context.Context, filter *EnrollmentFilter, ordering []core.DBOrdering) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter, core.FilterOrderings(ordering, EnrollmentOrderingFields...))
}

func (svc *service) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *service) UpdateEnrollment(ctx context.Context, e Enrollment, ue UpdateEnrollment) (Enrollment, error) {
	if err := ue.Validate(svc.validate); err != nil {
		return Enrollment{}, err
	}

	if ue.CourseID.Valid {
		if ue.CourseID.String == "" {
			e.CourseID.Valid = false
		} else {
			if _, err := svc.courseSvc.GetByID(ctx, ue.CourseID.String); err != nil {
				return Enrollment{}, errors.Wrap(err, "finding course")
			}
			e.CourseID = ue.CourseID
		}
	}
	if !ue.EnrollmentDate.IsZero() {
		e.EnrollmentDate = ue.EnrollmentDate
	}
	if ue.Status != "" {
		e.Status = ue.Status
	}
	if ue.TotalFee != nil {
		e.TotalFee = *ue.TotalFee
	}
	if ue.DiscountAmount != nil {
		e.DiscountAmount = *ue.DiscountAmount
	}
	e.applyFees()
	e.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdateEnrollment(ctx, e)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, err
		}
		return Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	return updated, nil
}

func (svc *service) DeleteEnrollment(ctx context.Context, id string) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}
