package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// SlugConstraint is the store's unique constraint on Course.Slug.
const SlugConstraint = "courses_slug_key"

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("course not found")
	ErrSlugConflict = core.NewConflictError("slug", "could not generate a unique slug for this course name")

	OrderingFields = []string{"name", "slug", "price", "created_at", "updated_at"}
)

type (
	Repository interface {
		// CreateCourse inserts `c` as is; a taken slug yields a core.UniqueViolation on SlugConstraint.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo         Repository
		validate     *validator.Validate
		slugAttempts int
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) Service {
	attempts := conf.Identifiers.SlugAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &service{repo: repo, validate: validate, slugAttempts: attempts}
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	c := Course{
		Name:        nc.Name,
		Description: nc.Description,
		Duration:    nc.Duration,
		Price:       core.RoundMoney(*nc.Price),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	base := core.Slugify(nc.Name)
	for n := 0; n < svc.slugAttempts; n++ {
		c.Slug = core.SlugCandidate(base, n)
		created, err := svc.repo.CreateCourse(ctx, c)
		if err == nil {
			return created, nil
		}
		if !core.IsUniqueViolation(err, SlugConstraint) {
			return Course{}, errors.Wrap(err, "creating course")
		}
	}
	return Course{}, ErrSlugConflict
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Name = core.CleanString(filter.Name)
	}
	return svc.repo.QueryCourses(ctx, filter, core.FilterOrderings(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	if err := uc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Duration != nil {
		c.Duration = core.CleanString(*uc.Duration)
	}
	if uc.Price != nil {
		c.Price = core.RoundMoney(*uc.Price)
	}
	c.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdateCourse(ctx, c)
	if err != nil {
		if core.IsNotFound(err) {
			return Course{}, err
		}
		return Course{}, errors.Wrap(err, "updating course")
	}
	return updated, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}
