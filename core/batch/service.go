package batch

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/event"
)

// SlugConstraint is the store's unique constraint on Batch.Slug.
const SlugConstraint = "batches_slug_key"

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("batch not found")
	ErrSlugConflict = core.NewConflictError("slug", "could not generate a unique slug for this batch name")

	OrderingFields = []string{"name", "slug", "start_date", "end_date", "price", "created_at", "updated_at"}
)

type (
	Repository interface {
		// CreateBatch inserts `b` as is; a taken slug yields a core.UniqueViolation on SlugConstraint.
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
		QueryBatches(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Batch, error)
		GetBatch(ctx context.Context, filter GetFilter) (Batch, error)
		// UpdateBatch never writes the slug.
		UpdateBatch(ctx context.Context, b Batch) (Batch, error)
		DeleteBatch(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, nb NewBatch) (Batch, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Batch, error)
		GetByID(ctx context.Context, id string) (Batch, error)
		GetBySlug(ctx context.Context, slug string) (Batch, error)
		Update(ctx context.Context, b Batch, ub UpdateBatch) (Batch, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo         Repository
		validate     *validator.Validate
		publisher    event.Publisher
		slugAttempts int
		today        func() core.Date
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, publisher event.Publisher, conf *core.Config) Service {
	attempts := conf.Identifiers.SlugAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &service{
		repo:         repo,
		validate:     validate,
		publisher:    publisher,
		slugAttempts: attempts,
		today:        core.Today,
	}
}

func (svc *service) Create(ctx context.Context, nb NewBatch) (Batch, error) {
	if err := nb.Validate(svc.validate); err != nil {
		return Batch{}, err
	}

	now := time.Now().UTC()
	b := Batch{
		Name:        nb.Name,
		Description: nb.Description,
		StartDate:   nb.StartDate,
		EndDate:     nb.EndDate,
		Price:       core.RoundMoney(*nb.Price),
		MaxStudents: nb.MaxStudents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor := core.ActorID(ctx); actor != "" {
		b.CreatedBy = null.StringFrom(actor)
	}

	// the store's unique constraint arbitrates concurrent creations: on collision, try the next suffix
	base := core.Slugify(nb.Name)
	for n := 0; n < svc.slugAttempts; n++ {
		b.Slug = core.SlugCandidate(base, n)
		created, err := svc.repo.CreateBatch(ctx, b)
		if err == nil {
			svc.publisher.Publish(ctx, event.New(event.BatchCreated, core.ActorID(ctx), created))
			return created, nil
		}
		if !core.IsUniqueViolation(err, SlugConstraint) {
			return Batch{}, errors.Wrap(err, "creating batch")
		}
	}
	return Batch{}, ErrSlugConflict
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Batch, error) {
	if filter != nil {
		filter.Clean()
		if filter.Today.IsZero() {
			filter.Today = svc.today()
		}
	}
	return svc.repo.QueryBatches(ctx, filter, core.FilterOrderings(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatch(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Batch, error) {
	return svc.repo.GetBatch(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, b Batch, ub UpdateBatch) (Batch, error) {
	if err := ub.Validate(b, svc.validate); err != nil {
		return Batch{}, err
	}

	b.Name = ub.Name
	b.Description = *ub.Description
	b.StartDate = ub.StartDate
	b.EndDate = ub.EndDate
	b.Price = core.RoundMoney(*ub.Price)
	b.MaxStudents = ub.MaxStudents
	b.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdateBatch(ctx, b)
	if err != nil {
		if core.IsNotFound(err) {
			return Batch{}, err
		}
		return Batch{}, errors.Wrap(err, "updating batch")
	}
	return updated, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteBatch(ctx, id)
}
