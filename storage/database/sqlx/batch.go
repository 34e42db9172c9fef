package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/storage/database"
)

const batchColumns = "id, name, slug, description, start_date, end_date, price, max_students, created_by, created_at, updated_at"

type batchRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	StartDate   core.Date       `db:"start_date"`
	EndDate     core.Date       `db:"end_date"`
	Price       decimal.Decimal `db:"price"`
	MaxStudents null.Int        `db:"max_students"`
	CreatedBy   null.String     `db:"created_by"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func toBatchRow(b batch.Batch) batchRow {
	return batchRow{
		ID:          b.ID,
		Name:        b.Name,
		Slug:        b.Slug,
		Description: b.Description,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Price:       b.Price,
		MaxStudents: b.MaxStudents,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt.UTC(),
		UpdatedAt:   b.UpdatedAt.UTC(),
	}
}

func (r batchRow) toBatch() batch.Batch {
	return batch.Batch{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Price:       r.Price,
		MaxStudents: r.MaxStudents,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type batchRepository struct {
	ext sqlx.ExtContext
}

var _ batch.Repository = (*batchRepository)(nil)

func NewBatchRepository(ext sqlx.ExtContext) *batchRepository {
	return &batchRepository{ext: ext}
}

func (repo *batchRepository) CreateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	b.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO batches (`+batchColumns+`)
		VALUES (:id, :name, :slug, :description, :start_date, :end_date, :price, :max_students, :created_by, :created_at, :updated_at)`,
		toBatchRow(b),
	)
	if err != nil {
		return batch.Batch{}, database.TranslateError(err, "inserting batch")
	}
	return b, nil
}

func (repo *batchRepository) QueryBatches(ctx context.Context, filter *batch.QueryFilter, ordering []core.DBOrdering) ([]batch.Batch, error) {
	q := new(query)
	if filter != nil {
		switch filter.Status {
		case batch.StatusActive:
			q.where("start_date <= ? AND end_date >= ?", filter.Today, filter.Today)
		case batch.StatusUpcoming:
			q.where("start_date > ?", filter.Today)
		}
		if filter.Name != "" {
			q.where("name ILIKE ?", "%"+filter.Name+"%")
		}
	}

	var rows []batchRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+batchColumns+" FROM batches", ordering, "start_date DESC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	batches := make([]batch.Batch, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, r.toBatch())
	}
	return batches, nil
}

func (repo *batchRepository) GetBatch(ctx context.Context, filter batch.GetFilter) (batch.Batch, error) {
	q := new(query)
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return batch.Batch{}, batch.ErrNotFound
		}
		q.where("id = ?", filter.ID)
	case filter.Slug != "":
		q.where("slug = ?", filter.Slug)
	default:
		return batch.Batch{}, batch.ErrNotFound
	}

	var r batchRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, q.build(repo.ext, "SELECT "+batchColumns+" FROM batches", nil, "id"), q.args...); err != nil {
		return batch.Batch{}, trapNoRowsErr(err, batch.ErrNotFound, "finding batch")
	}
	return r.toBatch(), nil
}

func (repo *batchRepository) UpdateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	var r batchRow
	err := sqlx.GetContext(ctx, repo.ext, &r, `
		UPDATE batches SET
			name = $2, description = $3, start_date = $4, end_date = $5, price = $6, max_students = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+batchColumns,
		b.ID, b.Name, b.Description, b.StartDate, b.EndDate, b.Price, b.MaxStudents, b.UpdatedAt.UTC(),
	)
	if err != nil {
		return batch.Batch{}, trapNoRowsErr(err, batch.ErrNotFound, "updating batch")
	}
	return r.toBatch(), nil
}

func (repo *batchRepository) DeleteBatch(ctx context.Context, id string) error {
	if !isUUID(id) {
		return batch.ErrNotFound
	}
	return execOne(ctx, repo.ext, batch.ErrNotFound, "DELETE FROM batches WHERE id = ?", id)
}
