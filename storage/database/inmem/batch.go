package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
)

type batchRepository struct {
	db *DB
}

var _ batch.Repository = (*batchRepository)(nil)

func NewBatchRepository(db *DB) *batchRepository {
	return &batchRepository{db: db}
}

var batchComparators = comparators[batch.Batch]{
	"name":       func(a, b batch.Batch) int { return cmpStrings(a.Name, b.Name) },
	"slug":       func(a, b batch.Batch) int { return cmpStrings(a.Slug, b.Slug) },
	"start_date": func(a, b batch.Batch) int { return a.StartDate.Compare(b.StartDate.Time) },
	"end_date":   func(a, b batch.Batch) int { return a.EndDate.Compare(b.EndDate.Time) },
	"price":      func(a, b batch.Batch) int { return a.Price.Cmp(b.Price) },
	"created_at": func(a, b batch.Batch) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b batch.Batch) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (repo *batchRepository) CreateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.batches {
		if other.Slug == b.Slug {
			return batch.Batch{}, uniqueViolation(batch.SlugConstraint)
		}
	}
	b.ID = newID()
	repo.db.batches[b.ID] = &b
	return b, nil
}

func matchesBatch(b *batch.Batch, filter *batch.QueryFilter) bool {
	if filter == nil {
		return true
	}
	switch filter.Status {
	case batch.StatusActive:
		if !b.IsActiveOn(filter.Today) {
			return false
		}
	case batch.StatusUpcoming:
		if !b.StartDate.After(filter.Today) {
			return false
		}
	}
	if filter.Name != "" && !containsFold(b.Name, filter.Name) {
		return false
	}
	return true
}

func (repo *batchRepository) QueryBatches(_ context.Context, filter *batch.QueryFilter, ordering []core.DBOrdering) ([]batch.Batch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	batches := make([]batch.Batch, 0, len(repo.db.batches))
	for _, b := range repo.db.batches {
		if matchesBatch(b, filter) {
			batches = append(batches, *b)
		}
	}
	sortRows(batches, ordering, batchComparators, core.DBOrdering{Field: "start_date"})
	return batches, nil
}

func (repo *batchRepository) GetBatch(_ context.Context, filter batch.GetFilter) (batch.Batch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if b, ok := repo.db.batches[filter.ID]; ok {
			return *b, nil
		}
	case filter.Slug != "":
		for _, b := range repo.db.batches {
			if b.Slug == filter.Slug {
				return *b, nil
			}
		}
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *batchRepository) UpdateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.batches[b.ID]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	b.Slug = orig.Slug
	b.CreatedBy = orig.CreatedBy
	b.CreatedAt = orig.CreatedAt
	repo.db.batches[b.ID] = &b
	return b, nil
}

func (repo *batchRepository) DeleteBatch(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.batches[id]; !ok {
		return batch.ErrNotFound
	}
	repo.db.deleteBatch(id)
	return nil
}
