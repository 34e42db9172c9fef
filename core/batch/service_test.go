package batch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/event"
	"github.com/trezcool/academia/testutil"
)

func newBatch(name string) batch.NewBatch {
	return batch.NewBatch{
		Name:      name,
		StartDate: core.NewDate(2024, time.January, 8),
		EndDate:   core.NewDate(2024, time.June, 28),
		Price:     testutil.DecPtr("500"),
	}
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	var created []event.Event
	env.Bus.Subscribe(event.BatchCreated, func(_ context.Context, ev event.Event) error {
		created = append(created, ev)
		return nil
	})

	b1, err := env.BatchSvc.Create(core.WithActor(ctx, "some-admin"), newBatch("  Cohort 7 "))
	require.NoError(t, err)
	assert.Equal(t, "Cohort 7", b1.Name)
	assert.Equal(t, "cohort-7", b1.Slug)
	assert.Equal(t, "some-admin", b1.CreatedBy.String)
	assert.Equal(t, "500.00", b1.Price.StringFixed(core.MoneyPlaces))

	b2, err := env.BatchSvc.Create(ctx, newBatch("Cohort 7"))
	require.NoError(t, err)
	assert.Equal(t, "cohort-7-1", b2.Slug)
	assert.False(t, b2.CreatedBy.Valid)

	b3, err := env.BatchSvc.Create(ctx, newBatch("cohort 7!"))
	require.NoError(t, err)
	assert.Equal(t, "cohort-7-2", b3.Slug)

	require.Len(t, created, 3)
	assert.Equal(t, "some-admin", created[0].ActorID)
	assert.Equal(t, b1, created[0].Payload)
	assert.Equal(t, 1, created[0].Attempt)

	got, err := env.BatchSvc.GetBySlug(ctx, "COHORT-7-1")
	require.NoError(t, err)
	assert.Equal(t, b2.ID, got.ID)
}

func TestService_Create_slugAttemptsExhausted(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	conf := core.NewTestConfig()
	conf.Identifiers.SlugAttempts = 2
	svc := batch.NewService(env.BatchRepo, env.Validate, event.Discard, conf)

	for _, want := range []string{"cohort-7", "cohort-7-1"} {
		b, err := svc.Create(ctx, newBatch("Cohort 7"))
		require.NoError(t, err)
		assert.Equal(t, want, b.Slug)
	}

	_, err := svc.Create(ctx, newBatch("Cohort 7"))
	assert.Equal(t, batch.ErrSlugConflict, err)
	assert.True(t, core.IsConflict(err))
}

func TestService_Create_concurrentSlugs(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := batch.NewService(env.BatchRepo, env.Validate, event.Discard, env.Conf)

	const n = 10
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		slugs = make(map[string]struct{}, n)
		errs  []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := svc.Create(context.Background(), newBatch("Cohort 7"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			slugs[b.Slug] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Len(t, slugs, n)
	assert.Contains(t, slugs, "cohort-7")
}

func TestService_Create_validation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(nb *batch.NewBatch)
		wantField string
	}{
		{name: "name required", mutate: func(nb *batch.NewBatch) { nb.Name = "   " }, wantField: "name"},
		{name: "end before start", mutate: func(nb *batch.NewBatch) { nb.EndDate = core.NewDate(2023, time.December, 1) }, wantField: "end_date"},
		{name: "same day", mutate: func(nb *batch.NewBatch) { nb.EndDate = nb.StartDate }, wantField: "end_date"},
		{name: "price required", mutate: func(nb *batch.NewBatch) { nb.Price = nil }, wantField: "price"},
		{name: "price over NUMERIC(10,2)", mutate: func(nb *batch.NewBatch) { nb.Price = testutil.DecPtr("100000000") }, wantField: "price"},
		{name: "price rounding over NUMERIC(10,2)", mutate: func(nb *batch.NewBatch) { nb.Price = testutil.DecPtr("99999999.999") }, wantField: "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb := newBatch("Cohort 7")
			tt.mutate(&nb)

			_, err := env.BatchSvc.Create(ctx, nb)
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}

	batches, err := env.BatchSvc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	b, err := env.BatchSvc.Create(ctx, newBatch("Cohort 7"))
	require.NoError(t, err)

	updated, err := env.BatchSvc.Update(ctx, b, batch.UpdateBatch{Name: "Cohort Seven", Price: testutil.DecPtr("99.999")})
	require.NoError(t, err)
	assert.Equal(t, "Cohort Seven", updated.Name)
	assert.Equal(t, "cohort-7", updated.Slug, "slug is assigned once")
	assert.Equal(t, "100.00", updated.Price.StringFixed(core.MoneyPlaces))
	assert.Equal(t, b.StartDate, updated.StartDate)

	_, err = env.BatchSvc.Update(ctx, updated, batch.UpdateBatch{StartDate: core.NewDate(2024, time.July, 1)})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "end_date", verrs[0].Field())

	require.NoError(t, env.BatchSvc.Delete(ctx, b.ID))
	_, err = env.BatchSvc.GetByID(ctx, b.ID)
	assert.Equal(t, batch.ErrNotFound, err)
}

func TestBatch_IsActiveOn(t *testing.T) {
	b := batch.Batch{StartDate: core.NewDate(2024, time.January, 8), EndDate: core.NewDate(2024, time.June, 28)}

	assert.False(t, b.IsActiveOn(core.NewDate(2024, time.January, 7)))
	assert.True(t, b.IsActiveOn(b.StartDate))
	assert.True(t, b.IsActiveOn(core.NewDate(2024, time.March, 1)))
	assert.True(t, b.IsActiveOn(b.EndDate))
	assert.False(t, b.IsActiveOn(core.NewDate(2024, time.June, 29)))
}
