package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/storage/database"
)

const courseColumns = "id, name, slug, description, duration, price, created_at, updated_at"

type courseRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	Duration    string          `db:"duration"`
	Price       decimal.Decimal `db:"price"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func toCourseRow(c course.Course) courseRow {
	return courseRow{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Duration:    c.Duration,
		Price:       c.Price,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Duration:    r.Duration,
		Price:       r.Price,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	ext sqlx.ExtContext
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(ext sqlx.ExtContext) *courseRepository {
	return &courseRepository{ext: ext}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (:id, :name, :slug, :description, :duration, :price, :created_at, :updated_at)`,
		toCourseRow(c),
	)
	if err != nil {
		return course.Course{}, database.TranslateError(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	q := new(query)
	if filter != nil && filter.Name != "" {
		q.where("name ILIKE ?", "%"+filter.Name+"%")
	}

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+courseColumns+" FROM courses", ordering, "name ASC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var r courseRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return r.toCourse(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var r courseRow
	err := sqlx.GetContext(ctx, repo.ext, &r, `
		UPDATE courses SET name = $2, description = $3, duration = $4, price = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+courseColumns,
		c.ID, c.Name, c.Description, c.Duration, c.Price, c.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "updating course")
	}
	return r.toCourse(), nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrNotFound
	}
	return execOne(ctx, repo.ext, course.ErrNotFound, "DELETE FROM courses WHERE id = ?", id)
}
