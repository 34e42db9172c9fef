package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

var courseComparators = comparators[course.Course]{
	"name":       func(a, b course.Course) int { return cmpStrings(a.Name, b.Name) },
	"slug":       func(a, b course.Course) int { return cmpStrings(a.Slug, b.Slug) },
	"price":      func(a, b course.Course) int { return a.Price.Cmp(b.Price) },
	"created_at": func(a, b course.Course) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b course.Course) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.courses {
		if other.Slug == c.Slug {
			return course.Course{}, uniqueViolation(course.SlugConstraint)
		}
	}
	c.ID = newID()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter != nil && filter.Name != "" && !containsFold(c.Name, filter.Name) {
			continue
		}
		courses = append(courses, *c)
	}
	sortRows(courses, ordering, courseComparators, core.DBOrdering{Field: "name", Ascending: true})
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c.Slug = orig.Slug
	c.CreatedAt = orig.CreatedAt
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}
