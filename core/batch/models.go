package batch

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

const (
	StatusActive   = "active"   // started & not yet ended
	StatusUpcoming = "upcoming" // not started yet
)

// Batch is a time-boxed cohort of students following a course.
type Batch struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	StartDate   core.Date       `json:"start_date"`
	EndDate     core.Date       `json:"end_date"`
	Price       decimal.Decimal `json:"price"`
	MaxStudents null.Int        `json:"max_students"`
	CreatedBy   null.String     `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

// IsActiveOn reports whether the batch runs on `day` (bounds included).
func (b Batch) IsActiveOn(day core.Date) bool {
	return !b.StartDate.After(day) && !b.EndDate.Before(day)
}

// NewBatch contains information needed to create a new Batch.
type NewBatch struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description"`
	StartDate   core.Date        `json:"start_date" validate:"required"`
	EndDate     core.Date        `json:"end_date" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0,lte=99999999.99"`
	MaxStudents null.Int         `json:"max_students" validate:"omitempty,gt=0"`
}

func (nb *NewBatch) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	nb.Description = core.CleanString(nb.Description)
	return validate.Struct(nb)
}

// UpdateBatch defines what information may be provided to modify an existing Batch.
// The slug is not updatable: it is assigned once, at creation.
type UpdateBatch struct {
	Name        string           `json:"name" validate:"omitempty,max=100"`
	Description *string          `json:"description"`
	StartDate   core.Date        `json:"start_date"`
	EndDate     core.Date        `json:"end_date"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=99999999.99"`
	MaxStudents null.Int         `json:"max_students" validate:"omitempty,gt=0"`
}

// Validate fills the blanks from `orig` so that struct-level rules see the resulting dates.
func (ub *UpdateBatch) Validate(orig Batch, validate *validator.Validate) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	if ub.Description == nil {
		ub.Description = &orig.Description
	}
	if ub.StartDate.IsZero() {
		ub.StartDate = orig.StartDate
	}
	if ub.EndDate.IsZero() {
		ub.EndDate = orig.EndDate
	}
	if ub.Price == nil {
		ub.Price = &orig.Price
	}
	if !ub.MaxStudents.Valid {
		ub.MaxStudents = orig.MaxStudents
	}
	return validate.Struct(ub)
}

type QueryFilter struct {
	Status string `query:"status"`
	Name   string `query:"name"`

	Today core.Date `query:"-"` // reference day for Status; set by the service
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Name = core.CleanString(qf.Name)
}

// GetFilter selects a single Batch; the first non-empty field wins.
type GetFilter struct {
	ID   string
	Slug string
}
