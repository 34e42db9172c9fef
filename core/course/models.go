package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/academia/core"
)

// Course is a program of study a batch can follow.
type Course struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Duration    string          `json:"duration"` // free text, e.g. "12 weeks"
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

type NewCourse struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description"`
	Duration    string           `json:"duration" validate:"max=100"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0,lte=99999999.99"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Duration = core.CleanString(nc.Duration)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Name        string           `json:"name" validate:"omitempty,max=100"`
	Description *string          `json:"description"`
	Duration    *string          `json:"duration" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=99999999.99"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

type QueryFilter struct {
	Name string `query:"name"`
}
