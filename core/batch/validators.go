package batch

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	dateRangeTag  = "daterange"
	dateRangeText = "end date must be after start date"
)

// InitValidators registers the batch validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(batchStructValidation, NewBatch{}, UpdateBatch{})
	core.RegisterCustomTranslation(validate, translator, dateRangeTag, dateRangeText)
}

// batchStructValidation enforces end_date > start_date.
func batchStructValidation(sl validator.StructLevel) {
	var start, end core.Date
	switch b := sl.Current().Interface().(type) {
	case NewBatch:
		start, end = b.StartDate, b.EndDate
	case UpdateBatch:
		start, end = b.StartDate, b.EndDate
	default:
		return
	}
	if start.IsZero() || end.IsZero() {
		return // reported by `required`
	}
	if !end.After(start) {
		sl.ReportError(end, "end_date", "EndDate", dateRangeTag, "")
	}
}
