package payment

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	instStatusTag  = "inststatus"
	instStatusText = "must be one of: " + strings.Join(InstallmentStatuses, ", ")

	methodTag  = "paymethod"
	methodText = "must be one of: " + strings.Join(Methods, ", ")

	txStatusTag  = "txstatus"
	txStatusText = "must be one of: " + strings.Join(TransactionStatuses, ", ")
)

// InitValidators registers the payment validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(instStatusTag, choiceValidation(InstallmentStatuses))
	core.RegisterCustomTranslation(validate, translator, instStatusTag, instStatusText)

	_ = validate.RegisterValidation(methodTag, choiceValidation(Methods))
	core.RegisterCustomTranslation(validate, translator, methodTag, methodText)

	_ = validate.RegisterValidation(txStatusTag, choiceValidation(TransactionStatuses))
	core.RegisterCustomTranslation(validate, translator, txStatusTag, txStatusText)
}

// choiceValidation accepts the exact (upper case) values in `choices`.
func choiceValidation(choices []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, c := range choices {
			if val == c {
				return true
			}
		}
		return false
	}
}
