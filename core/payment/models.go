package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

// Installment statuses
const (
	InstallmentPending = "PENDING"
	InstallmentPaid    = "PAID"
	InstallmentOverdue = "OVERDUE"
	InstallmentWaived  = "WAIVED"
)

// Payment methods
const (
	MethodCash         = "CASH"
	MethodCard         = "CARD"
	MethodBankTransfer = "BANK_TRANSFER"
	MethodUPI          = "UPI"
	MethodCheque       = "CHEQUE"
	MethodOnline       = "ONLINE"
)

// Transaction statuses
const (
	TransactionSuccess  = "SUCCESS"
	TransactionPending  = "PENDING"
	TransactionFailed   = "FAILED"
	TransactionRefunded = "REFUNDED"
)

var (
	InstallmentStatuses = []string{InstallmentPending, InstallmentPaid, InstallmentOverdue, InstallmentWaived}
	Methods             = []string{MethodCash, MethodCard, MethodBankTransfer, MethodUPI, MethodCheque, MethodOnline}
	TransactionStatuses = []string{TransactionSuccess, TransactionPending, TransactionFailed, TransactionRefunded}
)

// Plan splits an enrollment's fee into installments.
type Plan struct {
	ID                   string          `json:"id"`
	EnrollmentID         string          `json:"enrollment_id"`
	Name                 string          `json:"plan_name"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	NumberOfInstallments int             `json:"number_of_installments"`
	CreatedBy            null.String     `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"` // UTC
	UpdatedAt            time.Time       `json:"updated_at"` // UTC
}

type PlanWithInstallments struct {
	Plan
	Installments []Installment `json:"installments"`
}

type NewPlan struct {
	EnrollmentID         string           `json:"enrollment_id" validate:"required"`
	Name                 string           `json:"plan_name" validate:"required,max=100"`
	TotalAmount          *decimal.Decimal `json:"total_amount" validate:"required,gte=0,lte=99999999.99"`
	NumberOfInstallments int              `json:"number_of_installments" validate:"required,gt=0"`
}

func (np *NewPlan) Validate(validate *validator.Validate) error {
	np.EnrollmentID = core.CleanString(np.EnrollmentID)
	np.Name = core.CleanString(np.Name)
	return validate.Struct(np)
}

// UpdatePlan: the enrollment a plan belongs to cannot be changed.
type UpdatePlan struct {
	Name                 string           `json:"plan_name" validate:"omitempty,max=100"`
	TotalAmount          *decimal.Decimal `json:"total_amount" validate:"omitempty,gte=0,lte=99999999.99"`
	NumberOfInstallments *int             `json:"number_of_installments" validate:"omitempty,gt=0"`
}

func (up *UpdatePlan) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

type PlanFilter struct {
	EnrollmentID string `query:"enrollment_id"`
}

// PlanDetails is the payment_plan.created event payload.
type PlanDetails struct {
	Plan    Plan
	Student user.User
	Creator *user.User // nil for system writes
}

// Installment is one scheduled portion of a Plan. (PlanID, Number) is unique.
type Installment struct {
	ID        string          `json:"id"`
	PlanID    string          `json:"payment_plan_id"`
	Number    int             `json:"installment_number"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   core.Date       `json:"due_date"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

// NewInstallment: a zero Number means "next available number in the plan".
type NewInstallment struct {
	Number  int              `json:"installment_number" validate:"omitempty,gt=0"`
	Amount  *decimal.Decimal `json:"amount" validate:"required,gte=0,lte=99999999.99"`
	DueDate core.Date        `json:"due_date" validate:"required"`
	Status  string           `json:"status" validate:"omitempty,inststatus"`
}

func (ni *NewInstallment) Validate(validate *validator.Validate) error {
	ni.Status = core.CleanString(ni.Status)
	return validate.Struct(ni)
}

type UpdateInstallment struct {
	Number  int              `json:"installment_number" validate:"omitempty,gt=0"`
	Amount  *decimal.Decimal `json:"amount" validate:"omitempty,gte=0,lte=99999999.99"`
	DueDate core.Date        `json:"due_date"`
	Status  string           `json:"status" validate:"omitempty,inststatus"`
}

func (ui *UpdateInstallment) Validate(validate *validator.Validate) error {
	ui.Status = core.CleanString(ui.Status)
	return validate.Struct(ui)
}

// InstallmentDetails is the installment.overdue event payload.
type InstallmentDetails struct {
	Installment Installment
	Plan        Plan
	Enrollment  student.Enrollment
}

// Transaction records money received against an enrollment, optionally for one installment.
type Transaction struct {
	ID            string          `json:"id"`
	EnrollmentID  string          `json:"enrollment_id"`
	InstallmentID null.String     `json:"installment_id"`
	StudentID     string          `json:"student_id"` // the paying User, derived from the enrollment
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method"`
	PaymentDate   core.Date       `json:"payment_date"`
	Status        string          `json:"payment_status"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updated_at"` // UTC
}

type NewTransaction struct {
	EnrollmentID  string           `json:"enrollment_id" validate:"required"`
	InstallmentID null.String      `json:"installment_id"`
	Amount        *decimal.Decimal `json:"amount" validate:"required,gt=0,lte=99999999.99"`
	Method        string           `json:"payment_method" validate:"required,paymethod"`
	PaymentDate   core.Date        `json:"payment_date"`
	Status        string           `json:"payment_status" validate:"omitempty,txstatus"`
	Notes         string           `json:"notes"`
}

func (nt *NewTransaction) Validate(validate *validator.Validate) error {
	nt.EnrollmentID = core.CleanString(nt.EnrollmentID)
	nt.InstallmentID.String = core.CleanString(nt.InstallmentID.String)
	nt.InstallmentID.Valid = nt.InstallmentID.String != ""
	nt.Method = core.CleanString(nt.Method)
	nt.Status = core.CleanString(nt.Status)
	nt.Notes = core.CleanString(nt.Notes)
	return validate.Struct(nt)
}

type TransactionFilter struct {
	EnrollmentID  string `query:"enrollment_id"`
	InstallmentID string `query:"installment_id"`
	StudentID     string `query:"student_id"`
	Status        string `query:"payment_status"`
}
