package payment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/event"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

// InstallmentNumberConstraint is the store's unique constraint on (Installment.PlanID, Installment.Number).
const InstallmentNumberConstraint = "installments_plan_id_number_key"

// a concurrent insert may take the computed next number: recompute & retry this many times
const installmentNumberAttempts = 5

var (
	// errors
	ErrPlanNotFound           = core.NewNotFoundError("payment plan not found")
	ErrInstallmentNotFound    = core.NewNotFoundError("installment not found")
	ErrTransactionNotFound    = core.NewNotFoundError("payment transaction not found")
	ErrInstallmentNumberTaken = core.NewConflictError("installment_number", "this plan already has an installment with this number")
	ErrInstallmentMismatch    = errors.New("installment does not belong to a payment plan of this enrollment")

	PlanOrderingFields        = []string{"name", "total_amount", "created_at", "updated_at"}
	TransactionOrderingFields = []string{"amount", "payment_date", "status", "created_at", "updated_at"}
)

type (
	Repository interface {
		CreatePlan(ctx context.Context, p Plan) (Plan, error)
		QueryPlans(ctx context.Context, filter *PlanFilter, ordering []core.DBOrdering) ([]Plan, error)
		GetPlan(ctx context.Context, id string) (Plan, error)
		// UpdatePlan never writes EnrollmentID nor CreatedBy.
		UpdatePlan(ctx context.Context, p Plan) (Plan, error)
		// DeletePlan deletes the plan's installments too; transactions keep a null installment ref.
		DeletePlan(ctx context.Context, id string) error

		// CreateInstallment inserts `inst` as is; a taken number yields a core.UniqueViolation on InstallmentNumberConstraint.
		CreateInstallment(ctx context.Context, inst Installment) (Installment, error)
		// QueryInstallments returns the plan's installments ordered by number.
		QueryInstallments(ctx context.Context, planID string) ([]Installment, error)
		GetInstallment(ctx context.Context, id string) (Installment, error)
		// MaxInstallmentNumber returns 0 for a plan without installments.
		MaxInstallmentNumber(ctx context.Context, planID string) (int, error)
		UpdateInstallment(ctx context.Context, inst Installment) (Installment, error)
		DeleteInstallment(ctx context.Context, id string) error

		CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
		QueryTransactions(ctx context.Context, filter *TransactionFilter, ordering []core.DBOrdering) ([]Transaction, error)
		GetTransaction(ctx context.Context, id string) (Transaction, error)
	}

	Service interface {
		CreatePlan(ctx context.Context, np NewPlan) (Plan, error)
		QueryPlans(ctx context.Context, filter *PlanFilter, ordering []core.DBOrdering) ([]Plan, error)
		GetPlan(ctx context.Context, id string) (PlanWithInstallments, error)
		UpdatePlan(ctx context.Context, p Plan, up UpdatePlan) (Plan, error)
		DeletePlan(ctx context.Context, id string) error

		AddInstallment(ctx context.Context, planID string, ni NewInstallment) (Installment, error)
		QueryInstallments(ctx context.Context, planID string) ([]Installment, error)
		GetInstallment(ctx context.Context, id string) (Installment, error)
		// UpdateInstallment publishes installment.overdue when Status moves into OVERDUE.
		UpdateInstallment(ctx context.Context, inst Installment, ui UpdateInstallment) (Installment, error)
		DeleteInstallment(ctx context.Context, id string) error

		RecordPayment(ctx context.Context, nt NewTransaction) (Transaction, error)
		QueryTransactions(ctx context.Context, filter *TransactionFilter, ordering []core.DBOrdering) ([]Transaction, error)
		GetTransaction(ctx context.Context, id string) (Transaction, error)
	}

	service struct {
		repo       Repository
		usrSvc     user.Service
		studentSvc student.Service
		validate   *validator.Validate
		publisher  event.Publisher
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	studentSvc student.Service,
	validate *validator.Validate,
	publisher event.Publisher,
) Service {
	return &service{
		repo:       repo,
		usrSvc:     usrSvc,
		studentSvc: studentSvc,
		validate:   validate,
		publisher:  publisher,
	}
}

// Plans

func (svc *service) CreatePlan(ctx context.Context, np NewPlan) (Plan, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Plan{}, err
	}

	enrl, err := svc.studentSvc.GetEnrollment(ctx, np.EnrollmentID)
	if err != nil {
		return Plan{}, errors.Wrap(err, "finding enrollment")
	}
	stdnt, err := svc.usrSvc.GetByID(ctx, enrl.StudentID)
	if err != nil {
		return Plan{}, errors.Wrap(err, "finding student")
	}

	var creator *user.User
	now := time.Now().UTC()
	p := Plan{
		EnrollmentID:         enrl.ID,
		Name:                 np.Name,
		TotalAmount:          core.RoundMoney(*np.TotalAmount),
		NumberOfInstallments: np.NumberOfInstallments,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if actorID := core.ActorID(ctx); actorID != "" {
		if usr, err := svc.usrSvc.GetByID(ctx, actorID); err == nil {
			creator = &usr
			p.CreatedBy = null.StringFrom(usr.ID)
		}
	}

	p, err = svc.repo.CreatePlan(ctx, p)
	if err != nil {
		return Plan{}, errors.Wrap(err, "creating payment plan")
	}

	svc.publisher.Publish(ctx, event.New(event.PaymentPlanCreated, core.ActorID(ctx), PlanDetails{
		Plan:    p,
		Student: stdnt,
		Creator: creator,
	}))
	return p, nil
}

func (svc *service) QueryPlans(ctx context.Context, filter *PlanFilter, ordering []core.DBOrdering) ([]Plan, error) {
	return svc.repo.QueryPlans(ctx, filter, core.FilterOrderings(ordering, PlanOrderingFields...))
}

func (svc *service) GetPlan(ctx context.Context, id string) (PlanWithInstallments, error) {
	p, err := svc.repo.GetPlan(ctx, id)
	if err != nil {
		return PlanWithInstallments{}, err
	}
	insts, err := svc.repo.QueryInstallments(ctx, p.ID)
	if err != nil {
		return PlanWithInstallments{}, errors.Wrap(err, "querying plan installments")
	}
	if insts == nil {
		insts = []Installment{}
	}
	return PlanWithInstallments{Plan: p, Installments: insts}, nil
}

func (svc *service) UpdatePlan(ctx context.Context, p Plan, up UpdatePlan) (Plan, error) {
	if err := up.Validate(svc.validate); err != nil {
		return Plan{}, err
	}

	if up.Name != "" {
		p.Name = up.Name
	}
	if up.TotalAmount != nil {
		p.TotalAmount = core.RoundMoney(*up.TotalAmount)
	}
	if up.NumberOfInstallments != nil {
		p.NumberOfInstallments = *up.NumberOfInstallments
	}
	p.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdatePlan(ctx, p)
	if err != nil {
		if core.IsNotFound(err) {
			return Plan{}, err
		}
		return Plan{}, errors.Wrap(err, "updating payment plan")
	}
	return updated, nil
}

func (svc *service) DeletePlan(ctx context.Context, id string) error {
	return svc.repo.DeletePlan(ctx, id)
}

// Installments

func (svc *service) AddInstallment(ctx context.Context, planID string, ni NewInstallment) (Installment, error) {
	if err := ni.Validate(svc.validate); err != nil {
		return Installment{}, err
	}
	p, err := svc.repo.GetPlan(ctx, planID)
	if err != nil {
		return Installment{}, err
	}

	now := time.Now().UTC()
	inst := Installment{
		PlanID:    p.ID,
		Number:    ni.Number,
		Amount:    core.RoundMoney(*ni.Amount),
		DueDate:   ni.DueDate,
		Status:    ni.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if inst.Status == "" {
		inst.Status = InstallmentPending
	}

	if ni.Number > 0 {
		created, err := svc.repo.CreateInstallment(ctx, inst)
		if err != nil {
			if core.IsUniqueViolation(err, InstallmentNumberConstraint) {
				return Installment{}, ErrInstallmentNumberTaken
			}
			return Installment{}, errors.Wrap(err, "creating installment")
		}
		return svc.afterStatusChange(ctx, "", created, p)
	}

	for attempt := 0; attempt < installmentNumberAttempts; attempt++ {
		maxNum, err := svc.repo.MaxInstallmentNumber(ctx, p.ID)
		if err != nil {
			return Installment{}, errors.Wrap(err, "computing next installment number")
		}
		inst.Number = maxNum + 1

		created, err := svc.repo.CreateInstallment(ctx, inst)
		if err == nil {
			return svc.afterStatusChange(ctx, "", created, p)
		}
		if !core.IsUniqueViolation(err, InstallmentNumberConstraint) {
			return Installment{}, errors.Wrap(err, "creating installment")
		}
	}
	return Installment{}, ErrInstallmentNumberTaken
}

func (svc *service) QueryInstallments(ctx context.Context, planID string) ([]Installment, error) {
	if _, err := svc.repo.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	return svc.repo.QueryInstallments(ctx, planID)
}

func (svc *service) GetInstallment(ctx context.Context, id string) (Installment, error) {
	return svc.repo.GetInstallment(ctx, id)
}

func (svc *service) UpdateInstallment(ctx context.Context, inst Installment, ui UpdateInstallment) (Installment, error) {
	if err := ui.Validate(svc.validate); err != nil {
		return Installment{}, err
	}

	prevStatus := inst.Status
	if ui.Number > 0 {
		inst.Number = ui.Number
	}
	if ui.Amount != nil {
		inst.Amount = core.RoundMoney(*ui.Amount)
	}
	if !ui.DueDate.IsZero() {
		inst.DueDate = ui.DueDate
	}
	if ui.Status != "" {
		inst.Status = ui.Status
	}
	inst.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdateInstallment(ctx, inst)
	if err != nil {
		switch {
		case core.IsNotFound(err):
			return Installment{}, err
		case core.IsUniqueViolation(err, InstallmentNumberConstraint):
			return Installment{}, ErrInstallmentNumberTaken
		}
		return Installment{}, errors.Wrap(err, "updating installment")
	}

	if updated.Status == InstallmentOverdue && prevStatus != InstallmentOverdue {
		p, err := svc.repo.GetPlan(ctx, updated.PlanID)
		if err != nil {
			return Installment{}, errors.Wrap(err, "finding installment plan")
		}
		return svc.afterStatusChange(ctx, prevStatus, updated, p)
	}
	return updated, nil
}

// afterStatusChange publishes installment.overdue when `inst` just moved into OVERDUE.
func (svc *service) afterStatusChange(ctx context.Context, prevStatus string, inst Installment, p Plan) (Installment, error) {
	if inst.Status != InstallmentOverdue || prevStatus == InstallmentOverdue {
		return inst, nil
	}
	enrl, err := svc.studentSvc.GetEnrollment(ctx, p.EnrollmentID)
	if err != nil {
		return Installment{}, errors.Wrap(err, "finding plan enrollment")
	}
	svc.publisher.Publish(ctx, event.New(event.InstallmentOverdue, core.ActorID(ctx), InstallmentDetails{
		Installment: inst,
		Plan:        p,
		Enrollment:  enrl,
	}))
	return inst, nil
}

func (svc *service) DeleteInstallment(ctx context.Context, id string) error {
	return svc.repo.DeleteInstallment(ctx, id)
}

// Transactions

func (svc *service) RecordPayment(ctx context.Context, nt NewTransaction) (Transaction, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Transaction{}, err
	}

	enrl, err := svc.studentSvc.GetEnrollment(ctx, nt.EnrollmentID)
	if err != nil {
		return Transaction{}, errors.Wrap(err, "finding enrollment")
	}
	if nt.InstallmentID.Valid {
		inst, err := svc.repo.GetInstallment(ctx, nt.InstallmentID.String)
		if err != nil {
			return Transaction{}, errors.Wrap(err, "finding installment")
		}
		p, err := svc.repo.GetPlan(ctx, inst.PlanID)
		if err != nil {
			return Transaction{}, errors.Wrap(err, "finding installment plan")
		}
		if p.EnrollmentID != enrl.ID {
			return Transaction{}, core.NewValidationError(
				ErrInstallmentMismatch,
				core.FieldError{Field: "installment_id", Error: ErrInstallmentMismatch.Error()},
			)
		}
	}

	now := time.Now().UTC()
	tx := Transaction{
		EnrollmentID:  enrl.ID,
		InstallmentID: nt.InstallmentID,
		StudentID:     enrl.StudentID,
		Amount:        core.RoundMoney(*nt.Amount),
		Method:        nt.Method,
		PaymentDate:   nt.PaymentDate,
		Status:        nt.Status,
		Notes:         nt.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if tx.PaymentDate.IsZero() {
		tx.PaymentDate = core.DateOf(now)
	}
	if tx.Status == "" {
		tx.Status = TransactionSuccess
	}

	tx, err = svc.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return Transaction{}, errors.Wrap(err, "recording payment")
	}

	svc.publisher.Publish(ctx, event.New(event.PaymentReceived, core.ActorID(ctx), tx))
	return tx, nil
}

func (svc *service) QueryTransactions(ctx context.Context, filter *TransactionFilter, ordering []core.DBOrdering) ([]Transaction, error) {
	if filter != nil {
		filter.Status = core.CleanString(filter.Status)
	}
	return svc.repo.QueryTransactions(ctx, filter, core.FilterOrderings(ordering, TransactionOrderingFields...))
}

func (svc *service) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return svc.repo.GetTransaction(ctx, id)
}
