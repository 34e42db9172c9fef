package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/storage/database"
)

const (
	planColumns        = "id, enrollment_id, name, total_amount, number_of_installments, created_by, created_at, updated_at"
	installmentColumns = "id, plan_id, number, amount, due_date, status, created_at, updated_at"
	transactionColumns = "id, enrollment_id, installment_id, student_id, amount, method, payment_date, status, notes, created_at, updated_at"
)

var errTransactionRefMissing = core.NewNotFoundError("payment enrollment, installment or student not found")

type planRow struct {
	ID                   string          `db:"id"`
	EnrollmentID         string          `db:"enrollment_id"`
	Name                 string          `db:"name"`
	TotalAmount          decimal.Decimal `db:"total_amount"`
	NumberOfInstallments int             `db:"number_of_installments"`
	CreatedBy            null.String     `db:"created_by"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func toPlanRow(p payment.Plan) planRow {
	return planRow{
		ID:                   p.ID,
		EnrollmentID:         p.EnrollmentID,
		Name:                 p.Name,
		TotalAmount:          p.TotalAmount,
		NumberOfInstallments: p.NumberOfInstallments,
		CreatedBy:            p.CreatedBy,
		CreatedAt:            p.CreatedAt.UTC(),
		UpdatedAt:            p.UpdatedAt.UTC(),
	}
}

func (r planRow) toPlan() payment.Plan {
	return payment.Plan{
		ID:                   r.ID,
		EnrollmentID:         r.EnrollmentID,
		Name:                 r.Name,
		TotalAmount:          r.TotalAmount,
		NumberOfInstallments: r.NumberOfInstallments,
		CreatedBy:            r.CreatedBy,
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
}

type installmentRow struct {
	ID        string          `db:"id"`
	PlanID    string          `db:"plan_id"`
	Number    int             `db:"number"`
	Amount    decimal.Decimal `db:"amount"`
	DueDate   core.Date       `db:"due_date"`
	Status    string          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func toInstallmentRow(inst payment.Installment) installmentRow {
	return installmentRow{
		ID:        inst.ID,
		PlanID:    inst.PlanID,
		Number:    inst.Number,
		Amount:    inst.Amount,
		DueDate:   inst.DueDate,
		Status:    inst.Status,
		CreatedAt: inst.CreatedAt.UTC(),
		UpdatedAt: inst.UpdatedAt.UTC(),
	}
}

func (r installmentRow) toInstallment() payment.Installment {
	return payment.Installment{
		ID:        r.ID,
		PlanID:    r.PlanID,
		Number:    r.Number,
		Amount:    r.Amount,
		DueDate:   r.DueDate,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type transactionRow struct {
	ID            string          `db:"id"`
	EnrollmentID  string          `db:"enrollment_id"`
	InstallmentID null.String     `db:"installment_id"`
	StudentID     string          `db:"student_id"`
	Amount        decimal.Decimal `db:"amount"`
	Method        string          `db:"method"`
	PaymentDate   core.Date       `db:"payment_date"`
	Status        string          `db:"status"`
	Notes         string          `db:"notes"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toTransactionRow(tx payment.Transaction) transactionRow {
	return transactionRow{
		ID:            tx.ID,
		EnrollmentID:  tx.EnrollmentID,
		InstallmentID: tx.InstallmentID,
		StudentID:     tx.StudentID,
		Amount:        tx.Amount,
		Method:        tx.Method,
		PaymentDate:   tx.PaymentDate,
		Status:        tx.Status,
		Notes:         tx.Notes,
		CreatedAt:     tx.CreatedAt.UTC(),
		UpdatedAt:     tx.UpdatedAt.UTC(),
	}
}

func (r transactionRow) toTransaction() payment.Transaction {
	return payment.Transaction{
		ID:            r.ID,
		EnrollmentID:  r.EnrollmentID,
		InstallmentID: r.InstallmentID,
		StudentID:     r.StudentID,
		Amount:        r.Amount,
		Method:        r.Method,
		PaymentDate:   r.PaymentDate,
		Status:        r.Status,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type paymentRepository struct {
	ext sqlx.ExtContext
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(ext sqlx.ExtContext) *paymentRepository {
	return &paymentRepository{ext: ext}
}

// Plans

func (repo *paymentRepository) CreatePlan(ctx context.Context, p payment.Plan) (payment.Plan, error) {
	p.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO payment_plans (`+planColumns+`)
		VALUES (:id, :enrollment_id, :name, :total_amount, :number_of_installments, :created_by, :created_at, :updated_at)`,
		toPlanRow(p),
	)
	if err != nil {
		return payment.Plan{}, database.TranslateError(err, "inserting payment plan", student.ErrEnrollmentNotFound)
	}
	return p, nil
}

func (repo *paymentRepository) QueryPlans(ctx context.Context, filter *payment.PlanFilter, ordering []core.DBOrdering) ([]payment.Plan, error) {
	q := new(query)
	if filter != nil && filter.EnrollmentID != "" {
		if !isUUID(filter.EnrollmentID) {
			return []payment.Plan{}, nil
		}
		q.where("enrollment_id = ?", filter.EnrollmentID)
	}

	var rows []planRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+planColumns+" FROM payment_plans", ordering, "created_at DESC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying payment plans")
	}
	plans := make([]payment.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.toPlan())
	}
	return plans, nil
}

func (repo *paymentRepository) GetPlan(ctx context.Context, id string) (payment.Plan, error) {
	if !isUUID(id) {
		return payment.Plan{}, payment.ErrPlanNotFound
	}
	var r planRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+planColumns+" FROM payment_plans WHERE id = $1", id); err != nil {
		return payment.Plan{}, trapNoRowsErr(err, payment.ErrPlanNotFound, "finding payment plan")
	}
	return r.toPlan(), nil
}

func (repo *paymentRepository) UpdatePlan(ctx context.Context, p payment.Plan) (payment.Plan, error) {
	var r planRow
	err := sqlx.GetContext(ctx, repo.ext, &r, `
		UPDATE payment_plans SET name = $2, total_amount = $3, number_of_installments = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+planColumns,
		p.ID, p.Name, p.TotalAmount, p.NumberOfInstallments, p.UpdatedAt.UTC(),
	)
	if err != nil {
		return payment.Plan{}, trapNoRowsErr(err, payment.ErrPlanNotFound, "updating payment plan")
	}
	return r.toPlan(), nil
}

func (repo *paymentRepository) DeletePlan(ctx context.Context, id string) error {
	if !isUUID(id) {
		return payment.ErrPlanNotFound
	}
	return execOne(ctx, repo.ext, payment.ErrPlanNotFound, "DELETE FROM payment_plans WHERE id = ?", id)
}

// Installments

func (repo *paymentRepository) CreateInstallment(ctx context.Context, inst payment.Installment) (payment.Installment, error) {
	inst.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO installments (`+installmentColumns+`)
		VALUES (:id, :plan_id, :number, :amount, :due_date, :status, :created_at, :updated_at)`,
		toInstallmentRow(inst),
	)
	if err != nil {
		return payment.Installment{}, database.TranslateError(err, "inserting installment", payment.ErrPlanNotFound)
	}
	return inst, nil
}

func (repo *paymentRepository) QueryInstallments(ctx context.Context, planID string) ([]payment.Installment, error) {
	if !isUUID(planID) {
		return []payment.Installment{}, nil
	}
	var rows []installmentRow
	err := sqlx.SelectContext(ctx, repo.ext, &rows, "SELECT "+installmentColumns+" FROM installments WHERE plan_id = $1 ORDER BY number ASC", planID)
	if err != nil {
		return nil, errors.Wrap(err, "querying installments")
	}
	insts := make([]payment.Installment, 0, len(rows))
	for _, r := range rows {
		insts = append(insts, r.toInstallment())
	}
	return insts, nil
}

func (repo *paymentRepository) GetInstallment(ctx context.Context, id string) (payment.Installment, error) {
	if !isUUID(id) {
		return payment.Installment{}, payment.ErrInstallmentNotFound
	}
	var r installmentRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+installmentColumns+" FROM installments WHERE id = $1", id); err != nil {
		return payment.Installment{}, trapNoRowsErr(err, payment.ErrInstallmentNotFound, "finding installment")
	}
	return r.toInstallment(), nil
}

func (repo *paymentRepository) MaxInstallmentNumber(ctx context.Context, planID string) (int, error) {
	if !isUUID(planID) {
		return 0, nil
	}
	var maxNum int
	err := sqlx.GetContext(ctx, repo.ext, &maxNum, "SELECT COALESCE(MAX(number), 0) FROM installments WHERE plan_id = $1", planID)
	if err != nil {
		return 0, errors.Wrap(err, "computing max installment number")
	}
	return maxNum, nil
}

func (repo *paymentRepository) UpdateInstallment(ctx context.Context, inst payment.Installment) (payment.Installment, error) {
	var r installmentRow
	err := sqlx.GetContext(ctx, repo.ext, &r, `
		UPDATE installments SET number = $2, amount = $3, due_date = $4, status = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+installmentColumns,
		inst.ID, inst.Number, inst.Amount, inst.DueDate, inst.Status, inst.UpdatedAt.UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return payment.Installment{}, payment.ErrInstallmentNotFound
		}
		return payment.Installment{}, database.TranslateError(err, "updating installment")
	}
	return r.toInstallment(), nil
}

func (repo *paymentRepository) DeleteInstallment(ctx context.Context, id string) error {
	if !isUUID(id) {
		return payment.ErrInstallmentNotFound
	}
	return execOne(ctx, repo.ext, payment.ErrInstallmentNotFound, "DELETE FROM installments WHERE id = ?", id)
}

// Transactions

func (repo *paymentRepository) CreateTransaction(ctx context.Context, tx payment.Transaction) (payment.Transaction, error) {
	tx.ID = newID()
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO payment_transactions (`+transactionColumns+`)
		VALUES (:id, :enrollment_id, :installment_id, :student_id, :amount, :method, :payment_date, :status, :notes, :created_at, :updated_at)`,
		toTransactionRow(tx),
	)
	if err != nil {
		return payment.Transaction{}, database.TranslateError(err, "inserting payment transaction", errTransactionRefMissing)
	}
	return tx, nil
}

func (repo *paymentRepository) QueryTransactions(ctx context.Context, filter *payment.TransactionFilter, ordering []core.DBOrdering) ([]payment.Transaction, error) {
	q := new(query)
	if filter != nil {
		for col, id := range map[string]string{
			"enrollment_id":  filter.EnrollmentID,
			"installment_id": filter.InstallmentID,
			"student_id":     filter.StudentID,
		} {
			if id == "" {
				continue
			}
			if !isUUID(id) {
				return []payment.Transaction{}, nil
			}
			q.where(col+" = ?", id)
		}
		if filter.Status != "" {
			q.where("status = ?", filter.Status)
		}
	}

	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+transactionColumns+" FROM payment_transactions", ordering, "created_at DESC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying payment transactions")
	}
	txs := make([]payment.Transaction, 0, len(rows))
	for _, r := range rows {
		txs = append(txs, r.toTransaction())
	}
	return txs, nil
}

func (repo *paymentRepository) GetTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	if !isUUID(id) {
		return payment.Transaction{}, payment.ErrTransactionNotFound
	}
	var r transactionRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+transactionColumns+" FROM payment_transactions WHERE id = $1", id); err != nil {
		return payment.Transaction{}, trapNoRowsErr(err, payment.ErrTransactionNotFound, "finding payment transaction")
	}
	return r.toTransaction(), nil
}
