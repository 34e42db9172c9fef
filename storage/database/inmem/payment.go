package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

var (
	planComparators = comparators[payment.Plan]{
		"name":         func(a, b payment.Plan) int { return cmpStrings(a.Name, b.Name) },
		"total_amount": func(a, b payment.Plan) int { return a.TotalAmount.Cmp(b.TotalAmount) },
		"created_at":   func(a, b payment.Plan) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"updated_at":   func(a, b payment.Plan) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	}

	installmentComparators = comparators[payment.Installment]{
		"number": func(a, b payment.Installment) int { return cmpInts(a.Number, b.Number) },
	}

	transactionComparators = comparators[payment.Transaction]{
		"amount":       func(a, b payment.Transaction) int { return a.Amount.Cmp(b.Amount) },
		"payment_date": func(a, b payment.Transaction) int { return a.PaymentDate.Compare(b.PaymentDate.Time) },
		"status":       func(a, b payment.Transaction) int { return cmpStrings(a.Status, b.Status) },
		"created_at":   func(a, b payment.Transaction) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"updated_at":   func(a, b payment.Transaction) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	}
)

// Plans

func (repo *paymentRepository) CreatePlan(_ context.Context, p payment.Plan) (payment.Plan, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[p.EnrollmentID]; !ok {
		return payment.Plan{}, student.ErrEnrollmentNotFound
	}
	p.ID = newID()
	repo.db.plans[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) QueryPlans(_ context.Context, filter *payment.PlanFilter, ordering []core.DBOrdering) ([]payment.Plan, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	plans := make([]payment.Plan, 0, len(repo.db.plans))
	for _, p := range repo.db.plans {
		if filter != nil && filter.EnrollmentID != "" && p.EnrollmentID != filter.EnrollmentID {
			continue
		}
		plans = append(plans, *p)
	}
	sortRows(plans, ordering, planComparators, core.DBOrdering{Field: "created_at"})
	return plans, nil
}

func (repo *paymentRepository) GetPlan(_ context.Context, id string) (payment.Plan, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.plans[id]; ok {
		return *p, nil
	}
	return payment.Plan{}, payment.ErrPlanNotFound
}

func (repo *paymentRepository) UpdatePlan(_ context.Context, p payment.Plan) (payment.Plan, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.plans[p.ID]
	if !ok {
		return payment.Plan{}, payment.ErrPlanNotFound
	}
	p.EnrollmentID = orig.EnrollmentID
	p.CreatedBy = orig.CreatedBy
	p.CreatedAt = orig.CreatedAt
	repo.db.plans[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) DeletePlan(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.plans[id]; !ok {
		return payment.ErrPlanNotFound
	}
	repo.db.deletePlan(id)
	return nil
}

// Installments

// checkNumber mirrors installments_plan_id_number_key; callers hold the lock.
func (repo *paymentRepository) checkNumber(inst payment.Installment) error {
	for _, other := range repo.db.installments {
		if other.ID != inst.ID && other.PlanID == inst.PlanID && other.Number == inst.Number {
			return uniqueViolation(payment.InstallmentNumberConstraint)
		}
	}
	return nil
}

func (repo *paymentRepository) CreateInstallment(_ context.Context, inst payment.Installment) (payment.Installment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.plans[inst.PlanID]; !ok {
		return payment.Installment{}, payment.ErrPlanNotFound
	}
	if err := repo.checkNumber(inst); err != nil {
		return payment.Installment{}, err
	}
	inst.ID = newID()
	repo.db.installments[inst.ID] = &inst
	return inst, nil
}

func (repo *paymentRepository) QueryInstallments(_ context.Context, planID string) ([]payment.Installment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	insts := make([]payment.Installment, 0)
	for _, inst := range repo.db.installments {
		if inst.PlanID == planID {
			insts = append(insts, *inst)
		}
	}
	sortRows(insts, nil, installmentComparators, core.DBOrdering{Field: "number", Ascending: true})
	return insts, nil
}

func (repo *paymentRepository) GetInstallment(_ context.Context, id string) (payment.Installment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if inst, ok := repo.db.installments[id]; ok {
		return *inst, nil
	}
	return payment.Installment{}, payment.ErrInstallmentNotFound
}

func (repo *paymentRepository) MaxInstallmentNumber(_ context.Context, planID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var maxNum int
	for _, inst := range repo.db.installments {
		if inst.PlanID == planID && inst.Number > maxNum {
			maxNum = inst.Number
		}
	}
	return maxNum, nil
}

func (repo *paymentRepository) UpdateInstallment(_ context.Context, inst payment.Installment) (payment.Installment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.installments[inst.ID]
	if !ok {
		return payment.Installment{}, payment.ErrInstallmentNotFound
	}
	inst.PlanID = orig.PlanID
	inst.CreatedAt = orig.CreatedAt
	if err := repo.checkNumber(inst); err != nil {
		return payment.Installment{}, err
	}
	repo.db.installments[inst.ID] = &inst
	return inst, nil
}

func (repo *paymentRepository) DeleteInstallment(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.installments[id]; !ok {
		return payment.ErrInstallmentNotFound
	}
	repo.db.deleteInstallment(id)
	return nil
}

// Transactions

func (repo *paymentRepository) CreateTransaction(_ context.Context, tx payment.Transaction) (payment.Transaction, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[tx.EnrollmentID]; !ok {
		return payment.Transaction{}, student.ErrEnrollmentNotFound
	}
	if tx.InstallmentID.Valid {
		if _, ok := repo.db.installments[tx.InstallmentID.String]; !ok {
			return payment.Transaction{}, payment.ErrInstallmentNotFound
		}
	}
	tx.ID = newID()
	repo.db.transactions[tx.ID] = &tx
	return tx, nil
}

func matchesTransaction(tx *payment.Transaction, filter *payment.TransactionFilter) bool {
	if filter == nil {
		return true
	}
	return (filter.EnrollmentID == "" || tx.EnrollmentID == filter.EnrollmentID) &&
		(filter.InstallmentID == "" || tx.InstallmentID.String == filter.InstallmentID) &&
		(filter.StudentID == "" || tx.StudentID == filter.StudentID) &&
		(filter.Status == "" || tx.Status == filter.Status)
}

func (repo *paymentRepository) QueryTransactions(_ context.Context, filter *payment.TransactionFilter, ordering []core.DBOrdering) ([]payment.Transaction, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	txs := make([]payment.Transaction, 0)
	for _, tx := range repo.db.transactions {
		if matchesTransaction(tx, filter) {
			txs = append(txs, *tx)
		}
	}
	sortRows(txs, ordering, transactionComparators, core.DBOrdering{Field: "created_at"})
	return txs, nil
}

func (repo *paymentRepository) GetTransaction(_ context.Context, id string) (payment.Transaction, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if tx, ok := repo.db.transactions[id]; ok {
		return *tx, nil
	}
	return payment.Transaction{}, payment.ErrTransactionNotFound
}
