package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

// Dec parses a decimal literal, e.g. "500.00".
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr is Dec for optional money fields.
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// CreateUser inserts a user straight into `repo`, bypassing validation & events.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateBatch(t *testing.T, repo batch.Repository, name, slug string, start, end core.Date, price string) batch.Batch {
	t.Helper()

	now := time.Now().UTC()
	b, err := repo.CreateBatch(context.Background(), batch.Batch{
		Name:      name,
		Slug:      slug,
		StartDate: start,
		EndDate:   end,
		Price:     Dec(price),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBatch(): %v", err)
	}
	return b
}

func CreateCourse(t *testing.T, repo course.Repository, name, slug, price string) course.Course {
	t.Helper()

	now := time.Now().UTC()
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Name:      name,
		Slug:      slug,
		Price:     Dec(price),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return c
}

func CreateProfile(t *testing.T, repo student.Repository, userID, studentID string) student.Profile {
	t.Helper()

	now := time.Now().UTC()
	p, err := repo.CreateProfile(context.Background(), student.Profile{
		UserID:    userID,
		StudentID: studentID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateProfile(): %v", err)
	}
	return p
}

func CreateEnrollment(t *testing.T, repo student.Repository, studentID, batchID, total, discount string) student.Enrollment {
	t.Helper()

	now := time.Now().UTC()
	e := student.Enrollment{
		StudentID:      studentID,
		BatchID:        batchID,
		EnrollmentDate: core.DateOf(now),
		Status:         student.StatusActive,
		TotalFee:       Dec(total),
		DiscountAmount: Dec(discount),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	e.FinalFee = student.ComputeFinalFee(e.TotalFee, e.DiscountAmount)
	e, err := repo.CreateEnrollment(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateEnrollment(): %v", err)
	}
	return e
}

func CreatePlan(t *testing.T, repo payment.Repository, enrollmentID, name, total string, installments int) payment.Plan {
	t.Helper()

	now := time.Now().UTC()
	p, err := repo.CreatePlan(context.Background(), payment.Plan{
		EnrollmentID:         enrollmentID,
		Name:                 name,
		TotalAmount:          Dec(total),
		NumberOfInstallments: installments,
		CreatedBy:            null.String{},
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		t.Fatalf("CreatePlan(): %v", err)
	}
	return p
}

func CreateInstallment(t *testing.T, repo payment.Repository, planID string, number int, amount string, due core.Date, status string) payment.Installment {
	t.Helper()

	now := time.Now().UTC()
	inst, err := repo.CreateInstallment(context.Background(), payment.Installment{
		PlanID:    planID,
		Number:    number,
		Amount:    Dec(amount),
		DueDate:   due,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateInstallment(): %v", err)
	}
	return inst
}
