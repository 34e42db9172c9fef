// Package inmemdb implements the domain repositories on in-memory tables.
// It mirrors the Postgres schema's unique constraints & ON DELETE rules, and is used by
// the `memory` database engine & the tests.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

// DB holds every table behind a single lock, so that cascades & set-nulls are atomic.
type DB struct {
	mu sync.RWMutex

	users              map[string]*user.User
	batches            map[string]*batch.Batch
	courses            map[string]*course.Course
	profiles           map[string]*student.Profile
	enrollments        map[string]*student.Enrollment
	plans              map[string]*payment.Plan
	installments       map[string]*payment.Installment
	transactions       map[string]*payment.Transaction
	notifications      map[string]*notification.Notification
	adminNotifications map[string]*notification.Notification
}

func Open() *DB {
	return &DB{
		users:              make(map[string]*user.User),
		batches:            make(map[string]*batch.Batch),
		courses:            make(map[string]*course.Course),
		profiles:           make(map[string]*student.Profile),
		enrollments:        make(map[string]*student.Enrollment),
		plans:              make(map[string]*payment.Plan),
		installments:       make(map[string]*payment.Installment),
		transactions:       make(map[string]*payment.Transaction),
		notifications:      make(map[string]*notification.Notification),
		adminNotifications: make(map[string]*notification.Notification),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh := Open()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = fresh.users
	db.batches = fresh.batches
	db.courses = fresh.courses
	db.profiles = fresh.profiles
	db.enrollments = fresh.enrollments
	db.plans = fresh.plans
	db.installments = fresh.installments
	db.transactions = fresh.transactions
	db.notifications = fresh.notifications
	db.adminNotifications = fresh.adminNotifications
}

func newID() string {
	return uuid.New().String()
}

func uniqueViolation(constraint string) error {
	return &core.UniqueViolation{Constraint: constraint}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// comparators maps an ordering field to a three-way comparison of two rows.
type comparators[T any] map[string]func(a, b T) int

// sortRows orders `rows` by `ordering`, falling back on `dflt` when no ordering is given.
func sortRows[T any](rows []T, ordering []core.DBOrdering, cmps comparators[T], dflt ...core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = dflt
	}
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			c := cmp(rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpStrings(a, b string) int {
	return strings.Compare(a, b)
}

func cmpInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// ON DELETE rules; callers hold the write lock.

func (db *DB) deleteUser(id string) {
	delete(db.users, id)
	for pid, p := range db.profiles {
		if p.UserID == id {
			delete(db.profiles, pid)
		}
	}
	for eid, e := range db.enrollments {
		if e.StudentID == id {
			db.deleteEnrollment(eid)
		}
	}
	for tid, tx := range db.transactions {
		if tx.StudentID == id {
			db.deleteTransaction(tid)
		}
	}
	for _, b := range db.batches {
		if b.CreatedBy.String == id {
			b.CreatedBy = null.String{}
		}
	}
	for _, p := range db.plans {
		if p.CreatedBy.String == id {
			p.CreatedBy = null.String{}
		}
	}
	for _, inbox := range []map[string]*notification.Notification{db.notifications, db.adminNotifications} {
		for nid, n := range inbox {
			if n.RecipientID == id {
				delete(inbox, nid)
				continue
			}
			if n.RelatedUserID.String == id {
				n.RelatedUserID = null.String{}
			}
		}
	}
}

func (db *DB) deleteBatch(id string) {
	delete(db.batches, id)
	for eid, e := range db.enrollments {
		if e.BatchID == id {
			db.deleteEnrollment(eid)
		}
	}
	for _, inbox := range []map[string]*notification.Notification{db.notifications, db.adminNotifications} {
		for _, n := range inbox {
			if n.RelatedBatchID.String == id {
				n.RelatedBatchID = null.String{}
			}
		}
	}
}

func (db *DB) deleteCourse(id string) {
	delete(db.courses, id)
	for _, e := range db.enrollments {
		if e.CourseID.String == id {
			e.CourseID = null.String{}
		}
	}
}

func (db *DB) deleteEnrollment(id string) {
	delete(db.enrollments, id)
	for pid, p := range db.plans {
		if p.EnrollmentID == id {
			db.deletePlan(pid)
		}
	}
	for tid, tx := range db.transactions {
		if tx.EnrollmentID == id {
			db.deleteTransaction(tid)
		}
	}
}

func (db *DB) deletePlan(id string) {
	delete(db.plans, id)
	for iid, inst := range db.installments {
		if inst.PlanID == id {
			db.deleteInstallment(iid)
		}
	}
}

func (db *DB) deleteInstallment(id string) {
	delete(db.installments, id)
	for _, tx := range db.transactions {
		if tx.InstallmentID.String == id {
			tx.InstallmentID = null.String{}
		}
	}
}

func (db *DB) deleteTransaction(id string) {
	delete(db.transactions, id)
	for _, inbox := range []map[string]*notification.Notification{db.notifications, db.adminNotifications} {
		for _, n := range inbox {
			if n.RelatedPaymentID.String == id {
				n.RelatedPaymentID = null.String{}
			}
		}
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
