package notification

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/event"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

const currencySymbol = "₦"

// email templates (fs/templates/email)
const (
	tmplPaymentPlanCreated = "payment_plan_created"
	tmplEnrollmentCreated  = "enrollment_created"
)

type (
	// staffLister is the part of user.Service the Notifier needs for fan-outs.
	staffLister interface {
		QueryStaff(ctx context.Context) ([]user.User, error)
	}

	// Notifier turns domain events into notifications & emails.
	// Notification inserts are idempotent per (event, recipient): a failed handler may be
	// redelivered safely. Emails are best effort and never fail a handler.
	Notifier struct {
		repo       Repository
		staff      staffLister
		email      core.EmailService
		adminEmail string
		logger     core.Logger
	}
)

func NewNotifier(repo Repository, staff staffLister, email core.EmailService, conf *core.Config, logger core.Logger) *Notifier {
	return &Notifier{
		repo:       repo,
		staff:      staff,
		email:      email,
		adminEmail: conf.AdminEmail,
		logger:     logger,
	}
}

// Subscribe registers the Notifier's handlers on `sub`.
func (ntf *Notifier) Subscribe(sub event.Subscriber) {
	sub.Subscribe(event.UserCreated, ntf.onUserCreated)
	sub.Subscribe(event.PaymentReceived, ntf.onPaymentReceived)
	sub.Subscribe(event.BatchCreated, ntf.onBatchCreated)
	sub.Subscribe(event.PaymentPlanCreated, ntf.onPaymentPlanCreated)
	sub.Subscribe(event.EnrollmentCreated, ntf.onEnrollmentCreated)
	sub.Subscribe(event.InstallmentOverdue, ntf.onInstallmentOverdue)
}

func unexpectedPayload(ev event.Event) error {
	return errors.Errorf("notification: unexpected %s payload %T", ev.Kind, ev.Payload)
}

func formatMoney(d decimal.Decimal) string {
	return currencySymbol + d.StringFixed(core.MoneyPlaces)
}

func (ntf *Notifier) onUserCreated(ctx context.Context, ev event.Event) error {
	usr, ok := ev.Payload.(user.User)
	if !ok {
		return unexpectedPayload(ev)
	}
	return ntf.notify(ctx, Notification{
		EventID:       ev.ID,
		RecipientID:   usr.ID,
		Type:          TypeNewSignup,
		Title:         "Welcome to the Academy!",
		Message:       fmt.Sprintf("Hello %s, your account has been successfully created.", usr.DisplayName()),
		RelatedUserID: null.StringFrom(usr.ID),
	})
}

func (ntf *Notifier) onPaymentReceived(ctx context.Context, ev event.Event) error {
	tx, ok := ev.Payload.(payment.Transaction)
	if !ok {
		return unexpectedPayload(ev)
	}
	return ntf.notify(ctx, Notification{
		EventID:          ev.ID,
		RecipientID:      tx.StudentID,
		Type:             TypePaymentReceived,
		Title:            "Payment Received",
		Message:          fmt.Sprintf("Your payment of %s has been received successfully.", formatMoney(tx.Amount)),
		RelatedUserID:    null.StringFrom(tx.StudentID),
		RelatedPaymentID: null.StringFrom(tx.ID),
	})
}

func (ntf *Notifier) onBatchCreated(ctx context.Context, ev event.Event) error {
	b, ok := ev.Payload.(batch.Batch)
	if !ok {
		return unexpectedPayload(ev)
	}
	staff, err := ntf.staff.QueryStaff(ctx)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}

	var failed error
	for _, admin := range staff {
		err := ntf.notify(ctx, Notification{
			EventID:        ev.ID,
			RecipientID:    admin.ID,
			Type:           TypeBatchCreated,
			Title:          "New Batch Created",
			Message:        fmt.Sprintf("A new batch '%s' has been created.", b.Name),
			RelatedBatchID: null.StringFrom(b.ID),
		})
		if err != nil {
			failed = err // keep going: the others must not miss out
		}
	}
	return failed
}

func (ntf *Notifier) onPaymentPlanCreated(_ context.Context, ev event.Event) error {
	details, ok := ev.Payload.(payment.PlanDetails)
	if !ok {
		return unexpectedPayload(ev)
	}
	stdnt := details.Student
	if stdnt.Email == "" {
		ntf.logger.Warn(fmt.Sprintf("notification: student %s has no email, payment plan email skipped", stdnt.ID))
		return nil
	}

	createdBy := ""
	if details.Creator != nil {
		createdBy = details.Creator.DisplayName()
	}
	ntf.email.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stdnt.Name, Address: stdnt.Email}},
		Subject:      "New Payment Plan Created for " + stdnt.DisplayName(),
		TemplateName: tmplPaymentPlanCreated,
		TemplateData: map[string]interface{}{
			"StudentName":          stdnt.DisplayName(),
			"PlanName":             details.Plan.Name,
			"TotalAmount":          formatMoney(details.Plan.TotalAmount),
			"NumberOfInstallments": details.Plan.NumberOfInstallments,
			"CreatedBy":            createdBy,
			"Date":                 details.Plan.CreatedAt.Format("2006-01-02"),
		},
	})
	return nil
}

func (ntf *Notifier) onEnrollmentCreated(ctx context.Context, ev event.Event) error {
	details, ok := ev.Payload.(student.EnrollmentDetails)
	if !ok {
		return unexpectedPayload(ev)
	}
	stdnt, enrl := details.Student, details.Enrollment

	// redeliveries would send the email again: only the first attempt does
	if ev.Attempt <= 1 && ntf.adminEmail != "" {
		courseName := "-"
		if details.Course != nil {
			courseName = details.Course.Name
		}
		ntf.email.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: ntf.adminEmail}},
			Subject:      "New Student Enrollment: " + stdnt.DisplayName(),
			TemplateName: tmplEnrollmentCreated,
			TemplateData: map[string]interface{}{
				"StudentName":    stdnt.DisplayName(),
				"StudentEmail":   stdnt.Email,
				"Course":         courseName,
				"Batch":          details.Batch.Name,
				"TotalFee":       formatMoney(enrl.TotalFee),
				"Discount":       formatMoney(enrl.DiscountAmount),
				"FinalFee":       formatMoney(enrl.FinalFee),
				"EnrollmentDate": enrl.EnrollmentDate.String(),
				"Status":         enrl.Status,
			},
		})
	}

	staff, err := ntf.staff.QueryStaff(ctx)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	var failed error
	for _, admin := range staff {
		err := ntf.notifyAdmin(ctx, Notification{
			EventID:        ev.ID,
			RecipientID:    admin.ID,
			Type:           TypeStudentEnrolled,
			Title:          "New Student Enrollment",
			Message:        fmt.Sprintf("%s has enrolled in batch '%s'.", stdnt.DisplayName(), details.Batch.Name),
			RelatedUserID:  null.StringFrom(stdnt.ID),
			RelatedBatchID: null.StringFrom(details.Batch.ID),
		})
		if err != nil {
			failed = err
		}
	}
	return failed
}

func (ntf *Notifier) onInstallmentOverdue(ctx context.Context, ev event.Event) error {
	details, ok := ev.Payload.(payment.InstallmentDetails)
	if !ok {
		return unexpectedPayload(ev)
	}
	inst := details.Installment
	return ntf.notify(ctx, Notification{
		EventID:     ev.ID,
		RecipientID: details.Enrollment.StudentID,
		Type:        TypePaymentOverdue,
		Title:       "Payment Overdue",
		Message: fmt.Sprintf(
			"Installment %d of '%s' (%s) was due on %s and is now overdue.",
			inst.Number, details.Plan.Name, formatMoney(inst.Amount), inst.DueDate,
		),
		RelatedUserID:  null.StringFrom(details.Enrollment.StudentID),
		RelatedBatchID: null.StringFrom(details.Enrollment.BatchID),
	})
}

// notify inserts `n` in the user inbox; an already delivered (event, recipient) pair is skipped.
func (ntf *Notifier) notify(ctx context.Context, n Notification) error {
	if _, err := ntf.repo.CreateNotification(ctx, n); err != nil {
		if core.IsUniqueViolation(err, EventRecipientConstraint) {
			return nil
		}
		return errors.Wrapf(err, "creating %s notification for %s", n.Type, n.RecipientID)
	}
	return nil
}

// notifyAdmin inserts `n` in the admin inbox; an already delivered (event, recipient) pair is skipped.
func (ntf *Notifier) notifyAdmin(ctx context.Context, n Notification) error {
	if _, err := ntf.repo.CreateAdminNotification(ctx, n); err != nil {
		if core.IsUniqueViolation(err, AdminEventRecipientConstraint) {
			return nil
		}
		return errors.Wrapf(err, "creating %s admin notification for %s", n.Type, n.RecipientID)
	}
	return nil
}
