package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Notification types
const (
	TypeNewSignup       = "NEW_SIGNUP"
	TypePaymentReceived = "PAYMENT_RECEIVED"
	TypePaymentOverdue  = "PAYMENT_OVERDUE"
	TypeBatchCreated    = "BATCH_CREATED"
	TypeStudentEnrolled = "STUDENT_ENROLLED"
	TypeSystem          = "SYSTEM"
)

var Types = []string{TypeNewSignup, TypePaymentReceived, TypePaymentOverdue, TypeBatchCreated, TypeStudentEnrolled, TypeSystem}

// Notification is an inbox message for one recipient. Admin notifications share the shape
// but live in their own inbox, whose recipients are staff users.
// (EventID, RecipientID) is unique: redelivered events never duplicate a notification.
type Notification struct {
	ID               string      `json:"id"`
	EventID          string      `json:"-"`
	RecipientID      string      `json:"recipient_id"`
	Type             string      `json:"notification_type"`
	Title            string      `json:"title"`
	Message          string      `json:"message"`
	RelatedUserID    null.String `json:"related_user_id"`
	RelatedBatchID   null.String `json:"related_batch_id"`
	RelatedPaymentID null.String `json:"related_payment_id"`
	IsRead           bool        `json:"is_read"`
	CreatedAt        time.Time   `json:"created_at"` // UTC
}

type QueryFilter struct {
	RecipientID string `query:"-"` // always the acting user
	IsRead      *bool  `query:"is_read"`
	Type        string `query:"notification_type"`
}

type UnreadCount struct {
	Count int `json:"unread_count"`
}
