package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// unique constraints, as named by the store
const (
	EventRecipientConstraint      = "notifications_event_id_recipient_id_key"
	AdminEventRecipientConstraint = "admin_notifications_event_id_recipient_id_key"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("notification not found")
)

type (
	// Repository stores both inboxes. Inserts colliding on (EventID, RecipientID)
	// yield a core.UniqueViolation on the inbox's constraint.
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// QueryNotifications returns the newest first.
		QueryNotifications(ctx context.Context, filter *QueryFilter) ([]Notification, error)
		CountUnreadNotifications(ctx context.Context, recipientID string) (int, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		MarkNotificationRead(ctx context.Context, id string) (Notification, error)

		CreateAdminNotification(ctx context.Context, n Notification) (Notification, error)
		QueryAdminNotifications(ctx context.Context, filter *QueryFilter) ([]Notification, error)
		CountUnreadAdminNotifications(ctx context.Context, recipientID string) (int, error)
		GetAdminNotification(ctx context.Context, id string) (Notification, error)
		MarkAdminNotificationRead(ctx context.Context, id string) (Notification, error)
	}

	// Service is the read side of the inboxes. Every operation is scoped to `recipientID`:
	// somebody else's notification is reported as ErrNotFound.
	Service interface {
		Query(ctx context.Context, recipientID string, filter *QueryFilter) ([]Notification, error)
		UnreadCount(ctx context.Context, recipientID string) (int, error)
		// MarkRead is one-way & idempotent.
		MarkRead(ctx context.Context, recipientID, id string) (Notification, error)

		QueryAdmin(ctx context.Context, recipientID string, filter *QueryFilter) ([]Notification, error)
		AdminUnreadCount(ctx context.Context, recipientID string) (int, error)
		MarkAdminRead(ctx context.Context, recipientID, id string) (Notification, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func scopedFilter(recipientID string, filter *QueryFilter) *QueryFilter {
	scoped := QueryFilter{}
	if filter != nil {
		scoped = *filter
		scoped.Type = core.CleanString(scoped.Type)
	}
	scoped.RecipientID = recipientID
	return &scoped
}

func (svc *service) Query(ctx context.Context, recipientID string, filter *QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, scopedFilter(recipientID, filter))
}

func (svc *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return svc.repo.CountUnreadNotifications(ctx, recipientID)
}

func (svc *service) MarkRead(ctx context.Context, recipientID, id string) (Notification, error) {
	return markRead(ctx, recipientID, id, svc.repo.GetNotification, svc.repo.MarkNotificationRead)
}

func (svc *service) QueryAdmin(ctx context.Context, recipientID string, filter *QueryFilter) ([]Notification, error) {
	return svc.repo.QueryAdminNotifications(ctx, scopedFilter(recipientID, filter))
}

func (svc *service) AdminUnreadCount(ctx context.Context, recipientID string) (int, error) {
	return svc.repo.CountUnreadAdminNotifications(ctx, recipientID)
}

func (svc *service) MarkAdminRead(ctx context.Context, recipientID, id string) (Notification, error) {
	return markRead(ctx, recipientID, id, svc.repo.GetAdminNotification, svc.repo.MarkAdminNotificationRead)
}

type (
	getFunc  func(ctx context.Context, id string) (Notification, error)
	markFunc func(ctx context.Context, id string) (Notification, error)
)

func markRead(ctx context.Context, recipientID, id string, get getFunc, mark markFunc) (Notification, error) {
	n, err := get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.RecipientID != recipientID {
		return Notification{}, ErrNotFound
	}
	if n.IsRead {
		return n, nil
	}
	n, err = mark(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Notification{}, err
		}
		return Notification{}, errors.Wrap(err, "marking notification as read")
	}
	return n, nil
}
