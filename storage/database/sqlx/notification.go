package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/storage/database"
)

const (
	notificationsTable      = "notifications"
	adminNotificationsTable = "admin_notifications"

	notificationColumns = "id, event_id, recipient_id, type, title, message, related_user_id, related_batch_id, related_payment_id, is_read, created_at"
)

type notificationRow struct {
	ID               string      `db:"id"`
	EventID          string      `db:"event_id"`
	RecipientID      string      `db:"recipient_id"`
	Type             string      `db:"type"`
	Title            string      `db:"title"`
	Message          string      `db:"message"`
	RelatedUserID    null.String `db:"related_user_id"`
	RelatedBatchID   null.String `db:"related_batch_id"`
	RelatedPaymentID null.String `db:"related_payment_id"`
	IsRead           bool        `db:"is_read"`
	CreatedAt        time.Time   `db:"created_at"`
}

func toNotificationRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:               n.ID,
		EventID:          n.EventID,
		RecipientID:      n.RecipientID,
		Type:             n.Type,
		Title:            n.Title,
		Message:          n.Message,
		RelatedUserID:    n.RelatedUserID,
		RelatedBatchID:   n.RelatedBatchID,
		RelatedPaymentID: n.RelatedPaymentID,
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt.UTC(),
	}
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:               r.ID,
		EventID:          r.EventID,
		RecipientID:      r.RecipientID,
		Type:             r.Type,
		Title:            r.Title,
		Message:          r.Message,
		RelatedUserID:    r.RelatedUserID,
		RelatedBatchID:   r.RelatedBatchID,
		RelatedPaymentID: r.RelatedPaymentID,
		IsRead:           r.IsRead,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

type notificationRepository struct {
	ext sqlx.ExtContext
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(ext sqlx.ExtContext) *notificationRepository {
	return &notificationRepository{ext: ext}
}

// inbox operations shared by both tables

func (repo *notificationRepository) create(ctx context.Context, table string, n notification.Notification) (notification.Notification, error) {
	n.ID = newID()
	n.IsRead = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := sqlx.NamedExecContext(ctx, repo.ext, `
		INSERT INTO `+table+` (`+notificationColumns+`)
		VALUES (:id, :event_id, :recipient_id, :type, :title, :message, :related_user_id, :related_batch_id, :related_payment_id, :is_read, :created_at)`,
		toNotificationRow(n),
	)
	if err != nil {
		return notification.Notification{}, database.TranslateError(err, "inserting notification", core.NewNotFoundError("recipient not found"))
	}
	return n, nil
}

func (repo *notificationRepository) query(ctx context.Context, table string, filter *notification.QueryFilter) ([]notification.Notification, error) {
	q := new(query)
	if filter != nil {
		if filter.RecipientID != "" {
			if !isUUID(filter.RecipientID) {
				return []notification.Notification{}, nil
			}
			q.where("recipient_id = ?", filter.RecipientID)
		}
		if filter.IsRead != nil {
			q.where("is_read = ?", *filter.IsRead)
		}
		if filter.Type != "" {
			q.where("type = ?", filter.Type)
		}
	}

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q.build(repo.ext, "SELECT "+notificationColumns+" FROM "+table, nil, "created_at DESC"), q.args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ntfs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		ntfs = append(ntfs, r.toNotification())
	}
	return ntfs, nil
}

func (repo *notificationRepository) countUnread(ctx context.Context, table, recipientID string) (int, error) {
	if !isUUID(recipientID) {
		return 0, nil
	}
	var cnt int
	err := sqlx.GetContext(ctx, repo.ext, &cnt, "SELECT COUNT(*) FROM "+table+" WHERE recipient_id = $1 AND NOT is_read", recipientID)
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return cnt, nil
}

func (repo *notificationRepository) get(ctx context.Context, table, id string) (notification.Notification, error) {
	if !isUUID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var r notificationRow
	if err := sqlx.GetContext(ctx, repo.ext, &r, "SELECT "+notificationColumns+" FROM "+table+" WHERE id = $1", id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification")
	}
	return r.toNotification(), nil
}

func (repo *notificationRepository) markRead(ctx context.Context, table, id string) (notification.Notification, error) {
	if !isUUID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var r notificationRow
	err := sqlx.GetContext(ctx, repo.ext, &r, "UPDATE "+table+" SET is_read = TRUE WHERE id = $1 RETURNING "+notificationColumns, id)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "marking notification as read")
	}
	return r.toNotification(), nil
}

// Notifications

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	return repo.create(ctx, notificationsTable, n)
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter *notification.QueryFilter) ([]notification.Notification, error) {
	return repo.query(ctx, notificationsTable, filter)
}

func (repo *notificationRepository) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	return repo.countUnread(ctx, notificationsTable, recipientID)
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	return repo.get(ctx, notificationsTable, id)
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	return repo.markRead(ctx, notificationsTable, id)
}

// Admin notifications

func (repo *notificationRepository) CreateAdminNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	return repo.create(ctx, adminNotificationsTable, n)
}

func (repo *notificationRepository) QueryAdminNotifications(ctx context.Context, filter *notification.QueryFilter) ([]notification.Notification, error) {
	return repo.query(ctx, adminNotificationsTable, filter)
}

func (repo *notificationRepository) CountUnreadAdminNotifications(ctx context.Context, recipientID string) (int, error) {
	return repo.countUnread(ctx, adminNotificationsTable, recipientID)
}

func (repo *notificationRepository) GetAdminNotification(ctx context.Context, id string) (notification.Notification, error) {
	return repo.get(ctx, adminNotificationsTable, id)
}

func (repo *notificationRepository) MarkAdminNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	return repo.markRead(ctx, adminNotificationsTable, id)
}
