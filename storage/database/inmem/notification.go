package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

var notificationComparators = comparators[notification.Notification]{
	"created_at": func(a, b notification.Notification) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// inbox operations shared by both tables; callers hold the lock.

func (repo *notificationRepository) create(inbox map[string]*notification.Notification, n notification.Notification, constraint string) (notification.Notification, error) {
	if _, ok := repo.db.users[n.RecipientID]; !ok {
		return notification.Notification{}, core.NewNotFoundError("recipient not found")
	}
	for _, other := range inbox {
		if other.EventID == n.EventID && other.RecipientID == n.RecipientID {
			return notification.Notification{}, uniqueViolation(constraint)
		}
	}
	n.ID = newID()
	n.IsRead = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = nowUTC()
	}
	inbox[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) query(inbox map[string]*notification.Notification, filter *notification.QueryFilter) []notification.Notification {
	ntfs := make([]notification.Notification, 0)
	for _, n := range inbox {
		if filter != nil {
			if filter.RecipientID != "" && n.RecipientID != filter.RecipientID {
				continue
			}
			if filter.IsRead != nil && n.IsRead != *filter.IsRead {
				continue
			}
			if filter.Type != "" && n.Type != filter.Type {
				continue
			}
		}
		ntfs = append(ntfs, *n)
	}
	sortRows(ntfs, nil, notificationComparators, core.DBOrdering{Field: "created_at"})
	return ntfs
}

func (repo *notificationRepository) countUnread(inbox map[string]*notification.Notification, recipientID string) int {
	var cnt int
	for _, n := range inbox {
		if n.RecipientID == recipientID && !n.IsRead {
			cnt++
		}
	}
	return cnt
}

func (repo *notificationRepository) get(inbox map[string]*notification.Notification, id string) (notification.Notification, error) {
	if n, ok := inbox[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) markRead(inbox map[string]*notification.Notification, id string) (notification.Notification, error) {
	n, ok := inbox[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.IsRead = true
	return *n, nil
}

// Notifications

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.create(repo.db.notifications, n, notification.EventRecipientConstraint)
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter *notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(repo.db.notifications, filter), nil
}

func (repo *notificationRepository) CountUnreadNotifications(_ context.Context, recipientID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.countUnread(repo.db.notifications, recipientID), nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.get(repo.db.notifications, id)
}

func (repo *notificationRepository) MarkNotificationRead(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.markRead(repo.db.notifications, id)
}

// Admin notifications

func (repo *notificationRepository) CreateAdminNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.create(repo.db.adminNotifications, n, notification.AdminEventRecipientConstraint)
}

func (repo *notificationRepository) QueryAdminNotifications(_ context.Context, filter *notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(repo.db.adminNotifications, filter), nil
}

func (repo *notificationRepository) CountUnreadAdminNotifications(_ context.Context, recipientID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.countUnread(repo.db.adminNotifications, recipientID), nil
}

func (repo *notificationRepository) GetAdminNotification(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.get(repo.db.adminNotifications, id)
}

func (repo *notificationRepository) MarkAdminNotificationRead(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.markRead(repo.db.adminNotifications, id)
}
