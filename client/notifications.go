package client

import (
	"context"
	"log"
	"sort"
	"sync"

	"clienthub/portal"
)

// NotificationList is the owner's in-memory view of the persisted
// account mailbox. Mark-read calls flip local state first and report
// to the gateway after; a gateway failure is logged but the local
// flip stays, trading a transient inconsistency for responsiveness.
type NotificationList struct {
	mu    sync.Mutex
	gw    Gateway
	items []portal.Notification
}

func NewNotificationList(gw Gateway) *NotificationList {
	return &NotificationList{gw: gw}
}

func sortUnreadFirst(items []portal.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Read != items[j].Read {
			return !items[i].Read
		}
		return items[i].ID > items[j].ID
	})
}

// Refresh replaces the list wholesale from the gateway.
func (l *NotificationList) Refresh(ctx context.Context) error {
	items, err := l.gw.Notifications(ctx)
	if err != nil {
		return err
	}
	sortUnreadFirst(items)

	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

// Push merges a notification announced over the account room. A
// re-delivered ID is a no-op.
func (l *NotificationList) Push(n portal.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.items {
		if existing.ID == n.ID {
			return
		}
	}
	l.items = append(l.items, n)
	sortUnreadFirst(l.items)
}

func (l *NotificationList) MarkRead(ctx context.Context, id int) {
	l.mu.Lock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Read = true
			break
		}
	}
	sortUnreadFirst(l.items)
	l.mu.Unlock()

	if err := l.gw.MarkNotificationRead(ctx, id); err != nil {
		log.Println("MarkRead gateway call failed:", err)
	}
}

func (l *NotificationList) MarkAllRead(ctx context.Context) {
	l.mu.Lock()
	for i := range l.items {
		l.items[i].Read = true
	}
	l.mu.Unlock()

	if err := l.gw.MarkAllNotificationsRead(ctx); err != nil {
		log.Println("MarkAllRead gateway call failed:", err)
	}
}

func (l *NotificationList) ClearAll(ctx context.Context) {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()

	if err := l.gw.ClearNotifications(ctx); err != nil {
		log.Println("ClearAll gateway call failed:", err)
	}
}

func (l *NotificationList) UnreadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, n := range l.items {
		if !n.Read {
			count++
		}
	}
	return count
}

func (l *NotificationList) Items() []portal.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]portal.Notification, len(l.items))
	copy(out, l.items)
	return out
}
