package portal

import (
	"log"
	"strconv"

	"clienthub/db"

	"github.com/gin-gonic/gin"
)

// InsertNotification persists an account notification and returns the
// committed record. The socket push carries this record verbatim; the
// row is the source of truth, the push is only an announcement of it.
func InsertNotification(accountID int, title, description, link string) (Notification, error) {
	var n Notification
	var readInt int
	query := `INSERT INTO notifications (account_id, title, description, link, read, created_at) VALUES (?, ?, ?, ?, 0, ?)
	          RETURNING id, account_id, title, description, link, read, created_at`
	err := db.DB.QueryRow(query, accountID, title, description, link, nowStamp()).
		Scan(&n.ID, &n.AccountID, &n.Title, &n.Description, &n.Link, &readInt, &n.CreatedAt)
	n.Read = readInt == 1
	return n, err
}

// ListNotifications returns an account's notifications unread first,
// newest first within each group.
func ListNotifications(accountID int) ([]Notification, error) {
	rows, err := db.DB.Query(
		`SELECT id, account_id, title, description, link, read, created_at
		 FROM notifications WHERE account_id = ? ORDER BY read ASC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		var readInt int
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Description, &n.Link, &readInt, &n.CreatedAt); err != nil {
			log.Println("Error scanning notification:", err)
			continue
		}
		n.Read = readInt == 1
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func UnreadNotificationCount(accountID int) (int, error) {
	var count int
	err := db.DB.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE account_id = ? AND read = 0`,
		accountID,
	).Scan(&count)
	return count, err
}

func HandleListNotifications(c *gin.Context) {
	accountID, _ := c.Get("userID")

	notifications, err := ListNotifications(accountID.(int))
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error listing notifications"})
		return
	}

	unread, err := UnreadNotificationCount(accountID.(int))
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error counting notifications"})
		return
	}

	c.JSON(200, gin.H{"notifications": notifications, "unread": unread})
}

func HandleMarkNotificationRead(c *gin.Context) {
	notificationID, err := strconv.Atoi(c.Param("notificationID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid notification id"})
		return
	}

	accountID, _ := c.Get("userID")

	res, err := db.DB.Exec(
		`UPDATE notifications SET read = 1 WHERE id = ? AND account_id = ?`,
		notificationID, accountID,
	)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error updating notification"})
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		c.JSON(404, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(200, gin.H{"notification_id": notificationID})
}

func HandleMarkAllNotificationsRead(c *gin.Context) {
	accountID, _ := c.Get("userID")

	if _, err := db.DB.Exec(`UPDATE notifications SET read = 1 WHERE account_id = ?`, accountID); err != nil {
		c.JSON(500, gin.H{"error": "Database error updating notifications"})
		return
	}

	c.JSON(200, gin.H{"message": "All notifications marked read"})
}

func HandleClearNotifications(c *gin.Context) {
	accountID, _ := c.Get("userID")

	if _, err := db.DB.Exec(`DELETE FROM notifications WHERE account_id = ?`, accountID); err != nil {
		c.JSON(500, gin.H{"error": "Database error clearing notifications"})
		return
	}

	c.JSON(200, gin.H{"message": "Notifications cleared"})
}
