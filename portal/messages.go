package portal

import (
	"log"

	"clienthub/db"

	"github.com/gin-gonic/gin"
)

// ListMessages returns a container's chat history oldest first,
// limited to the most recent batch.
func ListMessages(containerID int) ([]Message, error) {
	rows, err := db.DB.Query(
		`SELECT id, container_id, sender, content, created_at FROM (
		   SELECT id, container_id, sender, content, created_at
		   FROM messages WHERE container_id = ? ORDER BY id DESC LIMIT 100
		 ) ORDER BY id ASC`,
		containerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var message Message
		if err := rows.Scan(&message.ID, &message.ContainerID, &message.Sender, &message.Content, &message.CreatedAt); err != nil {
			log.Println("Error scanning message:", err)
			continue
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

func HandleSendMessage(c *gin.Context) {
	var json struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	container := requestContainer(c)

	var message Message
	query := `INSERT INTO messages (container_id, sender, content, created_at) VALUES (?, ?, ?, ?)
	          RETURNING id, container_id, sender, content, created_at`
	err := db.DB.QueryRow(query, container.ID, requestIdentity(c), json.Content, nowStamp()).
		Scan(&message.ID, &message.ContainerID, &message.Sender, &message.Content, &message.CreatedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting message"})
		return
	}

	c.JSON(201, gin.H{"message": message})
}

func HandleListMessages(c *gin.Context) {
	messages, err := ListMessages(requestContainer(c).ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error listing messages"})
		return
	}
	c.JSON(200, gin.H{"messages": messages})
}
