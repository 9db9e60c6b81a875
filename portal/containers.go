package portal

import (
	"database/sql"
	"log"
	"strconv"
	"time"

	"clienthub/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func scanContainer(row *sql.Row) (Container, error) {
	var container Container
	err := row.Scan(&container.ID, &container.ShareToken, &container.OwnerID, &container.Name, &container.CreatedAt)
	if err == sql.ErrNoRows {
		return container, ErrNotFound
	}
	return container, err
}

func ContainerByID(id int) (Container, error) {
	row := db.DB.QueryRow(`SELECT id, share_token, owner_id, name, created_at FROM containers WHERE id = ?`, id)
	return scanContainer(row)
}

func ContainerByToken(token string) (Container, error) {
	row := db.DB.QueryRow(`SELECT id, share_token, owner_id, name, created_at FROM containers WHERE share_token = ?`, token)
	return scanContainer(row)
}

// OwnerContainer loads the container named by the :id route param and
// rejects the request unless the authenticated user owns it. Must run
// after the JWT middleware.
func OwnerContainer() gin.HandlerFunc {
	return func(c *gin.Context) {
		containerID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid container id"})
			c.Abort()
			return
		}

		container, err := ContainerByID(containerID)
		if err == ErrNotFound {
			c.JSON(404, gin.H{"error": "Container not found"})
			c.Abort()
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Database error loading container"})
			c.Abort()
			return
		}

		userID, _ := c.Get("userID")
		if ownerID, ok := userID.(int); !ok || ownerID != container.OwnerID {
			c.JSON(403, gin.H{"error": "Not your container"})
			c.Abort()
			return
		}

		c.Set("container", container)
		c.Set("identity", SenderOwner)
		c.Next()
	}
}

// GuestAccess resolves the :token route param to a container. The share
// token stands in place of session credentials for every guest route.
func GuestAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		container, err := ContainerByToken(token)
		if err == ErrNotFound {
			c.JSON(404, gin.H{"error": "Invalid share link"})
			c.Abort()
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Database error loading container"})
			c.Abort()
			return
		}

		c.Set("container", container)
		c.Set("identity", SenderGuest)
		c.Next()
	}
}

func requestContainer(c *gin.Context) Container {
	return c.MustGet("container").(Container)
}

func requestIdentity(c *gin.Context) string {
	return c.GetString("identity")
}

func HandleCreateContainer(c *gin.Context) {
	var json struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	ownerIDRaw, exists := c.Get("userID")
	if !exists {
		c.JSON(500, gin.H{"error": "Failed to retrieve owner ID"})
		return
	}
	ownerID := ownerIDRaw.(int)

	shareToken := uuid.NewString()

	var container Container
	query := `INSERT INTO containers (share_token, owner_id, name, created_at) VALUES (?, ?, ?, ?)
	          RETURNING id, share_token, owner_id, name, created_at`
	err := db.DB.QueryRow(query, shareToken, ownerID, json.Name, nowStamp()).
		Scan(&container.ID, &container.ShareToken, &container.OwnerID, &container.Name, &container.CreatedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting container"})
		return
	}

	c.JSON(201, gin.H{"container": container})
}

func HandleListContainers(c *gin.Context) {
	ownerID, _ := c.Get("userID")

	rows, err := db.DB.Query(
		`SELECT id, share_token, owner_id, name, created_at FROM containers WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error listing containers"})
		return
	}
	defer rows.Close()

	containers := []Container{}
	for rows.Next() {
		var container Container
		if err := rows.Scan(&container.ID, &container.ShareToken, &container.OwnerID, &container.Name, &container.CreatedAt); err != nil {
			log.Println("Error scanning container:", err)
			continue
		}
		containers = append(containers, container)
	}

	c.JSON(200, gin.H{"containers": containers})
}

func HandleGetContainer(c *gin.Context) {
	c.JSON(200, gin.H{"container": requestContainer(c)})
}

// HandleGetGuestContainer returns the container resolved from the share
// token, with the token itself blanked so the payload can be rendered
// anywhere without leaking the link.
func HandleGetGuestContainer(c *gin.Context) {
	container := requestContainer(c)
	container.ShareToken = ""
	c.JSON(200, gin.H{"container": container})
}

func HandleDeleteContainer(c *gin.Context) {
	container := requestContainer(c)

	// Children cascade via foreign keys.
	if _, err := db.DB.Exec(`DELETE FROM containers WHERE id = ?`, container.ID); err != nil {
		c.JSON(500, gin.H{"error": "Database error deleting container"})
		return
	}

	c.JSON(200, gin.H{"message": "Container deleted"})
}
