package portal

import (
	"database/sql"
	"log"
	"strconv"

	"clienthub/db"

	"github.com/gin-gonic/gin"
)

func fileByID(fileID, containerID int) (File, error) {
	var file File
	err := db.DB.QueryRow(
		`SELECT id, container_id, name, url, size, uploader, created_at FROM files WHERE id = ? AND container_id = ?`,
		fileID, containerID,
	).Scan(&file.ID, &file.ContainerID, &file.Name, &file.URL, &file.Size, &file.Uploader, &file.CreatedAt)
	if err == sql.ErrNoRows {
		return file, ErrNotFound
	}
	return file, err
}

// ListFiles returns a container's files newest first, each with its
// comments oldest first.
func ListFiles(containerID int) ([]File, error) {
	rows, err := db.DB.Query(
		`SELECT id, container_id, name, url, size, uploader, created_at
		 FROM files WHERE container_id = ? ORDER BY created_at DESC, id DESC`,
		containerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		var file File
		if err := rows.Scan(&file.ID, &file.ContainerID, &file.Name, &file.URL, &file.Size, &file.Uploader, &file.CreatedAt); err != nil {
			log.Println("Error scanning file:", err)
			continue
		}
		file.Comments = []Comment{}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	commentRows, err := db.DB.Query(
		`SELECT c.id, c.file_id, c.sender, c.text, c.created_at
		 FROM file_comments c JOIN files f ON f.id = c.file_id
		 WHERE f.container_id = ? ORDER BY c.created_at ASC, c.id ASC`,
		containerID,
	)
	if err != nil {
		return nil, err
	}
	defer commentRows.Close()

	byFile := make(map[int]int, len(files))
	for i, file := range files {
		byFile[file.ID] = i
	}
	for commentRows.Next() {
		var comment Comment
		if err := commentRows.Scan(&comment.ID, &comment.FileID, &comment.Sender, &comment.Text, &comment.CreatedAt); err != nil {
			log.Println("Error scanning comment:", err)
			continue
		}
		if i, ok := byFile[comment.FileID]; ok {
			files[i].Comments = append(files[i].Comments, comment)
		}
	}
	return files, commentRows.Err()
}

func HandleUploadFile(c *gin.Context) {
	var json struct {
		Name string `json:"name" binding:"required"`
		URL  string `json:"url" binding:"required"`
		Size int64  `json:"size"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	container := requestContainer(c)
	uploader := requestIdentity(c)

	var file File
	query := `INSERT INTO files (container_id, name, url, size, uploader, created_at) VALUES (?, ?, ?, ?, ?, ?)
	          RETURNING id, container_id, name, url, size, uploader, created_at`
	err := db.DB.QueryRow(query, container.ID, json.Name, json.URL, json.Size, uploader, nowStamp()).
		Scan(&file.ID, &file.ContainerID, &file.Name, &file.URL, &file.Size, &file.Uploader, &file.CreatedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting file"})
		return
	}
	file.Comments = []Comment{}

	c.JSON(201, gin.H{"file": file})
}

func HandleListFiles(c *gin.Context) {
	files, err := ListFiles(requestContainer(c).ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error listing files"})
		return
	}
	c.JSON(200, gin.H{"files": files})
}

func HandleDeleteFile(c *gin.Context) {
	fileID, err := strconv.Atoi(c.Param("fileID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid file id"})
		return
	}

	container := requestContainer(c)

	file, err := fileByID(fileID, container.ID)
	if err == ErrNotFound {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error loading file"})
		return
	}

	// A guest may only remove files it uploaded itself.
	if requestIdentity(c) == SenderGuest && file.Uploader != SenderGuest {
		c.JSON(403, gin.H{"error": "Guests can only delete their own uploads"})
		return
	}

	if _, err := db.DB.Exec(`DELETE FROM files WHERE id = ?`, file.ID); err != nil {
		c.JSON(500, gin.H{"error": "Database error deleting file"})
		return
	}

	c.JSON(200, gin.H{"file_id": file.ID})
}

func HandleAddComment(c *gin.Context) {
	fileID, err := strconv.Atoi(c.Param("fileID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid file id"})
		return
	}

	var json struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	container := requestContainer(c)

	if _, err := fileByID(fileID, container.ID); err == ErrNotFound {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	} else if err != nil {
		c.JSON(500, gin.H{"error": "Database error loading file"})
		return
	}

	var comment Comment
	query := `INSERT INTO file_comments (file_id, sender, text, created_at) VALUES (?, ?, ?, ?)
	          RETURNING id, file_id, sender, text, created_at`
	err = db.DB.QueryRow(query, fileID, requestIdentity(c), json.Text, nowStamp()).
		Scan(&comment.ID, &comment.FileID, &comment.Sender, &comment.Text, &comment.CreatedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting comment"})
		return
	}

	c.JSON(201, gin.H{"comment": comment})
}
