package portal

import (
	"database/sql"
	"log"
	"strconv"

	"clienthub/db"

	"github.com/gin-gonic/gin"
)

func validTaskStatus(status string) bool {
	switch status {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	default:
		return false
	}
}

// ListTasks returns a container's tasks oldest first.
func ListTasks(containerID int) ([]Task, error) {
	rows, err := db.DB.Query(
		`SELECT id, container_id, title, status, created_at
		 FROM tasks WHERE container_id = ? ORDER BY created_at ASC, id ASC`,
		containerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.ContainerID, &task.Title, &task.Status, &task.CreatedAt); err != nil {
			log.Println("Error scanning task:", err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func HandleCreateTask(c *gin.Context) {
	var json struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	container := requestContainer(c)

	var task Task
	query := `INSERT INTO tasks (container_id, title, status, created_at) VALUES (?, ?, ?, ?)
	          RETURNING id, container_id, title, status, created_at`
	err := db.DB.QueryRow(query, container.ID, json.Title, TaskTodo, nowStamp()).
		Scan(&task.ID, &task.ContainerID, &task.Title, &task.Status, &task.CreatedAt)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error inserting task"})
		return
	}

	c.JSON(201, gin.H{"task": task})
}

func HandleListTasks(c *gin.Context) {
	tasks, err := ListTasks(requestContainer(c).ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error listing tasks"})
		return
	}
	c.JSON(200, gin.H{"tasks": tasks})
}

func HandleUpdateTaskStatus(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Param("taskID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid task id"})
		return
	}

	var json struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if !validTaskStatus(json.Status) {
		c.JSON(400, gin.H{"error": "Invalid task status"})
		return
	}

	container := requestContainer(c)

	var task Task
	query := `UPDATE tasks SET status = ? WHERE id = ? AND container_id = ?
	          RETURNING id, container_id, title, status, created_at`
	err = db.DB.QueryRow(query, json.Status, taskID, container.ID).
		Scan(&task.ID, &task.ContainerID, &task.Title, &task.Status, &task.CreatedAt)
	if err == sql.ErrNoRows {
		c.JSON(404, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error updating task"})
		return
	}

	c.JSON(200, gin.H{"task": task})
}

func HandleDeleteTask(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Param("taskID"))
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid task id"})
		return
	}

	container := requestContainer(c)

	res, err := db.DB.Exec(`DELETE FROM tasks WHERE id = ? AND container_id = ?`, taskID, container.ID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Database error deleting task"})
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		c.JSON(404, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(200, gin.H{"task_id": taskID})
}
