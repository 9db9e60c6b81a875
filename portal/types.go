package portal

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

const (
	SenderOwner = "owner"
	SenderGuest = "guest"
)

const (
	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskDone       = "done"
)

const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
)

type Container struct {
	ID         int    `json:"id"`
	ShareToken string `json:"share_token"`
	OwnerID    int    `json:"owner_id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
}

type File struct {
	ID          int       `json:"id"`
	ContainerID int       `json:"container_id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	Uploader    string    `json:"uploader"` // "owner" or "guest"
	CreatedAt   string    `json:"created_at"`
	Comments    []Comment `json:"comments"`
}

type Comment struct {
	ID        int    `json:"id"`
	FileID    int    `json:"file_id"`
	Sender    string `json:"sender"` // "owner" or "guest"
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type Invoice struct {
	ID          int    `json:"id"`
	ContainerID int    `json:"container_id"`
	Number      string `json:"number"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"` // draft, sent, paid
	CreatedAt   string `json:"created_at"`
}

type Task struct {
	ID          int    `json:"id"`
	ContainerID int    `json:"container_id"`
	Title       string `json:"title"`
	Status      string `json:"status"` // todo, in-progress, done
	CreatedAt   string `json:"created_at"`
}

type Message struct {
	ID          int    `json:"id"`
	ContainerID int    `json:"container_id"`
	Sender      string `json:"sender"` // "owner" or "guest"
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

type Notification struct {
	ID          int    `json:"id"`
	AccountID   int    `json:"account_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Read        bool   `json:"read"`
	CreatedAt   string `json:"created_at"`
}
