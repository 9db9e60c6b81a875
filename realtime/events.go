package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"clienthub/portal"
)

// Every event that crosses a room is one of the types below. Events
// carry the full committed record, never a delta, so applying one is
// an ID-keyed replace on the receiving side.
type Event interface {
	EventType() string
}

var ErrUnknownEventType = errors.New("unknown event type")

type FileUploaded struct {
	ContainerID int         `json:"container_id"`
	File        portal.File `json:"file"`
}

func (FileUploaded) EventType() string { return "file-uploaded" }

type FileDeleted struct {
	ContainerID int `json:"container_id"`
	FileID      int `json:"file_id"`
}

func (FileDeleted) EventType() string { return "file-deleted" }

type FileCommentAdded struct {
	ContainerID int            `json:"container_id"`
	FileID      int            `json:"file_id"`
	Comment     portal.Comment `json:"comment"`
}

func (FileCommentAdded) EventType() string { return "file-comment-added" }

type InvoiceCreated struct {
	ContainerID int            `json:"container_id"`
	Invoice     portal.Invoice `json:"invoice"`
}

func (InvoiceCreated) EventType() string { return "invoice-created" }

type InvoiceDeleted struct {
	ContainerID int `json:"container_id"`
	InvoiceID   int `json:"invoice_id"`
}

func (InvoiceDeleted) EventType() string { return "invoice-deleted" }

// InvoicePaid announces a payment to the rest of the container. It
// names the container rather than the invoice record; invoice status
// converges through the next refetch.
type InvoicePaid struct {
	ContainerID   int    `json:"container_id"`
	AmountCents   int64  `json:"amount_cents"`
	ContainerName string `json:"container_name"`
}

func (InvoicePaid) EventType() string { return "invoice-paid" }

type TaskCreated struct {
	ContainerID int         `json:"container_id"`
	Task        portal.Task `json:"task"`
}

func (TaskCreated) EventType() string { return "task-created" }

type TaskStatusUpdated struct {
	ContainerID int         `json:"container_id"`
	Task        portal.Task `json:"task"`
}

func (TaskStatusUpdated) EventType() string { return "task-status-updated" }

type TaskDeleted struct {
	ContainerID int `json:"container_id"`
	TaskID      int `json:"task_id"`
}

func (TaskDeleted) EventType() string { return "task-deleted" }

type NewMessage struct {
	Message portal.Message `json:"message"`
}

func (NewMessage) EventType() string { return "new-message" }

// ClientNotification is the guest-facing alert feed. It is never
// persisted server-side; guests keep it in local storage only.
type ClientNotification struct {
	ContainerID int    `json:"container_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (ClientNotification) EventType() string { return "client-notification" }

// NotificationPushed carries a persisted account notification verbatim
// from the store. The row is the source of truth; this push only
// announces it.
type NotificationPushed struct {
	Notification portal.Notification `json:"notification"`
}

func (NotificationPushed) EventType() string { return "notification" }

// Envelope is the wire form of an event.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func Encode(ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: ev.EventType(), Data: data}, nil
}

func decodeAs[T Event](data json.RawMessage) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Decode maps an envelope back to its catalog type. Envelope types
// outside the catalog are rejected here, in one place.
func Decode(env Envelope) (Event, error) {
	switch env.Type {
	case "file-uploaded":
		return decodeAs[FileUploaded](env.Data)
	case "file-deleted":
		return decodeAs[FileDeleted](env.Data)
	case "file-comment-added":
		return decodeAs[FileCommentAdded](env.Data)
	case "invoice-created":
		return decodeAs[InvoiceCreated](env.Data)
	case "invoice-deleted":
		return decodeAs[InvoiceDeleted](env.Data)
	case "invoice-paid":
		return decodeAs[InvoicePaid](env.Data)
	case "task-created":
		return decodeAs[TaskCreated](env.Data)
	case "task-status-updated":
		return decodeAs[TaskStatusUpdated](env.Data)
	case "task-deleted":
		return decodeAs[TaskDeleted](env.Data)
	case "new-message":
		return decodeAs[NewMessage](env.Data)
	case "client-notification":
		return decodeAs[ClientNotification](env.Data)
	case "notification":
		return decodeAs[NotificationPushed](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

// ContainerIDOf returns the container an event belongs to, or 0 for
// account-scoped events.
func ContainerIDOf(ev Event) int {
	switch ev := ev.(type) {
	case FileUploaded:
		return ev.ContainerID
	case FileDeleted:
		return ev.ContainerID
	case FileCommentAdded:
		return ev.ContainerID
	case InvoiceCreated:
		return ev.ContainerID
	case InvoiceDeleted:
		return ev.ContainerID
	case InvoicePaid:
		return ev.ContainerID
	case TaskCreated:
		return ev.ContainerID
	case TaskStatusUpdated:
		return ev.ContainerID
	case TaskDeleted:
		return ev.ContainerID
	case NewMessage:
		return ev.Message.ContainerID
	case ClientNotification:
		return ev.ContainerID
	default:
		return 0
	}
}
