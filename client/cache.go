package client

import (
	"context"
	"sync"

	"clienthub/portal"
	"clienthub/realtime"
)

// ContainerCache is one participant's local copy of a container's
// resources. Events merge into it with ID-keyed idempotent rules;
// Refresh replaces it wholesale from the gateway and is the only
// guard against missed events, so it runs on every (re)connect.
type ContainerCache struct {
	mu          sync.Mutex
	containerID int
	files       []portal.File    // newest first
	invoices    []portal.Invoice // newest first
	tasks       []portal.Task    // oldest first
	messages    []portal.Message // oldest first
}

func NewContainerCache(containerID int) *ContainerCache {
	return &ContainerCache{containerID: containerID}
}

// Refresh pulls the authoritative lists and swaps them in. On any
// fetch error nothing is replaced: the caller surfaces a load error
// rather than working from a partial cache.
func (c *ContainerCache) Refresh(ctx context.Context, gw Gateway) error {
	files, err := gw.Files(ctx)
	if err != nil {
		return err
	}
	invoices, err := gw.Invoices(ctx)
	if err != nil {
		return err
	}
	tasks, err := gw.Tasks(ctx)
	if err != nil {
		return err
	}
	messages, err := gw.Messages(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.files = files
	c.invoices = invoices
	c.tasks = tasks
	c.messages = messages
	c.mu.Unlock()
	return nil
}

// Apply merges one event. Duplicate and out-of-order deliveries are
// expected: creates for an ID already present and deletes for an ID
// never seen are both no-ops.
func (c *ContainerCache) Apply(ev realtime.Event) {
	if containerID := realtime.ContainerIDOf(ev); containerID != 0 && containerID != c.containerID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := ev.(type) {
	case realtime.FileUploaded:
		for _, f := range c.files {
			if f.ID == ev.File.ID {
				return
			}
		}
		c.files = append([]portal.File{ev.File}, c.files...)

	case realtime.FileDeleted:
		for i, f := range c.files {
			if f.ID == ev.FileID {
				c.files = append(c.files[:i], c.files[i+1:]...)
				return
			}
		}

	case realtime.FileCommentAdded:
		for i := range c.files {
			if c.files[i].ID != ev.FileID {
				continue
			}
			for _, existing := range c.files[i].Comments {
				if existing.ID == ev.Comment.ID {
					return
				}
			}
			c.files[i].Comments = append(c.files[i].Comments, ev.Comment)
			return
		}

	case realtime.InvoiceCreated:
		for _, inv := range c.invoices {
			if inv.ID == ev.Invoice.ID {
				return
			}
		}
		c.invoices = append([]portal.Invoice{ev.Invoice}, c.invoices...)

	case realtime.InvoiceDeleted:
		for i, inv := range c.invoices {
			if inv.ID == ev.InvoiceID {
				c.invoices = append(c.invoices[:i], c.invoices[i+1:]...)
				return
			}
		}

	case realtime.InvoicePaid:
		// Announcement only; the invoice record converges on the
		// next refresh.

	case realtime.TaskCreated:
		for _, t := range c.tasks {
			if t.ID == ev.Task.ID {
				return
			}
		}
		c.tasks = append(c.tasks, ev.Task)

	case realtime.TaskStatusUpdated:
		for i, t := range c.tasks {
			if t.ID == ev.Task.ID {
				c.tasks[i] = ev.Task
				return
			}
		}

	case realtime.TaskDeleted:
		for i, t := range c.tasks {
			if t.ID == ev.TaskID {
				c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
				return
			}
		}

	case realtime.NewMessage:
		for _, m := range c.messages {
			if m.ID == ev.Message.ID {
				return
			}
		}
		c.messages = append(c.messages, ev.Message)
	}
}

func (c *ContainerCache) Files() []portal.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]portal.File, len(c.files))
	copy(out, c.files)
	return out
}

func (c *ContainerCache) Invoices() []portal.Invoice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]portal.Invoice, len(c.invoices))
	copy(out, c.invoices)
	return out
}

func (c *ContainerCache) Tasks() []portal.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]portal.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

func (c *ContainerCache) Messages() []portal.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]portal.Message, len(c.messages))
	copy(out, c.messages)
	return out
}
