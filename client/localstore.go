package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// GuestNotice is a transient, guest-facing alert about owner activity.
// These never round-trip through the server; they live only in this
// store, keyed by container, so nothing syncs across devices.
type GuestNotice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ReceivedAt  string `json:"received_at"`
	Read        bool   `json:"read"`
}

type GuestNoticeStore struct {
	File string

	mu          sync.Mutex
	byContainer map[string][]GuestNotice
}

func NewGuestNoticeStore() (*GuestNoticeStore, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(configDir, "ClientHub", "guest_notices.json")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return OpenGuestNoticeStore(path)
}

func OpenGuestNoticeStore(path string) (*GuestNoticeStore, error) {
	store := &GuestNoticeStore{
		File:        path,
		byContainer: make(map[string][]GuestNotice),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// No file yet.
		return store, nil
	}
	if err := json.Unmarshal(data, &store.byContainer); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *GuestNoticeStore) save() error {
	data, err := json.MarshalIndent(s.byContainer, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.File, data, 0600)
}

func containerKey(containerID int) string {
	return strconv.Itoa(containerID)
}

func (s *GuestNoticeStore) Add(containerID int, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := containerKey(containerID)
	s.byContainer[key] = append(s.byContainer[key], GuestNotice{
		Title:       title,
		Description: description,
		ReceivedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	return s.save()
}

func (s *GuestNoticeStore) List(containerID int) []GuestNotice {
	s.mu.Lock()
	defer s.mu.Unlock()

	notices := s.byContainer[containerKey(containerID)]
	out := make([]GuestNotice, len(notices))
	copy(out, notices)
	return out
}

func (s *GuestNoticeStore) UnreadCount(containerID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.byContainer[containerKey(containerID)] {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *GuestNoticeStore) MarkAllRead(containerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notices := s.byContainer[containerKey(containerID)]
	for i := range notices {
		notices[i].Read = true
	}
	return s.save()
}

func (s *GuestNoticeStore) Clear(containerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byContainer, containerKey(containerID))
	return s.save()
}
