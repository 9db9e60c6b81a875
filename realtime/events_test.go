package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"clienthub/portal"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := FileUploaded{
		ContainerID: 7,
		File: portal.File{
			ID:          3,
			ContainerID: 7,
			Name:        "contract.pdf",
			Uploader:    portal.SenderGuest,
			Comments:    []portal.Comment{},
		},
	}

	env, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Type != "file-uploaded" {
		t.Fatalf("expected envelope type file-uploaded, got %q", env.Type)
	}

	decoded, err := Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	uploaded, ok := decoded.(FileUploaded)
	if !ok {
		t.Fatalf("expected FileUploaded, got %T", decoded)
	}
	if uploaded.File.ID != 3 || uploaded.ContainerID != 7 {
		t.Fatalf("payload mangled in round trip: %+v", uploaded)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode(Envelope{Type: "container-renamed", Data: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestContainerIDOf(t *testing.T) {
	if got := ContainerIDOf(NewMessage{Message: portal.Message{ContainerID: 9}}); got != 9 {
		t.Fatalf("expected NewMessage container 9, got %d", got)
	}
	if got := ContainerIDOf(TaskDeleted{ContainerID: 4, TaskID: 1}); got != 4 {
		t.Fatalf("expected TaskDeleted container 4, got %d", got)
	}
	if got := ContainerIDOf(NotificationPushed{}); got != 0 {
		t.Fatalf("expected account-scoped event to report container 0, got %d", got)
	}
}
