package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form handed to the delivery backend, one per recipient.
type Envelope struct {
	ID          string       `json:"id"`
	Kind        Kind         `json:"kind"`
	RecipientID string       `json:"recipient_id"`
	Payload     Notification `json:"payload"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Expand fans a notification out into one envelope per distinct, non-empty
// recipient.
func Expand(n Notification, at time.Time) []Envelope {
	seen := make(map[string]struct{})
	var out []Envelope
	for _, r := range n.Recipients() {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, Envelope{
			ID:          uuid.NewString(),
			Kind:        n.Kind(),
			RecipientID: r,
			Payload:     n,
			CreatedAt:   at.UTC(),
		})
	}
	return out
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
