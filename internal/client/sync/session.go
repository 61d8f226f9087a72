package sync

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/smarttodo/sync/internal/client/store"
)

// Session is the device's authenticated state. It is persisted in the
// local store so the CLI stays logged in across invocations.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
}

func saveSession(st *store.Store, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return st.SaveSession(string(raw))
}

func loadSession(st *store.Store) (*Session, error) {
	raw, err := st.LoadSession()
	if err != nil || raw == "" {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		// Unreadable session data is treated as logged out.
		return nil, st.ClearSession()
	}
	return &s, nil
}
