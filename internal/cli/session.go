package cli

import (
	"errors"
	"strings"

	"wealthwars/internal/localstate"
)

const sessionFile = "session.json"

// Session is the locally remembered identity sent as X-Player-ID.
type Session struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

func SaveSession(s Session) error {
	return localstate.WriteJSON(sessionFile, s)
}

func LoadSession() (Session, error) {
	var s Session
	ok, err := localstate.ReadJSON(sessionFile, &s)
	if err != nil {
		return Session{}, err
	}
	if !ok || strings.TrimSpace(s.PlayerID) == "" {
		return Session{}, errors.New("no player id found in session")
	}
	return s, nil
}

func ClearSession() error {
	return localstate.Remove(sessionFile)
}
