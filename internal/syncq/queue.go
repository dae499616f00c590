package syncq

import "wealthwars/internal/localstate"

// Command is a mutating request that could not reach the server. Attacks
// keep their idempotency key so a replay never resolves twice.
type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	PlayerID       string         `json:"player_id"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

const queueFile = "queue.json"

func Load() ([]Command, error) {
	out := []Command{}
	if _, err := localstate.ReadJSON(queueFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(commands []Command) error {
	return localstate.WriteJSON(queueFile, commands)
}

func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	commands = append(commands, cmd)
	return Save(commands)
}

// Replay sends each queued command through send and keeps the ones that
// fail. It returns how many were sent and what remains.
func Replay(commands []Command, send func(Command) error) (int, []Command, []error) {
	remaining := make([]Command, 0, len(commands))
	var errs []error
	sent := 0
	for _, cmd := range commands {
		if err := send(cmd); err != nil {
			remaining = append(remaining, cmd)
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, remaining, errs
}
