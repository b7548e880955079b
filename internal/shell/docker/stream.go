package docker

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// Daemon Stream Decoding
// =============================================================================

// streamMessage is one JSON message from the daemon's build/push stream.
// The daemon reports failures inside the stream with a 200 response, so
// the stream must be drained and inspected to detect them.
type streamMessage struct {
	Stream      string            `json:"stream"`
	Status      string            `json:"status"`
	ID          string            `json:"id"`
	Error       string            `json:"error"`
	ErrorDetail streamErrorDetail `json:"errorDetail"`
}

type streamErrorDetail struct {
	Message string `json:"message"`
}

func (m streamMessage) errorMessage() string {
	if msg := strings.TrimSpace(m.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(m.ErrorDetail.Message)
}

func (m streamMessage) render() string {
	if m.Stream != "" {
		return strings.TrimSpace(m.Stream)
	}
	if m.Status != "" {
		if id := strings.TrimSpace(m.ID); id != "" {
			return fmt.Sprintf("%s %s", id, strings.TrimSpace(m.Status))
		}
		return strings.TrimSpace(m.Status)
	}
	return ""
}

// drainStream consumes a build/push response stream, forwarding progress
// lines to onLine and returning the first in-stream error.
func drainStream(body io.Reader, onLine func(string)) error {
	decoder := json.NewDecoder(body)
	for {
		var msg streamMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode daemon stream: %w", err)
		}
		if errMsg := msg.errorMessage(); errMsg != "" {
			return fmt.Errorf("%s", errMsg)
		}
		if line := msg.render(); line != "" && onLine != nil {
			onLine(line)
		}
	}
}
