package internal

import "time"

// DetectionRecord is one resolved message as kept in the detection log.
type DetectionRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Selected  string    `json:"selected"`
	Detected  string    `json:"detected"`
	Method    string    `json:"method"`
	Service   string    `json:"service"`
	Fallback  bool      `json:"fallback"`
	Timestamp time.Time `json:"timestamp"`
}
