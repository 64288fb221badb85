package dto

import "time"

type SessionRecordResponse struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Contacted  []string   `json:"contacted"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Completion string     `json:"completion,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

type ListSessionsResponse struct {
	Sessions []SessionRecordResponse `json:"sessions"`
}
