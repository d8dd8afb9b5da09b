package model

import "time"

// Session is the locally persisted result of the last successful
// authentication. It is stored verbatim (JSON) under the "user" key of the
// secure store and restored on the next launch.
type Session struct {
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
