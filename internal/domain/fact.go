package domain

import "time"

// Fact is a key/value profile attribute used exclusively to answer
// "about me" questions. Keys are unique; writes are last-writer-wins.
type Fact struct {
	ID        int64
	Key       string
	Value     string
	UpdatedAt time.Time
}
