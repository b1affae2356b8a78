package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryEntry records one engine hand-off to the host registry.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	At      time.Time
	Kind    string
	Handle  string
	Hook    string
	Prio    int
	Action  string // register | activate | replace | inline
	Source  string
	Version string
	OK      bool
	Error   string
}
