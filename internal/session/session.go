// Package session holds the per-conversation pipeline state: the working
// wordlist, the dataset snapshots produced by each pipeline stage, and a
// bounded chat history. Sessions live in memory only and are owned by a
// Store that serializes access per session.
package session

import (
	"time"
)

// Snapshot source markers for raw data.
const (
	SourceUpload  = "upload"
	SourceHarvest = "harvest"
)

// Chat roles recorded in a session's history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Snapshot is one materialized dataset stage. Text is the full CSV payload;
// Rows and Cols are cached dimensions so prompt building does not reparse.
type Snapshot struct {
	Text string
	Rows int
	Cols int
}

// Empty reports whether the snapshot holds no data.
func (s Snapshot) Empty() bool { return s.Text == "" }

// Turn is a single chat exchange entry.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// Session is the state of one conversation. Fields are only read or written
// through Store.Update and Store.View, which hold the per-session lock.
type Session struct {
	ID string

	Wordlist []string

	Raw        Snapshot
	RawSource  string // SourceUpload or SourceHarvest
	Normalized Snapshot
	Matrix     Snapshot
	Clustered  Snapshot

	MatrixLanguages int
	MatrixConcepts  int

	History    []Turn
	LastResult map[string]any

	createdAt time.Time
	touchedAt time.Time
}

// ActiveSnapshot returns the most processed dataset available, preferring
// clustered over matrix over normalized over raw.
func (s *Session) ActiveSnapshot() Snapshot {
	switch {
	case !s.Clustered.Empty():
		return s.Clustered
	case !s.Matrix.Empty():
		return s.Matrix
	case !s.Normalized.Empty():
		return s.Normalized
	default:
		return s.Raw
	}
}

// ActiveName names the stage ActiveSnapshot would return, or "" when the
// session has no data at all.
func (s *Session) ActiveName() string {
	switch {
	case !s.Clustered.Empty():
		return "clustered"
	case !s.Matrix.Empty():
		return "matrix"
	case !s.Normalized.Empty():
		return "normalized"
	case !s.Raw.Empty():
		return "raw"
	default:
		return ""
	}
}

// HasData reports whether any dataset stage is populated.
func (s *Session) HasData() bool { return !s.ActiveSnapshot().Empty() }

// SetRaw replaces the raw snapshot and invalidates every derived stage.
// Derived stages describe the previous raw data and would be stale.
func (s *Session) SetRaw(snap Snapshot, source string) {
	s.Raw = snap
	s.RawSource = source
	s.Normalized = Snapshot{}
	s.Matrix = Snapshot{}
	s.Clustered = Snapshot{}
	s.MatrixLanguages = 0
	s.MatrixConcepts = 0
}

// AppendTurn records a chat exchange entry.
func (s *Session) AppendTurn(role, content string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, At: at})
}

// RecentHistory returns up to n most recent turns, oldest first.
func (s *Session) RecentHistory(n int) []Turn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
