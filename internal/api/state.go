package api

import (
	"sync"

	"github.com/google/uuid"

	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/track"
)

// Snapshot is what the sync loop last published.
type Snapshot struct {
	Track       *track.Info
	Hash        string
	Phase       lyrics.Phase
	Status      string
	Position    float64
	Offset      float64
	Playing     bool
	CurrentLine int
	Revision    string
}

// State is shared between the sync loop, which writes it, and the HTTP
// handlers, which only read. Readers get copies.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
	doc  lyrics.Document
}

func NewState() *State {
	return &State{snap: Snapshot{CurrentLine: -1}}
}

// Load replaces the published document and stamps a new revision so
// clients can tell a reload from a highlight update.
func (s *State) Load(hash string, doc lyrics.Document) string {
	revision := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc.Clone()
	s.snap.Hash = hash
	s.snap.Revision = revision
	return revision
}

// Refresh republishes doc with its current highlight state under the same
// revision. It does nothing while no document is loaded. The old slice is
// left untouched for readers still holding it.
func (s *State) Refresh(doc lyrics.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return
	}
	s.doc = doc.Clone()
}

// Clear drops the published document, e.g. when the track changes.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = nil
	s.snap.Hash = ""
	s.snap.Revision = ""
	s.snap.CurrentLine = -1
}

// Update applies fn to the snapshot. The document is not reachable from fn.
func (s *State) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revision, hash := s.snap.Revision, s.snap.Hash
	fn(&s.snap)
	s.snap.Revision, s.snap.Hash = revision, hash
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	if snap.Track != nil {
		t := *snap.Track
		snap.Track = &t
	}
	return snap
}

// Document returns the published document and its revision. The slice is
// shared and never modified after publishing; callers must not modify it.
func (s *State) Document() (lyrics.Document, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc, s.snap.Revision
}
