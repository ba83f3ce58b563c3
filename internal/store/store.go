// Package store holds the in-memory message history for one open
// conversation. The store is owned by the conversation engine's goroutine;
// the two writer components (reconciler and outbound pipeline) reach it only
// through that goroutine, so no locking happens here.
package store

import (
	"github.com/sergeyvolkov/chatflow/internal/message"
)

type Store struct {
	order []string
	byID  map[string]*message.Message
}

func New() *Store {
	return &Store{
		byID: make(map[string]*message.Message),
	}
}

// Upsert inserts the message if its identifier is absent, otherwise replaces
// the stored record in place, keeping the original insertion position.
// Duplicate deliveries of the same record therefore never produce a second
// entry.
func (s *Store) Upsert(msg *message.Message) {
	if _, ok := s.byID[msg.ID]; !ok {
		s.order = append(s.order, msg.ID)
	}
	s.byID[msg.ID] = msg
}

func (s *Store) Find(id string) (*message.Message, bool) {
	msg, ok := s.byID[id]
	return msg, ok
}

func (s *Store) Remove(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, mid := range s.order {
		if mid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Rekey moves a record to a new identifier while keeping its insertion
// position, used when the backend assigns the final id to an optimistic
// local record.
func (s *Store) Rekey(oldID, newID string) bool {
	msg, ok := s.byID[oldID]
	if !ok {
		return false
	}
	if oldID == newID {
		return true
	}
	delete(s.byID, oldID)
	msg.ID = newID
	s.byID[newID] = msg
	for i, mid := range s.order {
		if mid == oldID {
			s.order[i] = newID
			break
		}
	}
	return true
}

// All returns the messages in insertion order.
func (s *Store) All() []*message.Message {
	out := make([]*message.Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) Len() int {
	return len(s.order)
}

// UpdateStatus applies a status change if the monotonic transition rule
// allows it. Unknown identifiers and backward transitions are no-ops.
func (s *Store) UpdateStatus(id string, status message.Status) bool {
	msg, ok := s.byID[id]
	if !ok {
		return false
	}
	if !msg.Status.CanTransition(status) {
		return false
	}
	msg.Status = status
	return true
}
