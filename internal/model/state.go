package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"constellation/internal/graph"
)

// State is one node of a document's timeline tree. A state with no parent
// is the root.
type State struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Description   string         `json:"description,omitempty"`
	ParentStateID string         `json:"parentStateId,omitempty"`
	Graph         graph.Snapshot `json:"graph"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// IsRoot reports whether the state has no parent.
func (s *State) IsRoot() bool {
	return s.ParentStateID == ""
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Graph = s.Graph.Clone()
	out.Metadata = graph.CloneMap(s.Metadata)
	return &out
}

var (
	// ErrCorrupted marks stored data that parsed but cannot be used.
	ErrCorrupted = errors.New("document data is corrupted")
	// ErrMalformedStates is returned when serialized timeline states are
	// neither a keyed object nor an array of states.
	ErrMalformedStates = fmt.Errorf("%w: malformed timeline states", ErrCorrupted)
)

// RawStates holds serialized timeline states undecoded. Decoding is
// deferred until the timeline is loaded so graph-shape problems surface
// where the graph is read.
type RawStates []byte

// MarshalJSON emits the raw bytes.
func (r RawStates) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("{}"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps a copy of the raw bytes.
func (r *RawStates) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// Decode parses the states into a map keyed by state id. Both the keyed
// object form and a plain array of states are accepted.
func (r RawStates) Decode() (map[string]*State, error) {
	raw := bytes.TrimSpace(r)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrMalformedStates
	}
	out := make(map[string]*State)
	switch raw[0] {
	case '{':
		var keyed map[string]*State
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStates, err)
		}
		for k, s := range keyed {
			if s == nil {
				return nil, fmt.Errorf("%w: state %q is null", ErrMalformedStates, k)
			}
			if s.ID == "" {
				s.ID = k
			}
			out[s.ID] = s
		}
	case '[':
		var list []*State
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStates, err)
		}
		for i, s := range list {
			if s == nil || s.ID == "" {
				return nil, fmt.Errorf("%w: state %d has no id", ErrMalformedStates, i)
			}
			out[s.ID] = s
		}
	default:
		return nil, ErrMalformedStates
	}
	for _, s := range out {
		s.Graph = s.Graph.Normalize()
	}
	return out, nil
}

// EncodeStates serializes states in keyed object form.
func EncodeStates(states map[string]*State) (RawStates, error) {
	if states == nil {
		states = map[string]*State{}
	}
	data, err := json.Marshal(states)
	if err != nil {
		return nil, fmt.Errorf("encoding states: %w", err)
	}
	return RawStates(data), nil
}

// SerializedTimeline is the persisted form of a document's state tree.
type SerializedTimeline struct {
	States         RawStates `json:"states"`
	CurrentStateID string    `json:"currentStateId"`
	RootStateID    string    `json:"rootStateId"`
}
