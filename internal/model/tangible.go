package model

// TangibleMode selects what placing a physical token does.
type TangibleMode string

const (
	// TangibleFilter applies a label/type filter while the token is present.
	TangibleFilter TangibleMode = "filter"
	// TangibleState switches to a timeline state.
	TangibleState TangibleMode = "state"
	// TangibleStateDial steps through states by rotating the token.
	TangibleStateDial TangibleMode = "stateDial"
)

// CombineMode joins filter predicates.
type CombineMode string

const (
	CombineOR  CombineMode = "OR"
	CombineAND CombineMode = "AND"
)

// TangibleConfig binds a physical token to a filter or a timeline state.
type TangibleConfig struct {
	ID          string       `json:"id" validate:"required"`
	Name        string       `json:"name" validate:"required"`
	HardwareID  string       `json:"hardwareId,omitempty"`
	Mode        TangibleMode `json:"mode" validate:"required,oneof=filter state stateDial"`
	Description string       `json:"description,omitempty"`

	// Filter mode.
	FilterLabels        []string    `json:"filterLabels,omitempty"`
	FilterActorTypes    []string    `json:"filterActorTypes,omitempty"`
	FilterRelationTypes []string    `json:"filterRelationTypes,omitempty"`
	FilterCombineMode   CombineMode `json:"filterCombineMode,omitempty" validate:"omitempty,oneof=OR AND"`

	// State and stateDial modes.
	StateID string `json:"stateId,omitempty"`
}

// IsStateBound reports whether the tangible targets a timeline state.
func (t TangibleConfig) IsStateBound() bool {
	return t.Mode == TangibleState || t.Mode == TangibleStateDial
}

// BoundTo reports whether the tangible is state-bound to stateID.
func (t TangibleConfig) BoundTo(stateID string) bool {
	return t.IsStateBound() && t.StateID == stateID
}

// HasFilter reports whether at least one filter predicate is present.
func (t TangibleConfig) HasFilter() bool {
	return len(t.FilterLabels) > 0 || len(t.FilterActorTypes) > 0 || len(t.FilterRelationTypes) > 0
}

// WithoutLabel returns the tangible with labelID removed from its filter
// predicate. Only filter-mode tangibles are rewritten.
func (t TangibleConfig) WithoutLabel(labelID string) (TangibleConfig, bool) {
	if t.Mode != TangibleFilter {
		return t, false
	}
	found := false
	for _, l := range t.FilterLabels {
		if l == labelID {
			found = true
			break
		}
	}
	if !found {
		return t, false
	}
	kept := make([]string, 0, len(t.FilterLabels)-1)
	for _, l := range t.FilterLabels {
		if l != labelID {
			kept = append(kept, l)
		}
	}
	t.FilterLabels = kept
	return t, true
}

// CloneTangibles copies a tangible list including filter slices.
func CloneTangibles(in []TangibleConfig) []TangibleConfig {
	if in == nil {
		return nil
	}
	out := make([]TangibleConfig, len(in))
	for i, t := range in {
		t.FilterLabels = append([]string(nil), t.FilterLabels...)
		t.FilterActorTypes = append([]string(nil), t.FilterActorTypes...)
		t.FilterRelationTypes = append([]string(nil), t.FilterRelationTypes...)
		out[i] = t
	}
	return out
}
