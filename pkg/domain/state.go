package domain

import (
	"maps"

	"github.com/mohae/deepcopy"
)

// State is the opaque dialog state exchanged with the runtime.
// The client only resets Stack and reads or writes Variables; Storage is carried as-is.
type State struct {
	Stack     []map[string]any `json:"stack"`
	Storage   map[string]any   `json:"storage"`
	Variables map[string]any   `json:"variables"`
}

// NewState creates an empty state with the given variables.
func NewState(variables map[string]any) *State {
	vars := make(map[string]any, len(variables))
	maps.Copy(vars, variables)
	return &State{
		Stack:     []map[string]any{},
		Storage:   map[string]any{},
		Variables: vars,
	}
}

// Clone returns a deep copy of s. Mutating the copy never affects s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out, _ := deepcopy.Copy(*s).(State)
	if out.Stack == nil {
		out.Stack = []map[string]any{}
	}
	if out.Storage == nil {
		out.Storage = map[string]any{}
	}
	if out.Variables == nil {
		out.Variables = map[string]any{}
	}
	return &out
}

// ResetStack empties the dialog stack so the next turn starts the flow from the top.
func (s *State) ResetStack() {
	s.Stack = []map[string]any{}
}

// MergeVariables overlays vars onto the state's variables.
func (s *State) MergeVariables(vars map[string]any) {
	if len(vars) == 0 {
		return
	}
	if s.Variables == nil {
		s.Variables = make(map[string]any, len(vars))
	}
	maps.Copy(s.Variables, deepcopy.Copy(vars).(map[string]any))
}
