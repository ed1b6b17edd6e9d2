package models

// MachineState is a state-machine state with its entry actions.
type MachineState struct {
	ID        string   `json:"id"`
	StateName string   `json:"stateName"`
	Actions   []string `json:"actions"`
	Bounds    *Bounds  `json:"bounds,omitempty"`
}

// MachineTransition is a triggered edge between two states.
type MachineTransition struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Trigger string `json:"trigger,omitempty"`
	Guard   string `json:"guard,omitempty"`
	Label   string `json:"label,omitempty"`
}

// StateMachine is a complete state-machine diagram.
type StateMachine struct {
	SystemName     string              `json:"systemName"`
	HasInitialNode bool                `json:"hasInitialNode"`
	States         []MachineState      `json:"states"`
	Transitions    []MachineTransition `json:"transitions"`
}
