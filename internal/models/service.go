package models

// Scope represents whether a unit is managed by the per-user service manager
// instance or the system-wide one.
type Scope string

const (
	ScopeSystem Scope = "system"
	ScopeUser   Scope = "user"
)

// Valid reports whether the scope is one of the two supported instances.
func (s Scope) Valid() bool {
	return s == ScopeSystem || s == ScopeUser
}

// Action is a service control verb accepted by the action endpoint.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// Valid reports whether the action is one of the supported verbs.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionStop, ActionRestart:
		return true
	}
	return false
}

// ServiceSpec identifies one configured unit.
type ServiceSpec struct {
	Scope Scope  `json:"scope"`
	Name  string `json:"name"`
}

// String renders the spec in the compact scope:name configuration form.
func (s ServiceSpec) String() string {
	return string(s.Scope) + ":" + s.Name
}

// ServiceStatus is a point-in-time status snapshot for one unit.
type ServiceStatus struct {
	Scope  Scope  `json:"scope"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusUnknown is reported when a status query fails without output.
const StatusUnknown = "unknown"
