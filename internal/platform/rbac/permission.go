package rbac

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Resource is a category of protected data or functionality.
type Resource string

const (
	ResourcePatients      Resource = "patients"
	ResourceVisits        Resource = "visits"
	ResourceDiagnoses     Resource = "diagnoses"
	ResourceTreatments    Resource = "treatments"
	ResourceVitals        Resource = "vitals"
	ResourceLabRequests   Resource = "lab-requests"
	ResourceLabResults    Resource = "lab-results"
	ResourcePrescriptions Resource = "prescriptions"
	ResourceUsers         Resource = "users"
	ResourceAuditLogs     Resource = "audit-logs"
	ResourceSettings      Resource = "settings"
	ResourceOwnProfile    Resource = "own-profile"
	ResourceOwnRecords    Resource = "own-records"
)

var allResources = []Resource{
	ResourcePatients,
	ResourceVisits,
	ResourceDiagnoses,
	ResourceTreatments,
	ResourceVitals,
	ResourceLabRequests,
	ResourceLabResults,
	ResourcePrescriptions,
	ResourceUsers,
	ResourceAuditLogs,
	ResourceSettings,
	ResourceOwnProfile,
	ResourceOwnRecords,
}

// Resources returns every known resource in a stable order.
func Resources() []Resource {
	out := make([]Resource, len(allResources))
	copy(out, allResources)
	return out
}

// Valid reports whether r belongs to the closed resource set.
func (r Resource) Valid() bool {
	for _, known := range allResources {
		if r == known {
			return true
		}
	}
	return false
}

// Action is one of the CRUD verbs.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// Actions returns the four CRUD actions in canonical order.
func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

func (a Action) bit() ActionSet {
	switch a {
	case ActionCreate:
		return 1 << 0
	case ActionRead:
		return 1 << 1
	case ActionUpdate:
		return 1 << 2
	case ActionDelete:
		return 1 << 3
	}
	return 0
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool { return a.bit() != 0 }

// ActionSet is a set of actions. The zero value is the empty set.
type ActionSet uint8

// None is the empty action set.
const None ActionSet = 0

// Allow builds a set from the given actions. Unknown actions are ignored.
func Allow(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= a.bit()
	}
	return s
}

// CRUD is the full action set.
var CRUD = Allow(ActionCreate, ActionRead, ActionUpdate, ActionDelete)

// Has reports whether a is a member of the set. Unknown actions are never
// members.
func (s ActionSet) Has(a Action) bool {
	b := a.bit()
	return b != 0 && s&b == b
}

// Empty reports whether the set grants nothing.
func (s ActionSet) Empty() bool { return s&CRUD == 0 }

// Len returns the number of actions in the set.
func (s ActionSet) Len() int {
	n := 0
	for _, a := range allActions {
		if s.Has(a) {
			n++
		}
	}
	return n
}

// Slice lists the members in canonical order. It never returns nil.
func (s ActionSet) Slice() []Action {
	out := make([]Action, 0, 4)
	for _, a := range allActions {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s ActionSet) String() string {
	names := make([]string, 0, 4)
	for _, a := range s.Slice() {
		names = append(names, string(a))
	}
	return "{" + strings.Join(names, ",") + "}"
}

// MarshalJSON renders the set as a JSON array of action names.
func (s ActionSet) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, a := range s.Slice() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(string(a))
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}

// UnmarshalJSON parses a JSON array of action names. Unknown names are an
// error.
func (s *ActionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("rbac: action set: %w", err)
	}
	var out ActionSet
	for _, name := range names {
		a := Action(name)
		if !a.Valid() {
			return fmt.Errorf("rbac: unknown action %q", name)
		}
		out |= a.bit()
	}
	*s = out
	return nil
}
