// Package action extracts action directives from model replies and executes
// them against the entity store, one isolated result per directive.
package action

import (
	"encoding/json"
)

// Type is the token inside an [ACTION:<TYPE>] marker. Parsed tokens are kept
// verbatim, so a Type may be unknown.
type Type string

const (
	TypeCreateTask    Type = "CREATE_TASK"
	TypeCreateProject Type = "CREATE_PROJECT"
	TypeCreateNote    Type = "CREATE_NOTE"
	TypeCreateScrap   Type = "CREATE_SCRAP"
	TypeUpdateTask    Type = "UPDATE_TASK"
	TypeConvertScrap  Type = "CONVERT_SCRAP"
)

// KnownTypes lists the supported directive types in grammar order.
var KnownTypes = []Type{
	TypeCreateTask,
	TypeCreateProject,
	TypeCreateNote,
	TypeCreateScrap,
	TypeUpdateTask,
	TypeConvertScrap,
}

// Known reports whether t is a supported directive type.
func (t Type) Known() bool {
	switch t {
	case TypeCreateTask, TypeCreateProject, TypeCreateNote,
		TypeCreateScrap, TypeUpdateTask, TypeConvertScrap:
		return true
	}
	return false
}

// Directive is one parsed, not yet validated instruction. Data always holds
// a JSON object.
type Directive struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Result is the outcome of dispatching one directive.
type Result struct {
	Type    Type   `json:"type"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Failure is a directive-local error with a user-facing message.
type Failure struct {
	Msg string
	Err error
}

func (f *Failure) Error() string { return f.Msg }
func (f *Failure) Unwrap() error { return f.Err }

func fail(sentinel error, msg string) error {
	return &Failure{Msg: msg, Err: sentinel}
}
