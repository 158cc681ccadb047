// Package gcode models the parts of the printer host a command extension
// talks to: a registry of named commands, the parameters they receive and the
// console they answer on.
package gcode

import (
	"context"
	"strings"
)

// ReportingSink receives the human readable lines a command produces.
type ReportingSink interface {
	RespondInfo(msg string)
	RespondError(msg string)
}

// Handler runs one command invocation. A returned error fails the command.
type Handler func(ctx context.Context, params Params) error

// CommandRegistry is where extensions register their commands.
type CommandRegistry interface {
	RegisterCommand(name string, handler Handler, desc string) error
}

// Params holds the KEY=value arguments of a command. Keys are upper case.
type Params map[string]string

// Get returns the named parameter or def when it was not given.
func (p Params) Get(name, def string) string {
	if v, ok := p[strings.ToUpper(name)]; ok {
		return v
	}
	return def
}

type ErrorKind int

const (
	KindCommand ErrorKind = iota
	KindServer
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "command"
	}
}

// Error fails a command. Msg is shown to the user verbatim.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
