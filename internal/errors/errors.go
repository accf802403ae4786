// Package errors implements the error type used across the tap. Errors
// carry the operation that produced them, a Kind classifying the failure
// and the location of the call site, so that the top-level command can
// decide how to report them without string matching.
package errors

import (
	"errors"
	"fmt"
	"log"
	"runtime"
)

type Error struct {
	// Op is the operation being performed, named by convention as
	// packageName.FunctionName or packageName.structName.methodName.
	Op       Op
	Kind     Kind
	Err      error
	Location ErrLocation
}

type ErrLocation struct {
	File string
	Line int
}

func (l ErrLocation) String() string {
	return fmt.Sprintf("file: %v, line: %v", l.File, l.Line)
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Unwrapper interface {
	Unwrap() error
}

var (
	_ error     = (*Error)(nil)
	_ Unwrapper = (*Error)(nil)
)

type Op string

type Kind uint16

const (
	KindOther Kind = iota + 1
	KindInternal
	KindTableauAPI
	KindAuth
	KindBadInput
	KindNetwork
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other error"
	case KindInternal:
		return "internal error"
	case KindTableauAPI:
		return "tableau server API error"
	case KindAuth:
		return "authentication error"
	case KindBadInput:
		return "bad input"
	case KindNetwork:
		return "network error"
	case KindSchema:
		return "schema conformance error"
	}
	return "unknown error kind"
}

// E builds an *Error from op and a list of arguments. Arguments can be a
// Kind, an error or a string; anything else is logged and ignored.
func E(op Op, args ...interface{}) error {
	_, file, line, _ := runtime.Caller(1)
	e := &Error{
		Op: op,
		Location: ErrLocation{
			File: file,
			Line: line,
		},
	}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case error:
			e.Err = arg
		case string:
			e.Err = errors.New(arg)
		default:
			log.Printf("errors.E: bad call from %s:%d:%v: %v", file, line, op, args)
		}
	}
	return e
}

func IsKind(want Kind, err error) bool {
	return GetKind(err) == want
}

// GetKind walks the error chain until it finds a non-zero Kind.
func GetKind(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindOther
	}
	if e.Kind != 0 {
		return e.Kind
	}
	return GetKind(e.Err)
}

// Ops collects the operation trace of a wrapped error chain, outermost
// first.
func Ops(err *Error) []Op {
	ops := []Op{err.Op}
	for {
		var embeddedErr *Error
		if !errors.As(err.Err, &embeddedErr) {
			break
		}
		ops = append(ops, embeddedErr.Op)
		err = embeddedErr
	}
	return ops
}

func GetLocation(err error) ErrLocation {
	var prevErr *Error
	for {
		var e *Error
		if !errors.As(err, &e) {
			return prevErr.Location
		}
		prevErr = e
		err = e.Err
	}
}
