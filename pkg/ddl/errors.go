package ddl

import (
	"errors"
	"fmt"

	"dhlx/pkg/ddl/scan"
)

var (
	ErrSyntax            = scan.ErrSyntax
	ErrUnknownCommand    = errors.New("unknown command")
	ErrUnknownFunction   = errors.New("unknown function")
	ErrUnknownType       = errors.New("unknown type")
	ErrUnknownElement    = errors.New("unknown element")
	ErrNoSuchElement     = errors.New("no such element")
	ErrInvalidType       = errors.New("invalid type")
	ErrInvalidConversion = errors.New("invalid conversion")
	ErrInvalidValue      = errors.New("invalid value")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrNoDefaultType     = errors.New("no default type")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrUserError         = errors.New("user error")
	ErrErrorLimit        = errors.New("error limit reached")
	ErrIncludeNotFound   = errors.New("include file not found")
	ErrTypeAlreadyExists = errors.New("type already exists")
	ErrRecursion         = errors.New("function recursion too deep")
)

// SourceError attaches a source position and the offending token to an
// error raised while interpreting a file.
type SourceError struct {
	File  string
	Line  int
	Token string
	Err   error
}

func (e *SourceError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s:%d: near %q: %v", e.File, e.Line, e.Token, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// at wraps err with a position unless it already carries one.
func at(file string, line int, token string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{File: file, Line: line, Token: token, Err: err}
}

// IsFatal reports whether err is a programming-error class condition that
// must abort the run instead of being counted against the error budget.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrInvalidConversion) ||
		errors.Is(err, ErrErrorLimit)
}
