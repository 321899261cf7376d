package services

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned when a record looked up by id or key does not exist.
var ErrNotFound = errors.New("record not found")

// FieldErrors collects validation messages per submitted field. Nothing is
// persisted when an operation returns it.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Merge(other map[string][]string) {
	for field, msgs := range other {
		for _, m := range msgs {
			e.Add(field, m)
		}
	}
}

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// errOrNil keeps an empty FieldErrors from turning into a non-nil error.
func (e FieldErrors) errOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
