package store

import (
	"strings"

	"github.com/damianoneill/ncstore/schema"
)

// Error reports structurally invalid input to a storage operation. Absent data is never an Error.
type Error struct {
	Datastore string
	Path      schema.Path
	Op        string
	Msg       string
	Err       error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	var buf strings.Builder
	buf.WriteString("datastore ")
	buf.WriteString(e.Datastore)
	buf.WriteString(": ")
	buf.WriteString(e.Op)
	if e.Path != "" {
		buf.WriteByte(' ')
		buf.WriteString(string(e.Path))
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
