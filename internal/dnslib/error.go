package dnslib

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// ErrorKind classifies why a record type produced no rows.
type ErrorKind uint8

const (
	// KindNone means the query succeeded.
	KindNone ErrorKind = iota
	// KindNoAnswer means the name exists but holds no records of the type.
	KindNoAnswer
	// KindNameNotFound means the resolver answered NXDOMAIN.
	KindNameNotFound
	// KindTimeout means no server answered in time.
	KindTimeout
	// KindOther covers refused queries, malformed replies and transport failures.
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNoAnswer:
		return "no_answer"
	case KindNameNotFound:
		return "nxdomain"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// Empty reports whether the kind describes an authoritative absence of data
// rather than a failure to ask.
func (k ErrorKind) Empty() bool {
	return k == KindNoAnswer || k == KindNameNotFound
}

// Sentinel errors matched by QueryError.Is.
var (
	ErrNoAnswer     = errors.New("no answer for record type")
	ErrNameNotFound = errors.New("domain name does not exist")
	ErrTimeout      = errors.New("query timed out")
)

// QueryError is returned by resolvers for a failed lookup of one name and type.
type QueryError struct {
	Name string
	Type string
	Kind ErrorKind
	Err  error
}

// NewQueryError wraps err for the lookup of name/qtype, classifying it when kind is KindNone.
func NewQueryError(name string, qtype uint16, kind ErrorKind, err error) *QueryError {
	if kind == KindNone {
		kind = Classify(err)
	}
	return &QueryError{Name: name, Type: typeName(qtype), Kind: kind, Err: err}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Name, e.Type, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is lets errors.Is match a QueryError against the sentinel for its kind.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrNoAnswer:
		return e.Kind == KindNoAnswer
	case ErrNameNotFound:
		return e.Kind == KindNameNotFound
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// Classify maps an arbitrary resolver error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	switch {
	case errors.Is(err, ErrNoAnswer):
		return KindNoAnswer
	case errors.Is(err, ErrNameNotFound):
		return KindNameNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindOther
}
