// Package result carries the uniform success/failure envelope returned by the
// profile actions. A failed Result never carries data and a successful one
// never carries an error message.
package result

import (
	"encoding/json"
	"net/http"
)

// Kind classifies a failure. It is not serialized; transports use it to pick
// a status code while clients only ever see the generic message.
type Kind int

const (
	KindNone Kind = iota
	KindUnauthorized
	KindNotFound
	KindInvalid
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindUpstream:
		return "upstream"
	}
	return "none"
}

type Result[T any] struct {
	Success bool
	Data    T
	Error   string
	Kind    Kind
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{Success: false, Error: message, Kind: kind}
}

func (r Result[T]) HTTPStatus() int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// MarshalJSON emits {"success":true,"data":...} or {"success":false,"error":...}.
// Empty collections stay in the payload as [].
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Data    T    `json:"data"`
		}{true, r.Data})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{false, r.Error})
}
