// Package graphql talks to the remote user service: one-shot queries over HTTP
// and live subscriptions over a websocket.
package graphql

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/drborges/apollo-react-spike/internal/models"
)

// FetchUsersQuery reads the full user list. Local-only fields are resolved client side.
const FetchUsersQuery = `query FetchUsers {
  users {
    id
    name
    email
    age
  }
}`

// UserAddedSubscription streams users as they are created remotely.
const UserAddedSubscription = `subscription onUserAdded {
  userAdded {
    id
    name
    email
    age
  }
}`

// Request is a GraphQL operation as sent over either transport.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is the standard GraphQL result envelope.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors Errors          `json:"errors,omitempty"`
}

// HasData reports whether the response carries a non-null data payload.
func (r Response) HasData() bool {
	trimmed := strings.TrimSpace(string(r.Data))
	return trimmed != "" && trimmed != "null"
}

// Error is a single GraphQL error entry.
type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

// Errors is the list of errors returned alongside (or instead of) data.
type Errors []Error

func (e Errors) Error() string {
	if len(e) == 1 {
		return "graphql: " + e[0].Message
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Message
	}
	return fmt.Sprintf("graphql: %d errors: %s", len(e), strings.Join(msgs, "; "))
}

// StatusError is returned when the HTTP endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql: unexpected status %d: %s", e.StatusCode, e.Body)
}

// wireUser is the remote shape of a user. Anything else on the record, including
// a stray blocked field, is ignored.
type wireUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

func (w wireUser) model() models.User {
	return models.User{ID: w.ID, Name: w.Name, Email: w.Email, Age: w.Age}
}
