package graphql

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drborges/apollo-react-spike/internal/models"
)

func graphQLServer(t *testing.T, status int, body string) (*httptest.Server, *Request) {
	t.Helper()
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestFetchUsers(t *testing.T) {
	srv, got := graphQLServer(t, http.StatusOK, `{"data":{"users":[
		{"id":1,"name":"Ann","email":"ann@example.com","age":31,"blocked":true},
		{"id":2,"name":"Bo","email":"bo@example.com","age":27}
	]}}`)

	users, err := NewHTTPClient(srv.URL, time.Second).FetchUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "FetchUsers", got.OperationName)
	assert.Equal(t, FetchUsersQuery, got.Query)
	assert.Empty(t, got.Variables)
	assert.Equal(t, []models.User{
		{ID: 1, Name: "Ann", Email: "ann@example.com", Age: 31},
		{ID: 2, Name: "Bo", Email: "bo@example.com", Age: 27},
	}, users)
}

func TestFetchUsersGraphQLErrors(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusOK, `{"data":null,"errors":[{"message":"boom"}]}`)

	_, err := NewHTTPClient(srv.URL, time.Second).FetchUsers(context.Background())
	require.Error(t, err)

	var gqlErrs Errors
	require.True(t, errors.As(err, &gqlErrs))
	assert.Equal(t, "boom", gqlErrs[0].Message)
	assert.Equal(t, "graphql: boom", err.Error())
}

func TestFetchUsersStatusError(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusBadGateway, "upstream down")

	_, err := NewHTTPClient(srv.URL, time.Second).FetchUsers(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream down", statusErr.Body)
}

func TestFetchUsersMissingData(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusOK, `{"data":null}`)

	_, err := NewHTTPClient(srv.URL, time.Second).FetchUsers(context.Background())
	assert.ErrorContains(t, err, "no data")
}

func TestFetchUsersContextCancelled(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusOK, `{"data":{"users":[]}}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(srv.URL, time.Second).FetchUsers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorsMessage(t *testing.T) {
	errs := Errors{{Message: "a"}, {Message: "b"}}
	assert.Equal(t, "graphql: 2 errors: a; b", errs.Error())
}
