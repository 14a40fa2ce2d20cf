package hostapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigvault/sigvault/policy"
)

const baseURL = "https://host.example/rest/api"

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(Config{BaseURL: baseURL, Token: "t0ken"})
	httpmock.ActivateNonDefault(c.rest.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestGroups(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/users/u1/groups",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer t0ken", req.Header.Get("Authorization"))
			return httpmock.NewJsonResponse(
				http.StatusOK, []map[string]string{
					{"id": "g1", "name": "Legal"},
					{"id": ""},
					{"id": "g2"},
				},
			)
		},
	)

	groups, err := c.Groups(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, groups)
}

func TestGroupsSurfacesErrors(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/users/u1/groups",
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"),
	)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/users/u2/groups",
		httpmock.NewErrorResponder(errors.New("connection reset")),
	)

	_, err := c.Groups(context.Background(), "u1")
	var statusErr StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)

	_, err = c.Groups(context.Background(), "u2")
	assert.Error(t, err)
}

func TestPagePermission(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/pages/open/restrictions/read",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"restrictedTo": []any{}}),
	)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/pages/closed/restrictions/update",
		httpmock.NewJsonResponderOrPanic(
			http.StatusOK, map[string]any{
				"restrictedTo":       []map[string]string{{"accountId": "editor"}},
				"restrictedToGroups": []map[string]string{{"id": "writers"}},
			},
		),
	)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/users/writer/groups",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []map[string]string{{"id": "writers"}}),
	)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/users/reader/groups",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, []map[string]string{{"id": "readers"}}),
	)

	tests := []struct {
		name    string
		page    string
		account string
		op      policy.Operation
		want    bool
	}{
		{"no restrictions", "open", "anyone", policy.OperationView, true},
		{"listed account", "closed", "editor", policy.OperationEdit, true},
		{"member of restricted group", "closed", "writer", policy.OperationEdit, true},
		{"not listed", "closed", "reader", policy.OperationEdit, false},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				got, err := c.PagePermission(context.Background(), test.page, test.account, test.op)
				require.NoError(t, err)
				assert.Equal(t, test.want, got)
			},
		)
	}
}

func TestPagePermissionErrors(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(
		http.MethodGet, baseURL+"/pages/missing/restrictions/read",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"),
	)
	_, err := c.PagePermission(context.Background(), "missing", "u1", policy.OperationView)
	assert.Error(t, err)

	_, err = c.PagePermission(context.Background(), "missing", "u1", "DELETE")
	assert.Error(t, err)
}

func TestClientImplementsResolver(t *testing.T) {
	var _ policy.Resolver = NewClient(Config{BaseURL: baseURL})
}
