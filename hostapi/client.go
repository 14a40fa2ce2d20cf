// Package hostapi is a client for the identity and permission API of the host
// platform. It implements policy.Resolver.
package hostapi

import (
	"context"
	"fmt"
	"time"

	arrays "github.com/adam-hanna/arrayOperations"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"tideland.dev/go/slices"

	"github.com/sigvault/sigvault/policy"
)

// DefaultTimeout is used if no timeout is configured
const DefaultTimeout = 5 * time.Second

// Config configures a Client
type Config struct {
	// BaseURL is the url of the host API, e.g. https://host.example/rest/api
	BaseURL string
	// Token is sent as bearer token if set
	Token string
	// Timeout bounds every request; a timeout is reported as an error
	Timeout time.Duration
	// UserAgent is sent with every request if set
	UserAgent string
}

// Client talks to the host platform REST API
type Client struct {
	rest *resty.Client
}

// StatusError is returned if the host API answers with a non-success status
type StatusError struct {
	Method string
	Path   string
	Status int
}

// Error implements the error interface
func (e StatusError) Error() string {
	return fmt.Sprintf("host api: %s %s returned status %d", e.Method, e.Path, e.Status)
}

type group struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type restrictedAccount struct {
	AccountID string `json:"accountId"`
}

type restrictions struct {
	RestrictedTo       []restrictedAccount `json:"restrictedTo"`
	RestrictedToGroups []group             `json:"restrictedToGroups"`
}

// NewClient creates a new Client
func NewClient(conf Config) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rest := resty.New().
		SetBaseURL(conf.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if conf.Token != "" {
		rest.SetAuthToken(conf.Token)
	}
	if conf.UserAgent != "" {
		rest.SetHeader("User-Agent", conf.UserAgent)
	}
	return &Client{rest: rest}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	res, err := c.rest.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return errors.Wrapf(err, "host api: GET %s failed", path)
	}
	if res.IsError() {
		return StatusError{
			Method: "GET",
			Path:   path,
			Status: res.StatusCode(),
		}
	}
	return nil
}

// Groups returns the ids of all groups accountID is a member of
func (c *Client) Groups(ctx context.Context, accountID string) ([]string, error) {
	var groups []group
	if err := c.get(
		ctx, "/users/{accountId}/groups", map[string]string{"accountId": accountID}, &groups,
	); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.ID != "" {
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}

// PagePermission checks whether accountID holds the permission op on pageID.
// Pages without restrictions for op are open to everyone.
func (c *Client) PagePermission(ctx context.Context, pageID, accountID string, op policy.Operation) (bool, error) {
	operation, err := restrictionOperation(op)
	if err != nil {
		return false, err
	}
	var r restrictions
	if err = c.get(
		ctx, "/pages/{pageId}/restrictions/{operation}", map[string]string{
			"pageId":    pageID,
			"operation": operation,
		}, &r,
	); err != nil {
		return false, err
	}
	if len(r.RestrictedTo) == 0 && len(r.RestrictedToGroups) == 0 {
		return true, nil
	}
	accounts := make([]string, len(r.RestrictedTo))
	for i, a := range r.RestrictedTo {
		accounts[i] = a.AccountID
	}
	if slices.IsMember(accountID, accounts) {
		return true, nil
	}
	if len(r.RestrictedToGroups) == 0 {
		return false, nil
	}
	restrictedGroups := make([]string, len(r.RestrictedToGroups))
	for i, g := range r.RestrictedToGroups {
		restrictedGroups[i] = g.ID
	}
	memberships, err := c.Groups(ctx, accountID)
	if err != nil {
		return false, err
	}
	return len(arrays.Intersect(restrictedGroups, memberships)) > 0, nil
}

func restrictionOperation(op policy.Operation) (string, error) {
	switch op {
	case policy.OperationView:
		return "read", nil
	case policy.OperationEdit:
		return "update", nil
	default:
		return "", errors.Errorf("host api: unknown operation '%s'", op)
	}
}
