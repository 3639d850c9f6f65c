package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrymomot/dirbridge/pkg/executor"
)

// SCIM core user schema URN.
const UserSchema = "urn:ietf:params:scim:schemas:core:2.0:User"

type Name struct {
	Formatted  string `json:"formatted,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

type Email struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// User is the minimal user resource. Attributes the pipeline does not use
// are not modeled.
type User struct {
	Schemas     []string `json:"schemas,omitempty"`
	ID          string   `json:"id,omitempty"`
	ExternalID  string   `json:"externalId,omitempty"`
	UserName    string   `json:"userName"`
	Name        *Name    `json:"name,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Emails      []Email  `json:"emails,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

// UserList is one page of users.
type UserList struct {
	TotalResults int    `json:"totalResults"`
	StartIndex   int    `json:"startIndex"`
	ItemsPerPage int    `json:"itemsPerPage"`
	Resources    []User `json:"Resources"`
}

// ListOptions selects a page of users. StartIndex is 1-based; zero values
// leave paging to the server.
type ListOptions struct {
	Filter     Filter
	StartIndex int
	Count      int
}

func (o ListOptions) query() (string, error) {
	if err := o.Filter.Err(); err != nil {
		return "", err
	}
	if o.StartIndex < 0 || o.Count < 0 {
		return "", fmt.Errorf("%w: startIndex and count must not be negative", ErrInvalidPage)
	}
	q := url.Values{}
	if f := o.Filter.String(); f != "" {
		q.Set("filter", f)
	}
	if o.StartIndex > 0 {
		q.Set("startIndex", strconv.Itoa(o.StartIndex))
	}
	if o.Count > 0 {
		q.Set("count", strconv.Itoa(o.Count))
	}
	return q.Encode(), nil
}

func userPath(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyUserID
	}
	return "Users/" + url.PathEscape(id), nil
}

// CreateUser provisions a user.
func (s *Service) CreateUser(ctx context.Context, tenantID string, u User) (*executor.OperationResponse[User], error) {
	if len(u.Schemas) == 0 {
		u.Schemas = []string{UserSchema}
	}
	return call[User](ctx, s, tenantID, "createUser", http.MethodPost, "Users", u)
}

// GetUser reads a user by id.
func (s *Service) GetUser(ctx context.Context, tenantID, id string) (*executor.OperationResponse[User], error) {
	path, err := userPath(id)
	if err != nil {
		return nil, err
	}
	return call[User](ctx, s, tenantID, "getUser", http.MethodGet, path, nil)
}

// UpdateUser applies a partial update. Only the given attributes change.
func (s *Service) UpdateUser(ctx context.Context, tenantID, id string, changes map[string]any) (*executor.OperationResponse[User], error) {
	path, err := userPath(id)
	if err != nil {
		return nil, err
	}
	return call[User](ctx, s, tenantID, "updateUser", http.MethodPatch, path, changes)
}

// DisableUser deactivates a user without deleting it.
func (s *Service) DisableUser(ctx context.Context, tenantID, id string) (*executor.OperationResponse[User], error) {
	path, err := userPath(id)
	if err != nil {
		return nil, err
	}
	return call[User](ctx, s, tenantID, "disableUser", http.MethodPatch, path, map[string]any{"active": false})
}

// ListUsers returns one page of users matching opts.
func (s *Service) ListUsers(ctx context.Context, tenantID string, opts ListOptions) (*executor.OperationResponse[UserList], error) {
	query, err := opts.query()
	if err != nil {
		return nil, err
	}
	path := "Users"
	if query != "" {
		path += "?" + query
	}
	return call[UserList](ctx, s, tenantID, "listUsers", http.MethodGet, path, nil)
}
