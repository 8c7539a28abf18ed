package backend

import (
	"context"
	"net/http"
	"net/url"
)

// User is the profile returned by /users/me.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Headline string `json:"headline,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// UserUpdate is a partial update of /users/me; empty fields are left untouched.
type UserUpdate struct {
	Name     string `json:"name,omitempty"`
	Headline string `json:"headline,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

type Skill struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Level    string `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
}

type Experience struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Current     bool   `json:"current"`
	Description string `json:"description,omitempty"`
}

type Education struct {
	ID           string `json:"id,omitempty"`
	School       string `json:"school"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"fieldOfStudy,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`
	Grade        string `json:"grade,omitempty"`
}

type Language struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Resource is a REST collection rooted at path, supporting the usual CRUD verbs.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](client *Client, path string) Resource[T] {
	return Resource[T]{client: client, path: path}
}

func (r Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := r.client.Do(ctx, http.MethodGet, r.path, nil, &out)
	return out, err
}

func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodGet, r.itemPath(id), nil, &out)
	return out, err
}

func (r Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodPost, r.path, item, &out)
	return out, err
}

func (r Resource[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodPatch, r.itemPath(id), item, &out)
	return out, err
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (c *Client) Skills() Resource[Skill]           { return NewResource[Skill](c, "/skills") }
func (c *Client) Experience() Resource[Experience] { return NewResource[Experience](c, "/experience") }
func (c *Client) Education() Resource[Education]   { return NewResource[Education](c, "/education") }
func (c *Client) Languages() Resource[Language]    { return NewResource[Language](c, "/languages") }

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.Do(ctx, http.MethodGet, "/users/me", nil, &out)
	return out, err
}

// UpdateMe patches the current user's profile.
func (c *Client) UpdateMe(ctx context.Context, update UserUpdate) (User, error) {
	var out User
	err := c.Do(ctx, http.MethodPatch, "/users/me", update, &out)
	return out, err
}
