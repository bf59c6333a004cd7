// Package catalog is a small client for the product and profile REST API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("catalog: not found")

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("catalog: %s: %s", e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Product is a listing with denormalized owner fields.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state"`
	ImageURL    string `json:"image_url"`
	OwnerID     string `json:"owner_id"`
	OwnerEmail  string `json:"owner_email"`
	OwnerName   string `json:"owner_name"`
}

// Profile is the public profile of a user.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Location  string `json:"location"`
}

// User is the record returned by the email lookup.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// PreferredName is the first non-empty of full name, name and display name.
func (u *User) PreferredName() string {
	for _, n := range []string{u.FullName, u.Name, u.DisplayName} {
		if strings.TrimSpace(n) != "" {
			return n
		}
	}
	return ""
}

// Client talks to the catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }
func WithLimiter(l *rate.Limiter) Option   { return func(c *Client) { c.limiter = l } }
func WithLogger(l *zap.Logger) Option      { return func(c *Client) { c.logger = l } }

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5), // 5 requests per second
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("catalog rate limit: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("catalog request failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Product fetches GET /products/{id}.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var body struct {
		Product *Product `json:"product"`
	}
	if err := c.get(ctx, "/products/"+url.PathEscape(id), nil, &body); err != nil {
		return nil, err
	}
	if body.Product == nil {
		return nil, ErrNotFound
	}
	return body.Product, nil
}

// Profile fetches GET /users/{id}/profile.
func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UserProducts fetches GET /users/{id}/products, optionally filtered by state.
func (c *Client) UserProducts(ctx context.Context, userID, state string) ([]Product, error) {
	var q url.Values
	if state != "" {
		q = url.Values{"state": {state}}
	}
	var products []Product
	if err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/products", q, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FindUser fetches GET /users/find?email=...
func (c *Client) FindUser(ctx context.Context, email string) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/find", url.Values{"email": {email}}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// OwnerEmail returns the email of the product owner, taken from the product
// or, when the listing lacks it, from the owner's profile.
func (c *Client) OwnerEmail(ctx context.Context, p *Product) (string, error) {
	if p.OwnerEmail != "" {
		return p.OwnerEmail, nil
	}
	if p.OwnerID == "" {
		return "", fmt.Errorf("product %s has no owner", p.ID)
	}
	prof, err := c.Profile(ctx, p.OwnerID)
	if err != nil {
		return "", fmt.Errorf("owner profile: %w", err)
	}
	if prof.Email == "" {
		return "", fmt.Errorf("owner %s has no email", p.OwnerID)
	}
	return prof.Email, nil
}
