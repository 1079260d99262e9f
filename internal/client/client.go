// Package client talks to the book collection API and keeps client-side
// state: the loaded collection and the resolved subscription tier.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/filter"
	"github.com/magabrotheeeer/book-collection/internal/models"
	statsservice "github.com/magabrotheeeer/book-collection/internal/services/stats"
)

// TokenSource returns the bearer token sent with every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// APIError is a non-2xx reply of the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client is a typed REST client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	timeZone   string
	httpClient *http.Client
}

// New creates a Client for the API at baseURL. A nil TokenSource sends
// requests without Authorization.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithTimeZone sends name, an IANA zone such as "Europe/Berlin", with every
// request so day boundaries follow the caller's clock.
func (c *Client) WithTimeZone(name string) *Client {
	c.timeZone = name
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// timeZoneHeader matches the header read by the API.
const timeZoneHeader = "X-Time-Zone"

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.timeZone != "" {
		req.Header.Set(timeZoneHeader, c.timeZone)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// do sends the request and decodes the data field of the envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}

// CollectionQuery mirrors the query parameters of the collection endpoint.
type CollectionQuery struct {
	Criteria filter.Criteria
	Page     int
	PageSize int
}

func (q CollectionQuery) values() url.Values {
	v := url.Values{}
	if q.Criteria.Search != "" {
		v.Set("q", q.Criteria.Search)
	}
	for _, g := range q.Criteria.Genres {
		v.Add("genre", g)
	}
	if q.Criteria.MinRating > 0 {
		v.Set("min_rating", strconv.FormatFloat(q.Criteria.MinRating, 'f', -1, 64))
	}
	if q.Criteria.MinPages > 0 {
		v.Set("min_pages", strconv.Itoa(q.Criteria.MinPages))
	}
	if q.Criteria.MaxPages > 0 {
		v.Set("max_pages", strconv.Itoa(q.Criteria.MaxPages))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// Collection lists live books matching q.
func (c *Client) Collection(ctx context.Context, q CollectionQuery) (filter.Result, error) {
	path := "/api/books/collection"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var res filter.Result
	err := c.do(ctx, http.MethodGet, path, nil, &res)
	return res, err
}

// RecentlyDeleted lists books deleted within the retention window.
func (c *Client) RecentlyDeleted(ctx context.Context) ([]models.Book, error) {
	var res struct {
		Books []models.Book `json:"books"`
	}
	err := c.do(ctx, http.MethodGet, "/api/books/recently-deleted", nil, &res)
	return res.Books, err
}

// AddResult is the reply of AddBook.
type AddResult struct {
	Book     models.Book `json:"book"`
	Restored bool        `json:"restored"`
}

// AddBook adds a book, or restores a deleted one with the same title.
func (c *Client) AddBook(ctx context.Context, in models.BookInput) (AddResult, error) {
	var res AddResult
	err := c.do(ctx, http.MethodPost, "/api/books/add", in, &res)
	return res, err
}

// UpdateBook replaces the editable fields of a book.
func (c *Client) UpdateBook(ctx context.Context, id int64, in models.BookInput) (models.Book, error) {
	var res struct {
		Book models.Book `json:"book"`
	}
	err := c.do(ctx, http.MethodPatch, bookPath(id), in, &res)
	return res.Book, err
}

// DeleteBook soft-deletes a book.
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, bookPath(id), nil, nil)
}

// RestoreBook brings a soft-deleted book back.
func (c *Client) RestoreBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, bookPath(id)+"/restore", nil, nil)
}

// Stats returns the statistics the caller's tier is entitled to.
func (c *Client) Stats(ctx context.Context) (statsservice.Result, error) {
	var res statsservice.Result
	err := c.do(ctx, http.MethodGet, "/api/books/stats", nil, &res)
	return res, err
}

// ReadingGoal returns the caller's reading goal.
func (c *Client) ReadingGoal(ctx context.Context) (int, error) {
	var res struct {
		ReadingGoal int `json:"readingGoal"`
	}
	err := c.do(ctx, http.MethodGet, "/api/user/reading-goal", nil, &res)
	return res.ReadingGoal, err
}

// SetReadingGoal updates the caller's reading goal.
func (c *Client) SetReadingGoal(ctx context.Context, goal int) error {
	return c.do(ctx, http.MethodPut, "/api/user/reading-goal", models.ReadingGoalInput{ReadingGoal: &goal}, nil)
}

// GoalProgress returns progress in the current goal interval.
func (c *Client) GoalProgress(ctx context.Context) (models.GoalProgress, error) {
	var res models.GoalProgress
	err := c.do(ctx, http.MethodGet, "/api/user/goal-progress", nil, &res)
	return res, err
}

// StreakSettings returns the caller's streak settings.
func (c *Client) StreakSettings(ctx context.Context) (models.StreakSettings, error) {
	var res models.StreakSettings
	err := c.do(ctx, http.MethodGet, "/api/user/streak-settings", nil, &res)
	return res, err
}

// UpdateStreakSettings stores new streak settings.
func (c *Client) UpdateStreakSettings(ctx context.Context, in models.StreakSettingsInput) (models.StreakSettings, error) {
	var res models.StreakSettings
	err := c.do(ctx, http.MethodPost, "/api/user/streak-settings", in, &res)
	return res, err
}

// RecordGoalHistory stores the result of a goal interval.
func (c *Client) RecordGoalHistory(ctx context.Context, in models.GoalHistoryInput) (models.GoalHistory, error) {
	var res models.GoalHistory
	err := c.do(ctx, http.MethodPost, "/api/user/goal-history", in, &res)
	return res, err
}

// GoalStats returns the summary of the caller's goal history.
func (c *Client) GoalStats(ctx context.Context) (models.GoalStats, error) {
	var res models.GoalStats
	err := c.do(ctx, http.MethodGet, "/api/user/goal-stats", nil, &res)
	return res, err
}

// CheckoutSession starts a checkout and returns the payment page URL.
func (c *Client) CheckoutSession(ctx context.Context) (string, error) {
	return c.redirectURL(ctx, "/api/checkout/session")
}

// PortalSession returns the billing portal URL.
func (c *Client) PortalSession(ctx context.Context) (string, error) {
	return c.redirectURL(ctx, "/api/checkout/portal-session")
}

func (c *Client) redirectURL(ctx context.Context, path string) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, path, nil, &res)
	return res.URL, err
}

// SubscriptionStatus returns the caller's access status, e.g. "active".
func (c *Client) SubscriptionStatus(ctx context.Context) (string, error) {
	var res struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodGet, "/api/checkout/subscription-status", nil, &res)
	return res.Status, err
}

// Health reports whether the API and its database are up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func bookPath(id int64) string {
	return "/api/books/" + strconv.FormatInt(id, 10)
}
