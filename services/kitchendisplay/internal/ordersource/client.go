package ordersource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/clock"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
)

const (
	DateLayout     = "2006-01-02"
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// StatusError is returned when the order service answers with a non-2xx code.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the comandas REST endpoints of the order service.
type Client struct {
	baseURL  string
	http     *http.Client
	location *time.Location
	clock    clock.Clock
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Transport: c.http.Transport, Timeout: d}
		}
	}
}

// WithLocation sets the timezone used to compute "today".
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
		location: time.Local,
		clock:    clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the date the service filters on, in the configured timezone.
func (c *Client) Today() string {
	return c.clock.Now().In(c.location).Format(DateLayout)
}

// FetchToday returns the tickets the order service holds for today.
func (c *Client) FetchToday(ctx context.Context) ([]comanda.Ticket, error) {
	if c == nil {
		return nil, errors.New("order source not configured")
	}
	path := "/comandas/fechastatus/" + c.Today()

	var resources []ticketResource
	if err := c.do(ctx, http.MethodGet, path, nil, &resources); err != nil {
		return nil, err
	}

	tickets := make([]comanda.Ticket, 0, len(resources))
	for _, r := range resources {
		tickets = append(tickets, r.toTicket())
	}
	return tickets, nil
}

// ReplaceDishes overwrites the dish and quantity lists of a ticket.
func (c *Client) ReplaceDishes(ctx context.Context, ticketID string, dishes []comanda.DishLine) error {
	if ticketID == "" {
		return errors.New("missing ticket id")
	}
	platos, cantidades := dishesToResources(dishes)
	body := replaceDishesRequest{Dishes: platos, Quantities: cantidades}
	return c.do(ctx, http.MethodPut, "/comandas/"+url.PathEscape(ticketID), body, nil)
}

// SetDishStatus stores the status of one dish of a ticket.
func (c *Client) SetDishStatus(ctx context.Context, ticketID, dishID string, status dishstatus.Status) error {
	if ticketID == "" || dishID == "" {
		return errors.New("missing ticket or dish id")
	}
	path := fmt.Sprintf("/comandas/%s/plato/%s/estado", url.PathEscape(ticketID), url.PathEscape(dishID))
	return c.do(ctx, http.MethodPut, path, dishStatusRequest{NewStatus: status.Code}, nil)
}

// SetTicketStatus stores the overall status of a ticket.
func (c *Client) SetTicketStatus(ctx context.Context, ticketID string, status comanda.TicketStatus) error {
	if ticketID == "" {
		return errors.New("missing ticket id")
	}
	path := fmt.Sprintf("/comandas/%s/status", url.PathEscape(ticketID))
	return c.do(ctx, http.MethodPut, path, ticketStatusRequest{NewStatus: ticketStatusCode(status)}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	if c == nil || c.baseURL == "" {
		return errors.New("order source not configured")
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(excerpt)),
		}
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("cannot decode %s %s response: %w", method, path, err)
	}
	return nil
}
