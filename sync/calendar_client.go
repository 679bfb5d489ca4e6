// ABOUTME: Calendar API client setup for Google Calendar event creation
// ABOUTME: Wraps calendar.Service behind a rate-limited single-event insert
package sync

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// EventInserter creates one event on a calendar.
type EventInserter interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
}

// CalendarClient inserts events through the Calendar v3 API, one call per event.
type CalendarClient struct {
	service *calendar.Service
	limiter *rate.Limiter
}

// NewCalendarClient creates a Calendar client on top of an authenticated HTTP client.
// perSecond caps insert calls per second.
func NewCalendarClient(ctx context.Context, httpClient *http.Client, perSecond float64, opts ...option.ClientOption) (*CalendarClient, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &CalendarClient{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// InsertEvent creates event on calendarID and returns the created event.
func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.service.Events.Insert(calendarID, event).Context(ctx).Do()
}
