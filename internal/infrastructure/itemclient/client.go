// Package itemclient is the transaction service's synchronous view of the
// item service. It is only used for the pre-check on purchase creation; the
// item's status is changed through saga events, never through this client.
package itemclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/config"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/LuongTanDat03/reuse-hub-sub000/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const breakerName = "item-service"

// itemResponse mirrors the item service's internal lookup payload.
type itemResponse struct {
	ID           string     `json:"id"`
	SellerID     string     `json:"sellerId"`
	Title        string     `json:"title"`
	Price        int64      `json:"price"`
	Status       string     `json:"status"`
	BoostedUntil *time.Time `json:"boostedUntil,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
	breaker *gobreaker.CircuitBreaker[*item.Item]
	logger  zerolog.Logger
}

func New(cfg config.ItemServiceConfig, metrics *observability.Metrics, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	attempts := cfg.MaxRetries
	if attempts == 0 {
		attempts = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: observability.Component(logger, "item_client"),
	}
	c.retry = retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     2 * time.Second,
		RetryIf:      retryable,
		OnRetry: func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).Msg("Item lookup failed, retrying")
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[*item.Item](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing item is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domainErrors.ErrItemNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	return c
}

// GetItem fetches the item's current status, seller, price and title.
func (c *Client) GetItem(ctx context.Context, itemID string) (*item.Item, error) {
	it, err := c.breaker.Execute(func() (*item.Item, error) {
		return retry.DoWithResult(ctx, c.retry, func() (*item.Item, error) {
			return c.fetch(ctx, itemID)
		})
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrItemNotFound) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", domainErrors.ErrItemServiceUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrItemServiceUnavailable, err)
	}
	return it, nil
}

func (c *Client) fetch(ctx context.Context, itemID string) (*item.Item, error) {
	endpoint := fmt.Sprintf("%s/internal/items/%s", c.baseURL, url.PathEscape(itemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call item service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domainErrors.ErrItemNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, &statusError{code: resp.StatusCode}
	}

	var body itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return &item.Item{
		ID:           body.ID,
		SellerID:     body.SellerID,
		Title:        body.Title,
		Price:        body.Price,
		Status:       item.Status(body.Status),
		BoostedUntil: body.BoostedUntil,
	}, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("item service returned status %d", e.code)
}

// retryable retries transport failures and 5xx/429 answers.
func retryable(err error) bool {
	if errors.Is(err, domainErrors.ErrItemNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}
