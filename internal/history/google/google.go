package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"ovdeclare/internal/cache"
	"ovdeclare/internal/core"
	"ovdeclare/internal/history"
	"ovdeclare/internal/log"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const cacheEntries = 24

// Client reads one tab per month from a spreadsheet holding the travel history.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Optional base name appended to the month, e.g. "2023-04 Reizen".
	sheetBase string
	cache     *cache.LRUCache[[]string]
	logger    *log.Logger
}

var _ history.RowSource = (*Client)(nil)

// New wraps an existing Sheets service. A zero ttl disables caching.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string, ttl time.Duration) *Client {
	c := &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        log.Default().WithComponent(log.ComponentHistory),
	}
	if ttl > 0 {
		c.cache = cache.NewLRUCache[[]string](cacheEntries, ttl)
	}
	return c
}

// NewFromEnv creates a client authenticated with service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetBase string, ttl time.Duration) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetBase, ttl), nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// SheetName returns the tab holding a month's history.
func (c *Client) SheetName(m core.Month) string {
	if c.sheetBase == "" {
		return m.String()
	}
	return m.String() + " " + c.sheetBase
}

// MonthRows reads columns A:F of the month's tab. A missing tab means no data.
func (c *Client) MonthRows(ctx context.Context, m core.Month) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	sheet := c.SheetName(m)
	if c.cache != nil {
		if cells, ok := c.cache.Get(sheet); ok {
			c.logger.DebugContext(ctx, "Sheet rows served from cache", "sheet", sheet, "cells", len(cells))
			return cells, nil
		}
	}

	rng := fmt.Sprintf("'%s'!A:F", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			c.logger.InfoContext(ctx, "No sheet for month", "sheet", sheet)
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	cells := flattenHistory(resp.Values)
	if c.cache != nil {
		c.cache.Set(sheet, cells)
	}
	return cells, nil
}

// Invalidate drops the cached rows of a month.
func (c *Client) Invalidate(m core.Month) {
	if c.cache != nil {
		c.cache.Delete(c.SheetName(m))
	}
}

// Cache exposes the row cache so it can be registered for periodic cleanup.
// It is nil when caching is disabled.
func (c *Client) Cache() *cache.LRUCache[[]string] {
	return c.cache
}

// The API answers 400 "Unable to parse range" for a tab that does not exist.
func isMissingSheet(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")
}
