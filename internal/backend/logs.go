package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// LogCategory selects one of the backend's log streams.
type LogCategory string

const (
	LogsAPI         LogCategory = "api"
	LogsActivity    LogCategory = "activity"
	LogsErrors      LogCategory = "errors"
	LogsPerformance LogCategory = "performance"
	LogsFrontend    LogCategory = "frontend"
)

// LogCategories lists the categories in display order.
func LogCategories() []LogCategory {
	return []LogCategory{LogsAPI, LogsActivity, LogsErrors, LogsPerformance, LogsFrontend}
}

// Valid reports whether c is a known category.
func (c LogCategory) Valid() bool {
	switch c {
	case LogsAPI, LogsActivity, LogsErrors, LogsPerformance, LogsFrontend:
		return true
	}
	return false
}

// FrontendEvent is a user action captured by the portal.
type FrontendEvent struct {
	UserID  *int64 `json:"userId"`
	Action  string `json:"action"`
	Page    string `json:"page"`
	Details string `json:"details"`
}

// ListLogs fetches one page of a log category. The frontend stream takes
// its page index as pageNum because "page" filters by visited path there.
func (c *Client) ListLogs(ctx context.Context, category LogCategory, params ListParams) (Page[Record], error) {
	if !category.Valid() {
		return Page[Record]{}, fmt.Errorf("backend: unknown log category %q", category)
	}
	if params.Size == 0 {
		params.Size = 20
	}
	q := params.Query()
	if category == LogsFrontend {
		q.Set("pageNum", strconv.Itoa(params.Page))
		q.Del("page")
		if path := params.Filters["page"]; path != "" {
			q.Set("page", path)
		}
	}
	var out Page[Record]
	err := c.do(ctx, http.MethodGet, "/api/logs/"+string(category), q, nil, &out)
	return out, err
}

// SendFrontendEvent records a frontend event.
func (c *Client) SendFrontendEvent(ctx context.Context, event FrontendEvent) error {
	return c.do(ctx, http.MethodPost, "/api/logs/frontend", nil, event, nil)
}
