package models

import "github.com/weatherdash/weatherdash/internal/analytics"

// FilterRequest is the body of PUT /v1/analytics/filter and the optional body of
// POST /v1/analytics/query. Dates are ISO calendar dates (YYYY-MM-DD).
type FilterRequest struct {
	City  string `json:"city"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Filter converts the request into an analytics filter.
func (r FilterRequest) Filter() analytics.Filter {
	return analytics.Filter{
		City:  r.City,
		Start: r.Start,
		End:   r.End,
	}
}

// StreamMessage is pushed to websocket subscribers on every view change.
type StreamMessage struct {
	Type string         `json:"type"`
	View analytics.View `json:"view"`
}

// StreamMessageView is the only StreamMessage type currently sent.
const StreamMessageView = "view"
