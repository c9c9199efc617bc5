package httpapi

import (
	"encoding/json"
	"time"
)

// validateCreateEvent checks the structural requirements create_event.rs
// enforced before ever touching the database: user_id present, event_type
// non-empty, timestamp RFC3339-parseable, and metadata carrying a string
// "page" field. It returns the parsed timestamp and the page value on
// success.
func validateCreateEvent(req createEventRequest) (time.Time, string, *apiError) {
	if req.UserID == 0 {
		return time.Time{}, "", validationError("user_id is required")
	}
	if req.EventType == "" {
		return time.Time{}, "", validationError("event_type is required")
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return time.Time{}, "", validationError("timestamp must be an RFC3339 string")
	}

	if len(req.Metadata) == 0 {
		return time.Time{}, "", validationError("metadata is required")
	}
	var meta struct {
		Page string `json:"page"`
	}
	if err := json.Unmarshal(req.Metadata, &meta); err != nil {
		return time.Time{}, "", validationError("metadata must be a JSON object")
	}
	if meta.Page == "" {
		return time.Time{}, "", validationError("metadata.page is required")
	}

	return ts, meta.Page, nil
}
