package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every gentools event subject.
const StreamEvents = "GENTOOLS_EVENTS"

// Subject constants.
const (
	SubjectAuditEvent = "gentools.events.audit"
	SubjectUsageEvent = "gentools.events.usage"
)

// AuditEvent is published for quota decisions and admin actions that the
// back office keeps a persistent trail of.
type AuditEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// UsageEvent is published for every admitted generator call.
type UsageEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	APIType    string    `json:"api_type"`
	DailyCount int       `json:"daily_count"`
	Timestamp  time.Time `json:"timestamp"`
}
