// File path: internal/lake/activity.go
package lake

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActivityType distinguishes authored content from consumed content.
type ActivityType string

const (
	ActivityCreate  ActivityType = "create"
	ActivityConsume ActivityType = "consume"
)

// SourceKind identifies which half of the data lake a record lives in.
// Created content is stored under artifacts/, consumed content under sources/.
type SourceKind string

const (
	KindSource   SourceKind = "source"
	KindArtifact SourceKind = "artifact"
)

// KindForType returns the directory half that stores records of the given
// activity type.
func KindForType(t ActivityType) SourceKind {
	if t == ActivityCreate {
		return KindArtifact
	}
	return KindSource
}

// Activity is one content event, the atomic unit of the data lake. Records
// are appended once to exactly one log file and never mutated in place.
type Activity struct {
	ActivityID      string         `json:"activity_id"`
	Timestamp       time.Time      `json:"timestamp"`
	Platform        string         `json:"platform"`
	ActivityType    ActivityType   `json:"activity_type"`
	Title           string         `json:"title,omitempty"`
	Content         string         `json:"content,omitempty"`
	URL             string         `json:"url,omitempty"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	RawData         map[string]any `json:"raw_data,omitempty"`
}

// wire mirrors Activity with a string timestamp so parsing can insist on an
// explicit UTC offset rather than accepting whatever time.Time tolerates.
type wire struct {
	ActivityID      string         `json:"activity_id"`
	Timestamp       string         `json:"timestamp"`
	Platform        string         `json:"platform"`
	ActivityType    string         `json:"activity_type"`
	Title           string         `json:"title,omitempty"`
	Content         string         `json:"content,omitempty"`
	URL             string         `json:"url,omitempty"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	RawData         map[string]any `json:"raw_data,omitempty"`
}

// ParseLine decodes one JSONL log line into an Activity. Required fields are
// activity_id, timestamp, platform and activity_type; the timestamp must
// carry an explicit offset (RFC 3339).
func ParseLine(line []byte) (Activity, error) {
	var w wire
	if err := json.Unmarshal(line, &w); err != nil {
		return Activity{}, &ValidationError{Reason: fmt.Sprintf("malformed json: %v", err)}
	}
	a := Activity{
		ActivityID:      strings.TrimSpace(w.ActivityID),
		Platform:        strings.TrimSpace(w.Platform),
		ActivityType:    ActivityType(strings.TrimSpace(w.ActivityType)),
		Title:           w.Title,
		Content:         w.Content,
		URL:             w.URL,
		DurationSeconds: w.DurationSeconds,
		RawData:         w.RawData,
	}
	if a.ActivityID == "" {
		return Activity{}, &ValidationError{Field: "activity_id", Reason: "is required"}
	}
	ts := strings.TrimSpace(w.Timestamp)
	if ts == "" {
		return Activity{}, &ValidationError{Field: "timestamp", Reason: "is required"}
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Activity{}, &ValidationError{Field: "timestamp", Reason: fmt.Sprintf("must be RFC 3339 with offset: %v", err)}
	}
	a.Timestamp = parsed
	if err := a.validateShape(); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// MarshalLine encodes the activity as a single compact JSON line without the
// trailing newline. raw_data is carried verbatim.
func (a Activity) MarshalLine() ([]byte, error) {
	if err := a.validateShape(); err != nil {
		return nil, err
	}
	w := wire{
		ActivityID:      a.ActivityID,
		Timestamp:       a.Timestamp.Format(time.RFC3339Nano),
		Platform:        a.Platform,
		ActivityType:    string(a.ActivityType),
		Title:           a.Title,
		Content:         a.Content,
		URL:             a.URL,
		DurationSeconds: a.DurationSeconds,
		RawData:         a.RawData,
	}
	return json.Marshal(w)
}

// Validate checks the record shape and, when a non-empty allow-list is
// supplied, that the platform is known.
func (a Activity) Validate(allowedPlatforms map[string]struct{}) error {
	if err := a.validateShape(); err != nil {
		return err
	}
	if len(allowedPlatforms) > 0 {
		if _, ok := allowedPlatforms[a.Platform]; !ok {
			return &ValidationError{Field: "platform", Reason: fmt.Sprintf("%q is not in the configured allow-list", a.Platform)}
		}
	}
	if !strings.HasPrefix(a.ActivityID, a.Platform+"_") {
		return &ValidationError{Field: "activity_id", Reason: fmt.Sprintf("%q must use the {platform}_{unique} format", a.ActivityID)}
	}
	return nil
}

func (a Activity) validateShape() error {
	if strings.TrimSpace(a.ActivityID) == "" {
		return &ValidationError{Field: "activity_id", Reason: "is required"}
	}
	if a.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "is required"}
	}
	if strings.TrimSpace(a.Platform) == "" {
		return &ValidationError{Field: "platform", Reason: "is required"}
	}
	switch a.ActivityType {
	case ActivityCreate, ActivityConsume:
	default:
		return &ValidationError{Field: "activity_type", Reason: `must be "create" or "consume"`}
	}
	if a.DurationSeconds < 0 {
		return &ValidationError{Field: "duration_seconds", Reason: "must be non-negative"}
	}
	return nil
}

// IsCreation reports whether this activity authored content.
func (a Activity) IsCreation() bool { return a.ActivityType == ActivityCreate }

// IsConsumption reports whether this activity consumed content.
func (a Activity) IsConsumption() bool { return a.ActivityType == ActivityConsume }

// Text combines title and content for analyzers that score prose.
func (a Activity) Text() string {
	parts := make([]string, 0, 2)
	if a.Title != "" {
		parts = append(parts, a.Title)
	}
	if a.Content != "" {
		parts = append(parts, a.Content)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
