// File path: internal/lake/activity_test.go
package lake

import (
	"strings"
	"testing"
	"time"
)

func TestParseLineRoundTrip(t *testing.T) {
	a := Activity{
		ActivityID:      "twitter_1234",
		Timestamp:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Platform:        "twitter",
		ActivityType:    ActivityCreate,
		Title:           "a thread",
		Content:         "hello world",
		URL:             "https://twitter.com/x/status/1234",
		DurationSeconds: 0,
		RawData:         map[string]any{"likes": float64(10)},
	}
	line, err := a.MarshalLine()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.ContainsRune(string(line), '\n') {
		t.Fatalf("marshaled line must be single-line: %q", line)
	}
	back, err := ParseLine(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.ActivityID != a.ActivityID || !back.Timestamp.Equal(a.Timestamp) {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.RawData["likes"] != float64(10) {
		t.Fatalf("raw_data not preserved: %v", back.RawData)
	}
}

func TestMarshalLineKeepsSubSecondPrecision(t *testing.T) {
	a := Activity{
		ActivityID:   "podcast_55",
		Timestamp:    time.Date(2025, 1, 10, 8, 0, 0, 500_000_000, time.UTC),
		Platform:     "podcast",
		ActivityType: ActivityConsume,
	}
	line, err := a.MarshalLine()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseLine(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !back.Timestamp.Equal(a.Timestamp) {
		t.Fatalf("timestamp changed: wrote %v, read back %v", a.Timestamp, back.Timestamp)
	}
}

func TestParseLineRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"missing id":        `{"timestamp":"2025-06-01T12:00:00Z","platform":"twitter","activity_type":"create"}`,
		"missing timestamp": `{"activity_id":"twitter_1","platform":"twitter","activity_type":"create"}`,
		"bad timestamp":     `{"activity_id":"twitter_1","timestamp":"yesterday","platform":"twitter","activity_type":"create"}`,
		"bad type":          `{"activity_id":"twitter_1","timestamp":"2025-06-01T12:00:00Z","platform":"twitter","activity_type":"share"}`,
		"not json":          `{oops`,
	}
	for name, line := range cases {
		if _, err := ParseLine([]byte(line)); !IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestValidateEnforcesAllowListAndIDFormat(t *testing.T) {
	allowed := map[string]struct{}{"twitter": {}, "podcast": {}}
	a := Activity{
		ActivityID:   "twitter_1",
		Timestamp:    time.Now(),
		Platform:     "twitter",
		ActivityType: ActivityCreate,
	}
	if err := a.Validate(allowed); err != nil {
		t.Fatalf("valid activity rejected: %v", err)
	}
	a.Platform = "mastodon"
	a.ActivityID = "mastodon_1"
	if err := a.Validate(allowed); !IsValidation(err) {
		t.Fatalf("expected allow-list rejection, got %v", err)
	}
	a.Platform = "podcast"
	a.ActivityID = "twitter_1"
	if err := a.Validate(allowed); !IsValidation(err) {
		t.Fatalf("expected id prefix rejection, got %v", err)
	}
}

func TestKindForType(t *testing.T) {
	if KindForType(ActivityCreate) != KindArtifact {
		t.Fatal("created content belongs in artifacts")
	}
	if KindForType(ActivityConsume) != KindSource {
		t.Fatal("consumed content belongs in sources")
	}
}
