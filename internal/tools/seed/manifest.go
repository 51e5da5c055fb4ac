package seed

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/powderhound/powderhound/internal/services/events/domain"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// DemoManifest is the bundled fixture used when no manifest path is set.
const DemoManifest = "fixtures/demo.yaml"

// Manifest defines a declarative set of trips.
type Manifest struct {
	Name   string           `yaml:"name"`
	Series []ManifestSeries `yaml:"series"`
	Events []ManifestEvent  `yaml:"events"`
}

// ManifestSeries defines one recurring trip and RSVPs against its instances.
type ManifestSeries struct {
	Key         string             `yaml:"key"`
	Owner       string             `yaml:"owner"`
	Title       string             `yaml:"title"`
	Description string             `yaml:"description,omitempty"`
	Location    string             `yaml:"location,omitempty"`
	Capacity    *int               `yaml:"capacity,omitempty"`
	Recurrence  ManifestRecurrence `yaml:"recurrence"`
	RSVPs       []ManifestRSVP     `yaml:"rsvps,omitempty"`
}

// ManifestRecurrence mirrors domain.Recurrence with manifest-friendly dates.
type ManifestRecurrence struct {
	Type         string `yaml:"type"`
	Weekday      *int   `yaml:"weekday,omitempty"`
	Nth          int    `yaml:"nth,omitempty"`
	DayOfMonth   int    `yaml:"day_of_month,omitempty"`
	StartDate    string `yaml:"start_date"`
	EndDate      string `yaml:"end_date,omitempty"`
	WindowMonths int    `yaml:"window_months,omitempty"`
}

// ManifestEvent defines one standalone trip.
type ManifestEvent struct {
	Key         string         `yaml:"key"`
	Owner       string         `yaml:"owner"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description,omitempty"`
	Location    string         `yaml:"location,omitempty"`
	Capacity    *int           `yaml:"capacity,omitempty"`
	Date        string         `yaml:"date"`
	RSVPs       []ManifestRSVP `yaml:"rsvps,omitempty"`
}

// ManifestRSVP is one response. Occurrence picks a series instance by its
// zero-based position in date order and is ignored for standalone events.
type ManifestRSVP struct {
	User        string `yaml:"user"`
	Status      string `yaml:"status"`
	Occurrence  int    `yaml:"occurrence,omitempty"`
	DriverSeats int    `yaml:"driver_seats,omitempty"`
	DriverNote  string `yaml:"driver_note,omitempty"`
}

// LoadManifest reads a manifest file. A blank path loads the bundled demo.
func LoadManifest(path string) (Manifest, error) {
	var (
		data []byte
		err  error
	)
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		data, err = fixtures.ReadFile(DemoManifest)
	} else {
		data, err = os.ReadFile(trimmed)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes manifest YAML, rejecting unknown fields.
func ParseManifest(data []byte) (Manifest, error) {
	var manifest Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}

// ValidateManifest checks keys and references before anything is written.
func ValidateManifest(manifest Manifest) error {
	if strings.TrimSpace(manifest.Name) == "" {
		return fmt.Errorf("manifest name is required")
	}
	if len(manifest.Series) == 0 && len(manifest.Events) == 0 {
		return fmt.Errorf("manifest %q declares no series or events", manifest.Name)
	}
	keys := make(map[string]struct{}, len(manifest.Series)+len(manifest.Events))
	claim := func(kind, key string) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%s key is required", kind)
		}
		if _, ok := keys[key]; ok {
			return fmt.Errorf("duplicate key %q", key)
		}
		keys[key] = struct{}{}
		return nil
	}
	for _, series := range manifest.Series {
		if err := claim("series", series.Key); err != nil {
			return err
		}
		if err := requireOwnerAndTitle(series.Key, series.Owner, series.Title); err != nil {
			return err
		}
		if _, ok := domain.ParseRecurrenceType(series.Recurrence.Type); !ok {
			return fmt.Errorf("series %q: unknown recurrence type %q", series.Key, series.Recurrence.Type)
		}
		if strings.TrimSpace(series.Recurrence.StartDate) == "" {
			return fmt.Errorf("series %q: start_date is required", series.Key)
		}
		if err := validateRSVPs(series.Key, series.RSVPs, true); err != nil {
			return err
		}
	}
	for _, event := range manifest.Events {
		if err := claim("event", event.Key); err != nil {
			return err
		}
		if err := requireOwnerAndTitle(event.Key, event.Owner, event.Title); err != nil {
			return err
		}
		if strings.TrimSpace(event.Date) == "" {
			return fmt.Errorf("event %q: date is required", event.Key)
		}
		if err := validateRSVPs(event.Key, event.RSVPs, false); err != nil {
			return err
		}
	}
	return nil
}

func requireOwnerAndTitle(key, owner, title string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%q: owner is required", key)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%q: title is required", key)
	}
	return nil
}

func validateRSVPs(key string, rsvps []ManifestRSVP, series bool) error {
	for i, rsvp := range rsvps {
		if strings.TrimSpace(rsvp.User) == "" {
			return fmt.Errorf("%q rsvp %d: user is required", key, i)
		}
		status, ok := domain.ParseRSVPStatus(rsvp.Status)
		if !ok || !status.Requestable() {
			return fmt.Errorf("%q rsvp %d: status %q is not requestable", key, i, rsvp.Status)
		}
		if rsvp.Occurrence < 0 {
			return fmt.Errorf("%q rsvp %d: occurrence must not be negative", key, i)
		}
		if !series && rsvp.Occurrence != 0 {
			return fmt.Errorf("%q rsvp %d: occurrence only applies to series", key, i)
		}
	}
	return nil
}

// ResolveDate parses an absolute YYYY-MM-DD date or an offset from today
// such as "+0d", "+10d" or "+2w".
func ResolveDate(value string, today time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "+") {
		return domain.ParseDate(trimmed)
	}
	body := strings.TrimPrefix(trimmed, "+")
	if len(body) < 2 {
		return time.Time{}, fmt.Errorf("parse date offset %q", value)
	}
	unit := body[len(body)-1]
	count, err := strconv.Atoi(body[:len(body)-1])
	if err != nil || count < 0 {
		return time.Time{}, fmt.Errorf("parse date offset %q", value)
	}
	switch unit {
	case 'd':
		return today.AddDate(0, 0, count), nil
	case 'w':
		return today.AddDate(0, 0, 7*count), nil
	default:
		return time.Time{}, fmt.Errorf("parse date offset %q: unit must be d or w", value)
	}
}
