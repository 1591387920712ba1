package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "beacon/pkg/domain-errors"
)

// AuditAction is the kind of mutation recorded on an entity's trail.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditEvent is one entry in an entity's append-only audit trail. The trail
// is chronologically non-decreasing and grows by exactly one per successful
// mutation.
type AuditEvent struct {
	Action    AuditAction `json:"action"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// Disaster is a tracked incident. The audit trail is owned by the entity
// and persisted with it; only AppendAudit may grow it.
type Disaster struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	LocationName string       `json:"location_name"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	OwnerID      string       `json:"owner_id"`
	Lat          float64      `json:"lat"`
	Lon          float64      `json:"lon"`
	AuditTrail   []AuditEvent `json:"audit_trail"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewDisaster validates required fields and returns a disaster whose trail
// already records the creating mutation, so readers reacting to the create
// broadcast observe a complete trail.
func NewDisaster(title, locationName, description string, tags []string, ownerID string, lat, lon float64, now time.Time) (*Disaster, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "owner_id is required")
	}

	d := &Disaster{
		ID:           uuid.New(),
		Title:        title,
		LocationName: strings.TrimSpace(locationName),
		Description:  description,
		Tags:         append([]string(nil), tags...),
		OwnerID:      ownerID,
		Lat:          lat,
		Lon:          lon,
		CreatedAt:    now,
	}
	d.AppendAudit(AuditActionCreate, ownerID, now)
	return d, nil
}

// AppendAudit records one mutation on the trail.
func (d *Disaster) AppendAudit(action AuditAction, userID string, at time.Time) {
	d.AuditTrail = append(d.AuditTrail, AuditEvent{
		Action:    action,
		UserID:    userID,
		Timestamp: at,
	})
}

// HasTag reports whether the disaster carries the tag.
func (d *Disaster) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Keywords derives the lowercased, deduplicated, sorted keyword set from
// tags, title, and description. Used to key and filter official-updates
// lookups.
func (d *Disaster) Keywords() []string {
	seen := make(map[string]struct{})
	add := func(words []string) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				seen[w] = struct{}{}
			}
		}
	}
	add(d.Tags)
	add(strings.Fields(d.Title))
	add(strings.Fields(d.Description))

	keywords := make([]string, 0, len(seen))
	for w := range seen {
		keywords = append(keywords, w)
	}
	sort.Strings(keywords)
	return keywords
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing their internal state to mutation.
func (d *Disaster) Clone() *Disaster {
	clone := *d
	clone.Tags = append([]string(nil), d.Tags...)
	clone.AuditTrail = append([]AuditEvent(nil), d.AuditTrail...)
	return &clone
}

// UpdateParams carries the optional fields of an update; nil pointers leave
// the current value untouched, a non-nil Tags slice replaces the set.
type UpdateParams struct {
	Title        *string
	LocationName *string
	Description  *string
	Tags         []string
	Lat          *float64
	Lon          *float64
}

// Apply overlays the params onto the disaster.
func (p UpdateParams) Apply(d *Disaster) {
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.LocationName != nil {
		d.LocationName = strings.TrimSpace(*p.LocationName)
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Tags != nil {
		d.Tags = append([]string(nil), p.Tags...)
	}
	if p.Lat != nil {
		d.Lat = *p.Lat
	}
	if p.Lon != nil {
		d.Lon = *p.Lon
	}
}

// Resource is an aid resource (shelter, supply point) positioned near a
// disaster. Resources with a nil DisasterID are shared across incidents.
type Resource struct {
	ID           uuid.UUID  `json:"id"`
	DisasterID   *uuid.UUID `json:"disaster_id,omitempty"`
	Name         string     `json:"name"`
	LocationName string     `json:"location_name"`
	Type         string     `json:"type"`
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
}
