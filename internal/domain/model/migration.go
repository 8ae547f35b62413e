package model

import (
	"fmt"
	"time"
)

// MaxRecordErrors bounds the error list kept per entity type.
const MaxRecordErrors = 100

// RecordError describes one row that could not be migrated. Cause names the
// failure class and never contains a secret value.
type RecordError struct {
	Entity EntityType
	Key    string
	Cause  string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Key, e.Cause)
}

// EntityStats counts migration outcomes for one entity type. Attempted
// always equals Migrated + Failed.
type EntityStats struct {
	Entity        EntityType
	Attempted     int
	Migrated      int
	Failed        int
	Errors        []RecordError
	ErrorsDropped int
}

// RecordSuccess counts a migrated row.
func (s *EntityStats) RecordSuccess() {
	s.Attempted++
	s.Migrated++
}

// RecordFailure counts a failed row and keeps its error while the list has
// room.
func (s *EntityStats) RecordFailure(key, cause string) {
	s.Attempted++
	s.Failed++
	if len(s.Errors) >= MaxRecordErrors {
		s.ErrorsDropped++
		return
	}
	s.Errors = append(s.Errors, RecordError{Entity: s.Entity, Key: key, Cause: cause})
}

// MigrationReport is the in-memory result of a re-key, import or copy run.
// It is never persisted.
type MigrationReport struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Entities   []*EntityStats
}

// Entity returns the stats for an entity type, adding an empty entry on
// first use so that untouched types still report zero counts.
func (r *MigrationReport) Entity(entity EntityType) *EntityStats {
	for _, s := range r.Entities {
		if s.Entity == entity {
			return s
		}
	}
	s := &EntityStats{Entity: entity}
	r.Entities = append(r.Entities, s)
	return s
}

// Totals sums the counters across every entity type.
func (r *MigrationReport) Totals() (attempted, migrated, failed int) {
	for _, s := range r.Entities {
		attempted += s.Attempted
		migrated += s.Migrated
		failed += s.Failed
	}
	return attempted, migrated, failed
}

// Failures returns every kept record error in entity order.
func (r *MigrationReport) Failures() []RecordError {
	var out []RecordError
	for _, s := range r.Entities {
		out = append(out, s.Errors...)
	}
	return out
}
