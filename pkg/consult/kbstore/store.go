// Package kbstore persists rulebase documents so consultations can be
// started from a named library entry instead of a loose file. Session
// facts are never stored; only the immutable configuration documents are.
package kbstore

import (
	"context"
	"time"
)

// Store is the interface for a rulebase library.
type Store interface {
	Close() error

	// UpsertRulebase inserts or replaces a rulebase by name and returns
	// it with a fresh revision id and import timestamp stamped on.
	UpsertRulebase(ctx context.Context, rb Rulebase) (Rulebase, error)
	GetRulebase(ctx context.Context, name string) (Rulebase, bool, error)
	ListRulebases(ctx context.Context) ([]Info, error)
	DeleteRulebase(ctx context.Context, name string) error
}

// Rulebase is one stored rulebase document.
type Rulebase struct {
	Name       string
	Target     string
	Revision   string // ULID, stamped on upsert
	Document   []byte // raw YAML/JSON document
	ImportedAt time.Time
}

// Info summarizes a stored rulebase for listings.
type Info struct {
	Name       string
	Target     string
	Revision   string
	ImportedAt time.Time
}
