package model

import "time"

// Repository is a source code repository review requests can be posted against.
type Repository struct {
	ID          int64
	Name        string
	Path        string
	Tool        string // e.g. "git", "perforce".
	BugTracker  string // URL template with a single %s for the bug id; may be empty.
	HostingRepo string // "owner/name" on GitHub, used for changeset lookups; may be empty.
	LocalSiteID *int64
	AddedAt     time.Time
}
