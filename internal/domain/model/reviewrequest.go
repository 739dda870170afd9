package model

import (
	"maps"
	"slices"
	"strconv"
	"time"
)

// ReviewRequestRef is a lightweight reference to another review request, used
// for dependency links.
type ReviewRequestRef struct {
	ID        int64
	DisplayID int64
	LocalSite string
	Summary   string
}

// AbsoluteURL returns the path of the referenced review request.
func (r ReviewRequestRef) AbsoluteURL() string {
	return LocalSitePrefix(r.LocalSite) + "/r/" + strconv.FormatInt(r.DisplayID, 10) + "/"
}

// ReviewRequestDetails holds the attributes shared by a review request and its
// draft. Editing happens on the draft; publishing copies them back.
type ReviewRequestDetails struct {
	Summary      string
	Description  string
	TestingDone  string
	RichText     bool
	Branch       string
	BugsClosed   string // Comma-separated bug ids as entered.
	CommitID     string
	DependsOn    []ReviewRequestRef
	TargetGroups []Group
	TargetPeople []User
	ExtraData    map[string]any
	LastUpdated  time.Time
}

// Clone returns a deep copy of the details.
func (d ReviewRequestDetails) Clone() ReviewRequestDetails {
	d.DependsOn = slices.Clone(d.DependsOn)
	d.TargetGroups = slices.Clone(d.TargetGroups)
	d.TargetPeople = slices.Clone(d.TargetPeople)
	d.ExtraData = maps.Clone(d.ExtraData)
	return d
}

// ReviewRequest is the primary reviewable unit: a proposed change plus its
// metadata. Attributes shared with the draft live in the embedded details.
type ReviewRequest struct {
	ID          int64
	LocalID     int64 // Per-local-site id; zero for global review requests.
	LocalSiteID *int64
	LocalSite   string
	Submitter   User
	Repository  *Repository
	Changenum   int64 // Legacy changeset number; zero when unset.
	Status      ReviewRequestStatus
	Public      bool
	TimeAdded   time.Time
	ReviewRequestDetails

	// Transient fields populated on load, not persisted.
	Blocks           []ReviewRequestRef
	ChangesetPending bool
}

// DisplayID returns the id shown to users: the local id on local sites.
func (rr ReviewRequest) DisplayID() int64 {
	if rr.LocalSiteID != nil && rr.LocalID != 0 {
		return rr.LocalID
	}
	return rr.ID
}

// AbsoluteURL returns the path of the review request page.
func (rr ReviewRequest) AbsoluteURL() string {
	return rr.Ref().AbsoluteURL()
}

// Ref returns a reference to this review request.
func (rr ReviewRequest) Ref() ReviewRequestRef {
	return ReviewRequestRef{
		ID:        rr.ID,
		DisplayID: rr.DisplayID(),
		LocalSite: rr.LocalSite,
		Summary:   rr.Summary,
	}
}

// IsMutableBy reports whether the user may edit the review request.
func (rr ReviewRequest) IsMutableBy(u User) bool {
	return u.ID == rr.Submitter.ID || u.IsStaff
}

// ReviewRequestDraft is the unpublished working copy of a review request's
// details. At most one exists per review request.
type ReviewRequestDraft struct {
	ReviewRequestID int64
	ReviewRequestDetails
}

// NewDraft creates a draft seeded from the review request's current details.
func NewDraft(rr ReviewRequest) ReviewRequestDraft {
	return ReviewRequestDraft{
		ReviewRequestID:      rr.ID,
		ReviewRequestDetails: rr.ReviewRequestDetails.Clone(),
	}
}

// ApplyTo copies the draft's details onto the review request.
func (d ReviewRequestDraft) ApplyTo(rr *ReviewRequest) {
	rr.ReviewRequestDetails = d.ReviewRequestDetails.Clone()
}
