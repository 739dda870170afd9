package model

import "time"

// NoLocalSiteID is the local site id under which global objects are indexed.
const NoLocalSiteID int64 = 0

// SearchDocument is one indexed object in the full-text search index.
type SearchDocument struct {
	Kind         SearchKind
	ObjectID     int64
	DisplayID    int64 // Review request display id; zero for users.
	Title        string
	Body         string
	Username     string
	FullName     string
	URL          string
	LocalSiteIDs []int64
	LastUpdated  time.Time
}

// SearchQuery describes a full-text search against the index.
type SearchQuery struct {
	Text        string
	DisplayID   int64        // When set, matches only the review request with this display id.
	Kinds       []SearchKind // Empty means every kind.
	LocalSiteID int64
	Offset      int
	Limit       int
}

// SearchResults is one page of matching documents and the total match count.
type SearchResults struct {
	Documents []SearchDocument
	Total     int
}
