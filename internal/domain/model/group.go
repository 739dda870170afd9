package model

import "net/url"

// LocalSite is an isolated division of the server with its own users,
// groups and review requests.
type LocalSite struct {
	ID   int64
	Name string
}

// Group is a review group that review requests can target.
type Group struct {
	ID          int64
	Name        string
	DisplayName string
	LocalSiteID *int64
	LocalSite   string // Name of the local site; empty for global groups.
	Visible     bool
	InviteOnly  bool
}

// AbsoluteURL returns the path of the group's page, scoped to its local site.
func (g Group) AbsoluteURL() string {
	return LocalSitePrefix(g.LocalSite) + "/groups/" + url.PathEscape(g.Name) + "/"
}

// LocalSitePrefix returns the URL prefix for a local site, or "" for the
// global site.
func LocalSitePrefix(localSite string) string {
	if localSite == "" {
		return ""
	}
	return "/s/" + url.PathEscape(localSite)
}
