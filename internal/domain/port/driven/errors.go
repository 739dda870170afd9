package driven

import "errors"

// ErrNotFound is returned by stores when the requested record does not exist
// and the method does not document a (nil, nil) result instead.
var ErrNotFound = errors.New("not found")

// ErrSiteConfigNotFound is returned by SiteConfigStore.GetCurrent before the
// site configuration record has been created.
var ErrSiteConfigNotFound = errors.New("site configuration not found")

// ErrNotSupported is returned by an AuthBackend asked to perform an operation
// its capability flags say it does not support.
var ErrNotSupported = errors.New("operation not supported by authentication backend")

// ErrAlreadyExists is returned when inserting a record whose unique key is
// already taken (username, group or repository name on a local site).
var ErrAlreadyExists = errors.New("already exists")
