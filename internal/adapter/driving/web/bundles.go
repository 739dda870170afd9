package web

import (
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/adapter/driving/web/templates"
)

// Bundle is a named group of static files a page links together. An
// external build step may concatenate SourceFiles, in order, into
// OutputFile; the server links the source files directly.
type Bundle struct {
	SourceFiles []string
	OutputFile  string
}

// Bundles is the static bundle manifest. Paths are relative to static/.
var Bundles = map[string]Bundle{
	"common-css": {
		SourceFiles: []string{
			"css/reviewdesk.css",
		},
		OutputFile: "css/common.min.css",
	},
	"account-page-css": {
		SourceFiles: []string{
			"css/account-page.css",
		},
		OutputFile: "css/account-page.min.css",
	},
	"common": {
		SourceFiles: []string{
			"js/utils/apiUtils.js",
			"js/common.js",
		},
		OutputFile: "js/base.min.js",
	},
	"review-request-page": {
		SourceFiles: []string{
			"js/reviewRequestPage/fieldEditor.js",
			"js/reviewRequestPage/draftBanner.js",
		},
		OutputFile: "js/review-request-page.min.js",
	},
	"account-page": {
		SourceFiles: []string{
			"js/accountPage/joinedGroupsView.js",
		},
		OutputFile: "js/account-page.min.js",
	},
}

// bundleAssets expands bundle names into the assets the layout links, in
// the order given. Unknown names are skipped.
func bundleAssets(names ...string) []templates.Asset {
	var assets []templates.Asset
	for _, name := range names {
		bundle, ok := Bundles[name]
		if !ok {
			continue
		}
		for _, file := range bundle.SourceFiles {
			assets = append(assets, templates.Asset{
				Path:   file,
				Script: strings.HasSuffix(file, ".js"),
			})
		}
	}
	return assets
}
