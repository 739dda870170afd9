package web

import "embed"

// StaticFS holds the embedded static assets (stylesheets and page scripts).
//
//go:embed static/*
var StaticFS embed.FS
