package spacetraveling

import "embed"

// EmbeddedAssets contains the default stylesheet and logo. Files with the
// same name in the static dir take precedence.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
