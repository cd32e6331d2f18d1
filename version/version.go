package version

import "github.com/go-jupyter/jpyclient/internal/version"

// GitTag is a hardcoded fallback used when this module is not built from
// a `git archive` export (the common case for `go build`/`go install`).
const GitTag = "0.1.0-dev"

// AppVersion contains version and Git commit information.
//
// The placeholders are replaced on `git archive` using the `export-subst` attribute.
var AppVersion = version.AppVersion(GitTag, "$Format:%(describe)$", "$Format:%H$")
