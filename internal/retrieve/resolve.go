// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/fulltext/pkg/types"
)

// Base URL for PDF resolution. Declared as a var so tests can substitute
// an httptest server.
var arxivPDFBase = "https://arxiv.org/pdf/"

var (
	// newStylePattern matches "2301.07041", "arXiv:2301.07041v2".
	newStylePattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

	// oldStylePattern matches "hep-th/9901001", "math.GT/0309136v1".
	oldStylePattern = regexp.MustCompile(`^(?i:arxiv:)?([a-z\-]+(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)$`)

	// submissionPattern matches numeric submission ids.
	submissionPattern = regexp.MustCompile(`^\d{1,10}$`)
)

// Classify validates identifier for idType and returns its normalized
// form. For arXiv ids the optional "arXiv:" prefix is stripped. The second
// return is false when the identifier is malformed.
func Classify(idType types.IDType, identifier string) (string, bool) {
	identifier = strings.TrimSpace(identifier)
	switch idType {
	case types.IDArxiv:
		if m := newStylePattern.FindStringSubmatch(identifier); m != nil {
			return m[1], true
		}
		if m := oldStylePattern.FindStringSubmatch(identifier); m != nil {
			return m[1], true
		}
	case types.IDSubmission:
		if submissionPattern.MatchString(identifier) {
			return identifier, true
		}
	}
	return identifier, false
}

// PDFURL returns the canonical download URL for a paper. Submissions are
// served from the same endpoint as announced papers.
func PDFURL(idType types.IDType, paperID string) string {
	switch idType {
	case types.IDArxiv, types.IDSubmission:
		return arxivPDFBase + paperID
	default:
		return ""
	}
}

// Allowlist holds the hosts documents may be retrieved from. An entry
// matches its own host and any subdomain of it.
type Allowlist []string

// Allowed reports whether rawURL is an http(s) URL on an allowed host.
func (a Allowlist) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, entry := range a {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
