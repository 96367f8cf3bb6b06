// Package cloak implements the traffic classification engine: the pipeline
// that decides, per visitor, whether to serve genuine content or a decoy.
package cloak

import "fmt"

// Verdict is the binary traffic classification result.
type Verdict string

const (
	// VerdictOrganic means the visitor looks genuine and receives the
	// real landing page.
	VerdictOrganic Verdict = "organic"
	// VerdictDecoy means the visitor looks automated (reviewer, crawler,
	// scanner, anonymizing infrastructure) and receives the decoy page.
	VerdictDecoy Verdict = "decoy"
)

// ParseVerdict converts a stored string back into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictOrganic:
		return VerdictOrganic, nil
	case VerdictDecoy:
		return VerdictDecoy, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", s)
	}
}

// String returns the wire representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}
