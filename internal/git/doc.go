// Package git fetches the sibling repositories a stage depends on using go-git.
//
// A missing checkout is cloned (shallow when a depth is configured); an
// existing checkout is pulled. Failures are classified into typed errors so
// callers can tell permanent problems (bad URL, missing repository, auth)
// from transient ones worth retrying.
package git
