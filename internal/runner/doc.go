// Package runner executes external commands on behalf of stage steps and
// reports their exit codes.
package runner
