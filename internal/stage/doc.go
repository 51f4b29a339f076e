// Package stage defines stages as data: an identifier plus an ordered list
// of step descriptors. The built-in catalog reproduces the CI jobs of the
// manager repository (plugins, rest-service, integration tests, lint).
package stage
