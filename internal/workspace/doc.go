// Package workspace manages the directories a stage runs in.
//
// The project root is the checkout whose local paths (plugins/, rest-service/,
// tests/) steps refer to. Sibling repositories are cloned into the
// dependency directory, which is the project root itself in persistent mode
// and a timestamped directory (e.g. stagerunner-20251214-122336) in ephemeral
// mode. Ephemeral dependency directories are removed by Cleanup.
package workspace
