package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/stagerunner/internal/logfields"
)

// Manager handles workspace operations (both ephemeral and persistent)
type Manager struct {
	root      string
	baseDir   string
	depsDir   string
	ephemeral bool
}

// NewManager creates a persistent workspace: dependencies are cloned next to the project files.
func NewManager(root string) *Manager {
	if root == "" {
		root = "."
	}
	return &Manager{root: root}
}

// NewEphemeralManager creates a workspace whose dependency directory is a
// timestamped directory below baseDir (os.TempDir when empty).
func NewEphemeralManager(root, baseDir string) *Manager {
	m := NewManager(root)
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	m.baseDir = baseDir
	m.ephemeral = true
	return m
}

// Create resolves the project root and ensures the dependency directory exists.
func (m *Manager) Create() error {
	abs, err := filepath.Abs(m.root)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workspace root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace root is not a directory: %s", abs)
	}
	m.root = abs

	if !m.ephemeral {
		m.depsDir = abs
		slog.Debug("Using persistent workspace", logfields.Path(abs))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	depsDir := filepath.Join(m.baseDir, fmt.Sprintf("stagerunner-%s", timestamp))
	if err := os.MkdirAll(depsDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	m.depsDir = depsDir
	slog.Info("Created ephemeral dependency directory", logfields.Path(depsDir))
	return nil
}

// Root returns the absolute project root.
func (m *Manager) Root() string {
	return m.root
}

// DepsDir returns the directory sibling repositories are cloned into.
func (m *Manager) DepsDir() string {
	return m.depsDir
}

// Resolve returns rel joined to the project root; absolute paths pass through.
func (m *Manager) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.root, rel)
}

// DepPath returns where the named dependency is (or will be) checked out.
func (m *Manager) DepPath(name string) string {
	return filepath.Join(m.depsDir, name)
}

// Ephemeral reports whether Cleanup removes the dependency directory.
func (m *Manager) Ephemeral() bool {
	return m.ephemeral
}

// Cleanup removes the dependency directory in ephemeral mode and does nothing otherwise.
func (m *Manager) Cleanup() error {
	if !m.ephemeral || m.depsDir == "" {
		return nil
	}
	if err := os.RemoveAll(m.depsDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Info("Cleaned up workspace", logfields.Path(m.depsDir))
	m.depsDir = ""
	return nil
}
