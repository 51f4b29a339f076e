package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_PersistentMode(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if mgr.DepsDir() != mgr.Root() {
		t.Errorf("expected deps dir to equal root, got %s vs %s", mgr.DepsDir(), mgr.Root())
	}

	marker := filepath.Join(mgr.DepPath("cloudify-rest-client"), "marker.txt")
	if err := os.MkdirAll(filepath.Dir(marker), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marker, []byte("persistent"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Cleanup should NOT remove anything in persistent mode
	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("marker removed from persistent workspace: %v", err)
	}
}

func TestManager_EphemeralMode(t *testing.T) {
	root := t.TempDir()
	base := t.TempDir()
	mgr := NewEphemeralManager(root, base)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	deps := mgr.DepsDir()
	if !strings.HasPrefix(filepath.Base(deps), "stagerunner-") {
		t.Errorf("expected timestamped directory, got: %s", deps)
	}
	if filepath.Dir(deps) != base {
		t.Errorf("expected deps dir under %s, got %s", base, deps)
	}
	if mgr.Root() == deps {
		t.Error("ephemeral deps dir must differ from root")
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(deps); !os.IsNotExist(err) {
		t.Errorf("deps dir still exists after cleanup: %s", deps)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("project root must survive cleanup: %v", err)
	}
}

func TestManager_ResolveRelativeAndAbsolute(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)
	if err := mgr.Create(); err != nil {
		t.Fatal(err)
	}

	if got := mgr.Resolve("rest-service"); got != filepath.Join(mgr.Root(), "rest-service") {
		t.Errorf("unexpected relative resolution %s", got)
	}
	if got := mgr.Resolve("/opt/x"); got != "/opt/x" {
		t.Errorf("absolute path should pass through, got %s", got)
	}
}

func TestManager_CreateRejectsMissingRoot(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err := mgr.Create(); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestManager_CreateRejectsFileRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewManager(file).Create(); err == nil {
		t.Fatal("expected error for file root")
	}
}
