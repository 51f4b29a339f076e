package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "lint", Stage("lint")},
		{"Step", KeyStep, "flake8 tests", Step("flake8 tests")},
		{"Kind", KeyKind, "clone", Kind("clone")},
		{"Command", KeyCommand, "pip install .", Command("pip install .")},
		{"Repository", KeyRepo, "cloudify-rest-client", Repository("cloudify-rest-client")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Name", KeyName, "n", Name("n")},
		{"URL", KeyURL, "http://example", URL("http://example")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := ExitCode(3); a.Key != KeyExitCode || a.Value.Int64() != 3 {
		t.Fatalf("unexpected exit code attr: %v", a)
	}
	if a := Index(2); a.Key != KeyIndex || a.Value.Int64() != 2 {
		t.Fatalf("unexpected index attr: %v", a)
	}
	if a := Guarded(true); a.Key != KeyGuarded || !a.Value.Bool() {
		t.Fatalf("unexpected guarded attr: %v", a)
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should render empty, got %v", a)
	}
}
