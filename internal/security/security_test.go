package security

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCheckAllowed(t *testing.T) {
	bad := []string{
		"rm -rf /",
		"rm -rf / --no-preserve-root",
		"rm -rf ~",
		"mkfs.ext4 /dev/sda",
		"dd if=/dev/zero of=/dev/sda bs=4096",
		":(){ :|:& };:",
		"wipefs -a /dev/sda",
		"   ",
	}
	for _, s := range bad {
		if err := CheckAllowed(s); err == nil {
			t.Fatalf("expected %q to be blocked", s)
		}
	}

	good := []string{
		"stubgen bimcvcovid19i -o .",
		"python setup.py sdist bdist_wheel",
		"twine upload dist/* -r pypi",
	}
	for _, s := range good {
		if err := CheckAllowed(s); err != nil {
			t.Fatalf("expected %q to be allowed: %v", s, err)
		}
	}
}

func TestWithinRoot(t *testing.T) {
	root := t.TempDir()
	inside := []string{root, filepath.Join(root, "dist"), filepath.Join(root, "a", "..", "build")}
	for _, p := range inside {
		if err := WithinRoot(root, p); err != nil {
			t.Fatalf("expected %q inside %q: %v", p, root, err)
		}
	}
	outside := []string{filepath.Dir(root), filepath.Join(root, "..", "sibling"), filepath.Join(root, "..")}
	for _, p := range outside {
		err := WithinRoot(root, p)
		if !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("expected ErrOutsideRoot for %q, got %v", p, err)
		}
	}
	// a sibling sharing the root's prefix is still outside
	if err := WithinRoot(root, root+"-other"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected prefix sibling to be rejected, got %v", err)
	}
}

func TestStrictlyWithinRootRejectsRoot(t *testing.T) {
	root := t.TempDir()
	if err := StrictlyWithinRoot(root, root); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected root to be rejected, got %v", err)
	}
	if err := StrictlyWithinRoot(root, filepath.Join(root, "dist")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
