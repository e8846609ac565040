package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	abs, err := root.Resolve("alice", "photos/1_photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root.Base(), "alice", "photos", "1_photo.jpg")
	if abs != want {
		t.Errorf("Resolve = %q, want %q", abs, want)
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	bad := []struct {
		handle string
		rel    string
	}{
		{"alice", "../other/secret"},
		{"alice", "/etc/passwd"},
		{"..", "photos/x.jpg"},
		{"a/b", "photos/x.jpg"},
		{"", "photos/x.jpg"},
	}
	for _, tt := range bad {
		if _, err := root.Resolve(tt.handle, tt.rel); err == nil {
			t.Errorf("Resolve(%q, %q) should fail", tt.handle, tt.rel)
		}
	}
}

func TestRemoveAccount(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dir := root.AccountDir("bob")
	if err := os.MkdirAll(filepath.Join(dir, "voices"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "voices", "1.oga"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := root.RemoveAccount("bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("account dir still exists after RemoveAccount")
	}
}

func TestRemoveAccountRejectsBadHandle(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := root.RemoveAccount("../elsewhere"); err == nil {
		t.Error("RemoveAccount should reject path-like handles")
	}
}
