package vault

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root, "install-1")
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "artifacts", "install-1")); err != nil {
			t.Errorf("artifact directory not created: %v", err)
		}
		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir(), "install-1"); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})

	t.Run("rejects install id with separators", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir(), "../escape"); err == nil {
			t.Error("NewFileSystemVault() expected error for invalid install id")
		}
	})
}

func TestFileSystemVault_PutArtifact(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		data     string
		size     int64
		wantErr  bool
	}{
		{name: "store artifact successfully", artifact: "decisions.json", data: "hello world", size: 11},
		{name: "size mismatch", artifact: "bad.json", data: "hello", size: 100, wantErr: true},
		{name: "empty artifact", artifact: "empty.json", data: "", size: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFileSystemVault("test", t.TempDir(), "install-1")
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutArtifact(context.Background(), tt.artifact, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("PutArtifact() error = %v, wantErr %v", err, tt.wantErr)
			}

			path := filepath.Join(v.dir, tt.artifact)
			data, readErr := os.ReadFile(path)
			if tt.wantErr {
				if readErr == nil {
					t.Error("artifact written despite size mismatch")
				}
				return
			}
			if readErr != nil {
				t.Fatalf("failed to read artifact file: %v", readErr)
			}
			if string(data) != tt.data {
				t.Errorf("content = %q, want %q", string(data), tt.data)
			}
		})
	}
}

func TestFileSystemVault_PutArtifact_leavesNoTempFiles(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir(), "install-1")
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	_ = v.PutArtifact(context.Background(), "bad.json", strings.NewReader("x"), 5)
	if err := v.PutArtifact(context.Background(), "ok.json", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(v.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "ok.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory entries = %v, want [ok.json]", names)
	}
}

func TestFileSystemVault_GetArtifact(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir(), "install-1")
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	ctx := context.Background()

	t.Run("retrieve existing artifact", func(t *testing.T) {
		data := "hello world"
		if err := v.PutArtifact(ctx, "plan.json", strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutArtifact() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetArtifact(ctx, "plan.json", &buf); err != nil {
			t.Fatalf("GetArtifact() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("content = %q, want %q", buf.String(), data)
		}
	})

	t.Run("artifact not found", func(t *testing.T) {
		var buf bytes.Buffer
		if err := v.GetArtifact(ctx, "nonexistent", &buf); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("GetArtifact() error = %v, want ErrArtifactNotFound", err)
		}
	})

	t.Run("installations are isolated", func(t *testing.T) {
		other, err := NewFileSystemVault("test", v.root, "install-2")
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := other.GetArtifact(ctx, "plan.json", &buf); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("GetArtifact() from other install error = %v, want ErrArtifactNotFound", err)
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir(), "install-1")
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := v.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		root := t.TempDir()
		v, err := NewFileSystemVault("test", root, "install-1")
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := os.RemoveAll(filepath.Join(root, "artifacts")); err != nil {
			t.Fatal(err)
		}
		if err := v.ValidateSetup(context.Background()); err == nil {
			t.Error("ValidateSetup() expected error for missing directory")
		}
	})
}
