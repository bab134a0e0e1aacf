package main

import (
	"path/filepath"
	"testing"

	"dupdrive/internal/app"
	"dupdrive/internal/config"
)

// withConfig points the defaults at a fresh config under a temp base dir.
func withConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "dupdrive.toml")
	t.Setenv("DUPDRIVE_CONFIG_PATH", path)
	t.Setenv("DUPDRIVE_HOME", base)

	cfg := config.NewConfig("install-test", base)
	cfg.Journal = config.JournalConfig{Type: "memory"}
	if err := config.Init(path, cfg); err != nil {
		t.Fatal(err)
	}
	return base
}

func parseFind(t *testing.T, args ...string) {
	t.Helper()
	cmd, _, err := rootCmd.Find([]string{"find"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, name := range []string{"credentials", "dump", "path"} {
			cmd.Flags().Set(name, "")
		}
	})
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error = %v", args, err)
	}
}

func TestRootCmd_credentialsShorthand(t *testing.T) {
	f := rootCmd.PersistentFlags().ShorthandLookup("c")
	if f == nil || f.Name != "credentials" {
		t.Fatalf("-c = %+v, want the credentials flag", f)
	}
}

func TestNewApp_sourceOverrides(t *testing.T) {
	t.Run("credentials", func(t *testing.T) {
		withConfig(t)
		creds := filepath.Join(t.TempDir(), "client.json")
		parseFind(t, "-c", creds, "-p", "/My Drive")

		a, err := newApp(findCmd, "Find", app.Options{})
		if err != nil {
			t.Fatalf("newApp() error = %v", err)
		}
		defer a.Close()

		src := a.Config().Source
		if src.Type != "drive" || src.CredentialsPath != creds {
			t.Errorf("source = %+v, want drive with %s", src, creds)
		}
		if path, _ := findCmd.Flags().GetString("path"); path != "/My Drive" {
			t.Errorf("path = %q", path)
		}
	})

	t.Run("dump wins over credentials", func(t *testing.T) {
		withConfig(t)
		dump := filepath.Join(t.TempDir(), "listing.json")
		parseFind(t, "--dump", dump, "--credentials", "ignored.json")

		a, err := newApp(findCmd, "Find", app.Options{})
		if err != nil {
			t.Fatalf("newApp() error = %v", err)
		}
		defer a.Close()

		if src := a.Config().Source; src.Type != "dump" || src.DumpPath != dump {
			t.Errorf("source = %+v, want dump %s", src, dump)
		}
	})

	t.Run("configured source without flags", func(t *testing.T) {
		base := withConfig(t)
		parseFind(t)

		a, err := newApp(findCmd, "Find", app.Options{})
		if err != nil {
			t.Fatalf("newApp() error = %v", err)
		}
		defer a.Close()

		if got := a.Config().Source.CredentialsPath; got != filepath.Join(base, "credentials.json") {
			t.Errorf("CredentialsPath = %q", got)
		}
	})
}
