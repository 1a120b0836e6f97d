package instance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/storechat/internal/config"
)

func TestPathsUnderHome(t *testing.T) {
	base := t.TempDir()
	t.Setenv("STORECHAT_HOME", base)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"dir", Dir("main"), filepath.Join(base, "instances", "main")},
		{"socket", SocketPath("main"), filepath.Join(base, "instances", "main", "chatd.sock")},
		{"lock", LockPath("main"), filepath.Join(base, "instances", "main", "LOCK")},
		{"archive", ArchivePath("main"), filepath.Join(base, "instances", "main", "archive.db")},
		{"log", LogPath("main"), filepath.Join(base, "instances", "main", "logs", "chatd.log")},
		{"config", ConfigPath(), filepath.Join(base, "config.toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDefaultBaseDir(t *testing.T) {
	t.Setenv("STORECHAT_HOME", "")
	if !strings.HasSuffix(BaseDir(), ".storechat") {
		t.Errorf("BaseDir() = %q, want suffix .storechat", BaseDir())
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("STORECHAT_HOME", t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(LogDir("test"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("log dir is not a directory")
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("permission = %o, want 0700", perm)
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("STORECHAT_HOME", t.TempDir())

	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}
	if err := config.Save(ConfigPath(), &config.Config{DefaultInstance: "shop"}); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "shop" {
		t.Errorf("Resolve() with config = %q, want shop", got)
	}
	if got := Resolve("flag"); got != "flag" {
		t.Errorf("Resolve(flag) = %q, want flag", got)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "shop123", false},
		{"valid with hyphen", "my-shop", false},
		{"valid with underscore", "my_shop", false},
		{"valid max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my shop", true},
		{"dot", "my.shop", true},
		{"too long", strings.Repeat("a", 65), true},
		{"slash", "my/shop", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
