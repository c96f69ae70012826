package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"urlguard/internal/auth"
	"urlguard/internal/urlkey"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRoot("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setupEnvironment points the database at a temp sqlite file and writes a
// settings file whose blacklist is read from feed.
func setupEnvironment(t *testing.T, feed string) string {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "urlguard.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("VIRUSTOTAL_API_KEY", "")

	source := `"source": "none"`
	if feed != "" {
		feedPath := filepath.Join(dir, "blacklist.csv")
		if err := os.WriteFile(feedPath, []byte(feed), 0o600); err != nil {
			t.Fatalf("write feed: %v", err)
		}
		source = fmt.Sprintf(`"source": "file", "file_path": %q`, feedPath)
	}

	settingsPath := filepath.Join(dir, "settings.json")
	settings := fmt.Sprintf(`{"blacklist": {%s}}`, source)
	if err := os.WriteFile(settingsPath, []byte(settings), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return settingsPath
}

func TestSyncThenCheck(t *testing.T) {
	settings := setupEnvironment(t, "domain,category,description\nevil.com,Phishing,Fake bank login\n")

	out, err := execute(t, "--settings", settings, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "synced 1 domains") {
		t.Fatalf("sync output = %q", out)
	}

	out, err = execute(t, "--settings", settings, "check", "https://www.evil.com/login", "https://example.org")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("check output = %q", out)
	}
	if !strings.HasPrefix(lines[0], "BLOCKED") || !strings.Contains(lines[0], "Phishing") {
		t.Fatalf("first line = %q, want a blacklist block", lines[0])
	}
	if !strings.HasPrefix(lines[1], "SAFE") {
		t.Fatalf("second line = %q, want SAFE", lines[1])
	}
}

func TestCheckJSON(t *testing.T) {
	settings := setupEnvironment(t, "")

	out, err := execute(t, "--settings", settings, "check", "--json", "--no-remote", "not a url")
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	var line checkLine
	if err := json.Unmarshal([]byte(out), &line); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if line.URL != "not a url" || !line.Safe {
		t.Fatalf("line = %+v, want safe", line)
	}
}

func TestSyncWithoutSource(t *testing.T) {
	settings := setupEnvironment(t, "")

	if _, err := execute(t, "--settings", settings, "sync"); err == nil {
		t.Fatal("expected an error without a blacklist source")
	}
}

func TestCheckRequiresURL(t *testing.T) {
	if _, err := execute(t, "check"); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestKeyCommand(t *testing.T) {
	out, err := execute(t, "key", "https://WWW.Evil.com:8443/path")
	if err != nil {
		t.Fatalf("key: %v", err)
	}

	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) != 3 {
		t.Fatalf("output = %q", out)
	}
	if fields[0] != urlkey.DeriveKey("https://WWW.Evil.com:8443/path") {
		t.Fatalf("key = %q", fields[0])
	}
	if fields[1] != "evil.com" {
		t.Fatalf("domain = %q, want evil.com", fields[1])
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--subject", "ops", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims, err := auth.NewAuthenticator("cli-secret").ValidateJWT(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != auth.RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenCommandWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := execute(t, "token"); err == nil {
		t.Fatal("expected an error without JWT_SECRET")
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != "urlguardctl test" {
		t.Fatalf("output = %q", out)
	}
}
