package repl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewHistory(t *testing.T) {
	h := NewHistory("", 0)
	if h.maxSize != DefaultHistorySize {
		t.Errorf("maxSize = %d, want %d", h.maxSize, DefaultHistorySize)
	}
	if h.entries == nil {
		t.Error("entries should be initialized")
	}
}

func TestDefaultHistoryPath(t *testing.T) {
	path := DefaultHistoryPath()
	if !strings.HasSuffix(path, filepath.Join(".rediswire", "history")) {
		t.Errorf("DefaultHistoryPath() = %q", path)
	}
}

func TestHistory_Add(t *testing.T) {
	h := NewHistory("", 10)

	h.Add("GET a")
	h.Add("GET a")
	h.Add("")
	h.Add("SET a 1")
	h.Add("GET a")

	want := []string{"GET a", "SET a 1", "GET a"}
	if got := h.Entries(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Entries() = %q, want %q", got, want)
	}
}

func TestHistory_Add_SkipsCredentials(t *testing.T) {
	h := NewHistory("", 10)

	for _, line := range []string{
		"AUTH s3cret",
		"auth user s3cret",
		"3 AUTH s3cret",
		"HELLO 3 AUTH user s3cret",
		"CONFIG SET requirepass s3cret",
		"ACL SETUSER bob on >pw",
	} {
		h.Add(line)
	}
	h.Add("CONFIG GET maxmemory")
	h.Add(`SET "unbalanced`)

	if h.Len() != 2 {
		t.Errorf("Entries() = %q, want only the two non-credential lines", h.Entries())
	}
}

func TestHistory_Add_MaxSize(t *testing.T) {
	h := NewHistory("", 3)

	h.Add("cmd1")
	h.Add("cmd2")
	h.Add("cmd3")
	h.Add("cmd4")

	if h.Len() != 3 {
		t.Errorf("Len() = %d, want %d", h.Len(), 3)
	}
	if h.entries[0] != "cmd2" {
		t.Errorf("entries[0] = %q, want %q", h.entries[0], "cmd2")
	}
}

func TestHistory_Get(t *testing.T) {
	h := NewHistory("", 10)
	h.Add("first")
	h.Add("second")
	h.Add("third")

	tests := []struct {
		index int
		want  string
	}{
		{0, "third"},
		{1, "second"},
		{2, "first"},
		{3, ""},
		{-1, ""},
	}

	for _, tt := range tests {
		if got := h.Get(tt.index); got != tt.want {
			t.Errorf("Get(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	historyFile := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistory(historyFile, 10)
	h.Add("command1")
	h.Add("command2")
	h.Add("command3")

	if err := h.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(historyFile)
	if err != nil {
		t.Fatalf("history file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	h2 := NewHistory(historyFile, 2)
	if err := h2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := strings.Join(h2.Entries(), ","); got != "command2,command3" {
		t.Errorf("loaded entries = %s", got)
	}
}

func TestHistory_Load_NonexistentFile(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "missing"), 10)

	if err := h.Load(); err != nil {
		t.Errorf("Load of nonexistent file should not error: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("entries should be empty after loading nonexistent file")
	}
}

func TestHistory_InMemory(t *testing.T) {
	h := NewHistory("", 10)
	h.Add("PING")
	if err := h.Save(); err != nil {
		t.Errorf("Save() without file error = %v", err)
	}
	if err := h.Load(); err != nil {
		t.Errorf("Load() without file error = %v", err)
	}
}
