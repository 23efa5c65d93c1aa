package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/yndnr/rediswire/internal/telemetry/logger"
)

// DefaultHistorySize is the number of entries kept by default.
const DefaultHistorySize = 1000

// History manages command history for the REPL. Commands that carry
// credentials are never recorded.
type History struct {
	entries []string
	maxSize int
	file    string
}

// DefaultHistoryPath returns ~/.rediswire/history.
func DefaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".rediswire", "history")
}

// NewHistory creates a History persisted at file. An empty file keeps the
// history in memory only.
func NewHistory(file string, maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		entries: make([]string, 0),
		maxSize: maxSize,
		file:    file,
	}
}

// Add records a command line. Lines with credentials and repeats of the
// previous line are skipped.
func (h *History) Add(line string) {
	if line == "" || isSensitive(line) {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

func isSensitive(line string) bool {
	args, err := SplitArgs(line)
	if err != nil {
		return false
	}
	if _, err := strconv.Atoi(args[0]); err == nil && len(args) > 1 {
		args = args[1:]
	}
	return !slices.Equal(args, logger.RedactCommand(args))
}

// Get returns the history entry at index (0 = most recent).
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns the entries, oldest first.
func (h *History) Entries() []string {
	return slices.Clone(h.entries)
}

// Load loads history from file. A missing file is not an error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	file, err := os.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.Add(scanner.Text())
	}
	return scanner.Err()
}

// Save writes history to file with mode 0600.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	dir := filepath.Dir(h.file)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(h.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, entry := range h.entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
