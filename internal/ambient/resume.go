package ambient

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ResumeStore persists the last known melody position so a later
// session resumes roughly where the previous one stopped. The value is
// not correctness-critical: every failure path degrades to index 0.
type ResumeStore struct {
	path string
}

// NewResumeStore opens a store at path; an empty path uses a
// session-scoped default under the system temp directory.
func NewResumeStore(path string) *ResumeStore {
	if path == "" {
		path = filepath.Join(os.TempDir(), "chime-resume")
	}
	return &ResumeStore{path: path}
}

// Load returns the persisted index, or 0 when absent or unreadable.
func (s *ResumeStore) Load() int {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return v
}

// Save writes the index, last-write-wins. The error is reported so the
// caller can warn once, but persistence failure never affects playback.
func (s *ResumeStore) Save(index int) error {
	return os.WriteFile(s.path, []byte(strconv.Itoa(index)), 0o644)
}
