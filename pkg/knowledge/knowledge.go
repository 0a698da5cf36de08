// Package knowledge renders the static question and answer file served to the
// agent as an MCP tool.
package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const header = "Berikut adalah knowledge base yang ditemukan:\n\n"

var (
	ErrNotFound    = errors.New("Error: File knowledge base tidak ditemukan.")
	ErrInvalidJSON = errors.New("Error: Format JSON di file knowledge base tidak valid.")
)

type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Store reads the file on every call so edits are picked up without a restart.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Render returns the knowledge base as numbered T/J lines.
func (s *Store) Render() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("Error: Terjadi kesalahan - %w", err)
	}
	return Render(data)
}

// Render formats raw JSON. A list is rendered item by item; anything else is
// dumped as indented JSON.
func Render(data []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", ErrInvalidJSON
	}

	var b strings.Builder
	b.WriteString(header)

	items, ok := doc.([]any)
	if !ok {
		var indented bytes.Buffer
		if err := json.Indent(&indented, bytes.TrimSpace(data), "", "  "); err != nil {
			return "", ErrInvalidJSON
		}
		fmt.Fprintf(&b, "Isi knowledge base: %s\n\n", indented.String())
		return b.String(), nil
	}

	for i, item := range items {
		n := i + 1
		question, answer := fmt.Sprintf("Item %d", n), stringify(item)
		if obj, isObj := item.(map[string]any); isObj {
			question = field(obj, "question", "Pertanyaan tidak diketahui")
			answer = field(obj, "answer", "Jawaban tidak diketahui")
		}
		fmt.Fprintf(&b, "T%d: %s\nJ%d: %s\n\n", n, question, n, answer)
	}
	return b.String(), nil
}

func field(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok {
		return fallback
	}
	return stringify(v)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}
