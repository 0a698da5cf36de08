package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_List(t *testing.T) {
	out, err := Render([]byte(`[
		{"question": "Jam buka?", "answer": "08.00 - 16.00"},
		{"question": "Alamat?"},
		"teks bebas"
	]`))
	require.NoError(t, err)

	assert.Equal(t, header+
		"T1: Jam buka?\nJ1: 08.00 - 16.00\n\n"+
		"T2: Alamat?\nJ2: Jawaban tidak diketahui\n\n"+
		"T3: Item 3\nJ3: teks bebas\n\n", out)
}

func TestRender_NotAList(t *testing.T) {
	out, err := Render([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Isi knowledge base: {\n  \"a\": 1\n}")
}

func TestRender_InvalidJSON(t *testing.T) {
	_, err := Render([]byte(`[{`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestStore_Render(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	_, err := NewStore(path).Render()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(path, []byte(`[{"question":"Q","answer":"A"}]`), 0o644))
	out, err := NewStore(path).Render()
	require.NoError(t, err)
	assert.Contains(t, out, "T1: Q\nJ1: A")
}
