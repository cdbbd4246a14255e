package diag

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormat(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 123_000_000, time.FixedZone("BRT", -3*60*60))

	got := Format(at, "Usuario.inserir: Campos obrigatórios faltando")

	assert.Equal(t, "[2024-05-01T12:30:00.123Z] Usuario.inserir: Campos obrigatórios faltando\n", got)
}

func TestFileSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "erros.log")

	// Pre-existing content must be preserved.
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[old] entry\n"), 0o644))

	sink, err := Open(path, quietLogger())
	require.NoError(t, err)

	sink.Record("first")
	sink.Record("second")
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[old] entry", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "] first"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "] second"), lines[2])
	assert.True(t, strings.HasPrefix(lines[1], "["))
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	sink, err := Open(filepath.Join(t.TempDir(), "erros.log"), quietLogger())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.NotPanics(t, func() { sink.Record("late") })
	assert.Equal(t, uint64(1), sink.Dropped())

	// Closing twice is harmless.
	assert.NoError(t, sink.Close())
}

func TestSinkFunc(t *testing.T) {
	var got []string
	var s Sink = SinkFunc(func(m string) { got = append(got, m) })

	s.Record("a")
	Discard.Record("ignored")

	assert.Equal(t, []string{"a"}, got)
}
