package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func readDeliveries(t *testing.T, path string) []DeliveryEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []DeliveryEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e DeliveryEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop())
	assert.Error(t, err)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	assert.Error(t, err)
}

func TestFileStoreCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "hwbot.db")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)

	_, ok, err := st.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no checkpoint")

	require.NoError(t, st.SaveCheckpoint(ctx, Checkpoint{Cursor: 1000, LastText: "first"}))
	require.NoError(t, st.SaveCheckpoint(ctx, Checkpoint{Cursor: 2000, LastText: "second"}))
	require.NoError(t, st.Close())

	// Reopen to make sure the checkpoint survived.
	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cp, ok, err := st.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2000, cp.Cursor)
	assert.Equal(t, "second", cp.LastText)
	assert.False(t, cp.UpdatedAt.IsZero())

	_, err = os.Stat(filepath.Join(dir, "state", "hwbot.checkpoint.json.tmp"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "tmp file must be renamed away")
}

func TestFileStoreAppendsDeliveries(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "hwbot")}, logx.Nop())
	require.NoError(t, err)

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.AppendDelivery(ctx, DeliveryEntry{At: at, ChatID: 42, Text: "a", OK: true, TookMS: 5}))
	require.NoError(t, st.AppendDelivery(ctx, DeliveryEntry{ChatID: 42, Text: "b", Error: "chat not found"}))
	require.NoError(t, st.Close())

	got := readDeliveries(t, filepath.Join(dir, "hwbot.deliveries.jsonl"))
	require.Len(t, got, 2)
	assert.True(t, got[0].At.Equal(at))
	assert.True(t, got[0].OK)
	assert.Equal(t, "b", got[1].Text)
	assert.False(t, got[1].OK)
	assert.False(t, got[1].At.IsZero())

	assert.Error(t, st.AppendDelivery(ctx, DeliveryEntry{Text: "after close"}))
}
