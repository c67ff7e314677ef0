package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing/internal/status"
)

func setupTestLedger(t *testing.T) *Ledger {
	t.Helper()

	lg, err := New(t.TempDir())
	require.NoError(t, err)
	return lg
}

func TestLedger_OpenCreatesGenesis(t *testing.T) {
	lg := setupTestLedger(t)

	chain, err := lg.Open("event-1")
	require.NoError(t, err)

	require.Equal(t, 1, chain.Length())
	genesis := chain.Blocks[0]
	assert.Equal(t, uint64(0), genesis.Index)
	assert.Equal(t, "0", genesis.PreviousHash)
	assert.Equal(t, map[string]any{"genesis": true}, genesis.Data)

	recomputed, err := genesis.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, genesis.Hash, recomputed)

	// Genesis is persisted immediately
	_, err = os.Stat(filepath.Join(lg.dir, "blockchain_event_event-1.json"))
	assert.NoError(t, err)
}

func TestLedger_OpenIsIdempotent(t *testing.T) {
	lg := setupTestLedger(t)

	first, err := lg.Open("event-1")
	require.NoError(t, err)
	second, err := lg.Open("event-1")
	require.NoError(t, err)

	assert.Equal(t, first.Blocks, second.Blocks)
}

func TestLedger_AppendGrowsChain(t *testing.T) {
	lg := setupTestLedger(t)

	const n = 5
	for i := 0; i < n; i++ {
		block, err := lg.Append("event-1", map[string]any{"ticket_hash": fmt.Sprintf("hash-%d", i)})
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), block.Index)
	}

	chain, err := lg.Open("event-1")
	require.NoError(t, err)
	require.Equal(t, n+1, chain.Length())

	for i := 1; i < chain.Length(); i++ {
		assert.Equal(t, uint64(i), chain.Blocks[i].Index)
		assert.Equal(t, chain.Blocks[i-1].Hash, chain.Blocks[i].PreviousHash)
	}
	assert.NoError(t, chain.Verify())
}

func TestLedger_RoundTripReload(t *testing.T) {
	dir := t.TempDir()

	lg, err := New(dir)
	require.NoError(t, err)
	_, err = lg.Append("event-1", map[string]any{"ticket_hash": "abc", "tier": "VIP"})
	require.NoError(t, err)
	before, err := lg.Open("event-1")
	require.NoError(t, err)

	// A fresh ledger instance reloads the same chain from disk
	reloaded, err := New(dir)
	require.NoError(t, err)
	after, err := reloaded.Open("event-1")
	require.NoError(t, err)

	assert.Equal(t, before.Blocks, after.Blocks)
	assert.NoError(t, after.Verify())
}

func TestLedger_TamperedPayloadDetectedOnLoad(t *testing.T) {
	dir := t.TempDir()

	lg, err := New(dir)
	require.NoError(t, err)
	_, err = lg.Append("event-1", map[string]any{"ticket_hash": "abc"})
	require.NoError(t, err)

	file := filepath.Join(dir, "blockchain_event_event-1.json")
	raw, err := os.ReadFile(file)
	require.NoError(t, err)

	var blocks []Block
	require.NoError(t, json.Unmarshal(raw, &blocks))
	blocks[1].Data["ticket_hash"] = "forged"
	tampered, err := json.Marshal(blocks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, tampered, 0o644))

	reloaded, err := New(dir)
	require.NoError(t, err)
	_, err = reloaded.Open("event-1")
	require.ErrorIs(t, err, status.ErrLedgerCorrupt)
}

func TestLedger_BrokenLinkDetectedOnLoad(t *testing.T) {
	dir := t.TempDir()

	lg, err := New(dir)
	require.NoError(t, err)
	_, err = lg.Append("event-1", map[string]any{"ticket_hash": "a"})
	require.NoError(t, err)
	_, err = lg.Append("event-1", map[string]any{"ticket_hash": "b"})
	require.NoError(t, err)

	file := filepath.Join(dir, "blockchain_event_event-1.json")
	raw, err := os.ReadFile(file)
	require.NoError(t, err)

	var blocks []Block
	require.NoError(t, json.Unmarshal(raw, &blocks))
	// Drop the middle block: indices and links no longer line up
	blocks = append(blocks[:1], blocks[2:]...)
	tampered, err := json.Marshal(blocks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, tampered, 0o644))

	reloaded, err := New(dir)
	require.NoError(t, err)
	_, err = reloaded.Open("event-1")
	require.ErrorIs(t, err, status.ErrLedgerCorrupt)
}

func TestLedger_GarbageFileDetectedOnLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blockchain_event_event-1.json"), []byte("not json"), 0o644))

	lg, err := New(dir)
	require.NoError(t, err)
	_, err = lg.Open("event-1")
	require.ErrorIs(t, err, status.ErrLedgerCorrupt)
}

func TestLedger_Find(t *testing.T) {
	lg := setupTestLedger(t)

	_, err := lg.Append("event-1", map[string]any{"ticket_hash": "aaa", "tier": "GA"})
	require.NoError(t, err)
	_, err = lg.Append("event-1", map[string]any{"ticket_hash": "bbb", "tier": "VIP"})
	require.NoError(t, err)

	payload, found, err := lg.Find("event-1", func(data map[string]any) bool {
		return data["ticket_hash"] == "bbb"
	})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "VIP", payload["tier"])

	_, found, err = lg.Find("event-1", func(data map[string]any) bool {
		return data["ticket_hash"] == "zzz"
	})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLedger_SnapshotIsolation(t *testing.T) {
	lg := setupTestLedger(t)

	snap, err := lg.Open("event-1")
	require.NoError(t, err)
	lengthBefore := snap.Length()

	_, err = lg.Append("event-1", map[string]any{"ticket_hash": "abc"})
	require.NoError(t, err)

	// The earlier snapshot is unaffected by the append
	assert.Equal(t, lengthBefore, snap.Length())
}

func TestLedger_ConcurrentAppendsStayLinked(t *testing.T) {
	lg := setupTestLedger(t)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := lg.Append("event-1", map[string]any{"ticket_hash": fmt.Sprintf("hash-%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	chain, err := lg.Open("event-1")
	require.NoError(t, err)
	require.Equal(t, writers+1, chain.Length())
	assert.NoError(t, chain.Verify())
}

func TestLedger_AppendIfAbsent(t *testing.T) {
	lg := setupTestLedger(t)
	byHash := func(hash string) func(map[string]any) bool {
		return func(data map[string]any) bool { return data["ticket_hash"] == hash }
	}

	first, appended, err := lg.AppendIfAbsent("event-1", byHash("abc"), map[string]any{"ticket_hash": "abc"})
	require.NoError(t, err)
	assert.True(t, appended)

	// Second writer with the same key gets the existing block back.
	second, appended, err := lg.AppendIfAbsent("event-1", byHash("abc"), map[string]any{"ticket_hash": "abc"})
	require.NoError(t, err)
	assert.False(t, appended)
	assert.Equal(t, first, second)

	chain, err := lg.Open("event-1")
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Length()) // genesis + one issuance

	// A different key still appends.
	_, appended, err = lg.AppendIfAbsent("event-1", byHash("def"), map[string]any{"ticket_hash": "def"})
	require.NoError(t, err)
	assert.True(t, appended)
}

func TestLedger_AppendIfAbsentRacersWriteOneBlock(t *testing.T) {
	lg := setupTestLedger(t)
	byHash := func(data map[string]any) bool { return data["ticket_hash"] == "abc" }

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, appended, err := lg.AppendIfAbsent("event-1", byHash, map[string]any{"ticket_hash": "abc"})
			assert.NoError(t, err)
			wins <- appended
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for appended := range wins {
		if appended {
			won++
		}
	}
	assert.Equal(t, 1, won)

	chain, err := lg.Open("event-1")
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Length())
	assert.NoError(t, chain.Verify())
}

func TestLedger_EventsAreIndependent(t *testing.T) {
	lg := setupTestLedger(t)

	_, err := lg.Append("event-1", map[string]any{"ticket_hash": "a"})
	require.NoError(t, err)

	chain2, err := lg.Open("event-2")
	require.NoError(t, err)
	assert.Equal(t, 1, chain2.Length())
}

func TestLedger_VerifyPersistedChain(t *testing.T) {
	lg := setupTestLedger(t)

	_, err := lg.Append("event-1", map[string]any{"ticket_hash": "a"})
	require.NoError(t, err)

	assert.NoError(t, lg.Verify("event-1"))
}
