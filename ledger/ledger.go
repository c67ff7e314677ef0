package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"event-ticketing/internal/status"
)

// Ledger stores one append-only hash chain per event, each persisted as a
// JSON file under dir. Appends are serialized per event; reads operate on a
// snapshot taken at call time and never block behind a slow append of a
// different event.
type Ledger struct {
	dir string

	mu     sync.Mutex
	chains map[string]*chainState
}

type chainState struct {
	mu    sync.Mutex
	chain *Chain
}

func New(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	return &Ledger{
		dir:    dir,
		chains: make(map[string]*chainState),
	}, nil
}

func (l *Ledger) chainFile(eventID string) string {
	return filepath.Join(l.dir, fmt.Sprintf("blockchain_event_%s.json", eventID))
}

func (l *Ledger) state(eventID string) *chainState {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.chains[eventID]
	if !ok {
		st = &chainState{}
		l.chains[eventID] = st
	}
	return st
}

// load reads and verifies the persisted chain, creating and persisting a
// genesis block when no chain exists yet. Caller must hold st.mu.
func (l *Ledger) load(eventID string, st *chainState) error {
	if st.chain != nil {
		return nil
	}

	raw, err := os.ReadFile(l.chainFile(eventID))
	if os.IsNotExist(err) {
		genesis := Block{
			Index:        0,
			Timestamp:    now(),
			Data:         map[string]any{"genesis": true},
			PreviousHash: genesisPreviousHash,
		}
		genesis.Hash, err = genesis.ComputeHash()
		if err != nil {
			return err
		}

		chain := &Chain{EventID: eventID, Blocks: []Block{genesis}}
		if err := l.persist(eventID, chain); err != nil {
			return err
		}
		st.chain = chain
		return nil
	}
	if err != nil {
		return fmt.Errorf("read chain for event %s: %w", eventID, err)
	}

	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return fmt.Errorf("%w: event %s: %v", status.ErrLedgerCorrupt, eventID, err)
	}

	chain := &Chain{EventID: eventID, Blocks: blocks}
	// A persisted chain is never trusted as-is: every link and hash is
	// re-verified before any read or append goes through it.
	if err := chain.Verify(); err != nil {
		return fmt.Errorf("event %s: %w", eventID, err)
	}

	st.chain = chain
	return nil
}

// persist atomically rewrites the chain file. The write goes to a temp file
// in the same directory followed by a rename, so a reader never observes a
// partially written chain and a failed write leaves the old file intact.
func (l *Ledger) persist(eventID string, chain *Chain) error {
	data, err := json.MarshalIndent(chain.Blocks, "", "    ")
	if err != nil {
		return fmt.Errorf("encode chain for event %s: %w", eventID, err)
	}

	target := l.chainFile(eventID)
	tmp, err := os.CreateTemp(l.dir, fmt.Sprintf(".blockchain_event_%s_*.tmp", eventID))
	if err != nil {
		return fmt.Errorf("%w: event %s: %v", status.ErrLedgerWriteFailure, eventID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: event %s: %v", status.ErrLedgerWriteFailure, eventID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: event %s: %v", status.ErrLedgerWriteFailure, eventID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: event %s: %v", status.ErrLedgerWriteFailure, eventID, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: event %s: %v", status.ErrLedgerWriteFailure, eventID, err)
	}

	return nil
}

// Open loads the chain for eventID, creating a genesis block when none
// exists. Repeated opens return the same logical chain. The returned chain
// is a snapshot; later appends do not mutate it.
func (l *Ledger) Open(eventID string) (*Chain, error) {
	st := l.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := l.load(eventID, st); err != nil {
		return nil, err
	}
	return snapshot(st.chain), nil
}

// Append adds a block carrying data to the event's chain and persists the
// updated chain before returning. Exactly one append per event runs at a
// time, so index assignment and previous-hash linking are race free.
func (l *Ledger) Append(eventID string, data map[string]any) (Block, error) {
	st := l.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := l.load(eventID, st); err != nil {
		return Block{}, err
	}

	return l.appendLocked(eventID, st, data)
}

// AppendIfAbsent appends a block carrying data unless a block matching pred
// already exists. The scan and the append hold the same per-event lock as
// Append, so two writers racing on the same payload produce exactly one
// block. The returned bool reports whether a new block was written; when a
// matching block already existed, that block is returned.
func (l *Ledger) AppendIfAbsent(eventID string, pred func(map[string]any) bool, data map[string]any) (Block, bool, error) {
	st := l.state(eventID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := l.load(eventID, st); err != nil {
		return Block{}, false, err
	}

	for _, b := range st.chain.Blocks {
		if pred(b.Data) {
			return b, false, nil
		}
	}

	block, err := l.appendLocked(eventID, st, data)
	if err != nil {
		return Block{}, false, err
	}
	return block, true, nil
}

// appendLocked links, hashes and persists one new block. Caller must hold
// st.mu with the chain loaded.
func (l *Ledger) appendLocked(eventID string, st *chainState, data map[string]any) (Block, error) {
	chain := st.chain
	block := Block{
		Index:        uint64(len(chain.Blocks)),
		Timestamp:    now(),
		Data:         data,
		PreviousHash: chain.Last().Hash,
	}

	var err error
	block.Hash, err = block.ComputeHash()
	if err != nil {
		return Block{}, err
	}

	chain.Blocks = append(chain.Blocks, block)
	if err := l.persist(eventID, chain); err != nil {
		// Keep memory consistent with the file that is still on disk.
		chain.Blocks = chain.Blocks[:len(chain.Blocks)-1]
		return Block{}, err
	}

	return block, nil
}

// Find scans the chain genesis-forward and returns the payload of the first
// block matching pred. The second return reports whether a block matched.
func (l *Ledger) Find(eventID string, pred func(map[string]any) bool) (map[string]any, bool, error) {
	chain, err := l.Open(eventID)
	if err != nil {
		return nil, false, err
	}

	for _, b := range chain.Blocks {
		if pred(b.Data) {
			return b.Data, true, nil
		}
	}
	return nil, false, nil
}

// Verify re-proves the integrity of the event's persisted chain.
func (l *Ledger) Verify(eventID string) error {
	chain, err := l.Open(eventID)
	if err != nil {
		return err
	}
	return chain.Verify()
}

func snapshot(c *Chain) *Chain {
	blocks := make([]Block, len(c.Blocks))
	copy(blocks, c.Blocks)
	return &Chain{EventID: c.EventID, Blocks: blocks}
}

// now returns seconds since epoch with sub-second precision, matching the
// timestamp format of the persisted chain files.
func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
