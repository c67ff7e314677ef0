package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"event-ticketing/internal/status"
)

// Block is one immutable, hash-linked record in an event's chain.
type Block struct {
	Index        uint64         `json:"index"`
	Timestamp    float64        `json:"timestamp"`
	Data         map[string]any `json:"data"`
	PreviousHash string         `json:"previous_hash"`
	Hash         string         `json:"hash"`
}

// genesisPreviousHash is the sentinel previous-hash of every chain's first block.
const genesisPreviousHash = "0"

// computeHash digests the canonical key-sorted JSON of the block fields,
// excluding the hash itself. encoding/json writes map keys in sorted order,
// which keeps the digest input deterministic across append and reload.
func computeHash(index uint64, timestamp float64, data map[string]any, previousHash string) (string, error) {
	canonical, err := json.Marshal(map[string]any{
		"data":          data,
		"index":         index,
		"previous_hash": previousHash,
		"timestamp":     timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("canonicalize block: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ComputeHash recomputes the block's hash from its stored fields.
func (b Block) ComputeHash() (string, error) {
	return computeHash(b.Index, b.Timestamp, b.Data, b.PreviousHash)
}

// verifyLink checks the block's stored hash and its link to the previous
// block. prev is nil for the genesis block.
func (b Block) verifyLink(prev *Block) error {
	if prev == nil {
		if b.Index != 0 {
			return fmt.Errorf("%w: first block has index %d", status.ErrLedgerCorrupt, b.Index)
		}
		if b.PreviousHash != genesisPreviousHash {
			return fmt.Errorf("%w: genesis previous_hash %q", status.ErrLedgerCorrupt, b.PreviousHash)
		}
	} else {
		if b.Index != prev.Index+1 {
			return fmt.Errorf("%w: block %d follows block %d", status.ErrLedgerCorrupt, b.Index, prev.Index)
		}
		if b.PreviousHash != prev.Hash {
			return fmt.Errorf("%w: block %d previous_hash does not match block %d hash", status.ErrLedgerCorrupt, b.Index, prev.Index)
		}
	}

	recomputed, err := b.ComputeHash()
	if err != nil {
		return err
	}
	if recomputed != b.Hash {
		return fmt.Errorf("%w: block %d hash mismatch", status.ErrLedgerCorrupt, b.Index)
	}

	return nil
}

// Chain is the append-only ordered block sequence for one event.
type Chain struct {
	EventID string
	Blocks  []Block
}

func (c *Chain) Last() Block {
	return c.Blocks[len(c.Blocks)-1]
}

func (c *Chain) Length() int {
	return len(c.Blocks)
}

// Verify walks the chain genesis-forward, recomputing every hash and
// checking every previous-hash link.
func (c *Chain) Verify() error {
	if len(c.Blocks) == 0 {
		return fmt.Errorf("%w: empty chain", status.ErrLedgerCorrupt)
	}

	var prev *Block
	for i := range c.Blocks {
		if err := c.Blocks[i].verifyLink(prev); err != nil {
			return err
		}
		prev = &c.Blocks[i]
	}

	return nil
}
