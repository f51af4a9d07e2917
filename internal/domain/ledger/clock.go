package ledger

import (
	"sync"
	"time"
)

// Clock gives the ledger its notion of time and block height.
type Clock interface {
	Now() time.Time
	BlockNumber() uint64
}

type blockClock struct {
	genesis   time.Time
	blockTime time.Duration
}

// NewBlockClock derives the block number from the time elapsed since genesis.
func NewBlockClock(genesis time.Time, blockTime time.Duration) Clock {
	if blockTime <= 0 {
		blockTime = time.Second
	}

	return &blockClock{genesis: genesis, blockTime: blockTime}
}

func (c *blockClock) Now() time.Time {
	return time.Now()
}

func (c *blockClock) BlockNumber() uint64 {
	elapsed := time.Since(c.genesis)
	if elapsed < 0 {
		return 0
	}

	return uint64(elapsed / c.blockTime)
}

type ManualClock struct {
	mutex     sync.RWMutex
	now       time.Time
	block     uint64
	blockTime time.Duration
}

// NewManualClock returns a clock which only moves when told to. Advancing the
// time also advances the block number by blockTime steps.
func NewManualClock(now time.Time, block uint64, blockTime time.Duration) *ManualClock {
	return &ManualClock{now: now, block: block, blockTime: blockTime}
}

func (c *ManualClock) Now() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.now
}

func (c *ManualClock) BlockNumber() uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.block
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = c.now.Add(d)
	if c.blockTime > 0 {
		c.block += uint64(d / c.blockTime)
	}
}

func (c *ManualClock) AdvanceBlocks(n uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.block += n
	c.now = c.now.Add(time.Duration(n) * c.blockTime)
}
