//go:build stdioxdebug

package stdiox

import "sync/atomic"

// Stats holds console counters since the last reset. They exist only on
// stdioxdebug builds; the release build carries an empty struct and no-op
// hooks instead.
type Stats struct {
	TxBytes       uint32 // bytes put on the wire, inserted CRs included
	TxCRInserted  uint32 // carriage returns added by the line-ending policy
	TxShortWrites uint32 // Write calls that stopped early on a transmit error
	RxBytes       uint32 // bytes handed back by Read
	DrainWaits    uint32 // Drain calls
	DrainTimeouts uint32 // Drain calls that hit the timeout
}

func (c *Console) DebugReset() {
	c.stats = Stats{}
}

func (c *Console) DebugStats() Stats {
	return Stats{
		TxBytes:       atomic.LoadUint32(&c.stats.TxBytes),
		TxCRInserted:  atomic.LoadUint32(&c.stats.TxCRInserted),
		TxShortWrites: atomic.LoadUint32(&c.stats.TxShortWrites),
		RxBytes:       atomic.LoadUint32(&c.stats.RxBytes),
		DrainWaits:    atomic.LoadUint32(&c.stats.DrainWaits),
		DrainTimeouts: atomic.LoadUint32(&c.stats.DrainTimeouts),
	}
}
