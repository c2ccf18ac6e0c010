//go:build stdioxdebug

package stdiox

import "sync/atomic"

func (c *Console) dbgTxByte()       { atomic.AddUint32(&c.stats.TxBytes, 1) }
func (c *Console) dbgCRInserted()   { atomic.AddUint32(&c.stats.TxCRInserted, 1) }
func (c *Console) dbgShortWrite()   { atomic.AddUint32(&c.stats.TxShortWrites, 1) }
func (c *Console) dbgRxByte()       { atomic.AddUint32(&c.stats.RxBytes, 1) }
func (c *Console) dbgDrainWait()    { atomic.AddUint32(&c.stats.DrainWaits, 1) }
func (c *Console) dbgDrainTimeout() { atomic.AddUint32(&c.stats.DrainTimeouts, 1) }

// assertDrained halts on a drain timeout: on debug builds losing the tail of
// the output is a defect worth stopping for.
func assertDrained() {
	panic("stdiox: transmit still active at deinit")
}
