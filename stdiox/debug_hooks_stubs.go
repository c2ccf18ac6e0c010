//go:build !stdioxdebug

package stdiox

func (c *Console) dbgTxByte()       {}
func (c *Console) dbgCRInserted()   {}
func (c *Console) dbgShortWrite()   {}
func (c *Console) dbgRxByte()       {}
func (c *Console) dbgDrainWait()    {}
func (c *Console) dbgDrainTimeout() {}

// assertDrained is a no-op on release builds: shutdown proceeds and the tail
// of the output may be lost.
func assertDrained() {}
