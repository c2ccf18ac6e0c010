//go:build !stdioxdebug

package stdiox

type Stats struct{}

func (c *Console) DebugReset()       {}
func (c *Console) DebugStats() Stats { return Stats{} }
