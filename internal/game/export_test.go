package game

// LockEntries reports how many per-game lock entries are live.
func (e *Engine) LockEntries() int {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	return len(e.locks)
}
