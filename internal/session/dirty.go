package session

// Changed is the dirty signal: the current editor content differs from
// the last value known to be persisted. It is a pure string comparison,
// recomputed on every edit; lastSaved moves only on a successful load,
// a successful save, or an explicit reset.
func Changed(current, lastSaved string) bool {
	return current != lastSaved
}
