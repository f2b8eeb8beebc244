package engine

// backupState tracks an in-progress backup cursor's bookkeeping. It is
// allocated on demand and released unconditionally during close.
type backupState struct {
	inProgress bool
	ids        []string
}

// releaseBackup drops any backup bookkeeping.
func (e *Engine) releaseBackup() {
	e.backup = nil
}
