package typing

// CursorSuppressed reports whether the cursor must be hidden regardless of
// the blink phase: hiding is enabled and a character is still to be typed in
// the active phrase, or the phrase is being deleted.
func CursorSuppressed(cfg Config, st State) bool {
	if !cfg.HideCursorWhileTyping {
		return false
	}
	if st.Mode == ModeDeleting {
		return true
	}
	return st.Offset < st.Length
}

// CursorVisible combines the enable flag, the blink phase and suppression.
func CursorVisible(cfg Config, st State, blinkOn bool) bool {
	return cfg.ShowCursor && blinkOn && !CursorSuppressed(cfg, st)
}
