package posts

// IsValidTransition reports whether a post may move between two statuses on
// save. Every transition is currently allowed, including published back to
// draft and draft straight to archived; there is no approval workflow. The
// function exists so a future gate lands here instead of inside callers.
func IsValidTransition(from, to Status) bool {
	return true
}
