package posts

// OwnedBy reports whether the post owned by userID may be mutated by actorID.
// Both ids must be non-empty and equal; an anonymous actor owns nothing.
func OwnedBy(userID, actorID string) bool {
	return userID != "" && actorID != "" && userID == actorID
}
