package chat

// Gate applies the allowlist and the per-user limiter to one inbound chat
// event. Both fields are optional.
type Gate struct {
	Allowlist   *Allowlist
	RateLimiter *RateLimiter
}

// Admit returns ErrNotAllowlisted or a *RateLimitError when the event must
// be dropped.
func (g *Gate) Admit(userID, roomID string) error {
	if g == nil {
		return nil
	}
	if !g.Allowlist.MessageAllowed(userID, roomID) {
		return ErrNotAllowlisted
	}
	if g.RateLimiter != nil {
		if ok, retry := g.RateLimiter.AllowWithDetails(userID); !ok {
			return &RateLimitError{UserID: userID, RetryAfter: retry}
		}
	}
	return nil
}
