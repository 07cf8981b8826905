package chat

// TrackedLimiters reports how many conversations hold a rate limiter.
func (c *Client) TrackedLimiters() int {
	if c.limiter == nil {
		return 0
	}
	return c.limiter.Len()
}
