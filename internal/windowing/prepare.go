package windowing

import "github.com/petasbytes/simplechat/memory"

// Stats describes a prepared window. Total counts only the included groups;
// OverBudgetNewest is set when the newest group alone does not fit.
type Stats struct {
	Total            int
	Budget           int
	Messages         int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow picks the longest suffix of msgs made of whole groups
// whose estimated cost fits budget. A tool request is never separated from
// its results. budget <= 0 disables windowing; if the newest group alone
// exceeds budget the window is empty.
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	stats := Stats{Budget: budget}
	groups := memory.GroupMessages(msgs)
	if len(groups) == 0 {
		return nil, stats
	}

	start := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], msgs)
		if budget > 0 && stats.Total+cost > budget {
			stats.OverBudgetNewest = start == len(groups)
			break
		}
		stats.Total += cost
		start = gi
	}

	stats.IncludedGroups = len(groups) - start
	stats.SkippedGroups = start
	if stats.OverBudgetNewest {
		stats.Total = 0
		return nil, stats
	}
	window := msgs[groups[start].Start:]
	stats.Messages = len(window)
	return window, stats
}
