package tracker

const (
	baseScore           = 100.0
	cooldownPenalty     = 80.0
	perUsePenalty       = 5.0
	perUsePenaltyCap    = 30.0
	globalPenaltyWeight = 0.5
	globalPenaltyCap    = 10.0
	jitterRange         = 20.0
)

// ScoredTemplate pairs a candidate with its diversity score.
type ScoredTemplate struct {
	Template Template `json:"template"`
	Score    float64  `json:"score"`
}

// ScoreByDiversity assigns each candidate a comparable score: templates the
// user picked within the cooldown window are suppressed hard, anything in the
// user's remembered history gets a capped per-use penalty, globally popular
// templates a mild one, and a bounded random jitter breaks ties so identical
// histories do not produce identical rankings.
//
// The result preserves the input order; sorting and selection (for example
// "score above 20, keep the top 30") are the caller's job.
func (t *Tracker) ScoreByDiversity(candidates []Template, userID string) []ScoredTemplate {
	key := userKey(userID)

	t.mu.RLock()
	history := t.users[key]
	recent := t.recentIDsLocked(key)

	useCounts := make(map[string]int, len(history))
	for _, usage := range history {
		useCounts[usage.TemplateID] = usage.UseCount
	}

	globalCounts := make(map[string]int, len(candidates))
	for _, candidate := range candidates {
		globalCounts[candidate.ID] = t.global[candidate.ID]
	}
	t.mu.RUnlock()

	scored := make([]ScoredTemplate, 0, len(candidates))

	for _, candidate := range candidates {
		score := baseScore

		if _, ok := recent[candidate.ID]; ok {
			score -= cooldownPenalty
		}

		if useCount, ok := useCounts[candidate.ID]; ok {
			score -= min(float64(useCount)*perUsePenalty, perUsePenaltyCap)
		}

		score -= min(float64(globalCounts[candidate.ID])*globalPenaltyWeight, globalPenaltyCap)

		score += t.jitter() * jitterRange

		scored = append(scored, ScoredTemplate{Template: candidate, Score: score})
	}

	return scored
}
