package tracker

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

const (
	// AnonymousUser is the history key used when no user identity is supplied.
	AnonymousUser = "anonymous"

	maxHistoryPerUser = 20
	cooldownUses      = 5
	historyTTL        = 24 * time.Hour
)

// Template is a meme template candidate as supplied by the catalog.
type Template struct {
	ID       string
	Name     string
	BoxCount int
}

// TemplateUsage records how often and how recently one user has used a template.
type TemplateUsage struct {
	TemplateID   string    `json:"templateId"`
	TemplateName string    `json:"templateName"`
	LastUsed     time.Time `json:"lastUsed"`
	UseCount     int       `json:"useCount"`
}

// GlobalUsage is one entry of the cross-user usage dump.
type GlobalUsage struct {
	TemplateID string `json:"templateId"`
	UseCount   int    `json:"useCount"`
}

// Stats is a diagnostic snapshot of the tracker's state.
type Stats struct {
	UserStats   []TemplateUsage `json:"userStats,omitempty"`
	GlobalStats []GlobalUsage   `json:"globalStats"`
}

// Tracker keeps per-user and global template usage in memory and ranks
// candidate templates so that repeated requests favor variety.
//
// All state is process-local: a restart only degrades variety, never
// correctness, since the authoritative template list always comes from the
// catalog. Every operation is total; there are no error returns.
type Tracker struct {
	mu     sync.RWMutex
	users  map[string][]TemplateUsage
	global map[string]int

	now    func() time.Time
	jitter func() float64 // uniform in [0, 1)
}

// New creates a tracker using the wall clock and the shared rand source.
func New() *Tracker {
	return NewWithSource(time.Now, rand.Float64)
}

// NewWithSource creates a tracker with an injected clock and jitter source.
// Tests use this to pin down the deterministic part of the scoring formula.
func NewWithSource(now func() time.Time, jitter func() float64) *Tracker {
	return &Tracker{
		users:  make(map[string][]TemplateUsage),
		global: make(map[string]int),
		now:    now,
		jitter: jitter,
	}
}

// RecordUsage notes that the user picked a template. Repeated picks of the
// same template update the existing entry instead of adding a duplicate, so
// a user's history holds at most one entry per template. The history is kept
// sorted by recency and capped at 20 entries.
func (t *Tracker) RecordUsage(userID, templateID, templateName string) {
	userKey := userKey(userID)

	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.users[userKey]
	updated := false

	for i := range history {
		if history[i].TemplateID == templateID {
			history[i].LastUsed = t.now()
			history[i].UseCount++
			updated = true

			break
		}
	}

	if !updated {
		history = append(history, TemplateUsage{
			TemplateID:   templateID,
			TemplateName: templateName,
			LastUsed:     t.now(),
			UseCount:     1,
		})
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].LastUsed.After(history[j].LastUsed)
	})

	if len(history) > maxHistoryPerUser {
		history = history[:maxHistoryPerUser]
	}

	t.users[userKey] = history

	t.global[templateID]++
}

// RecentTemplateIDs returns the IDs of the user's most recently used
// templates, up to the cooldown window of 5. Unknown users get an empty set.
func (t *Tracker) RecentTemplateIDs(userID string) map[string]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.recentIDsLocked(userKey(userID))
}

// recentIDsLocked requires at least a read lock to be held.
func (t *Tracker) recentIDsLocked(userKey string) map[string]struct{} {
	history := t.users[userKey]

	n := cooldownUses
	if len(history) < n {
		n = len(history)
	}

	recent := make(map[string]struct{}, n)
	for _, usage := range history[:n] {
		recent[usage.TemplateID] = struct{}{}
	}

	return recent
}

// UsageStats returns a diagnostic snapshot: the given user's raw history (if
// a userID is supplied) and the global usage counts sorted descending. Unlike
// RecordUsage, an empty userID is not coerced to the anonymous key; it simply
// omits the per-user section.
func (t *Tracker) UsageStats(userID string) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var userStats []TemplateUsage
	if userID != "" {
		userStats = append(userStats, t.users[userID]...)
	}

	globalStats := make([]GlobalUsage, 0, len(t.global))
	for templateID, useCount := range t.global {
		globalStats = append(globalStats, GlobalUsage{TemplateID: templateID, UseCount: useCount})
	}

	sort.Slice(globalStats, func(i, j int) bool {
		return globalStats[i].UseCount > globalStats[j].UseCount
	})

	return Stats{UserStats: userStats, GlobalStats: globalStats}
}

// Cleanup drops history entries older than 24 hours and removes users whose
// history becomes empty. The global counters are left alone; they are a
// coarse popularity signal and staleness there is tolerated. Returns the
// number of entries pruned.
func (t *Tracker) Cleanup() int {
	cutoff := t.now().Add(-historyTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0

	for userKey, history := range t.users {
		kept := history[:0]

		for _, usage := range history {
			if usage.LastUsed.After(cutoff) {
				kept = append(kept, usage)
			} else {
				pruned++
			}
		}

		if len(kept) == 0 {
			delete(t.users, userKey)
		} else {
			t.users[userKey] = kept
		}
	}

	return pruned
}

func userKey(userID string) string {
	if userID == "" {
		return AnonymousUser
	}

	return userID
}
