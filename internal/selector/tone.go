package selector

import (
	"context"
	"math/rand/v2"
)

// Caption pools keyed by tone, used when no model is available.
var toneCaptions = map[string][][2]string{
	"sarcastic": {
		{"this is fine", ""},
		{"sure", "that will definitely work"},
		{"oh really", "tell me more"},
	},
	"humorous": {
		{"why not both", ""},
		{"shut up", "and take my money"},
		{"but why", ""},
	},
	"professional": {
		{"one does not simply", "ignore best practices"},
		{"I should document this", ""},
	},
	"default": {
		{"this is fine", ""},
		{"not sure if serious", "or just trolling"},
		{"y u no work", ""},
	},
}

// ToneSelector is a deterministic fallback selector: it picks a random
// candidate and a caption from a tone-keyed pool. It never fails on a
// non-empty candidate list, which makes it a safe last resort when the
// model call errors out.
type ToneSelector struct {
	intn func(n int) int
}

// NewToneSelector creates a fallback selector using the shared rand source.
func NewToneSelector() *ToneSelector {
	return &ToneSelector{intn: rand.IntN}
}

// NewToneSelectorWithSource creates a fallback selector with an injected
// random source for deterministic tests.
func NewToneSelectorWithSource(intn func(n int) int) *ToneSelector {
	return &ToneSelector{intn: intn}
}

// Select picks a random candidate and tone-matched caption text.
func (s *ToneSelector) Select(_ context.Context, req Request) (*Selection, error) {
	if len(req.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	chosen := req.Candidates[s.intn(len(req.Candidates))]

	pool, ok := toneCaptions[req.Tone]
	if !ok {
		pool = toneCaptions["default"]
	}

	caption := pool[s.intn(len(pool))]

	selection := &Selection{
		TemplateID:   chosen.ID,
		TemplateName: chosen.Name,
	}

	if chosen.BoxCount <= 1 {
		selection.Text = caption[0]
		if caption[1] != "" {
			selection.Text += " " + caption[1]
		}
	} else {
		selection.TopText = caption[0]
		selection.BottomText = caption[1]
	}

	return selection, nil
}
