package selector

import (
	"context"
	"errors"

	"github.com/replyguy/memegen/internal/tracker"
)

// ErrNoCandidates is returned when a selector is given an empty candidate list.
var ErrNoCandidates = errors.New("no template candidates")

// Request carries the conversation context and the diversity-ranked template
// candidates a selector may choose from.
type Request struct {
	OriginalPost string
	Reply        string
	Tone         string
	Candidates   []tracker.Template
}

// Selection is the chosen template plus the caption text for it. TopText and
// BottomText are set for multi-box templates, Text for single-box ones.
type Selection struct {
	TemplateID   string
	TemplateName string
	TopText      string
	BottomText   string
	Text         string
}

// Selector picks a template and writes captions for it.
type Selector interface {
	Select(ctx context.Context, req Request) (*Selection, error)
}
