package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/replyguy/memegen/internal/analytics"
	"github.com/replyguy/memegen/internal/handlers"
	"github.com/replyguy/memegen/internal/imgflip"
	"github.com/replyguy/memegen/internal/messaging"
	"github.com/replyguy/memegen/internal/selector"
	"github.com/replyguy/memegen/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// noopPublish returns a publish function that always succeeds.
func noopPublish[T any]() messaging.Publish[T] {
	return func(_ *T) error { return nil }
}

// errorPublish returns a publish function that always fails.
func errorPublish[T any](err error) messaging.Publish[T] {
	return func(_ *T) error { return err }
}

type mockCatalog struct {
	templates []tracker.Template
	err       error
}

func (m *mockCatalog) PopularTemplates(_ context.Context) ([]tracker.Template, error) {
	return m.templates, m.err
}

type mockCaptioner struct {
	configured bool
	meme       *imgflip.Meme
	err        error

	captionedTemplateID string
	captionedTop        string
	captionedBottom     string
	automemeText        string
}

func (m *mockCaptioner) CaptionImage(_ context.Context, templateID, topText, bottomText string) (*imgflip.Meme, error) {
	m.captionedTemplateID = templateID
	m.captionedTop = topText
	m.captionedBottom = bottomText

	return m.meme, m.err
}

func (m *mockCaptioner) Automeme(_ context.Context, text string) (*imgflip.Meme, error) {
	m.automemeText = text

	return m.meme, m.err
}

func (m *mockCaptioner) Configured() bool {
	return m.configured
}

type mockSelector struct {
	selection *selector.Selection
	err       error

	capturedReq selector.Request
	called      bool
}

func (m *mockSelector) Select(_ context.Context, req selector.Request) (*selector.Selection, error) {
	m.capturedReq = req
	m.called = true

	return m.selection, m.err
}

func testTemplates(n int) []tracker.Template {
	templates := make([]tracker.Template, 0, n)
	for i := range n {
		templates = append(templates, tracker.Template{
			ID:       fmt.Sprintf("tpl-%d", i),
			Name:     fmt.Sprintf("Template %d", i),
			BoxCount: 2,
		})
	}

	return templates
}

func testMeme() *imgflip.Meme {
	return &imgflip.Meme{
		URL:     "https://i.imgflip.com/abc.jpg",
		PageURL: "https://imgflip.com/i/abc",
	}
}

// fixedClock returns a clock pinned to a single instant.
func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return func() time.Time { return at }
}

func newDeterministicTracker() *tracker.Tracker {
	return tracker.NewWithSource(fixedClock(), func() float64 { return 0 })
}

type handlerDeps struct {
	catalog   *mockCatalog
	captioner *mockCaptioner
	selector  *mockSelector
	fallback  *mockSelector
	tracker   *tracker.Tracker
}

func defaultDeps() *handlerDeps {
	return &handlerDeps{
		catalog:   &mockCatalog{templates: testTemplates(5)},
		captioner: &mockCaptioner{configured: true, meme: testMeme()},
		selector: &mockSelector{selection: &selector.Selection{
			TemplateID:   "tpl-1",
			TemplateName: "Template 1",
			TopText:      "me",
			BottomText:   "also me",
		}},
		fallback: &mockSelector{selection: &selector.Selection{
			TemplateID:   "tpl-2",
			TemplateName: "Template 2",
			TopText:      "fallback",
		}},
		tracker: newDeterministicTracker(),
	}
}

func newTestHandler(deps *handlerDeps) *handlers.MemeHandler {
	var fallback selector.Selector
	if deps.fallback != nil {
		fallback = deps.fallback
	}

	return handlers.NewMemeHandler(
		deps.catalog,
		deps.captioner,
		deps.selector,
		fallback,
		deps.tracker,
		func() string { return "meme-1" },
		noopPublish[analytics.MemeGeneratedEvent](),
		noopPublish[analytics.TemplateUsedEvent](),
		zap.NewNop(),
	)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var statusErr huma.StatusError

	require.ErrorAs(t, err, &statusErr)

	return statusErr.GetStatus()
}

func generateReq(reply string) *handlers.GenerateMemeRequest {
	req := &handlers.GenerateMemeRequest{}
	req.Body.OriginalPost = "Just shipped on a Friday!"
	req.Body.Reply = reply
	req.Body.Tone = "sarcastic"
	req.Body.UserID = "u_test"

	return req
}

func TestGenerateMeme(t *testing.T) {
	t.Run("returns 503 when imgflip is not configured", func(t *testing.T) {
		deps := defaultDeps()
		deps.captioner.configured = false
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("Brave."))

		assert.Nil(t, resp)
		assert.Equal(t, 503, statusOf(t, err))
	})

	t.Run("returns 422 when neither text nor reply is given", func(t *testing.T) {
		handler := newTestHandler(defaultDeps())

		req := &handlers.GenerateMemeRequest{}

		resp, err := handler.GenerateMeme(context.Background(), req)

		assert.Nil(t, resp)
		assert.Equal(t, 422, statusOf(t, err))
	})

	t.Run("generates from template for a reply", func(t *testing.T) {
		deps := defaultDeps()
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("Brave. Very brave."))

		require.NoError(t, err)
		assert.Equal(t, "meme-1", resp.Body.MemeID)
		assert.Equal(t, "https://i.imgflip.com/abc.jpg", resp.Body.URL)
		assert.Equal(t, "https://imgflip.com/i/abc", resp.Body.PageURL)
		assert.Equal(t, "tpl-1", resp.Body.TemplateID)
		assert.Equal(t, "Template 1", resp.Body.TemplateName)

		assert.Equal(t, "tpl-1", deps.captioner.captionedTemplateID)
		assert.Equal(t, "me", deps.captioner.captionedTop)
		assert.Equal(t, "also me", deps.captioner.captionedBottom)

		assert.Equal(t, "Brave. Very brave.", deps.selector.capturedReq.Reply)
		assert.Equal(t, "sarcastic", deps.selector.capturedReq.Tone)
		assert.Len(t, deps.selector.capturedReq.Candidates, 5)
	})

	t.Run("records template usage for the requesting user", func(t *testing.T) {
		deps := defaultDeps()
		handler := newTestHandler(deps)

		_, err := handler.GenerateMeme(context.Background(), generateReq("ok"))
		require.NoError(t, err)

		stats := deps.tracker.UsageStats("u_test")
		require.Len(t, stats.UserStats, 1)
		assert.Equal(t, "tpl-1", stats.UserStats[0].TemplateID)
		assert.Equal(t, 1, stats.UserStats[0].UseCount)
	})

	t.Run("uses single-box text when selection has no top or bottom", func(t *testing.T) {
		deps := defaultDeps()
		deps.selector.selection = &selector.Selection{
			TemplateID:   "tpl-3",
			TemplateName: "Template 3",
			Text:         "one liner",
		}
		handler := newTestHandler(deps)

		_, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		require.NoError(t, err)
		assert.Equal(t, "one liner", deps.captioner.captionedTop)
		assert.Empty(t, deps.captioner.captionedBottom)
	})

	t.Run("renders exact text via automeme", func(t *testing.T) {
		deps := defaultDeps()
		handler := newTestHandler(deps)

		req := &handlers.GenerateMemeRequest{}
		req.Body.Text = "this is fine"

		resp, err := handler.GenerateMeme(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "this is fine", deps.captioner.automemeText)
		assert.Empty(t, resp.Body.TemplateID)
		assert.False(t, deps.selector.called, "automeme should skip template selection")

		stats := deps.tracker.UsageStats("")
		assert.Empty(t, stats.GlobalStats, "automeme should not touch the tracker")
	})

	t.Run("returns 502 when catalog fetch fails", func(t *testing.T) {
		deps := defaultDeps()
		deps.catalog.err = errors.New("imgflip down")
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		assert.Nil(t, resp)
		assert.Equal(t, 502, statusOf(t, err))
	})

	t.Run("returns 502 when catalog is empty", func(t *testing.T) {
		deps := defaultDeps()
		deps.catalog.templates = nil
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		assert.Nil(t, resp)
		assert.Equal(t, 502, statusOf(t, err))
	})

	t.Run("falls back to tone selection when the model fails", func(t *testing.T) {
		deps := defaultDeps()
		deps.selector.err = errors.New("model timeout")
		deps.selector.selection = nil
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		require.NoError(t, err)
		assert.Equal(t, "tpl-2", resp.Body.TemplateID)
		assert.True(t, deps.fallback.called)
	})

	t.Run("returns 502 when selection fails and no fallback is set", func(t *testing.T) {
		deps := defaultDeps()
		deps.selector.err = errors.New("model timeout")
		deps.selector.selection = nil
		deps.fallback = nil
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		assert.Nil(t, resp)
		assert.Equal(t, 502, statusOf(t, err))
	})

	t.Run("returns 502 when captioning fails", func(t *testing.T) {
		deps := defaultDeps()
		deps.captioner.meme = nil
		deps.captioner.err = errors.New("render failed")
		handler := newTestHandler(deps)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		assert.Nil(t, resp)
		assert.Equal(t, 502, statusOf(t, err))
	})

	t.Run("publish errors do not fail the request", func(t *testing.T) {
		deps := defaultDeps()
		handler := handlers.NewMemeHandler(
			deps.catalog,
			deps.captioner,
			deps.selector,
			deps.fallback,
			deps.tracker,
			func() string { return "meme-1" },
			errorPublish[analytics.MemeGeneratedEvent](errors.New("publish error")),
			errorPublish[analytics.TemplateUsedEvent](errors.New("publish error")),
			zap.NewNop(),
		)

		resp, err := handler.GenerateMeme(context.Background(), generateReq("ok"))

		require.NoError(t, err)
		assert.Equal(t, "meme-1", resp.Body.MemeID)
	})

	t.Run("recently used templates drop out of the candidate list", func(t *testing.T) {
		deps := defaultDeps()
		// Five recent picks put tpl-0 in the cooldown window, far below the
		// diversity floor.
		for range 5 {
			deps.tracker.RecordUsage("u_test", "tpl-0", "Template 0")
		}

		handler := newTestHandler(deps)

		_, err := handler.GenerateMeme(context.Background(), generateReq("ok"))
		require.NoError(t, err)

		for _, c := range deps.selector.capturedReq.Candidates {
			assert.NotEqual(t, "tpl-0", c.ID, "cooldown template should be filtered out")
		}
	})
}

func TestGetUsageStats(t *testing.T) {
	t.Run("returns user history and global counts", func(t *testing.T) {
		deps := defaultDeps()
		deps.tracker.RecordUsage("u_test", "tpl-1", "Template 1")
		deps.tracker.RecordUsage("u_test", "tpl-1", "Template 1")
		deps.tracker.RecordUsage("u_other", "tpl-2", "Template 2")

		handler := newTestHandler(deps)

		resp, err := handler.GetUsageStats(context.Background(), &handlers.UsageStatsRequest{UserID: "u_test"})

		require.NoError(t, err)
		require.Len(t, resp.Body.UserStats, 1)
		assert.Equal(t, "tpl-1", resp.Body.UserStats[0].TemplateID)
		assert.Equal(t, 2, resp.Body.UserStats[0].UseCount)

		_, err = time.Parse(time.RFC3339, resp.Body.UserStats[0].LastUsed)
		assert.NoError(t, err, "lastUsed should be RFC3339")

		require.Len(t, resp.Body.GlobalStats, 2)
		assert.Equal(t, "tpl-1", resp.Body.GlobalStats[0].TemplateID)
		assert.Equal(t, 2, resp.Body.GlobalStats[0].UseCount)
	})

	t.Run("omits user history when no user is given", func(t *testing.T) {
		deps := defaultDeps()
		deps.tracker.RecordUsage("u_test", "tpl-1", "Template 1")

		handler := newTestHandler(deps)

		resp, err := handler.GetUsageStats(context.Background(), &handlers.UsageStatsRequest{})

		require.NoError(t, err)
		assert.Empty(t, resp.Body.UserStats)
		assert.Len(t, resp.Body.GlobalStats, 1)
	})
}
