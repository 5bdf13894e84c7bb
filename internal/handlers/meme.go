package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/replyguy/memegen/internal/analytics"
	"github.com/replyguy/memegen/internal/imgflip"
	"github.com/replyguy/memegen/internal/messaging"
	"github.com/replyguy/memegen/internal/selector"
	"github.com/replyguy/memegen/internal/tracker"
	"go.uber.org/zap"
)

const (
	// Candidates scoring at or below this are dropped before the model
	// sees them; anything in the cooldown window lands far below it.
	minDiversityScore = 20.0
	// The model prompt lists at most this many candidates.
	maxCandidates = 30
)

// Captioner renders memes via the Imgflip captioning endpoints.
type Captioner interface {
	CaptionImage(ctx context.Context, templateID, topText, bottomText string) (*imgflip.Meme, error)
	Automeme(ctx context.Context, text string) (*imgflip.Meme, error)
	Configured() bool
}

// IDGenerator produces meme ids.
type IDGenerator func() string

// MemeHandler handles meme generation operations.
type MemeHandler struct {
	catalog              imgflip.Catalog
	captioner            Captioner
	selector             selector.Selector
	fallback             selector.Selector
	tracker              *tracker.Tracker
	newMemeID            IDGenerator
	publishMemeGenerated messaging.Publish[analytics.MemeGeneratedEvent]
	publishTemplateUsed  messaging.Publish[analytics.TemplateUsedEvent]
	logger               *zap.Logger
}

// NewMemeHandler creates a meme handler. The fallback selector is used when
// the primary one fails; pass nil to disable the fallback.
func NewMemeHandler(
	catalog imgflip.Catalog,
	captioner Captioner,
	sel selector.Selector,
	fallback selector.Selector,
	trk *tracker.Tracker,
	newMemeID IDGenerator,
	publishMemeGenerated messaging.Publish[analytics.MemeGeneratedEvent],
	publishTemplateUsed messaging.Publish[analytics.TemplateUsedEvent],
	logger *zap.Logger,
) *MemeHandler {
	return &MemeHandler{
		catalog:              catalog,
		captioner:            captioner,
		selector:             sel,
		fallback:             fallback,
		tracker:              trk,
		newMemeID:            newMemeID,
		publishMemeGenerated: publishMemeGenerated,
		publishTemplateUsed:  publishTemplateUsed,
		logger:               logger,
	}
}

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// GenerateMeme renders a meme. With an exact text it goes straight to
// automeme; otherwise it runs the template pipeline: catalog fetch,
// diversity ranking, model selection, captioning, usage recording.
func (h *MemeHandler) GenerateMeme(ctx context.Context, req *GenerateMemeRequest) (*GenerateMemeResponse, error) {
	if !h.captioner.Configured() {
		return nil, huma.Error503ServiceUnavailable("meme service not configured")
	}

	if req.Body.Text == "" && req.Body.Reply == "" {
		return nil, huma.Error422UnprocessableEntity("either text or reply is required")
	}

	start := time.Now()

	if req.Body.Text != "" {
		return h.generateAutomeme(ctx, req, start)
	}

	return h.generateFromTemplate(ctx, req, start)
}

func (h *MemeHandler) generateAutomeme(ctx context.Context, req *GenerateMemeRequest, start time.Time) (*GenerateMemeResponse, error) {
	meme, err := h.captioner.Automeme(ctx, req.Body.Text)
	if err != nil {
		h.logger.Error("automeme failed",
			zap.String("text", req.Body.Text),
			zap.Error(err),
		)

		return nil, huma.Error502BadGateway("meme rendering failed")
	}

	memeID := h.newMemeID()

	h.publishGenerated(ctx, &analytics.MemeGeneratedEvent{
		MemeID:       memeID,
		UserID:       req.Body.UserID,
		URL:          meme.URL,
		PageURL:      meme.PageURL,
		Tone:         req.Body.Tone,
		Source:       "automeme",
		GenerationMS: time.Since(start).Milliseconds(),
		CreatedAt:    time.Now(),
	})

	resp := &GenerateMemeResponse{}
	resp.Body.MemeID = memeID
	resp.Body.URL = meme.URL
	resp.Body.PageURL = meme.PageURL

	return resp, nil
}

func (h *MemeHandler) generateFromTemplate(ctx context.Context, req *GenerateMemeRequest, start time.Time) (*GenerateMemeResponse, error) {
	templates, err := h.catalog.PopularTemplates(ctx)
	if err != nil {
		h.logger.Error("template catalog fetch failed", zap.Error(err))

		return nil, huma.Error502BadGateway("failed to fetch meme templates")
	}

	if len(templates) == 0 {
		return nil, huma.Error502BadGateway("template catalog is empty")
	}

	userID := req.Body.UserID
	scored := h.tracker.ScoreByDiversity(templates, userID)
	candidates := pickCandidates(scored)

	sel, err := h.selector.Select(ctx, selector.Request{
		OriginalPost: req.Body.OriginalPost,
		Reply:        req.Body.Reply,
		Tone:         req.Body.Tone,
		Candidates:   candidates,
	})
	if err != nil && h.fallback != nil {
		h.logger.Warn("template selection failed, using fallback", zap.Error(err))

		sel, err = h.fallback.Select(ctx, selector.Request{
			Tone:       req.Body.Tone,
			Candidates: candidates,
		})
	}

	if err != nil {
		return nil, huma.Error502BadGateway("template selection failed")
	}

	topText, bottomText := sel.TopText, sel.BottomText
	if topText == "" && bottomText == "" {
		topText = sel.Text
	}

	meme, err := h.captioner.CaptionImage(ctx, sel.TemplateID, topText, bottomText)
	if err != nil {
		h.logger.Error("caption failed",
			zap.String("templateId", sel.TemplateID),
			zap.Error(err),
		)

		return nil, huma.Error502BadGateway("meme rendering failed")
	}

	h.tracker.RecordUsage(userID, sel.TemplateID, sel.TemplateName)

	memeID := h.newMemeID()
	now := time.Now()

	h.publishGenerated(ctx, &analytics.MemeGeneratedEvent{
		MemeID:       memeID,
		UserID:       userID,
		TemplateID:   sel.TemplateID,
		TemplateName: sel.TemplateName,
		URL:          meme.URL,
		PageURL:      meme.PageURL,
		Tone:         req.Body.Tone,
		Source:       "template",
		GenerationMS: time.Since(start).Milliseconds(),
		CreatedAt:    now,
	})

	usedEvent := &analytics.TemplateUsedEvent{
		EventID:      uuid.NewString(),
		UserID:       userID,
		TemplateID:   sel.TemplateID,
		TemplateName: sel.TemplateName,
		Score:        scoreFor(scored, sel.TemplateID),
		UsedAt:       now,
	}

	if err := h.publishTemplateUsed(usedEvent); err != nil {
		h.logger.Error("failed to publish template used event",
			zap.String("templateId", usedEvent.TemplateID),
			zap.Error(err),
		)
	}

	resp := &GenerateMemeResponse{}
	resp.Body.MemeID = memeID
	resp.Body.URL = meme.URL
	resp.Body.PageURL = meme.PageURL
	resp.Body.TemplateID = sel.TemplateID
	resp.Body.TemplateName = sel.TemplateName

	return resp, nil
}

func (h *MemeHandler) publishGenerated(ctx context.Context, event *analytics.MemeGeneratedEvent) {
	meta := RequestMetaFromContext(ctx)
	event.ClientIP = meta.ClientIP
	event.UserAgent = meta.UserAgent

	if err := h.publishMemeGenerated(event); err != nil {
		h.logger.Error("failed to publish meme generated event",
			zap.String("memeId", event.MemeID),
			zap.Error(err),
		)
	}
}

// pickCandidates sorts the scored templates best first, drops anything at or
// below the diversity floor, and caps the list for the model prompt. If the
// floor would empty the list entirely it is ignored; some candidate is always
// better than none.
func pickCandidates(scored []tracker.ScoredTemplate) []tracker.Template {
	ranked := make([]tracker.ScoredTemplate, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	candidates := make([]tracker.Template, 0, maxCandidates)

	for _, s := range ranked {
		if s.Score <= minDiversityScore {
			continue
		}

		candidates = append(candidates, s.Template)
		if len(candidates) == maxCandidates {
			break
		}
	}

	if len(candidates) == 0 {
		for _, s := range ranked {
			candidates = append(candidates, s.Template)
			if len(candidates) == maxCandidates {
				break
			}
		}
	}

	return candidates
}

func scoreFor(scored []tracker.ScoredTemplate, templateID string) float64 {
	for _, s := range scored {
		if s.Template.ID == templateID {
			return s.Score
		}
	}

	return 0
}

// GetUsageStats returns the tracker's diagnostic snapshot.
func (h *MemeHandler) GetUsageStats(_ context.Context, req *UsageStatsRequest) (*UsageStatsResponse, error) {
	stats := h.tracker.UsageStats(req.UserID)

	resp := &UsageStatsResponse{}
	resp.Body.GlobalStats = make([]GlobalEntry, 0, len(stats.GlobalStats))

	for _, g := range stats.GlobalStats {
		resp.Body.GlobalStats = append(resp.Body.GlobalStats, GlobalEntry{
			TemplateID: g.TemplateID,
			UseCount:   g.UseCount,
		})
	}

	for _, u := range stats.UserStats {
		resp.Body.UserStats = append(resp.Body.UserStats, UsageEntry{
			TemplateID:   u.TemplateID,
			TemplateName: u.TemplateName,
			LastUsed:     u.LastUsed.Format(time.RFC3339),
			UseCount:     u.UseCount,
		})
	}

	return resp, nil
}
