package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/replyguy/memegen/internal/ratelimit"
)

// RegisterRoutes registers all meme service routes with per-endpoint rate
// limit configuration.
func RegisterRoutes(api huma.API, memeHandler *MemeHandler) {
	// POST /memes - Generate a meme
	// Each call can burn Imgflip and model credits, so limits are strict.
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/memes",
		Summary:     "Generate a meme",
		Description: "Generates a meme for a reply, picking a template with diversity-aware ranking, or renders an exact phrase via automeme.",
		Tags:        []string{"Memes"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},     // 10 per minute
					{Window: time.Hour, Max: 100},      // 100 per hour
					{Window: 24 * time.Hour, Max: 300}, // 300 per day
				},
			},
		},
	}, memeHandler.GenerateMeme)

	// GET /memes/stats - Template usage diagnostics
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/memes/stats",
		Summary:     "Template usage statistics",
		Description: "Returns the diversity tracker's per-user history and global usage counts. Diagnostic only.",
		Tags:        []string{"Memes"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 60},
				},
			},
		},
	}, memeHandler.GetUsageStats)
}
