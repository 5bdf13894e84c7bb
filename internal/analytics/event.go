package analytics

import "time"

const (
	TopicMemeGenerated = "meme.generated"
	TopicTemplateUsed  = "template.used"
)

// MemeGeneratedEvent is emitted after a meme has been rendered.
type MemeGeneratedEvent struct {
	MemeID       string    `json:"memeId"`
	UserID       string    `json:"userId,omitempty"`
	TemplateID   string    `json:"templateId,omitempty"`
	TemplateName string    `json:"templateName,omitempty"`
	URL          string    `json:"url"`
	PageURL      string    `json:"pageUrl"`
	Tone         string    `json:"tone,omitempty"`
	Source       string    `json:"source"` // "template" or "automeme"
	GenerationMS int64     `json:"generationMs"`
	CreatedAt    time.Time `json:"createdAt"`
	ClientIP     string    `json:"clientIp,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
}

// TemplateUsedEvent is emitted when the diversity tracker records a template
// pick. Downstream consumers use it to tune the scoring penalties offline.
type TemplateUsedEvent struct {
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId,omitempty"`
	TemplateID   string    `json:"templateId"`
	TemplateName string    `json:"templateName"`
	Score        float64   `json:"score"`
	UsedAt       time.Time `json:"usedAt"`
}
