package handlers

// GenerateMemeRequest is the request body for generating a meme.
type GenerateMemeRequest struct {
	Body struct {
		Text         string `doc:"Exact meme phrase to render via automeme; skips template selection" example:"this is fine"                 json:"text,omitempty"         maxLength:"100"`
		OriginalPost string `doc:"The post being replied to"                                           example:"Just shipped on a Friday!"  json:"originalPost,omitempty" maxLength:"2000"`
		Reply        string `doc:"The reply the meme accompanies"                                      example:"Brave. Very brave."         json:"reply,omitempty"        maxLength:"2000"`
		Tone         string `doc:"Tone of the reply"                                                   example:"sarcastic"                  json:"tone,omitempty"         maxLength:"40"`
		UserID       string `doc:"User identity for diversity tracking; empty means anonymous"         example:"u_8f2k"                     json:"userId,omitempty"       maxLength:"80"`
	}
}

// GenerateMemeResponse is the response for a successfully generated meme.
type GenerateMemeResponse struct {
	Body struct {
		MemeID       string `doc:"Internal id of the generated meme"    example:"Vw3peBdxqj"                     json:"memeId"`
		URL          string `doc:"Direct image URL"                     example:"https://i.imgflip.com/abc.jpg"  json:"url"`
		PageURL      string `doc:"Imgflip page URL"                     example:"https://imgflip.com/i/abc"      json:"pageUrl"`
		TemplateID   string `doc:"Chosen template id, if one was used"  example:"181913649"                      json:"templateId,omitempty"`
		TemplateName string `doc:"Chosen template name"                 example:"Drake Pointing"                 json:"templateName,omitempty"`
	}
}

// UsageStatsRequest is the request for the template usage diagnostic.
type UsageStatsRequest struct {
	UserID string `doc:"User whose history to include" example:"u_8f2k" query:"userId" required:"false"`
}

// UsageStatsResponse is the response for the template usage diagnostic.
type UsageStatsResponse struct {
	Body struct {
		UserStats   []UsageEntry  `doc:"The requested user's template history, most recent first" json:"userStats,omitempty"`
		GlobalStats []GlobalEntry `doc:"Cross-user usage counts, most used first"                 json:"globalStats"`
	}
}

// UsageEntry mirrors one tracked (user, template) record.
type UsageEntry struct {
	TemplateID   string `json:"templateId"`
	TemplateName string `json:"templateName"`
	LastUsed     string `json:"lastUsed"`
	UseCount     int    `json:"useCount"`
}

// GlobalEntry mirrors one cross-user usage counter.
type GlobalEntry struct {
	TemplateID string `json:"templateId"`
	UseCount   int    `json:"useCount"`
}
