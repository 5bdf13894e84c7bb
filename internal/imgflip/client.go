package imgflip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/replyguy/memegen/internal/tracker"
)

const defaultBaseURL = "https://api.imgflip.com"

// Meme is a rendered meme image hosted by Imgflip.
type Meme struct {
	URL     string
	PageURL string
}

// APIError is an error reported by the Imgflip API itself (success: false).
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("imgflip: %s", e.Message)
}

// Client talks to the Imgflip API: the template catalog plus the two
// captioning endpoints. Catalog reads are unauthenticated; captioning
// requires account credentials.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// New creates an Imgflip client. Empty credentials leave the client in an
// unconfigured state; Configured reports it and captioning calls fail.
func New(username, password string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithBaseURL creates a client against a non-default endpoint. Tests use
// this to point the client at a local server.
func NewWithBaseURL(baseURL, username, password string) *Client {
	c := New(username, password)
	c.baseURL = strings.TrimRight(baseURL, "/")

	return c
}

// Configured reports whether captioning credentials are present.
func (c *Client) Configured() bool {
	return c.username != "" && c.password != ""
}

type getMemesResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Memes []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			URL      string `json:"url"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			BoxCount int    `json:"box_count"`
		} `json:"memes"`
	} `json:"data"`
	ErrorMessage string `json:"error_message"`
}

// PopularTemplates fetches the roughly 100 most popular meme templates.
func (c *Client) PopularTemplates(ctx context.Context) ([]tracker.Template, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_memes", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch templates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body getMemesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	if !body.Success {
		return nil, &APIError{Message: orDefault(body.ErrorMessage, "failed to fetch templates")}
	}

	templates := make([]tracker.Template, 0, len(body.Data.Memes))
	for _, m := range body.Data.Memes {
		templates = append(templates, tracker.Template{
			ID:       m.ID,
			Name:     m.Name,
			BoxCount: m.BoxCount,
		})
	}

	return templates, nil
}

type captionResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL     string `json:"url"`
		PageURL string `json:"page_url"`
	} `json:"data"`
	ErrorMessage string `json:"error_message"`
}

// CaptionImage renders a specific template with top and bottom text.
func (c *Client) CaptionImage(ctx context.Context, templateID, topText, bottomText string) (*Meme, error) {
	form := url.Values{
		"username":     {c.username},
		"password":     {c.password},
		"template_id":  {templateID},
		"text0":        {topText},
		"text1":        {bottomText},
		"no_watermark": {"1"},
	}

	return c.postForm(ctx, "/caption_image", form)
}

// Automeme lets Imgflip pick a template for a well-known meme phrase.
func (c *Client) Automeme(ctx context.Context, text string) (*Meme, error) {
	form := url.Values{
		"username":     {c.username},
		"password":     {c.password},
		"text":         {text},
		"no_watermark": {"1"},
	}

	return c.postForm(ctx, "/automeme", form)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*Meme, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imgflip %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body captionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode imgflip %s response: %w", path, err)
	}

	if !body.Success {
		return nil, &APIError{Message: orDefault(body.ErrorMessage, "caption request failed")}
	}

	return &Meme{URL: body.Data.URL, PageURL: body.Data.PageURL}, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
