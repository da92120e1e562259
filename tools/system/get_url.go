package system

import (
	"context"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

const (
	// DefaultMaxLength bounds get_url content in characters.
	DefaultMaxLength = 8000
	// maxBodyBytes bounds the raw response body read from the wire.
	maxBodyBytes = 4 * 1024 * 1024
)

// GetURLRequest is the get_url tool input.
type GetURLRequest struct {
	URL       string `json:"url"`
	MaxLength int    `json:"max_length,omitempty"`
	MaxLines  int    `json:"max_lines,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
}

// GetURLResult is the get_url tool output.
type GetURLResult struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Content    string `json:"content"`
	Truncated  bool   `json:"truncated,omitempty"`
}

var getURLParams = []tools.Param{
	{Name: "url", Type: tools.TypeString, Description: "URL to fetch."},
	{Name: "max_length", Type: tools.TypeInteger, Description: "Maximum characters to return.", Default: DefaultMaxLength},
	{Name: "max_lines", Type: tools.TypeInteger, Description: "Maximum lines to return, 0 means unlimited.", Default: 0},
	{Name: "timeout", Type: tools.TypeInteger, Description: "Request timeout in seconds.", Default: DefaultTimeoutSeconds},
}

// GetURL fetches a URL and returns its content, converting HTML pages
// to markdown.
type GetURL struct {
	httpClient *http.Client
	converter  *md.Converter
}

var _ tools.Tool[GetURLRequest, GetURLResult] = (*GetURL)(nil)

func NewGetURL() *GetURL {
	return &GetURL{
		httpClient: &http.Client{},
		converter:  md.NewConverter("", true, nil),
	}
}

// WithHTTPClient overrides the HTTP client, mostly for tests.
func (t *GetURL) WithHTTPClient(client *http.Client) *GetURL {
	t.httpClient = client
	return t
}

func (t *GetURL) Name() string { return "get_url" }

func (t *GetURL) Description() string {
	return "Fetch a URL. HTML pages are converted to markdown, other content is returned as text."
}

func (t *GetURL) Permissions() tools.Permissions { return "n" }

func (t *GetURL) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(getURLParams)
}

func (t *GetURL) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[GetURLRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *GetURL) Run(ctx context.Context, req *GetURLRequest) (*GetURLResult, error) {
	if req.URL == "" {
		return nil, errors.New("invalid request: empty url")
	}
	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOf(req.Timeout))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid url")
	}
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to fetch url")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read response")
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Newf("request failed with status %d", resp.StatusCode)
	}

	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		content, err = t.toMarkdown(content)
		if err != nil {
			return nil, err
		}
	}

	truncated := false
	if req.MaxLines > 0 {
		lines := strings.SplitAfter(content, "\n")
		if len(lines) > req.MaxLines {
			content = strings.Join(lines[:req.MaxLines], "")
			truncated = true
		}
	}
	if len(content) > maxLength {
		content = content[:maxLength]
		truncated = true
	}

	return &GetURLResult{
		Success:    true,
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		Content:    content,
		Truncated:  truncated,
	}, nil
}

func (t *GetURL) toMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.WithMessage(err, "failed to parse html")
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(t.converter.Convert(doc.Selection)), nil
}
