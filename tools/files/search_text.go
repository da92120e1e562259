package files

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// DefaultMaxResults bounds search_text matches when the model does not
// ask for a limit.
const DefaultMaxResults = 100

// SearchTextRequest is the search_text tool input.
type SearchTextRequest struct {
	Paths         string `json:"paths"`
	Query         string `json:"query"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// SearchTextResult is the search_text tool output.
type SearchTextResult struct {
	Success   bool     `json:"success"`
	Matches   []string `json:"matches"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
}

var searchTextParams = []tools.Param{
	{Name: "paths", Type: tools.TypeString, Description: "Space-separated files or directories to search."},
	{Name: "query", Type: tools.TypeString, Description: "Literal text to search for."},
	{Name: "case_sensitive", Type: tools.TypeBoolean, Description: "Match case exactly.", Default: false},
	{Name: "max_results", Type: tools.TypeInteger, Description: "Maximum matches to return.", Default: DefaultMaxResults},
}

// SearchText finds literal text in files, reporting path:line matches.
type SearchText struct {
	root string
}

var _ tools.Tool[SearchTextRequest, SearchTextResult] = (*SearchText)(nil)

func NewSearchText(root string) *SearchText {
	return &SearchText{root: root}
}

func (t *SearchText) Name() string { return "search_text" }

func (t *SearchText) Description() string {
	return "Search files for literal text. Matches are reported as path:line: text."
}

func (t *SearchText) Permissions() tools.Permissions { return "r" }

func (t *SearchText) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(searchTextParams)
}

func (t *SearchText) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[SearchTextRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *SearchText) Run(_ context.Context, req *SearchTextRequest) (*SearchTextResult, error) {
	if req.Paths == "" {
		return nil, errors.New("invalid request: empty paths")
	}
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	query := req.Query
	if !req.CaseSensitive {
		query = strings.ToLower(query)
	}

	res := &SearchTextResult{Success: true}
	for _, p := range strings.Fields(req.Paths) {
		base := resolve(t.root, p)
		info, err := os.Stat(base)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to stat %q", p)
		}
		if !info.IsDir() {
			if err := t.searchFile(base, p, query, req.CaseSensitive, maxResults, res); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if res.Truncated {
				return filepath.SkipAll
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			return t.searchFile(path, filepath.Join(p, rel), query, req.CaseSensitive, maxResults, res)
		})
		if err != nil {
			return nil, errors.WithMessage(err, "failed to search files")
		}
	}
	res.Count = len(res.Matches)
	return res, nil
}

func (t *SearchText) searchFile(path, display, query string, caseSensitive bool, maxResults int, res *SearchTextResult) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithMessagef(err, "failed to open %q", display)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		haystack := line
		if !caseSensitive {
			haystack = strings.ToLower(line)
		}
		if strings.Contains(haystack, query) {
			if len(res.Matches) >= maxResults {
				res.Truncated = true
				return nil
			}
			res.Matches = append(res.Matches, fmt.Sprintf("%s:%d: %s", display, lineNo, strings.TrimSpace(line)))
		}
	}
	// binary or unreadable content is skipped, not fatal
	return nil
}
