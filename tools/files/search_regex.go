package files

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/tools"
)

// SearchRegexRequest is the search_regex tool input.
type SearchRegexRequest struct {
	Paths         string `json:"paths"`
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	CountOnly     bool   `json:"count_only,omitempty"`
}

// SearchRegexResult is the search_regex tool output. Matches is
// populated on a normal search; Counts replaces it when count_only is
// requested.
type SearchRegexResult struct {
	Success       bool           `json:"success"`
	Matches       []string       `json:"matches,omitempty"`
	Counts        map[string]int `json:"counts,omitempty"`
	TotalMatches  int            `json:"total_matches"`
	FilesSearched int            `json:"files_searched"`
	Truncated     bool           `json:"truncated,omitempty"`
}

var searchRegexParams = []tools.Param{
	{Name: "paths", Type: tools.TypeString, Description: "Space-separated files or directories to search."},
	{Name: "pattern", Type: tools.TypeString, Description: "Regular expression to search for."},
	{Name: "case_sensitive", Type: tools.TypeBoolean, Description: "Match case exactly.", Default: false},
	{Name: "max_results", Type: tools.TypeInteger, Description: "Maximum matches to return.", Default: DefaultMaxResults},
	{Name: "count_only", Type: tools.TypeBoolean, Description: "Return per-file match counts instead of matching lines.", Default: false},
}

// SearchRegex finds lines matching a regular expression, reporting
// path:line matches or per-file counts.
type SearchRegex struct {
	root string
}

var _ tools.Tool[SearchRegexRequest, SearchRegexResult] = (*SearchRegex)(nil)

func NewSearchRegex(root string) *SearchRegex {
	return &SearchRegex{root: root}
}

func (t *SearchRegex) Name() string { return "search_regex" }

func (t *SearchRegex) Description() string {
	return "Search files for a regular expression. Matches are reported as path:line: text, or as per-file counts with count_only."
}

func (t *SearchRegex) Permissions() tools.Permissions { return "r" }

func (t *SearchRegex) Parameters() *jsonschema.Schema {
	return tools.BuildParameters(searchRegexParams)
}

func (t *SearchRegex) Call(ctx context.Context, input string) (string, error) {
	req, err := unmarshalInput[SearchRegexRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

func (t *SearchRegex) Run(_ context.Context, req *SearchRegexRequest) (*SearchRegexResult, error) {
	if req.Paths == "" {
		return nil, errors.New("invalid request: empty paths")
	}
	if req.Pattern == "" {
		return nil, errors.New("invalid request: empty pattern")
	}
	pattern := req.Pattern
	if !req.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid pattern %q", req.Pattern)
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	res := &SearchRegexResult{Success: true}
	if req.CountOnly {
		res.Counts = map[string]int{}
	}
	for _, p := range strings.Fields(req.Paths) {
		base := resolve(t.root, p)
		info, err := os.Stat(base)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to stat %q", p)
		}
		if !info.IsDir() {
			t.searchFile(base, p, re, maxResults, res)
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
			t.searchFile(path, filepath.Join(p, rel), re, maxResults, res)
			return nil
		})
		if err != nil {
			return nil, errors.WithMessage(err, "failed to search files")
		}
	}
	return res, nil
}

func (t *SearchRegex) searchFile(path, display string, re *regexp.Regexp, maxResults int, res *SearchRegexResult) {
	f, err := os.Open(path)
	if err != nil {
		// unreadable files are skipped, not fatal
		return
	}
	defer f.Close()
	res.FilesSearched++

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		if res.Counts != nil {
			res.Counts[display]++
			res.TotalMatches++
			continue
		}
		if len(res.Matches) >= maxResults {
			res.Truncated = true
			return
		}
		res.TotalMatches++
		res.Matches = append(res.Matches, fmt.Sprintf("%s:%d: %s", display, lineNo, strings.TrimSpace(line)))
	}
}
