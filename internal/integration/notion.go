package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// notionVersion is the Notion API revision this integration speaks.
const notionVersion = "2022-06-28"

// Notion pulls pages from the Notion API over an OAuth2 connection.
//
// Page bodies are block trees: every page of block children is walked
// following next_cursor until exhausted, child blocks are expanded
// recursively, and nesting depth becomes tab indentation in the flattened
// text. A malformed record skips that record only, never the pull.
type Notion struct {
	Flow

	cfg OAuth2Config

	// apiRoot is separate from the OAuth2 endpoints so tests can point
	// document pulls at a local server.
	apiRoot    string
	httpClient *http.Client
}

// NewNotion creates a Notion definition from instance configuration.
func NewNotion(cfg OAuth2Config) *Notion {
	return &Notion{
		Flow: Flow{
			Endpoints: Endpoints{
				APIRoot:               "https://api.notion.com",
				AuthorizationEndpoint: "/v1/oauth/authorize",
				TokenEndpoint:         "/v1/oauth/token",
			},
		},
		cfg:     cfg,
		apiRoot: "https://api.notion.com",
	}
}

func (n *Notion) Name() string    { return "Notion" }
func (n *Notion) Slug() string    { return "notion" }
func (n *Notion) LogoURL() string { return "/static/integration-logos/notion.svg" }

// Validate checks the class-level contract including OAuth2 endpoints.
func (n *Notion) Validate() error {
	if err := validateAttrs(n.Name(), n.Slug()); err != nil {
		return err
	}
	return n.Endpoints.Validate()
}

func (n *Notion) ConfigModel() interface{}     { return &OAuth2Config{} }
func (n *Notion) ConnectionModel() interface{} { return &OAuth2Connection{} }

// ValidateConnection reports whether cfg parses as an OAuth2 connection.
func (n *Notion) ValidateConnection(cfg map[string]interface{}) bool {
	var model OAuth2Connection
	return DecodeStrict(cfg, &model) == nil
}

// ClientCredentials returns the configured OAuth client credentials.
func (n *Notion) ClientCredentials() (string, string) {
	return n.cfg.ClientID, n.cfg.ClientSecret
}

// AuthURL adds Notion's owner=user flag before delegating to the base
// flow composition.
func (n *Notion) AuthURL(clientID, redirectURI string, extra url.Values) (string, error) {
	merged := url.Values{}
	for key, vals := range extra {
		merged[key] = vals
	}
	merged.Set("owner", "user")
	return n.Flow.AuthURL(clientID, redirectURI, merged)
}

// Pull searches for pages visible to the connection and flattens each
// page's block tree into plain text.
func (n *Notion) Pull(ctx context.Context, conn map[string]interface{}) (*PullResult, error) {
	var creds OAuth2Connection
	if err := DecodeStrict(conn, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	result := &PullResult{}
	cursor := ""
	for {
		page, err := n.searchPages(ctx, creds.AccessToken, cursor)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.results {
			doc, skip := n.renderPage(ctx, creds.AccessToken, obj)
			if skip != nil {
				result.Skipped = append(result.Skipped, *skip)
				continue
			}
			if doc != "" {
				result.Documents = append(result.Documents, doc)
			}
		}

		if page.nextCursor == "" {
			break
		}
		cursor = page.nextCursor
	}

	return result, nil
}

// resultPage is one page of a paginated Notion listing.
type resultPage struct {
	results    []map[string]interface{}
	nextCursor string
}

// renderPage turns one search result into a document blob, or a skip
// record when the result cannot be parsed.
func (n *Notion) renderPage(ctx context.Context, token string, obj map[string]interface{}) (string, *SkippedRecord) {
	id := stringField(obj, "id")

	if stringField(obj, "object") != "page" {
		return "", nil
	}

	title, err := pageTitle(obj)
	if err != nil {
		return "", &SkippedRecord{ID: id, Reason: err.Error()}
	}

	contents, err := n.readBlock(ctx, token, id, 0)
	if err != nil {
		return "", &SkippedRecord{ID: id, Reason: err.Error()}
	}

	return fmt.Sprintf("=== %s === \n\n%s", title, contents), nil
}

// pageTitle digs the plain-text title out of a page object.
func pageTitle(obj map[string]interface{}) (string, error) {
	props, ok := obj["properties"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("page has no properties")
	}
	titleProp, ok := props["title"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("page has no title property")
	}
	parts, ok := titleProp["title"].([]interface{})
	if !ok || len(parts) == 0 {
		return "", fmt.Errorf("page title is empty")
	}
	first, ok := parts[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("malformed title fragment")
	}
	text := stringField(first, "plain_text")
	if text == "" {
		return "", fmt.Errorf("page title has no plain text")
	}
	return text, nil
}

// readBlock flattens a block's children into text, one line per fragment,
// indented by nesting depth. Children pages are followed via next_cursor.
func (n *Notion) readBlock(ctx context.Context, token, blockID string, depth int) (string, error) {
	var lines []string

	cursor := ""
	for {
		endpoint := fmt.Sprintf("%s/v1/blocks/%s/children", n.apiRoot, blockID)
		if cursor != "" {
			endpoint += "?start_cursor=" + url.QueryEscape(cursor)
		}

		data, err := n.getJSON(ctx, token, endpoint)
		if err != nil {
			return "", err
		}

		page, err := parseResultPage(data)
		if err != nil {
			return "", err
		}

		for _, block := range page.results {
			line, ok := blockText(block, depth)
			if !ok {
				// Unintelligible block: drop it, keep the rest.
				continue
			}

			if hasChildren, _ := block["has_children"].(bool); hasChildren {
				children, err := n.readBlock(ctx, token, stringField(block, "id"), depth+1)
				if err != nil {
					return "", err
				}
				if children != "" {
					if line != "" {
						line += "\n"
					}
					line += children
				}
			}

			lines = append(lines, line)
		}

		if page.nextCursor == "" {
			break
		}
		cursor = page.nextCursor
	}

	return strings.Join(lines, "\n"), nil
}

// blockText extracts the rich text of one block, tab-indented by depth.
func blockText(block map[string]interface{}, depth int) (string, bool) {
	blockType := stringField(block, "type")
	if blockType == "" {
		return "", false
	}
	obj, ok := block[blockType].(map[string]interface{})
	if !ok {
		return "", false
	}

	richText, ok := obj["rich_text"].([]interface{})
	if !ok {
		return "", true
	}

	prefix := strings.Repeat("\t", depth)
	var parts []string
	for _, fragment := range richText {
		m, ok := fragment.(map[string]interface{})
		if !ok {
			continue
		}
		text, ok := m["text"].(map[string]interface{})
		if !ok {
			continue
		}
		parts = append(parts, prefix+stringField(text, "content"))
	}
	return strings.Join(parts, "\n"), true
}

// searchPages fetches one page of the search listing.
func (n *Notion) searchPages(ctx context.Context, token, cursor string) (*resultPage, error) {
	body := map[string]interface{}{}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiRoot+"/v1/search", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	n.setHeaders(req, token)

	data, err := n.doJSON(req)
	if err != nil {
		return nil, err
	}
	return parseResultPage(data)
}

// parseResultPage reads results and next_cursor out of a listing payload.
func parseResultPage(data map[string]interface{}) (*resultPage, error) {
	rawResults, ok := data["results"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("listing has no results array")
	}

	page := &resultPage{}
	for _, raw := range rawResults {
		if obj, ok := raw.(map[string]interface{}); ok {
			page.results = append(page.results, obj)
		}
	}
	page.nextCursor = stringField(data, "next_cursor")
	return page, nil
}

func (n *Notion) getJSON(ctx context.Context, token, endpoint string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	n.setHeaders(req, token)
	return n.doJSON(req)
}

func (n *Notion) doJSON(req *http.Request) (map[string]interface{}, error) {
	client := n.httpClient
	if client == nil {
		client = defaultUpstreamClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading notion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("notion responded %d: %s", resp.StatusCode, string(raw))
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding notion response: %w", err)
	}
	return data, nil
}

func (n *Notion) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")
}
