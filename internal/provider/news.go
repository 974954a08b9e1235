package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"zbchat/internal/domain"
)

// NewsTopN is the fixed size of the hot list.
const NewsTopN = 10

// NewsProvider fetches the current hot list.
type NewsProvider interface {
	TopStories(ctx context.Context) ([]domain.NewsItem, error)
}

// HotListNews scrapes the 60s hot-list page. The page has no stable JSON
// API, so entries are extracted by pattern from the rendered text, the same
// shape the list is published in: "1. 标题 790w".
type HotListNews struct {
	client *http.Client
	url    string
	log    *slog.Logger
}

func NewHotListNews(url string, log *slog.Logger) *HotListNews {
	return &HotListNews{
		client: &http.Client{Timeout: domain.NewsTimeout},
		url:    url,
		log:    log,
	}
}

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	newsItemPattern = regexp.MustCompile(`^(\d+)[.、]\s*(.+?)\s*(\d+w)?$`)
)

// TopStories returns the first NewsTopN entries. An empty result counts as
// a provider failure.
func (h *HotListNews) TopStories(ctx context.Context) ([]domain.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	items := parseHotList(string(body))
	if len(items) == 0 {
		return nil, fmt.Errorf("no hot-list entries found")
	}
	h.log.Info("fetched hot list", "count", len(items))
	return items, nil
}

// parseHotList strips markup and matches ranked lines.
func parseHotList(page string) []domain.NewsItem {
	text := htmlTagPattern.ReplaceAllString(page, "\n")

	var items []domain.NewsItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := newsItemPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		items = append(items, domain.NewsItem{
			Rank:  match[1],
			Title: strings.TrimSpace(match[2]),
			Heat:  match[3],
		})
		if len(items) == NewsTopN {
			break
		}
	}
	return items
}

// FormatNews renders the hot list as the chat text block.
func FormatNews(items []domain.NewsItem) string {
	if len(items) == 0 {
		return "抱歉，暂时无法获取百度热搜内容。"
	}

	var b strings.Builder
	b.WriteString("📰 百度热搜榜（前十条）\n\n")
	for _, item := range items {
		heat := ""
		if item.Heat != "" {
			heat = fmt.Sprintf(" [%s]", item.Heat)
		}
		fmt.Fprintf(&b, "%s. **%s**%s\n", item.Rank, item.Title, heat)
	}
	return strings.TrimSpace(b.String())
}
