package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"zbchat/internal/domain"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// placeholderCover stands in when a track has no artwork of its own.
const placeholderCover = "https://via.placeholder.com/100x100?text=Music"

// restrictedKeywords mark a URL as likely paid content. A restricted track's
// playable URL is withheld from the broadcast descriptor.
var restrictedKeywords = []string{"vip", "pay", "member", "premium", "subscribe"}

// MusicProvider returns a random track pick.
type MusicProvider interface {
	Random(ctx context.Context) (domain.MusicInfo, error)
}

// IsRestrictedURL reports whether a URL matches a known restricted-content
// pattern.
func IsRestrictedURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, keyword := range restrictedKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// MusicFromURL builds a descriptor for a user-supplied track URL.
func MusicFromURL(rawURL string) domain.MusicInfo {
	return domain.MusicInfo{
		Name:   "用户指定音乐",
		Singer: "未知艺术家",
		URL:    rawURL,
		Image:  placeholderCover,
	}
}

// KuwoMusic fetches random picks from the xxapi randomkuwo endpoint.
type KuwoMusic struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

func NewKuwoMusic(baseURL, apiKey string, log *slog.Logger) *KuwoMusic {
	return &KuwoMusic{
		client:  &http.Client{Timeout: domain.MusicTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

type kuwoResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Name     string `json:"name"`
		Singer   string `json:"singer"`
		URL      string `json:"url"`
		Mp3      string `json:"mp3"`
		AudioURL string `json:"audio_url"`
		FileURL  string `json:"file_url"`
		Image    string `json:"image"`
		VIP      bool   `json:"vip"`
	} `json:"data"`
}

// Random asks the API for one track. Responses spell the audio URL in
// several different fields depending on API version, so they are normalized
// into MusicInfo.URL.
func (k *KuwoMusic) Random(ctx context.Context) (domain.MusicInfo, error) {
	endpoint := fmt.Sprintf("%s/api/randomkuwo?api-key=%s", k.baseURL, k.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.MusicInfo{}, err
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return domain.MusicInfo{}, err
	}
	defer resp.Body.Close()

	var payload kuwoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.MusicInfo{}, fmt.Errorf("decode music response: %w", err)
	}
	if payload.Code != 200 {
		return domain.MusicInfo{}, fmt.Errorf("music api code %d: %s", payload.Code, payload.Msg)
	}

	info := domain.MusicInfo{
		Name:   payload.Data.Name,
		Singer: payload.Data.Singer,
		URL:    payload.Data.URL,
		Image:  payload.Data.Image,
	}
	if info.URL == "" {
		switch {
		case payload.Data.Mp3 != "":
			info.URL = payload.Data.Mp3
		case payload.Data.AudioURL != "":
			info.URL = payload.Data.AudioURL
		case payload.Data.FileURL != "":
			info.URL = payload.Data.FileURL
		}
	}
	if info.Image == "" {
		info.Image = placeholderCover
	}
	if payload.Data.VIP || IsRestrictedURL(info.URL) {
		info.IsVIP = true
	}

	k.log.Debug("random music pick", "name", info.Name, "restricted", info.IsVIP)
	return info, nil
}
