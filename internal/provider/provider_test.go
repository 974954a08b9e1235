package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"zbchat/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// === MOVIE ===

func TestMovieEmbed_Build(t *testing.T) {
	m := NewMovieEmbed("")
	src, width, height := m.Build("https://example.com/v.mp4")
	require.Equal(t, "https://jx.m3u8.tv/jiexi/?url=https://example.com/v.mp4", src)
	require.Equal(t, 400, width)
	require.Equal(t, 400, height)
}

func TestMovieEmbed_CustomParseService(t *testing.T) {
	m := NewMovieEmbed("https://resolver.test/?u=")
	src, _, _ := m.Build("abc")
	require.Equal(t, "https://resolver.test/?u=abc", src)
}

// === MUSIC ===

func TestIsRestrictedURL(t *testing.T) {
	tests := []struct {
		url        string
		restricted bool
	}{
		{"https://example.com/song.mp3", false},
		{"https://example.com/VIP/song.mp3", true},
		{"https://example.com/pay/track", true},
		{"https://member.example.com/a", true},
		{"https://example.com/premium.mp3", true},
		{"https://example.com/subscribe/x", true},
		{"", false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.restricted, IsRestrictedURL(tc.url), tc.url)
	}
}

func TestMusicFromURL(t *testing.T) {
	info := MusicFromURL("https://example.com/a.mp3")
	require.Equal(t, "用户指定音乐", info.Name)
	require.Equal(t, "未知艺术家", info.Singer)
	require.Equal(t, "https://example.com/a.mp3", info.URL)
	require.NotEmpty(t, info.Image)
}

func TestKuwoMusic_Random(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/randomkuwo", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		w.Write([]byte(`{"code":200,"data":{"name":"爱如火","singer":"那艺娜","mp3":"https://cdn.example.com/a.mp3","image":""}}`))
	}))
	defer server.Close()

	music := NewKuwoMusic(server.URL, "test-key", testLogger())
	info, err := music.Random(context.Background())
	require.NoError(t, err)
	require.Equal(t, "爱如火", info.Name)
	// The mp3 field is normalized into the playable URL.
	require.Equal(t, "https://cdn.example.com/a.mp3", info.URL)
	require.Equal(t, placeholderCover, info.Image)
	require.False(t, info.IsVIP)
}

func TestKuwoMusic_RandomVIPFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{"name":"付费曲","singer":"某人","url":"https://cdn.example.com/b.mp3","vip":true}}`))
	}))
	defer server.Close()

	music := NewKuwoMusic(server.URL, "k", testLogger())
	info, err := music.Random(context.Background())
	require.NoError(t, err)
	require.True(t, info.IsVIP)
}

func TestKuwoMusic_RandomAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":500,"msg":"内部错误"}`))
	}))
	defer server.Close()

	music := NewKuwoMusic(server.URL, "k", testLogger())
	_, err := music.Random(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

// === WEATHER ===

func TestWeatherChain_FirstSourceWins(t *testing.T) {
	qweather := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "北京", r.URL.Query().Get("location"))
		w.Write([]byte(`{"code":"200","now":{"temp":"21","text":"晴","humidity":"40","windDir":"北风","windScale":"3","feelsLike":"20","obsTime":"2025-01-01T12:00+08:00"}}`))
	}))
	defer qweather.Close()

	chain := NewWeatherChain(WeatherConfig{
		QWeatherURL: qweather.URL,
		WttrURL:     "http://127.0.0.1:0", // must never be reached
	}, testLogger())

	reply, err := chain.Lookup(context.Background(), "北京")
	require.NoError(t, err)
	require.Contains(t, reply, "北京当前天气")
	require.Contains(t, reply, "实时温度：21°C")
	require.Contains(t, reply, "天气状况：晴")
	require.Contains(t, reply, "风力情况：北风 3级")
}

func TestWeatherChain_FallsBackToSecondSource(t *testing.T) {
	qweather := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"404"}`))
	}))
	defer qweather.Close()

	wttr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_condition":[{"temp_C":"18","humidity":"55","windspeedKmph":"10","winddirDegree":"90","FeelsLikeC":"17","observation_time":"04:00 AM","weatherDesc":[{"value":"小雨"}]}]}`))
	}))
	defer wttr.Close()

	chain := NewWeatherChain(WeatherConfig{
		QWeatherURL: qweather.URL,
		WttrURL:     wttr.URL,
	}, testLogger())

	reply, err := chain.Lookup(context.Background(), "上海")
	require.NoError(t, err)
	require.Contains(t, reply, "上海当前天气")
	require.Contains(t, reply, "天气状况：小雨")
}

func TestWeatherChain_AllSourcesFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	chain := NewWeatherChain(WeatherConfig{
		QWeatherURL:    failing.URL,
		WttrURL:        failing.URL,
		OpenWeatherURL: failing.URL,
	}, testLogger())

	_, err := chain.Lookup(context.Background(), "北京")
	require.Error(t, err)
	require.Contains(t, err.Error(), "all weather sources failed")
}

func TestWeatherChain_OpenWeatherNegativeWindDegree(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	openweather := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main":{"temp":20.5,"feels_like":19.0,"humidity":50},"weather":[{"description":"晴"}],"wind":{"speed":3.1,"deg":-90},"dt":1700000000}`))
	}))
	defer openweather.Close()

	chain := NewWeatherChain(WeatherConfig{
		QWeatherURL:    failing.URL,
		WttrURL:        failing.URL,
		OpenWeatherURL: openweather.URL,
	}, testLogger())

	reply, err := chain.Lookup(context.Background(), "北京")
	require.NoError(t, err)
	// -90° wraps to 270°, due west.
	require.Contains(t, reply, "西风")
}

// === NEWS ===

func TestParseHotList(t *testing.T) {
	page := `<html><body>
<div class="item">1. 第一条热搜 790w</div>
<div class="item">2、第二条热搜 520w</div>
<div class="item">3. 没有热度的条目</div>
<p>广告内容</p>
</body></html>`

	items := parseHotList(page)
	require.Len(t, items, 3)
	require.Equal(t, "1", items[0].Rank)
	require.Equal(t, "第一条热搜", items[0].Title)
	require.Equal(t, "790w", items[0].Heat)
	require.Equal(t, "第二条热搜", items[1].Title)
	require.Empty(t, items[2].Heat)
}

func TestParseHotList_CapsAtTopTen(t *testing.T) {
	var page string
	for i := 1; i <= 15; i++ {
		page += "<li>" + string(rune('0'+i/10)) + string(rune('0'+i%10)) + ". 条目 100w</li>"
	}
	items := parseHotList(page)
	require.Len(t, items, NewsTopN)
}

func TestHotListNews_TopStories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<ol><li>1. 头条新闻 999w</li><li>2. 次条新闻 500w</li></ol>`))
	}))
	defer server.Close()

	news := NewHotListNews(server.URL, testLogger())
	items, err := news.TopStories(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "头条新闻", items[0].Title)
}

func TestHotListNews_EmptyPageIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer server.Close()

	news := NewHotListNews(server.URL, testLogger())
	_, err := news.TopStories(context.Background())
	require.Error(t, err)
}

func TestFormatNews(t *testing.T) {
	out := FormatNews([]domain.NewsItem{
		{Rank: "1", Title: "头条", Heat: "790w"},
		{Rank: "2", Title: "次条"},
	})
	require.Contains(t, out, "📰 百度热搜榜（前十条）")
	require.Contains(t, out, "1. **头条** [790w]")
	require.Contains(t, out, "2. **次条**")
}
