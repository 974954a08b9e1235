package ws

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"

	"zbchat/internal/domain"
	"zbchat/internal/provider"
)

// defaultAIQuestion substitutes for a bare "@张兵" with no question text.
const defaultAIQuestion = "你好，请和我聊天"

// fallbackReplies are broadcast in the persona's name when the model
// errors out or returns nothing.
var fallbackReplies = []string{"砰砰砰", "娜艺那", "嗨娜娜，你卡了"}

// cannedWeather are the persona's weather small-talk lines; the weights
// skew towards the common conditions.
var cannedWeather = []struct {
	text   string
	weight float64
}{
	{"晴天，阳光明媚，气温25度，非常适合外出活动！", 0.3},
	{"晴天，万里无云，气温30度，注意防晒！", 0.2},
	{"雨天，正在下小雨，气温18度，出门记得带伞！", 0.2},
	{"雨天，大雨倾盆，气温15度，建议待在室内！", 0.1},
	{"阴天，天空灰蒙蒙的，气温22度，适合穿着薄外套！", 0.1},
	{"多云，时有阳光透过云层，气温23度，天气不错！", 0.05},
	{"小雪，雪花纷飞，气温-2度，注意保暖！", 0.03},
	{"雾霾，空气质量较差，气温20度，外出建议戴口罩！", 0.02},
}

func pickCannedWeather() string {
	total := 0.0
	for _, option := range cannedWeather {
		total += option.weight
	}
	roll := rand.Float64() * total
	for _, option := range cannedWeather {
		roll -= option.weight
		if roll < 0 {
			return option.text
		}
	}
	return cannedWeather[0].text
}

// ack sends a per-command acknowledgement to the sender only.
func (h *Hub) ack(c *Client, command, content, message string) {
	h.sendJSON(c, domain.CommandAck{
		Type:    domain.MessageTypeSpecialCommand,
		Command: command,
		Content: content,
		Message: message,
	})
}

// echo rebroadcasts the sender's raw command line as plain chat so every
// client sees what triggered the reply. The echo is not persisted.
func (h *Hub) echo(username, content string) {
	h.broadcast(domain.ChatEnvelope{
		Type:      domain.MessageTypePlain,
		Username:  username,
		Content:   content,
		Timestamp: domain.Clock(),
	})
}

func (h *Hub) handleMovieCommand(c *Client, username, content, args string) {
	if args == "" {
		h.ack(c, "movie", content, "请提供有效的电影URL，格式：@电影 url")
		return
	}

	src, width, height := h.movie.Build(args)
	h.broadcast(domain.MovieEnvelope{
		Type:         domain.MessageTypeMovie,
		Username:     username,
		Content:      content,
		IframeSrc:    src,
		IframeWidth:  width,
		IframeHeight: height,
		Timestamp:    domain.Clock(),
	})
	h.persist(username, domain.MessageTypeMovie, content, map[string]any{
		"iframe_src":    src,
		"iframe_width":  width,
		"iframe_height": height,
	})
	h.ack(c, "movie", content, "电影链接已成功解析并展示")
}

func (h *Hub) handleMusicCommand(c *Client, username, content, args string) {
	var info domain.MusicInfo

	if args != "" {
		info = provider.MusicFromURL(args)
		info.IsVIP = provider.IsRestrictedURL(args)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), domain.MusicTimeout)
		defer cancel()

		picked, err := h.music.Random(ctx)
		if err != nil {
			h.log.Warn("music fetch failed", "error", err)
			h.ack(c, "music", content, fmt.Sprintf("音乐获取失败: %v", err))
			return
		}
		info = picked
	}

	if info.IsVIP {
		// Withhold the playable link for restricted tracks
		info.URL = ""
	}

	h.broadcast(domain.MusicEnvelope{
		Type:      domain.MessageTypeMusic,
		Username:  username,
		Content:   content,
		MusicInfo: info,
		Timestamp: domain.Clock(),
	})
	h.persist(username, domain.MessageTypeMusic, content, map[string]any{
		"music_info": info,
	})

	if info.IsVIP {
		h.ack(c, "music", content, "该音乐为vip歌曲无法播放")
	} else {
		h.ack(c, "music", content, "音乐卡片已生成")
	}
}

func (h *Hub) handleWeatherCommand(c *Client, username, content, args string) {
	if args == "" {
		h.ack(c, "weather", content, "请指定要查询的城市，例如: @天气 北京")
		return
	}
	city := args

	h.echo(username, content)

	ctx, cancel := context.WithTimeout(context.Background(), domain.WeatherTimeout)
	defer cancel()

	reply, err := h.weather.Lookup(ctx, city)
	if err != nil {
		h.log.Warn("weather lookup failed", "city", city, "error", err)
		reply = fmt.Sprintf("%s的天气数据暂时不可用，请稍后再试", city)
	}

	h.broadcast(domain.ChatEnvelope{
		Type:      domain.MessageTypeAI,
		Username:  domain.SystemAuthor,
		Content:   reply,
		Timestamp: domain.Clock(),
	})
	h.persist(domain.SystemAuthor, domain.MessageTypeAI, reply, nil)
	h.ack(c, "weather", content, "天气查询完成")
}

func (h *Hub) handleNewsCommand(c *Client, username, content, _ string) {
	h.echo(username, content)

	ctx, cancel := context.WithTimeout(context.Background(), domain.NewsTimeout)
	defer cancel()

	items, err := h.news.TopStories(ctx)
	if err != nil {
		h.log.Warn("news fetch failed", "error", err)
		h.broadcast(domain.ChatEnvelope{
			Type:      domain.MessageTypeSystem,
			Username:  domain.SystemAuthor,
			Content:   "抱歉，暂时无法获取新闻内容，请稍后再试",
			Timestamp: domain.Clock(),
		})
		h.ack(c, "news", content, fmt.Sprintf("新闻获取失败: %v", err))
		return
	}

	newsContent := provider.FormatNews(items)

	// PDF rendering is best effort; the card still goes out without it.
	pdfPath, err := h.pdf.Generate(items)
	if err != nil {
		h.log.Warn("news pdf generation failed", "error", err)
		pdfPath = ""
	}
	pdfFilename := ""
	if pdfPath != "" {
		pdfFilename = filepath.Base(pdfPath)
	}

	h.broadcast(domain.NewsEnvelope{
		Type:        domain.MessageTypeNewsPDF,
		Username:    domain.SystemAuthor,
		Content:     newsContent,
		NewsList:    items,
		PDFPath:     pdfPath,
		PDFFilename: pdfFilename,
		Timestamp:   domain.Clock(),
	})
	h.persist(domain.SystemAuthor, domain.MessageTypeNewsPDF, newsContent, map[string]any{
		"news_list": items,
		"pdf_path":  pdfPath,
	})

	h.sendJSON(c, domain.CommandAck{
		Type:        domain.MessageTypeSpecialCommand,
		Command:     "news",
		Content:     content,
		Message:     "新闻查询完成并生成PDF",
		PDFPath:     pdfPath,
		PDFFilename: pdfFilename,
	})
}

func (h *Hub) handleAICommand(c *Client, username, content, args string) {
	question := args
	if question == "" {
		question = defaultAIQuestion
	}

	h.echo(username, content)

	reply, isFallback := h.answerQuestion(question)

	h.broadcast(domain.ChatEnvelope{
		Type:      domain.MessageTypeAI,
		Username:  domain.PersonaName,
		Content:   reply,
		Timestamp: domain.Clock(),
	})

	var extra map[string]any
	if isFallback {
		extra = map[string]any{"is_fallback": true}
	}
	h.persist(domain.PersonaName, domain.MessageTypeAI, reply, extra)

	if isFallback {
		h.ack(c, "ai", content, "AI服务暂时不可用，使用备用回复")
	} else {
		h.ack(c, "ai", content, "张兵AI已回复")
	}
}

// answerQuestion applies the persona's hard-coded replies before going to
// the model. The override checks run in a fixed order: exact trigger,
// relationship keywords, weather keywords.
func (h *Hub) answerQuestion(question string) (reply string, isFallback bool) {
	switch {
	case question == "那艺娜":
		return "砰砰砰", false
	case containsAny(question, "恋情", "爱", "喜欢", "感情"):
		return "我从来没说过我爱娜娜", false
	case containsAny(question, "天气", "气温", "温度"):
		return pickCannedWeather(), false
	}

	if h.ai == nil {
		return fallbackReplies[rand.Intn(len(fallbackReplies))], true
	}

	ctx, cancel := context.WithTimeout(context.Background(), domain.AITimeout)
	defer cancel()

	answer, err := h.ai.Ask(ctx, question)
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			h.log.Warn("ai ask failed", "error", err)
		}
		return fallbackReplies[rand.Intn(len(fallbackReplies))], true
	}
	return answer, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
