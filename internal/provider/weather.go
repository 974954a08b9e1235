package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zbchat/internal/domain"
)

// WeatherProvider resolves a place name to a formatted weather report.
type WeatherProvider interface {
	Lookup(ctx context.Context, city string) (string, error)
}

// WeatherConfig carries the endpoints and keys of the fallback chain.
// Base URLs are overridable so tests can point sources at a local server.
type WeatherConfig struct {
	QWeatherURL    string
	QWeatherKey    string
	WttrURL        string
	OpenWeatherURL string
	OpenWeatherKey string
}

// WeatherChain tries each source in a fixed order until one succeeds.
// The order is a contract: qweather, then wttr.in, then openweathermap.
type WeatherChain struct {
	client  *http.Client
	cfg     WeatherConfig
	log     *slog.Logger
	sources []weatherSource
}

type weatherSource struct {
	name   string
	lookup func(ctx context.Context, city string) (string, error)
}

func NewWeatherChain(cfg WeatherConfig, log *slog.Logger) *WeatherChain {
	c := &WeatherChain{
		client: &http.Client{Timeout: domain.WeatherTimeout},
		cfg:    cfg,
		log:    log,
	}
	c.sources = []weatherSource{
		{name: "qweather", lookup: c.lookupQWeather},
		{name: "wttr", lookup: c.lookupWttr},
		{name: "openweathermap", lookup: c.lookupOpenWeather},
	}
	return c
}

// Lookup walks the fallback chain. A source failure is logged and the next
// source is tried; only when every source fails does Lookup return an error.
func (c *WeatherChain) Lookup(ctx context.Context, city string) (string, error) {
	var lastErr error
	for _, source := range c.sources {
		reply, err := source.lookup(ctx, city)
		if err != nil {
			c.log.Warn("weather source failed", "source", source.name, "city", city, "error", err)
			lastErr = err
			continue
		}
		return reply, nil
	}
	return "", fmt.Errorf("all weather sources failed: %w", lastErr)
}

func (c *WeatherChain) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *WeatherChain) lookupQWeather(ctx context.Context, city string) (string, error) {
	endpoint := fmt.Sprintf("%s?location=%s&key=%s",
		c.cfg.QWeatherURL, url.QueryEscape(city), c.cfg.QWeatherKey)

	var payload struct {
		Code string `json:"code"`
		Now  struct {
			Temp      string `json:"temp"`
			Text      string `json:"text"`
			Humidity  string `json:"humidity"`
			WindDir   string `json:"windDir"`
			WindScale string `json:"windScale"`
			FeelsLike string `json:"feelsLike"`
			ObsTime   string `json:"obsTime"`
		} `json:"now"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if payload.Code != "200" {
		return "", fmt.Errorf("qweather code %s", payload.Code)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s当前天气：\n", city)
	fmt.Fprintf(&b, "实时温度：%s°C\n", orUnknown(payload.Now.Temp))
	fmt.Fprintf(&b, "天气状况：%s\n", orUnknown(payload.Now.Text))
	fmt.Fprintf(&b, "湿度：%s%%\n", orUnknown(payload.Now.Humidity))
	fmt.Fprintf(&b, "风力情况：%s %s级\n", orUnknown(payload.Now.WindDir), orUnknown(payload.Now.WindScale))
	fmt.Fprintf(&b, "体感温度：%s°C\n", orUnknown(payload.Now.FeelsLike))
	fmt.Fprintf(&b, "更新时间：%s", orUnknown(payload.Now.ObsTime))
	return b.String(), nil
}

func (c *WeatherChain) lookupWttr(ctx context.Context, city string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?format=j1", c.cfg.WttrURL, url.PathEscape(city))

	var payload struct {
		CurrentCondition []struct {
			TempC       string `json:"temp_C"`
			Humidity    string `json:"humidity"`
			WindSpeed   string `json:"windspeedKmph"`
			WindDegree  string `json:"winddirDegree"`
			FeelsLikeC  string `json:"FeelsLikeC"`
			ObsTime     string `json:"observation_time"`
			WeatherDesc []struct {
				Value string `json:"value"`
			} `json:"weatherDesc"`
		} `json:"current_condition"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if len(payload.CurrentCondition) == 0 {
		return "", fmt.Errorf("wttr: empty current_condition")
	}
	now := payload.CurrentCondition[0]

	desc := "未知"
	if len(now.WeatherDesc) > 0 && now.WeatherDesc[0].Value != "" {
		desc = now.WeatherDesc[0].Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s当前天气：\n", city)
	fmt.Fprintf(&b, "实时温度：%s°C\n", orUnknown(now.TempC))
	fmt.Fprintf(&b, "天气状况：%s\n", desc)
	fmt.Fprintf(&b, "湿度：%s%%\n", orUnknown(now.Humidity))
	fmt.Fprintf(&b, "风力情况：%s km/h %s°\n", orUnknown(now.WindSpeed), orUnknown(now.WindDegree))
	fmt.Fprintf(&b, "体感温度：%s°C\n", orUnknown(now.FeelsLikeC))
	fmt.Fprintf(&b, "更新时间：%s", orUnknown(now.ObsTime))
	return b.String(), nil
}

// compassDirections maps 45° sectors to Chinese compass names.
var compassDirections = []string{"北", "东北", "东", "东南", "南", "西南", "西", "西北"}

func (c *WeatherChain) lookupOpenWeather(ctx context.Context, city string) (string, error) {
	endpoint := fmt.Sprintf("%s?q=%s&appid=%s&units=metric&lang=zh_cn",
		c.cfg.OpenWeatherURL, url.QueryEscape(city), c.cfg.OpenWeatherKey)

	var payload struct {
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
		Dt int64 `json:"dt"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}

	desc := "未知"
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		desc = payload.Weather[0].Description
	}
	// Some stations report negative or >360 degrees.
	sector := int(math.Round(payload.Wind.Deg/45)) % 8
	if sector < 0 {
		sector += 8
	}
	direction := compassDirections[sector]

	var b strings.Builder
	fmt.Fprintf(&b, "%s当前天气：\n", city)
	fmt.Fprintf(&b, "实时温度：%.1f°C\n", payload.Main.Temp)
	fmt.Fprintf(&b, "体感温度：%.1f°C\n", payload.Main.FeelsLike)
	fmt.Fprintf(&b, "湿度：%d%%\n", payload.Main.Humidity)
	fmt.Fprintf(&b, "天气状况：%s\n", desc)
	fmt.Fprintf(&b, "风力情况：%s风 %.1f m/s\n", direction, payload.Wind.Speed)
	fmt.Fprintf(&b, "更新时间：%s", time.Unix(payload.Dt, 0).Format("2006-01-02 15:04:05"))
	return b.String(), nil
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}
