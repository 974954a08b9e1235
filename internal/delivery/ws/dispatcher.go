package ws

import (
	"strings"

	"zbchat/internal/domain"
)

// CommandKind tags which chat command a message triggers.
type CommandKind int

const (
	CommandAI CommandKind = iota
	CommandMovie
	CommandMusic
	CommandWeather
	CommandNews
)

// commandRoute binds a prefix to its handler. The AI prefix takes its
// argument directly after the prefix; the rest split on the first space,
// so "@电影url" without a space carries no argument.
type commandRoute struct {
	kind      CommandKind
	prefix    string
	rawSuffix bool
	handle    func(c *Client, username, content, args string)
}

// commandTable fixes the match order: the AI prefix is checked first so
// a persona name embedded in another argument never shadows it.
func commandTable(h *Hub) []commandRoute {
	return []commandRoute{
		{kind: CommandAI, prefix: domain.PrefixAI, rawSuffix: true, handle: h.handleAICommand},
		{kind: CommandMovie, prefix: domain.PrefixMovie, handle: h.handleMovieCommand},
		{kind: CommandMusic, prefix: domain.PrefixMusic, handle: h.handleMusicCommand},
		{kind: CommandWeather, prefix: domain.PrefixWeather, handle: h.handleWeatherCommand},
		{kind: CommandNews, prefix: domain.PrefixNews, handle: h.handleNewsCommand},
	}
}

// classify finds the first route whose prefix starts the message and
// extracts the argument text.
func classify(routes []commandRoute, content string) (commandRoute, string, bool) {
	for _, route := range routes {
		if !strings.HasPrefix(content, route.prefix) {
			continue
		}
		return route, commandArgs(route, content), true
	}
	return commandRoute{}, "", false
}

func commandArgs(route commandRoute, content string) string {
	if route.rawSuffix {
		return strings.TrimSpace(content[len(route.prefix):])
	}
	parts := strings.SplitN(content, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
