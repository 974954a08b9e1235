package domain

import "time"

// ==== Chat Bot Identity ====

// PersonaName is the reserved bot identity that authors AI replies.
// It can never be used as a login or registration username.
const PersonaName = "张兵"

// PersonaTransliteration is the pinyin form of the persona name,
// matched case-insensitively during the forbidden-name check.
const PersonaTransliteration = "zhangbing"

// SystemAuthor is the username attached to server-generated messages.
const SystemAuthor = "系统"

// ==== Command Prefixes ====

// Command prefixes are matched literally and case-sensitively against the
// start of an inbound chat line, in the order listed in the dispatch table.
const (
	PrefixAI      = "@张兵"
	PrefixMovie   = "@电影"
	PrefixMusic   = "@音乐"
	PrefixWeather = "@天气"
	PrefixNews    = "@新闻"
)

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096

// HistoryPushLimit is the number of persisted messages replayed to a
// client right after a successful login.
const HistoryPushLimit = 100

// TimeLayout is the wall-clock format used in every outbound envelope.
const TimeLayout = "15:04:05"

// ==== Account Constraints ====

const (
	UsernameMinLen = 3
	UsernameMaxLen = 20
	PasswordMinLen = 6
)

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket connections (req/sec)
	DefaultRateLimitWS = 5

	// DefaultRateLimitStrict is the stricter rate limit for sensitive endpoints
	DefaultRateLimitStrict = 2
)

// ==== Provider Timeouts ====

const (
	MusicTimeout   = 5 * time.Second
	WeatherTimeout = 10 * time.Second
	NewsTimeout    = 10 * time.Second
	AITimeout      = 30 * time.Second
)
