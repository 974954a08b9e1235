package provider

// DefaultParseService is the playback-embed resolver the movie command
// routes URLs through.
const DefaultParseService = "https://jx.m3u8.tv/jiexi/?url="

const (
	embedWidth  = 400
	embedHeight = 400
)

// MovieEmbed builds playback-embed descriptors by fixed string
// substitution; it never calls the resolver itself.
type MovieEmbed struct {
	ParseService string
}

func NewMovieEmbed(parseService string) MovieEmbed {
	if parseService == "" {
		parseService = DefaultParseService
	}
	return MovieEmbed{ParseService: parseService}
}

// Build returns the iframe source and dimensions for a target URL.
func (m MovieEmbed) Build(target string) (src string, width, height int) {
	return m.ParseService + target, embedWidth, embedHeight
}
