package retrieval

// #region source

// Source selects where context passages come from.
type Source string

const (
	SourceWiki Source = "wiki"
	SourceFile Source = "file"
	SourceURL  Source = "url"
)

// ParseSource maps a user-facing name to a Source.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceWiki, SourceFile, SourceURL:
		return Source(s), true
	default:
		return "", false
	}
}

// #endregion

// #region passage

// Passage is one retrieved context snippet.
type Passage struct {
	Title string
	Text  string
	Ref   string // origin: article title, file path, or URL
}

// #endregion
