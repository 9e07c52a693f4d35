package google

import (
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/gmail-file-downloader/internal/logging"
)

// persistingTokenSource writes every token that differs from the last one it
// saw back to the token file.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger logging.Logger

	mu   sync.Mutex
	last string
}

func newPersistingTokenSource(base oauth2.TokenSource, path string, current *oauth2.Token, logger logging.Logger) *persistingTokenSource {
	s := &persistingTokenSource{base: base, path: path, logger: logger}
	if current != nil {
		s.last = current.AccessToken
	}
	return s
}

// Token implements oauth2.TokenSource.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			// The token is still usable for this run.
			s.logger.Warn("failed to save refreshed token", "path", s.path, logging.Err(err))
		} else {
			s.logger.Debug("saved refreshed token", "path", s.path)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
