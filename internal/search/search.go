// Package search finds chapters by name without touching the network,
// so navigation works offline against the cached surah listing.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mfarhan/tarteel/internal/domain"
	sahilm "github.com/sahilm/fuzzy"
)

// Match is one chapter hit with highlight metadata for the UI
type Match struct {
	Chapter        domain.Chapter
	MatchedIndexes []int
	Score          int
}

// chapterSource supplies the chapter listing (cached or fetched)
type chapterSource interface {
	Chapters(ctx context.Context) ([]domain.Chapter, error)
}

// Service ranks chapters against a free-text query
type Service struct {
	source chapterSource
	logger *slog.Logger
}

// NewService creates a chapter search service
func NewService(source chapterSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// FindChapters returns chapters whose transliterated or translated name
// fuzzily matches the query, best first.
func (s *Service) FindChapters(ctx context.Context, query string) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	chapters, err := s.source.Chapters(ctx)
	if err != nil {
		return nil, err
	}

	// Candidate labels combine both names so either can match
	labels := make([]string, len(chapters))
	for i, c := range chapters {
		labels[i] = strings.ToLower(c.TransliteratedName + " " + c.TranslatedName)
	}

	// Coarse filter first, then rank survivors for highlight indexes
	survivors := map[int]bool{}
	for _, rank := range fuzzy.RankFindNormalizedFold(strings.ToLower(query), labels) {
		survivors[rank.OriginalIndex] = true
	}

	ranked := sahilm.Find(strings.ToLower(query), labels)

	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		if len(survivors) > 0 && !survivors[r.Index] {
			continue
		}
		matches = append(matches, Match{
			Chapter:        chapters[r.Index],
			MatchedIndexes: r.MatchedIndexes,
			Score:          r.Score,
		})
	}

	s.logger.Debug("chapter search", "query", query, "matches", len(matches))
	return matches, nil
}
