package search

import (
	"context"
	"errors"
	"testing"

	"github.com/mfarhan/tarteel/internal/domain"
	"github.com/mfarhan/tarteel/internal/log"
)

type staticChapters struct {
	chapters []domain.Chapter
	err      error
}

func (s staticChapters) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	return s.chapters, s.err
}

func testChapters() []domain.Chapter {
	return []domain.Chapter{
		{ID: 1, TransliteratedName: "Al-Fatihah", TranslatedName: "The Opener"},
		{ID: 2, TransliteratedName: "Al-Baqarah", TranslatedName: "The Cow"},
		{ID: 18, TransliteratedName: "Al-Kahf", TranslatedName: "The Cave"},
		{ID: 36, TransliteratedName: "Ya-Sin", TranslatedName: "Ya Sin"},
		{ID: 112, TransliteratedName: "Al-Ikhlas", TranslatedName: "The Sincerity"},
	}
}

func findIDs(matches []Match) []int {
	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.Chapter.ID
	}
	return ids
}

func TestFindChapters_TransliteratedName(t *testing.T) {
	svc := NewService(staticChapters{chapters: testChapters()}, log.NullLogger())

	matches, err := svc.FindChapters(context.Background(), "baqarah")
	if err != nil {
		t.Fatalf("FindChapters failed: %v", err)
	}
	if len(matches) == 0 || matches[0].Chapter.ID != 2 {
		t.Errorf("Expected Al-Baqarah first, got %v", findIDs(matches))
	}
	if len(matches[0].MatchedIndexes) == 0 {
		t.Error("Matches must carry highlight indexes")
	}
}

func TestFindChapters_TranslatedName(t *testing.T) {
	svc := NewService(staticChapters{chapters: testChapters()}, log.NullLogger())

	matches, err := svc.FindChapters(context.Background(), "cave")
	if err != nil {
		t.Fatalf("FindChapters failed: %v", err)
	}
	if len(matches) == 0 || matches[0].Chapter.ID != 18 {
		t.Errorf("Expected Al-Kahf first, got %v", findIDs(matches))
	}
}

func TestFindChapters_CaseInsensitive(t *testing.T) {
	svc := NewService(staticChapters{chapters: testChapters()}, log.NullLogger())

	matches, err := svc.FindChapters(context.Background(), "IKHLAS")
	if err != nil {
		t.Fatalf("FindChapters failed: %v", err)
	}
	if len(matches) == 0 || matches[0].Chapter.ID != 112 {
		t.Errorf("Expected Al-Ikhlas first, got %v", findIDs(matches))
	}
}

func TestFindChapters_EmptyQuery(t *testing.T) {
	svc := NewService(staticChapters{chapters: testChapters()}, log.NullLogger())

	matches, err := svc.FindChapters(context.Background(), "   ")
	if err != nil {
		t.Fatalf("FindChapters failed: %v", err)
	}
	if matches != nil {
		t.Errorf("Blank query must return nothing, got %v", findIDs(matches))
	}
}

func TestFindChapters_NoMatch(t *testing.T) {
	svc := NewService(staticChapters{chapters: testChapters()}, log.NullLogger())

	matches, err := svc.FindChapters(context.Background(), "zzzzqqq")
	if err != nil {
		t.Fatalf("FindChapters failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Nonsense query must match nothing, got %v", findIDs(matches))
	}
}

func TestFindChapters_SourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("no chapters cached")
	svc := NewService(staticChapters{err: wantErr}, log.NullLogger())

	if _, err := svc.FindChapters(context.Background(), "fatihah"); !errors.Is(err, wantErr) {
		t.Fatalf("Expected the source error, got %v", err)
	}
}
