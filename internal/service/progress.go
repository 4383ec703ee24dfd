package service

import (
	"log/slog"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
)

// ProgressService keeps the reader's personal state (position,
// bookmarks, khitma plan, theme) in the KV table under the durable key
// names. The store is the sole writer of these entries; everything here
// is last-writer-wins with no versioning.
type ProgressService struct {
	store  domain.Store
	logger *slog.Logger

	now func() time.Time
}

// NewProgressService creates a progress service over the store
func NewProgressService(store domain.Store, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{store: store, logger: logger, now: time.Now}
}

// === Last-read position ===

func (s *ProgressService) LastRead() (domain.LastRead, bool) {
	var lr domain.LastRead
	ok := s.store.GetValue(domain.KeyLastRead, &lr)
	return lr, ok
}

func (s *ProgressService) SaveLastRead(surah, ayah, page int) {
	s.store.SetValue(domain.KeyLastRead, domain.LastRead{
		Surah:     surah,
		Ayah:      ayah,
		Page:      page,
		UpdatedAt: s.now(),
	})
}

// === Bookmarks ===

func (s *ProgressService) Bookmarks() []domain.Bookmark {
	var marks []domain.Bookmark
	s.store.GetValue(domain.KeyBookmarks, &marks)
	return marks
}

// AddBookmark saves a verse bookmark. Re-bookmarking a verse updates the
// existing entry instead of duplicating it.
func (s *ProgressService) AddBookmark(verseKey string, surah, ayah int, note string) {
	marks := s.Bookmarks()
	mark := domain.Bookmark{
		VerseKey: verseKey,
		Surah:    surah,
		Ayah:     ayah,
		Note:     note,
		AddedAt:  s.now(),
	}

	replaced := false
	for i := range marks {
		if marks[i].VerseKey == verseKey {
			marks[i] = mark
			replaced = true
			break
		}
	}
	if !replaced {
		marks = append(marks, mark)
	}
	s.store.SetValue(domain.KeyBookmarks, marks)
}

func (s *ProgressService) RemoveBookmark(verseKey string) {
	marks := s.Bookmarks()
	kept := marks[:0]
	for _, m := range marks {
		if m.VerseKey != verseKey {
			kept = append(kept, m)
		}
	}
	s.store.SetValue(domain.KeyBookmarks, kept)
}

// === Khitma plan ===

func (s *ProgressService) Khitma() (domain.KhitmaPlan, bool) {
	var plan domain.KhitmaPlan
	ok := s.store.GetValue(domain.KeyKhitma, &plan)
	return plan, ok
}

// StartKhitma begins a new completion plan, replacing any existing one.
func (s *ProgressService) StartKhitma(totalDays int) domain.KhitmaPlan {
	plan := domain.KhitmaPlan{
		TotalDays: totalDays,
		StartedAt: s.now(),
	}
	s.store.SetValue(domain.KeyKhitma, plan)
	s.logger.Info("khitma plan started", "days", totalDays)
	return plan
}

// CompleteJuz records one more finished juz, capped at 30.
func (s *ProgressService) CompleteJuz() (domain.KhitmaPlan, bool) {
	plan, ok := s.Khitma()
	if !ok {
		return domain.KhitmaPlan{}, false
	}
	if plan.CompletedJuz < 30 {
		plan.CompletedJuz++
		s.store.SetValue(domain.KeyKhitma, plan)
	}
	return plan, true
}

// === Theme ===

func (s *ProgressService) Theme() string {
	var theme string
	if !s.store.GetValue(domain.KeyTheme, &theme) {
		return "light"
	}
	return theme
}

func (s *ProgressService) SaveTheme(theme string) {
	s.store.SetValue(domain.KeyTheme, theme)
}
