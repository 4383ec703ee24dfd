package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
	"github.com/mfarhan/tarteel/internal/notify"
	"golang.org/x/sync/singleflight"
)

// ContentService is the read-through layer between the UI and the
// upstream content API. Every read consults the local store first; on a
// miss the upstream is fetched once (concurrent callers for the same key
// share the flight) and the store is populated for next time.
//
// Store failures are invisible here: a broken store just means every
// read is a miss.
type ContentService struct {
	store    domain.Store
	provider domain.ContentProvider
	bus      *notify.Bus
	logger   *slog.Logger

	group singleflight.Group

	audioMu sync.Mutex
	audio   map[string]map[int]string // edition/surah -> ayah -> URL

	// Injected in tests to control the calendar date
	now func() time.Time
}

// NewContentService creates the read-through content service
func NewContentService(store domain.Store, provider domain.ContentProvider, bus *notify.Bus, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		store:    store,
		provider: provider,
		bus:      bus,
		logger:   logger,
		audio:    make(map[string]map[int]string),
		now:      time.Now,
	}
}

// notifyHit reports a read served from the local store. Fire-and-forget:
// it never affects the returned value.
func (s *ContentService) notifyHit(hitType, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(notify.CacheHit{Type: hitType, ID: id})
}

// Chapters returns the surah listing, cached indefinitely once fetched
func (s *ContentService) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	if chapters, ok := s.store.GetChapters(); ok {
		s.logger.Debug("cache hit", "type", "chapters")
		s.notifyHit("chapters", "list")
		return chapters, nil
	}

	result, err, _ := s.group.Do("chapters", func() (interface{}, error) {
		chapters, err := s.provider.Chapters(ctx)
		if err != nil {
			return nil, err
		}
		s.store.SaveChapters(chapters)
		return chapters, nil
	})
	if err != nil {
		s.logger.Error("failed to load chapters", "error", err)
		return nil, err
	}
	return result.([]domain.Chapter), nil
}

// Page returns the verses on a mushaf page (1..604)
func (s *ContentService) Page(ctx context.Context, page int) ([]domain.Verse, error) {
	if verses, ok := s.store.GetPage(page); ok {
		s.logger.Debug("cache hit", "type", "page", "page", page)
		s.notifyHit("page", strconv.Itoa(page))
		return verses, nil
	}

	key := "page:" + strconv.Itoa(page)
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		verses, err := s.provider.VersesByPage(ctx, page)
		if err != nil {
			return nil, err
		}
		s.store.SavePage(page, verses)
		return verses, nil
	})
	if err != nil {
		s.logger.Error("failed to load page", "error", err, "page", page)
		return nil, err
	}
	return result.([]domain.Verse), nil
}

// Tafsir returns the commentary for a verse in a tafsir edition
func (s *ContentService) Tafsir(ctx context.Context, verseKey string, tafsirID int) (domain.TafsirText, error) {
	if t, ok := s.store.GetTafsir(verseKey, tafsirID); ok {
		s.logger.Debug("cache hit", "type", "tafsir", "verse", verseKey, "edition", tafsirID)
		s.notifyHit("tafsir", fmt.Sprintf("%s/%d", verseKey, tafsirID))
		return t, nil
	}

	key := fmt.Sprintf("tafsir:%s:%d", verseKey, tafsirID)
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		t, err := s.provider.Tafsir(ctx, verseKey, tafsirID)
		if err != nil {
			return domain.TafsirText{}, err
		}
		s.store.SaveTafsir(t)
		return t, nil
	})
	if err != nil {
		s.logger.Error("failed to load tafsir", "error", err, "verse", verseKey)
		return domain.TafsirText{}, err
	}
	return result.(domain.TafsirText), nil
}

// VerseInfo returns extended metadata for a verse
func (s *ContentService) VerseInfo(ctx context.Context, verseKey string) (domain.VerseInfo, error) {
	if info, ok := s.store.GetVerseInfo(verseKey); ok {
		s.logger.Debug("cache hit", "type", "verse-info", "verse", verseKey)
		s.notifyHit("verse-info", verseKey)
		return info, nil
	}

	result, err, _ := s.group.Do("info:"+verseKey, func() (interface{}, error) {
		info, err := s.provider.VerseInfo(ctx, verseKey)
		if err != nil {
			return domain.VerseInfo{}, err
		}
		s.store.SaveVerseInfo(info)
		return info, nil
	})
	if err != nil {
		s.logger.Error("failed to load verse info", "error", err, "verse", verseKey)
		return domain.VerseInfo{}, err
	}
	return result.(domain.VerseInfo), nil
}

// DailyAyah returns today's featured verse, fetching a new random verse
// the first time it is asked for on each calendar date.
func (s *ContentService) DailyAyah(ctx context.Context) (domain.DailyAyah, error) {
	date := s.now().Format("2006-01-02")

	if ayah, ok := s.store.GetDailyAyah(date); ok {
		s.logger.Debug("cache hit", "type", "daily-ayah", "date", date)
		s.notifyHit("daily-ayah", date)
		return ayah, nil
	}

	result, err, _ := s.group.Do("daily:"+date, func() (interface{}, error) {
		verse, err := s.provider.RandomVerse(ctx)
		if err != nil {
			return domain.DailyAyah{}, err
		}
		ayah := domain.DailyAyah{
			Date:   date,
			Text:   verse.Text,
			Surah:  verse.SurahNumber(),
			Number: verse.Number,
		}
		s.store.SaveDailyAyah(ayah)
		return ayah, nil
	})
	if err != nil {
		s.logger.Error("failed to load daily ayah", "error", err)
		return domain.DailyAyah{}, err
	}
	return result.(domain.DailyAyah), nil
}

// VersesByChapter returns every verse of a surah (upstream, not cached:
// per-chapter reading flows through pages, which are)
func (s *ContentService) VersesByChapter(ctx context.Context, chapterID int) ([]domain.Verse, error) {
	return s.provider.VersesByChapter(ctx, chapterID)
}

// Search performs the upstream full-text search
func (s *ContentService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return s.provider.Search(ctx, query)
}

// SurahAudio returns per-ayah audio URLs for a surah in a recitation
// edition, memoized in memory for the session's lifetime.
func (s *ContentService) SurahAudio(ctx context.Context, edition string, chapterID int) (map[int]string, error) {
	key := edition + "/" + strconv.Itoa(chapterID)

	s.audioMu.Lock()
	if urls, ok := s.audio[key]; ok {
		s.audioMu.Unlock()
		return urls, nil
	}
	s.audioMu.Unlock()

	result, err, _ := s.group.Do("audio:"+key, func() (interface{}, error) {
		urls, err := s.provider.ChapterAudio(ctx, edition, chapterID)
		if err != nil {
			return nil, err
		}
		s.audioMu.Lock()
		s.audio[key] = urls
		s.audioMu.Unlock()
		return urls, nil
	})
	if err != nil {
		s.logger.Error("failed to load surah audio", "error", err, "edition", edition, "surah", chapterID)
		return nil, err
	}
	return result.(map[int]string), nil
}
