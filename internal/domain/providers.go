package domain

import "context"

// ContentProvider gives access to the upstream Quran content API.
type ContentProvider interface {
	// Chapters returns all 114 surahs
	Chapters(ctx context.Context) ([]Chapter, error)

	// VersesByChapter returns every verse of a surah
	VersesByChapter(ctx context.Context, chapterID int) ([]Verse, error)

	// VersesByPage returns the verses printed on a mushaf page (1..604)
	VersesByPage(ctx context.Context, page int) ([]Verse, error)

	// RandomVerse returns one randomly selected verse
	RandomVerse(ctx context.Context) (Verse, error)

	// Tafsir returns the commentary for a verse in a given tafsir edition
	Tafsir(ctx context.Context, verseKey string, tafsirID int) (TafsirText, error)

	// VerseInfo returns extended metadata for a verse
	VerseInfo(ctx context.Context, verseKey string) (VerseInfo, error)

	// Search performs an upstream full-text search over verse translations
	Search(ctx context.Context, query string) ([]SearchResult, error)

	// ChapterAudio returns per-ayah audio URLs for a surah in a given
	// recitation edition, keyed by ayah number within the surah
	ChapterAudio(ctx context.Context, edition string, chapterID int) (map[int]string, error)
}

// ReciterDirectory lists available reciters and their recitation editions.
type ReciterDirectory interface {
	Reciters(ctx context.Context) ([]Reciter, error)
}
