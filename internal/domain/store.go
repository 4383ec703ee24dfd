package domain

// Durable key names for the state bucket. These are part of the storage
// contract and must survive schema changes for migration compatibility.
const (
	KeyLastRead  = "quran_last_read"
	KeyBookmarks = "quran_bookmarks"
	KeyKhitma    = "khitma_state"
	KeyTheme     = "theme"
)

// Store handles the local persistent cache (BoltDB + memory).
//
// All operations are best-effort: when the backing database is
// unavailable every read misses and every write is a silent no-op, so
// callers always treat a miss as "fetch upstream". No storage error
// escapes through this interface.
type Store interface {
	// === App state (untyped KV blobs) ===
	GetValue(key string, dest interface{}) bool
	SetValue(key string, value interface{})
	DeleteValue(key string)

	// === Mushaf pages ===
	GetPage(page int) ([]Verse, bool)
	SavePage(page int, verses []Verse)

	// === Tafsir (composite key: verseKey + edition) ===
	GetTafsir(verseKey string, tafsirID int) (TafsirText, bool)
	SaveTafsir(t TafsirText)

	// === Per-verse info ===
	GetVerseInfo(verseKey string) (VerseInfo, bool)
	SaveVerseInfo(info VerseInfo)

	// === Daily ayah (single slot keyed by calendar date) ===
	GetDailyAyah(date string) (DailyAyah, bool)
	SaveDailyAyah(ayah DailyAyah)

	// === Chapter list ===
	GetChapters() ([]Chapter, bool)
	SaveChapters(chapters []Chapter)

	// Wipe removes all cached content and app state.
	Wipe()

	Close() error
}
