package domain

import (
	"fmt"
	"time"
)

// Chapter represents one of the 114 surahs of the Quran.
type Chapter struct {
	ID                 int    // 1..114
	Name               string // Arabic name
	TransliteratedName string
	TranslatedName     string
	VerseCount         int
	RevelationPlace    string // "makkah" or "madinah"
}

// Label returns the display label for the chapter.
func (c Chapter) Label() string {
	if c.TransliteratedName != "" {
		return fmt.Sprintf("%d. %s", c.ID, c.TransliteratedName)
	}
	return fmt.Sprintf("%d. %s", c.ID, c.Name)
}

// Word is a single glyph-addressable word within a verse.
type Word struct {
	Position    int    `json:"position"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// Verse is a numbered ayah within a surah.
type Verse struct {
	ID         int    `json:"id"`  // Global verse id (1..6236)
	Key        string `json:"key"` // "surah:ayah", e.g. "2:255"
	Number     int    `json:"number"` // Ayah number within the surah
	Text       string `json:"text"`   // Uthmani script text
	PageNumber int    `json:"page_number"` // Mushaf page (1..604)
	JuzNumber  int    `json:"juz_number"`
	ImageURL   string `json:"image_url,omitempty"` // Rendered verse image, when provided
	Words      []Word `json:"words,omitempty"`
}

// SurahNumber returns the surah component of the verse key.
func (v Verse) SurahNumber() int {
	var surah, ayah int
	fmt.Sscanf(v.Key, "%d:%d", &surah, &ayah)
	return surah
}

// TafsirText is commentary for a single verse in a specific tafsir edition.
type TafsirText struct {
	VerseKey string `json:"verse_key"`
	TafsirID int    `json:"tafsir_id"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text"`
}

// VerseInfo carries extended per-verse metadata (context, notes).
type VerseInfo struct {
	VerseKey string `json:"verse_key"`
	Text     string `json:"text"`
}

// DailyAyah is the once-per-day featured verse. Date is "YYYY-MM-DD";
// the cache slot expires by date comparison, not by active eviction.
type DailyAyah struct {
	Date   string `json:"date"`
	Text   string `json:"text"`
	Surah  int    `json:"surah"`
	Number int    `json:"number"`
}

// Moshaf is one recitation edition offered by a reciter, with its own
// audio server base URL.
type Moshaf struct {
	ID         int
	Name       string
	Rewaya     string
	Server     string // Always ends with "/" after normalization
	SurahTotal int
	SurahList  string // Comma-separated surah numbers available
}

// Label returns the edition name shown to users: the rewaya when it adds
// information over the bare name, else whichever of the two is non-empty.
func (m Moshaf) Label() string {
	switch {
	case m.Rewaya != "" && m.Rewaya != m.Name:
		return m.Rewaya
	case m.Name != "":
		return m.Name
	case m.Rewaya != "":
		return m.Rewaya
	default:
		return "Recitation"
	}
}

// Reciter is an entry in the reciter directory.
type Reciter struct {
	ID              string
	Name            string
	Moshaf          []Moshaf
	DefaultMoshafID int
}

// AudioBase returns the first moshaf server usable for full-surah
// playback, or "" when the reciter exposes none.
func (r Reciter) AudioBase() string {
	for _, m := range r.Moshaf {
		if m.Server != "" {
			return m.Server
		}
	}
	return ""
}

// SearchResult is a single verse match from an upstream text search.
type SearchResult struct {
	VerseKey    string
	Text        string
	Highlighted string
}

// LastRead records the reader's most recent position.
type LastRead struct {
	Surah     int       `json:"surah"`
	Ayah      int       `json:"ayah"`
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bookmark marks a saved verse.
type Bookmark struct {
	VerseKey string    `json:"verse_key"`
	Surah    int       `json:"surah"`
	Ayah     int       `json:"ayah"`
	Note     string    `json:"note,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// KhitmaPlan is a personal plan to finish the Quran over a set number
// of days, tracked in juz increments.
type KhitmaPlan struct {
	TotalDays    int       `json:"total_days"`
	StartedAt    time.Time `json:"started_at"`
	CompletedJuz int       `json:"completed_juz"` // 0..30
}

// JuzPerDay returns how many juz must be read per day to finish on time.
func (k KhitmaPlan) JuzPerDay() float64 {
	if k.TotalDays <= 0 {
		return 0
	}
	return 30.0 / float64(k.TotalDays)
}

// Done reports whether the plan is complete.
func (k KhitmaPlan) Done() bool {
	return k.CompletedJuz >= 30
}
