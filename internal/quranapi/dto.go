package quranapi

// chaptersResponse is the primary endpoint's surah listing
type chaptersResponse struct {
	Chapters []chapterDTO `json:"chapters"`
}

type chapterDTO struct {
	ID              int            `json:"id"`
	NameArabic      string         `json:"name_arabic"`
	NameSimple      string         `json:"name_simple"`
	TranslatedName  translatedName `json:"translated_name"`
	VersesCount     int            `json:"verses_count"`
	RevelationPlace string         `json:"revelation_place"`
}

type translatedName struct {
	Name string `json:"name"`
}

// versesResponse wraps verse listings (by chapter, by page, random)
type versesResponse struct {
	Verses []verseDTO `json:"verses"`
	Verse  *verseDTO  `json:"verse,omitempty"` // random-verse endpoint returns a single object
}

type verseDTO struct {
	ID          int        `json:"id"`
	VerseKey    string     `json:"verse_key"`
	VerseNumber int        `json:"verse_number"`
	TextUthmani string     `json:"text_uthmani"`
	PageNumber  int        `json:"page_number"`
	JuzNumber   int        `json:"juz_number"`
	ImageURL    string     `json:"image_url,omitempty"`
	Words       []wordDTO  `json:"words,omitempty"`
}

type wordDTO struct {
	Position    int            `json:"position"`
	Text        string         `json:"text"`
	Translation translatedText `json:"translation"`
}

type translatedText struct {
	Text string `json:"text"`
}

// tafsirResponse wraps a single tafsir passage
type tafsirResponse struct {
	Tafsir tafsirDTO `json:"tafsir"`
}

type tafsirDTO struct {
	ResourceID   int    `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	Text         string `json:"text"`
}

// verseInfoResponse wraps per-verse extended metadata
type verseInfoResponse struct {
	VerseInfo verseInfoDTO `json:"verse_info"`
}

type verseInfoDTO struct {
	Text string `json:"text"`
}

// searchResponse wraps upstream full-text search results
type searchResponse struct {
	Search searchBody `json:"search"`
}

type searchBody struct {
	Results []searchResultDTO `json:"results"`
}

type searchResultDTO struct {
	VerseKey    string `json:"verse_key"`
	Text        string `json:"text"`
	Highlighted string `json:"highlighted"`
}

// === Secondary public endpoint (fallback surah listing, per-ayah audio) ===

type fallbackSurahListResponse struct {
	Data []fallbackSurahDTO `json:"data"`
}

type fallbackSurahDTO struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
	RevelationType         string `json:"revelationType"`
}

type fallbackSurahAudioResponse struct {
	Data fallbackSurahAudioDTO `json:"data"`
}

type fallbackSurahAudioDTO struct {
	Ayahs []fallbackAyahDTO `json:"ayahs"`
}

type fallbackAyahDTO struct {
	NumberInSurah int    `json:"numberInSurah"`
	Audio         string `json:"audio"`
}
