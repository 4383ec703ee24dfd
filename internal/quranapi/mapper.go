package quranapi

import (
	"strings"

	"github.com/mfarhan/tarteel/internal/domain"
	"github.com/samber/lo"
)

// mapChapters converts primary-endpoint chapter DTOs to domain chapters
func mapChapters(dtos []chapterDTO) []domain.Chapter {
	return lo.Map(dtos, func(d chapterDTO, _ int) domain.Chapter {
		return domain.Chapter{
			ID:                 d.ID,
			Name:               d.NameArabic,
			TransliteratedName: d.NameSimple,
			TranslatedName:     d.TranslatedName.Name,
			VerseCount:         d.VersesCount,
			RevelationPlace:    strings.ToLower(d.RevelationPlace),
		}
	})
}

// mapFallbackChapters converts the secondary endpoint's surah listing
func mapFallbackChapters(dtos []fallbackSurahDTO) []domain.Chapter {
	return lo.Map(dtos, func(d fallbackSurahDTO, _ int) domain.Chapter {
		place := "makkah"
		if strings.EqualFold(d.RevelationType, "Medinan") {
			place = "madinah"
		}
		return domain.Chapter{
			ID:                 d.Number,
			Name:               d.Name,
			TransliteratedName: d.EnglishName,
			TranslatedName:     d.EnglishNameTranslation,
			VerseCount:         d.NumberOfAyahs,
			RevelationPlace:    place,
		}
	})
}

func mapVerses(dtos []verseDTO) []domain.Verse {
	return lo.Map(dtos, func(d verseDTO, _ int) domain.Verse {
		return mapVerse(d)
	})
}

func mapVerse(d verseDTO) domain.Verse {
	return domain.Verse{
		ID:         d.ID,
		Key:        d.VerseKey,
		Number:     d.VerseNumber,
		Text:       d.TextUthmani,
		PageNumber: d.PageNumber,
		JuzNumber:  d.JuzNumber,
		ImageURL:   d.ImageURL,
		Words: lo.Map(d.Words, func(w wordDTO, _ int) domain.Word {
			return domain.Word{
				Position:    w.Position,
				Text:        w.Text,
				Translation: w.Translation.Text,
			}
		}),
	}
}

func mapSearchResults(dtos []searchResultDTO) []domain.SearchResult {
	return lo.Map(dtos, func(d searchResultDTO, _ int) domain.SearchResult {
		return domain.SearchResult{
			VerseKey:    d.VerseKey,
			Text:        d.Text,
			Highlighted: d.Highlighted,
		}
	})
}

// mapAyahAudio builds the per-ayah URL map, skipping ayahs with no audio
func mapAyahAudio(ayahs []fallbackAyahDTO) map[int]string {
	urls := make(map[int]string, len(ayahs))
	for _, a := range ayahs {
		if a.Audio != "" {
			urls[a.NumberInSurah] = a.Audio
		}
	}
	return urls
}
