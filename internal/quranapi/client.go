package quranapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Tarteel/1.0"

	// Verse fields requested from the primary endpoint
	verseFields = "text_uthmani,page_number,juz_number,image_url"
)

// Client implements domain.ContentProvider against the primary Quran
// content API, with a secondary public endpoint used as fallback for the
// surah listing and as the source of per-ayah audio metadata.
type Client struct {
	baseURL     string
	fallbackURL string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new content API client. An empty token is allowed;
// it is reported once as a warning and authenticated endpoints then fail
// per call.
func NewClient(baseURL, fallbackURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if token == "" {
		logger.Warn("content API token not configured, authenticated endpoints will be unavailable")
	}
	return &Client{
		baseURL:     baseURL,
		fallbackURL: fallbackURL,
		token:       token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// doRequest performs a GET against the primary endpoint
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doRequestBase(ctx, c.baseURL, path, query, true)
}

// doFallback performs a GET against the secondary public endpoint
func (c *Client) doFallback(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doRequestBase(ctx, c.fallbackURL, path, query, false)
}

func (c *Client) doRequestBase(ctx context.Context, base, path string, query url.Values, authed bool) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", base, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if authed && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("content request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("content request failed", "error", err, "url", reqURL)
		return nil, domain.ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, domain.ErrNotConfigured
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrChapterNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("content request error", "status", resp.StatusCode, "url", reqURL)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, nil
}

// Chapters returns all 114 surahs, falling back to the secondary public
// listing endpoint when the primary is unreachable.
func (c *Client) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	query := url.Values{}
	query.Set("language", "en")

	body, err := c.doRequest(ctx, "/chapters", query)
	if err == nil {
		var resp chaptersResponse
		if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && len(resp.Chapters) > 0 {
			return mapChapters(resp.Chapters), nil
		}
	}

	c.logger.Warn("primary chapter listing unavailable, using fallback", "error", err)

	body, fbErr := c.doFallback(ctx, "/surah", nil)
	if fbErr != nil {
		return nil, fmt.Errorf("chapter listing failed on both endpoints: %w", fbErr)
	}

	var fb fallbackSurahListResponse
	if err := json.Unmarshal(body, &fb); err != nil {
		return nil, fmt.Errorf("failed to parse fallback surah listing: %w", err)
	}
	return mapFallbackChapters(fb.Data), nil
}

// VersesByChapter returns every verse of a surah
func (c *Client) VersesByChapter(ctx context.Context, chapterID int) ([]domain.Verse, error) {
	query := url.Values{}
	query.Set("fields", verseFields)
	query.Set("words", "true")
	query.Set("per_page", "all")

	body, err := c.doRequest(ctx, "/verses/by_chapter/"+strconv.Itoa(chapterID), query)
	if err != nil {
		return nil, err
	}

	var resp versesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse verses: %w", err)
	}
	return mapVerses(resp.Verses), nil
}

// VersesByPage returns the verses printed on a mushaf page (1..604)
func (c *Client) VersesByPage(ctx context.Context, page int) ([]domain.Verse, error) {
	query := url.Values{}
	query.Set("fields", verseFields)
	query.Set("words", "true")

	body, err := c.doRequest(ctx, "/verses/by_page/"+strconv.Itoa(page), query)
	if err != nil {
		return nil, err
	}

	var resp versesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse verses: %w", err)
	}
	return mapVerses(resp.Verses), nil
}

// RandomVerse returns one randomly selected verse
func (c *Client) RandomVerse(ctx context.Context) (domain.Verse, error) {
	query := url.Values{}
	query.Set("fields", verseFields)

	body, err := c.doRequest(ctx, "/verses/random", query)
	if err != nil {
		return domain.Verse{}, err
	}

	var resp versesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Verse{}, fmt.Errorf("failed to parse verse: %w", err)
	}
	if resp.Verse == nil {
		return domain.Verse{}, fmt.Errorf("random verse missing from response")
	}
	return mapVerse(*resp.Verse), nil
}

// Tafsir returns the commentary for a verse in a given tafsir edition
func (c *Client) Tafsir(ctx context.Context, verseKey string, tafsirID int) (domain.TafsirText, error) {
	path := fmt.Sprintf("/tafsirs/%d/by_ayah/%s", tafsirID, verseKey)
	body, err := c.doRequest(ctx, path, nil)
	if err != nil {
		return domain.TafsirText{}, err
	}

	var resp tafsirResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.TafsirText{}, fmt.Errorf("failed to parse tafsir: %w", err)
	}
	return domain.TafsirText{
		VerseKey: verseKey,
		TafsirID: tafsirID,
		Name:     resp.Tafsir.ResourceName,
		Text:     resp.Tafsir.Text,
	}, nil
}

// VerseInfo returns extended metadata for a verse
func (c *Client) VerseInfo(ctx context.Context, verseKey string) (domain.VerseInfo, error) {
	body, err := c.doRequest(ctx, fmt.Sprintf("/verses/%s/info", verseKey), nil)
	if err != nil {
		return domain.VerseInfo{}, err
	}

	var resp verseInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.VerseInfo{}, fmt.Errorf("failed to parse verse info: %w", err)
	}
	return domain.VerseInfo{VerseKey: verseKey, Text: resp.VerseInfo.Text}, nil
}

// Search performs an upstream full-text search over verse translations
func (c *Client) Search(ctx context.Context, queryText string) ([]domain.SearchResult, error) {
	query := url.Values{}
	query.Set("q", queryText)
	query.Set("size", "20")

	body, err := c.doRequest(ctx, "/search", query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return mapSearchResults(resp.Search.Results), nil
}

// ChapterAudio returns per-ayah audio URLs for a surah in a recitation
// edition (e.g. "ar.alafasy"), keyed by ayah number within the surah.
func (c *Client) ChapterAudio(ctx context.Context, edition string, chapterID int) (map[int]string, error) {
	path := fmt.Sprintf("/surah/%d/%s", chapterID, edition)
	body, err := c.doFallback(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var resp fallbackSurahAudioResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse surah audio: %w", err)
	}
	return mapAyahAudio(resp.Data.Ayahs), nil
}
