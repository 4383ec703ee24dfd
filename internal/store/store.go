package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketState    = []byte("state")
	bucketPages    = []byte("pages")
	bucketTafsir   = []byte("tafsir")
	bucketVerses   = []byte("verses")
	bucketDaily    = []byte("daily")
	bucketChapters = []byte("chapters")
)

var allBuckets = [][]byte{bucketState, bucketPages, bucketTafsir, bucketVerses, bucketDaily, bucketChapters}

// entry wraps a cached value with its write time. One entry per key;
// writes overwrite the prior entry (last-writer-wins).
type entry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ContentStore implements domain.Store using BoltDB.
//
// When the database cannot be opened the store runs degraded: reads
// always miss, writes are dropped. Callers never see a storage error.
type ContentStore struct {
	db     *bolt.DB
	logger *slog.Logger

	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open creates or opens the content store under baseDir. An empty
// baseDir or an open failure yields a degraded store, never an error.
func Open(baseDir string, logger *slog.Logger) *ContentStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ContentStore{logger: logger, cache: make(map[string][]byte)}

	if baseDir == "" {
		return s
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		logger.Warn("cache directory unavailable, running without persistence", "error", err)
		return s
	}

	dbPath := filepath.Join(baseDir, "tarteel.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		logger.Warn("cache database unavailable, running without persistence", "error", err)
		return s
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("cache schema unavailable, running without persistence", "error", err)
		db.Close()
		return s
	}

	s.db = db
	return s
}

func (s *ContentStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *ContentStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *ContentStore) set(bucket []byte, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", "bucket", string(bucket), "key", key, "error", err)
		return
	}

	cacheKey := string(bucket) + ":" + key

	// Update memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return // Memory-only mode
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
	if err != nil {
		// Quota or I/O failure degrades to memory-only for this write
		s.logger.Warn("cache write failed", "bucket", string(bucket), "key", key, "error", err)
	}
}

func (s *ContentStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

func (s *ContentStore) getEntry(bucket []byte, key string, dest interface{}) bool {
	var e entry
	if !s.get(bucket, key, &e) {
		return false
	}
	return json.Unmarshal(e.Value, dest) == nil
}

func (s *ContentStore) setEntry(bucket []byte, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", "bucket", string(bucket), "key", key, "error", err)
		return
	}
	s.set(bucket, key, entry{Value: data, FetchedAt: time.Now()})
}

// === App state (untyped KV blobs) ===

func (s *ContentStore) GetValue(key string, dest interface{}) bool {
	return s.get(bucketState, key, dest)
}

func (s *ContentStore) SetValue(key string, value interface{}) {
	s.set(bucketState, key, value)
}

func (s *ContentStore) DeleteValue(key string) {
	s.delete(bucketState, key)
}

// === Mushaf pages (keyed by page number, 1..604) ===

func (s *ContentStore) GetPage(page int) ([]domain.Verse, bool) {
	var verses []domain.Verse
	ok := s.getEntry(bucketPages, strconv.Itoa(page), &verses)
	return verses, ok
}

func (s *ContentStore) SavePage(page int, verses []domain.Verse) {
	s.setEntry(bucketPages, strconv.Itoa(page), verses)
}

// === Tafsir (composite key: verseKey + edition) ===

func tafsirKey(verseKey string, tafsirID int) string {
	return verseKey + "/" + strconv.Itoa(tafsirID)
}

func (s *ContentStore) GetTafsir(verseKey string, tafsirID int) (domain.TafsirText, bool) {
	var t domain.TafsirText
	ok := s.getEntry(bucketTafsir, tafsirKey(verseKey, tafsirID), &t)
	return t, ok
}

func (s *ContentStore) SaveTafsir(t domain.TafsirText) {
	s.setEntry(bucketTafsir, tafsirKey(t.VerseKey, t.TafsirID), t)
}

// === Per-verse info ===

func (s *ContentStore) GetVerseInfo(verseKey string) (domain.VerseInfo, bool) {
	var info domain.VerseInfo
	ok := s.getEntry(bucketVerses, verseKey, &info)
	return info, ok
}

func (s *ContentStore) SaveVerseInfo(info domain.VerseInfo) {
	s.setEntry(bucketVerses, info.VerseKey, info)
}

// === Daily ayah (single slot, expires by date-key comparison) ===

func (s *ContentStore) GetDailyAyah(date string) (domain.DailyAyah, bool) {
	var ayah domain.DailyAyah
	if !s.getEntry(bucketDaily, "current", &ayah) {
		return domain.DailyAyah{}, false
	}
	if ayah.Date != date {
		return domain.DailyAyah{}, false
	}
	return ayah, true
}

func (s *ContentStore) SaveDailyAyah(ayah domain.DailyAyah) {
	s.setEntry(bucketDaily, "current", ayah)
}

// === Chapter list ===

func (s *ContentStore) GetChapters() ([]domain.Chapter, bool) {
	var chapters []domain.Chapter
	ok := s.getEntry(bucketChapters, "list", &chapters)
	return chapters, ok
}

func (s *ContentStore) SaveChapters(chapters []domain.Chapter) {
	s.setEntry(bucketChapters, "list", chapters)
}

// === Wipe ===

func (s *ContentStore) Wipe() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Persistent reports whether writes are backed by disk. Degraded stores
// keep working from memory only.
func (s *ContentStore) Persistent() bool {
	return s.db != nil
}
