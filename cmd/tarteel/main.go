package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mfarhan/tarteel/internal/audio"
	"github.com/mfarhan/tarteel/internal/config"
	"github.com/mfarhan/tarteel/internal/log"
	"github.com/mfarhan/tarteel/internal/notify"
	"github.com/mfarhan/tarteel/internal/quranapi"
	"github.com/mfarhan/tarteel/internal/reciters"
	"github.com/mfarhan/tarteel/internal/search"
	"github.com/mfarhan/tarteel/internal/service"
	"github.com/mfarhan/tarteel/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("tarteel %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting tarteel", "version", Version)

	// Local cache; a broken cache dir degrades to memory-only silently
	contentStore := store.Open(cfg.Cache.Dir, logger)
	defer contentStore.Close()

	bus := notify.NewBus()
	hits, cancelHits := bus.Subscribe()
	defer cancelHits()
	go func() {
		for hit := range hits {
			fmt.Printf("  (offline: %s %s served from local cache)\n", hit.Type, hit.ID)
		}
	}()

	contentClient := quranapi.NewClient(cfg.Content.BaseURL, cfg.Content.FallbackURL, cfg.Content.Token, logger)
	reciterClient := reciters.NewClient(cfg.Reciters.BaseURL, logger)

	contentSvc := service.NewContentService(contentStore, contentClient, bus, logger)
	progressSvc := service.NewProgressService(contentStore, logger)
	searchSvc := search.NewService(contentSvc, logger)
	catalog := reciters.NewCatalog(reciterClient, logger)

	session := audio.NewSession(audio.NewBeepElement(logger), logger)
	defer session.Close()
	session.SetVolume(cfg.Audio.Volume)

	ctx := context.Background()

	if ayah, err := contentSvc.DailyAyah(ctx); err == nil {
		fmt.Printf("Ayah of the day (%d:%d): %s\n\n", ayah.Surah, ayah.Number, ayah.Text)
	}

	if lr, ok := progressSvc.LastRead(); ok {
		fmt.Printf("Continue reading at %d:%d (page %d)\n\n", lr.Surah, lr.Ayah, lr.Page)
	}

	return commandLoop(ctx, cfg, contentSvc, progressSvc, searchSvc, catalog, session)
}

func commandLoop(
	ctx context.Context,
	cfg *config.Config,
	content *service.ContentService,
	progress *service.ProgressService,
	finder *search.Service,
	catalog *reciters.Catalog,
	session *audio.Session,
) error {
	fmt.Println("Commands: play <surah> | ayah <n> | pause | seek <sec> | skip <±sec> |")
	fmt.Println("          vol <0-100> | sleep <min> | page <n> | tafsir <key> | find <name> |")
	fmt.Println("          reciters | mark <key> | status | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return nil

		case "play":
			surah := atoiArg(args, 0, 1)
			session.PlaySurah(surah, cfg.Audio.Reciter)
			if urls, err := content.SurahAudio(ctx, cfg.Audio.Edition, surah); err == nil {
				session.SetAyahSources(urls)
			}
			fmt.Printf("Buffering surah %d...\n", surah)

		case "ayah":
			if err := session.PlayAyah(atoiArg(args, 0, 1)); err != nil {
				fmt.Printf("No audio for that ayah: %v\n", err)
			}

		case "pause", "toggle":
			session.TogglePlay()

		case "seek":
			session.SeekTo(time.Duration(atoiArg(args, 0, 0)) * time.Second)

		case "skip":
			session.Skip(time.Duration(atoiArg(args, 0, 0)) * time.Second)

		case "vol":
			session.SetVolume(float64(atoiArg(args, 0, 100)) / 100)

		case "sleep":
			min := atoiArg(args, 0, 0)
			if min <= 0 {
				session.CancelSleepTimer()
				fmt.Println("Sleep timer cancelled")
			} else {
				session.SetSleepTimer(time.Duration(min) * time.Minute)
				fmt.Printf("Will pause in %d minutes\n", min)
			}

		case "page":
			page := atoiArg(args, 0, 1)
			verses, err := content.Page(ctx, page)
			if err != nil {
				fmt.Printf("Failed to load page %d: %v\n", page, err)
				continue
			}
			for _, v := range verses {
				fmt.Printf("%s  %s\n", v.Key, v.Text)
			}
			if len(verses) > 0 {
				last := verses[len(verses)-1]
				progress.SaveLastRead(last.SurahNumber(), last.Number, page)
			}

		case "tafsir":
			if len(args) == 0 {
				fmt.Println("Usage: tafsir <surah:ayah>")
				continue
			}
			t, err := content.Tafsir(ctx, args[0], cfg.Content.TafsirID)
			if err != nil {
				fmt.Printf("Failed to load tafsir: %v\n", err)
				continue
			}
			fmt.Println(t.Text)

		case "find":
			matches, err := finder.FindChapters(ctx, strings.Join(args, " "))
			if err != nil {
				fmt.Printf("Search failed: %v\n", err)
				continue
			}
			for _, m := range matches {
				fmt.Printf("%s (%d verses)\n", m.Chapter.Label(), m.Chapter.VerseCount)
			}

		case "reciters":
			list, err := catalog.List(ctx)
			if err != nil {
				fmt.Printf("Failed to load reciter directory: %v\n", err)
				continue
			}
			for _, r := range list {
				if len(r.Moshaf) > 0 {
					fmt.Printf("%s  %s (%s)\n", r.ID, r.Name, r.Moshaf[0].Label())
				}
			}

		case "mark":
			if len(args) == 0 {
				fmt.Println("Usage: mark <surah:ayah>")
				continue
			}
			var surah, ayah int
			fmt.Sscanf(args[0], "%d:%d", &surah, &ayah)
			progress.AddBookmark(args[0], surah, ayah, strings.Join(args[1:], " "))
			fmt.Printf("Bookmarked %s\n", args[0])

		case "status":
			printStatus(session.Snapshot())

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func printStatus(snap audio.Snapshot) {
	if snap.State == audio.StateIdle {
		fmt.Println("Nothing playing")
		return
	}
	fmt.Printf("surah %d [%s] %v / %v (buffered %.0f%%, vol %.0f%%)\n",
		snap.Surah, snap.State, snap.Position.Round(time.Second),
		snap.Duration.Round(time.Second), snap.BufferedPercent, snap.Volume*100)
	if snap.Err != nil {
		fmt.Printf("last error: %v\n", snap.Err)
	}
	if !snap.SleepDeadline.IsZero() {
		fmt.Printf("sleeping at %s\n", snap.SleepDeadline.Format(time.Kitchen))
	}
}

func atoiArg(args []string, i, fallback int) int {
	if i >= len(args) {
		return fallback
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return fallback
	}
	return n
}
