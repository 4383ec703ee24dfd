package audio

import "fmt"

// cdnMapping points a reciter at a known high-quality mp3quran mirror
type cdnMapping struct {
	server string // subdomain, e.g. "server8"
	path   string // path segment, e.g. "afs"
}

// Reciters with verified full-surah archives on mp3quran mirrors. These
// are preferred over the generic CDN because they carry higher bitrates
// and complete 114-surah sets.
var mp3quranMappings = map[string]cdnMapping{
	"ar.alafasy":            {server: "server8", path: "afs"},
	"ar.husary":             {server: "server13", path: "husr"},
	"ar.minshawi":           {server: "server10", path: "minsh"},
	"ar.abdulbasitmurattal": {server: "server7", path: "basit"},
	"ar.abdurrahmaansudais": {server: "server11", path: "sds"},
	"ar.saoodshuraym":       {server: "server7", path: "shur"},
	"ar.ahmedajamy":         {server: "server10", path: "ajm"},
	"ar.mahermuaiqly":       {server: "server12", path: "maher"},
}

// Alternate archives for a few well-known reciters, tried after the
// generic CDN when everything else fails.
var extraFallbacks = map[string][]string{
	"ar.alafasy": {
		"https://download.quranicaudio.com/quran/mishaari_raashid_al_3afaasee/%03d.mp3",
	},
	"ar.abdulbasitmurattal": {
		"https://download.quranicaudio.com/quran/abdul_basit_murattal/%03d.mp3",
	},
	"ar.husary": {
		"https://download.quranicaudio.com/quran/mahmood_khaleel_al-husaree/%03d.mp3",
	},
}

// Resolve maps (reciter, surah) to the ordered candidate URL list for
// full-surah playback. It always returns at least one URL, performs no
// I/O, and never fails: unknown reciters simply get the generic CDN
// pattern only.
func Resolve(reciterID string, surah int) []string {
	urls := make([]string, 0, 3)

	if m, ok := mp3quranMappings[reciterID]; ok {
		urls = append(urls, fmt.Sprintf("https://%s.mp3quran.net/%s/%03d.mp3", m.server, m.path, surah))
	}

	// Generic CDN accepts the raw identifier and an unpadded surah number
	urls = append(urls, fmt.Sprintf("https://cdn.islamic.network/quran/audio-surah/128/%s/%d.mp3", reciterID, surah))

	for _, pattern := range extraFallbacks[reciterID] {
		urls = append(urls, fmt.Sprintf(pattern, surah))
	}

	return urls
}
