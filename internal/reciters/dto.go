package reciters

// recitersResponse is the directory's listing envelope
type recitersResponse struct {
	Reciters []reciterDTO `json:"reciters"`
}

type reciterDTO struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Moshaf []moshafDTO `json:"moshaf"`
}

type moshafDTO struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Rewaya     string `json:"rewaya,omitempty"`
	Server     string `json:"server"`
	SurahTotal int    `json:"surah_total"`
	SurahList  string `json:"surah_list"`
}
