package reciters

import (
	"strconv"
	"strings"

	"github.com/mfarhan/tarteel/internal/domain"
	"github.com/samber/lo"
)

// mapReciters converts directory DTOs to domain reciters
func mapReciters(dtos []reciterDTO) []domain.Reciter {
	return lo.Map(dtos, func(d reciterDTO, _ int) domain.Reciter {
		r := domain.Reciter{
			ID:     strconv.Itoa(d.ID),
			Name:   d.Name,
			Moshaf: lo.Map(d.Moshaf, func(m moshafDTO, _ int) domain.Moshaf { return mapMoshaf(m) }),
		}
		if len(r.Moshaf) > 0 {
			r.DefaultMoshafID = r.Moshaf[0].ID
		}
		return r
	})
}

func mapMoshaf(m moshafDTO) domain.Moshaf {
	return domain.Moshaf{
		ID:         m.ID,
		Name:       m.Name,
		Rewaya:     m.Rewaya,
		Server:     normalizeServer(m.Server),
		SurahTotal: m.SurahTotal,
		SurahList:  m.SurahList,
	}
}

// normalizeServer coerces upstream server URLs to always end with "/"
func normalizeServer(server string) string {
	if server == "" {
		return ""
	}
	if !strings.HasSuffix(server, "/") {
		return server + "/"
	}
	return server
}
