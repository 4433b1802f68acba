package availability

import (
	"context"
	"strings"
	"unicode"

	"padelscout-backend/lib/supabase"

	"github.com/antzucaro/matchr"
)

// courts get renamed on playtomic in small ways, "Padel Court 1" one
// week and "Padel court  1" the next. Names that close get folded into
// the existing row instead of minting a duplicate.
const courtMatchThreshold = 0.93

type courtIndex struct {
	courts []supabase.Court
}

func newCourtIndex(existing []supabase.Court) *courtIndex {
	return &courtIndex{courts: existing}
}

func normalizeCourtName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// trailingNumber returns the digits a court name ends with, "" when it
// ends with none. Numbered courts must agree on the number no matter
// how similar the rest reads.
func trailingNumber(name string) string {
	end := len(name)
	for end > 0 && unicode.IsDigit(rune(name[end-1])) {
		end--
	}
	return name[end:]
}

func sameCourt(a, b string) bool {
	na := normalizeCourtName(a)
	nb := normalizeCourtName(b)
	if na == nb {
		return true
	}
	if trailingNumber(na) != trailingNumber(nb) {
		return false
	}
	return matchr.JaroWinkler(na, nb, false) >= courtMatchThreshold
}

func (idx *courtIndex) find(name string) (supabase.Court, bool) {
	for _, court := range idx.courts {
		if sameCourt(court.Name, name) {
			return court, true
		}
	}
	return supabase.Court{}, false
}

func (s Service) ensureCourt(ctx context.Context, clubId, name string, index *courtIndex) (string, error) {
	if court, ok := index.find(name); ok {
		return court.Id, nil
	}

	id, err := s.supabase.CreateCourt(ctx, clubId, name)
	if err != nil {
		return "", err
	}
	index.courts = append(index.courts, supabase.Court{
		Id:     id,
		ClubId: clubId,
		Name:   name,
	})
	return id, nil
}
