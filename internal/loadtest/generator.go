package loadtest

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/eras/internal/domain/model"
)

const (
	firstEdition = 1896
	editions     = 31 // 1896..2016 every four years
	medalRate    = 0.15
)

var medals = [...]string{"Gold", "Silver", "Bronze"}

// Generate returns n synthetic records spread over codes entity codes.
// Each code draws from its own subset of editions so that gaps longer than
// the default threshold occur.
func Generate(n, codes int, seed uint64) []model.ParticipationRecord {
	if n <= 0 {
		return nil
	}
	codes = max(codes, 1)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	type profile struct {
		code   string
		region string
		years  []int
	}
	profiles := make([]profile, codes)
	for i := range profiles {
		p := profile{code: fmt.Sprintf("C%03d", i), region: fmt.Sprintf("Region %d", i%17)}
		for e := 0; e < editions; e++ {
			if rng.Float64() < 0.7 {
				p.years = append(p.years, firstEdition+4*e)
			}
		}
		if len(p.years) == 0 {
			p.years = []int{firstEdition + 4*rng.IntN(editions)}
		}
		profiles[i] = p
	}

	out := make([]model.ParticipationRecord, n)
	for i := range out {
		p := profiles[rng.IntN(codes)]
		r := model.ParticipationRecord{
			EntityCode: p.code,
			Year:       p.years[rng.IntN(len(p.years))],
			RegionHint: p.region,
			AthleteID:  uuid.NewString(),
		}
		if rng.Float64() < medalRate {
			r.Medal = medals[rng.IntN(len(medals))]
		}
		out[i] = r
	}
	return out
}
