package loadtest

import (
	"math"
	"math/rand"

	"github.com/okian/semstat/internal/builtin"
	"github.com/okian/semstat/internal/domain/engine"
)

var (
	relationshipAxes = []string{"affinity", "trust", "chemistry", "tension"}
	personalityAxes  = []string{"openness", "conscientiousness", "extraversion", "agreeableness", "neuroticism"}
)

// Generate builds n derivation requests over the builtin definitions.
// Values range slightly past the axis bounds so clamping is exercised.
// The same seed always yields the same requests.
func Generate(seed int64, n int) []engine.Request {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // load data, not security sensitive
	out := make([]engine.Request, n)
	for i := range out {
		req := engine.Request{StatValues: map[string]map[string]float64{}}
		if rng.Intn(10) < 8 {
			req.StatValues["relationships"] = randomValues(rng, relationshipAxes)
		}
		if rng.Intn(2) == 0 {
			req.StatValues["personality"] = randomValues(rng, personalityAxes)
		}
		switch rng.Intn(20) {
		case 0:
			req.AlreadyComputed = []string{"mood"}
		case 1:
			req.Excluded = []string{"mood_from_sentiment"}
		case 2:
			req.PackageIDs = []string{builtin.MoodID}
		}
		out[i] = req
	}
	return out
}

func randomValues(rng *rand.Rand, axes []string) map[string]float64 {
	vals := make(map[string]float64, len(axes))
	for _, axis := range axes {
		// Skip some axes so defaults fill in.
		if rng.Intn(6) == 0 {
			continue
		}
		vals[axis] = math.Round((rng.Float64()*120-10)*100) / 100
	}
	return vals
}
