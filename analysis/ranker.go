package analysis

import (
	"sort"

	"premium-scanner/models"
)

// minExtrinsic is the extrinsic value a contract needs to be ranked
const minExtrinsic = 0.01

// Rank orders contracts with extrinsic value by efficiency score.
//
// When any rankable contract carries an efficiency score, contracts with a
// positive score come first (highest score first) followed by the rest by
// fallback score. Otherwise everything is ordered by fallback score. Ties keep
// their input order.
func Rank(analyzed []models.AnalyzedOption) []models.RankedOption {
	rankable := make([]models.AnalyzedOption, 0, len(analyzed))
	anyScored := false
	for _, a := range analyzed {
		if a.Extrinsic <= minExtrinsic {
			continue
		}
		rankable = append(rankable, a)
		if a.EfficiencyScore != nil {
			anyScored = true
		}
	}

	var ordered []models.AnalyzedOption
	if anyScored {
		var scored, unscored []models.AnalyzedOption
		for _, a := range rankable {
			if a.EfficiencyScore != nil && *a.EfficiencyScore > 0 {
				scored = append(scored, a)
			} else {
				unscored = append(unscored, a)
			}
		}
		sort.SliceStable(scored, func(i, j int) bool {
			return *scored[i].EfficiencyScore > *scored[j].EfficiencyScore
		})
		sortByFallback(unscored)
		ordered = append(scored, unscored...)
	} else {
		ordered = rankable
		sortByFallback(ordered)
	}

	ranked := make([]models.RankedOption, len(ordered))
	for i, a := range ordered {
		ranked[i] = models.RankedOption{AnalyzedOption: a, Rank: i + 1}
	}
	return ranked
}

func sortByFallback(options []models.AnalyzedOption) {
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].FallbackScore > options[j].FallbackScore
	})
}

// BestPick returns the top ranked contract
func BestPick(ranked []models.RankedOption) (models.RankedOption, bool) {
	for _, r := range ranked {
		if r.Rank == 1 {
			return r, true
		}
	}
	return models.RankedOption{}, false
}
