package services

import "github.com/vncsmyrnk/rushvote/internal/core/domain"

// DefaultGlobalMean is the prior used before any score exists: the midpoint
// of the 1..5 scale.
const DefaultGlobalMean = float64(domain.MinScore+domain.MaxScore) / 2

// Mean is the arithmetic mean of scores, or 0 for none.
func Mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}

// BayesianScore shrinks average toward globalMean by priorWeight votes' worth
// of belief.
func BayesianScore(priorWeight, globalMean float64, count int, average float64) float64 {
	denom := priorWeight + float64(count)
	if denom <= 0 {
		return 0
	}
	return (priorWeight*globalMean + float64(count)*average) / denom
}

// InteractionPercent is interacted / (interacted + notInteracted) * 100.
func InteractionPercent(interacted, notInteracted int) float64 {
	total := interacted + notInteracted
	if total == 0 {
		return 0
	}
	return float64(interacted) / float64(total) * 100
}

func scoreStats(scores []int, priorWeight, globalMean float64) domain.ScoreStats {
	avg := Mean(scores)
	return domain.ScoreStats{
		Average:  avg,
		Bayesian: BayesianScore(priorWeight, globalMean, len(scores), avg),
		Count:    len(scores),
	}
}
