package model

import (
	"math"
	"sort"
)

// rocAUC computes the area under the ROC curve as the Mann-Whitney rank
// statistic, averaging ranks across tied scores. Returns 0.5 when the
// held-out set has only one class, since no ranking is possible.
func rocAUC(scores, labels []float64) float64 {
	n := len(scores)
	var nPos, nNeg int
	for _, y := range labels {
		if y == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[order[j]] == scores[order[i]] {
			j++
		}
		// 1-based ranks; ties share the average rank of the run.
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var rankSumPos float64
	for i, y := range labels {
		if y == 1 {
			rankSumPos += ranks[i]
		}
	}

	auc := (rankSumPos - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
	if math.IsNaN(auc) || math.IsInf(auc, 0) {
		return 0.5
	}
	return auc
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
