package result

import "fmt"

// Flatten combines per-collaborator or per-record outcomes of the same
// operation into one aggregate outcome using dominant-result voting.
//
// An empty input yields Error (an aggregate must always say something). If
// every outcome shares the same kind, that kind is the aggregate. Mixed kinds
// yield Partial, with the description naming the dominant kind; when several
// kinds tie on count, positive kinds are demoted out of the tied set first so
// that a problem is reported rather than masked by a coincidentally
// equal-count success.
func Flatten(results []Result) Result {
	if len(results) == 0 {
		return Error("no results to aggregate", "", 0)
	}

	counts := make(map[Kind]int, len(results))
	var runtime = results[0].Runtime
	for _, r := range results {
		counts[r.Kind]++
		if r.Runtime > runtime {
			runtime = r.Runtime
		}
	}
	if len(counts) == 1 {
		agg := results[0]
		agg.Runtime = runtime
		return agg
	}

	dominant := dominantKind(counts)
	return Result{
		Kind:        KindPartial,
		Description: fmt.Sprintf("%d/%d outcomes %s", counts[dominant], len(results), dominant),
		Runtime:     runtime,
	}
}

// dominantKind picks the most frequent kind, demoting positive kinds on ties.
func dominantKind(counts map[Kind]int) Kind {
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	var tied []Kind
	for k, n := range counts {
		if n == max {
			tied = append(tied, k)
		}
	}
	if len(tied) > 1 {
		var problems []Kind
		for _, k := range tied {
			if !k.IsPositive() {
				problems = append(problems, k)
			}
		}
		if len(problems) > 0 {
			tied = problems
		}
	}
	// Deterministic pick within the remaining set.
	best := tied[0]
	for _, k := range tied[1:] {
		if k < best {
			best = k
		}
	}
	return best
}
