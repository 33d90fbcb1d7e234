package concession

import (
	"errors"
	"sort"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/samber/lo"
)

const stage = "run_detection"

// DefaultMinPostMonths is how many observed months must follow a run before its
// post-run reference price can be computed.
const DefaultMinPostMonths = 3

// FlagsFromPrices derives sparse concession flags from concession price rows.
// Repeated rows for the same item and month collapse into one flag.
func FlagsFromPrices(prices []domain.ConcessionPrice) []domain.ConcessionFlag {
	type key struct {
		vmpp  string
		month domain.Month
	}
	seen := make(map[key]struct{}, len(prices))
	flags := make([]domain.ConcessionFlag, 0, len(prices))
	for _, p := range prices {
		k := key{p.VMPP, p.Month}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		flags = append(flags, domain.ConcessionFlag{VMPP: p.VMPP, Month: p.Month, Active: true})
	}
	return flags
}

// Series is a dense monthly flag series for one item.
type Series struct {
	VMPP   string
	Start  domain.Month
	Active []bool
}

// Densify expands sparse flags into one series per item covering the global
// observed month range; months without an entry are inactive. Items with a
// duplicate (item, month) entry are left out and reported as
// DataIntegrityErrors.
func Densify(flags []domain.ConcessionFlag) ([]Series, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	first, last := flags[0].Month, flags[0].Month
	for _, f := range flags {
		if f.Month.Before(first) {
			first = f.Month
		}
		if f.Month.After(last) {
			last = f.Month
		}
	}
	width := last.Index() - first.Index() + 1

	byItem := lo.GroupBy(flags, func(f domain.ConcessionFlag) string { return f.VMPP })
	items := lo.Keys(byItem)
	sort.Strings(items)

	var errs []error
	series := make([]Series, 0, len(items))
	for _, vmpp := range items {
		active := make([]bool, width)
		seen := make([]bool, width)
		var dup error
		for _, f := range byItem[vmpp] {
			i := f.Month.Index() - first.Index()
			if seen[i] {
				dup = &domain.DataIntegrityError{
					Stage:  stage,
					Key:    vmpp,
					Month:  f.Month,
					Reason: "duplicate concession flag",
				}
				break
			}
			seen[i] = true
			active[i] = f.Active
		}
		if dup != nil {
			errs = append(errs, dup)
			continue
		}
		series = append(series, Series{VMPP: vmpp, Start: first, Active: active})
	}

	return series, errors.Join(errs...)
}

// Detect scans a dense series once, emitting a run at every active to
// inactive transition and at the end of the series.
func Detect(s Series) []domain.ConcessionRun {
	var runs []domain.ConcessionRun
	lastIdx := len(s.Active) - 1
	runStart := -1
	for i, active := range s.Active {
		switch {
		case active && runStart < 0:
			runStart = i
		case !active && runStart >= 0:
			runs = append(runs, newRun(s, runStart, i-1))
			runStart = -1
		}
	}
	if runStart >= 0 {
		runs = append(runs, newRun(s, runStart, lastIdx))
	}
	return runs
}

func newRun(s Series, from, to int) domain.ConcessionRun {
	return domain.ConcessionRun{
		VMPP:          s.VMPP,
		Start:         s.Start.AddMonths(from),
		End:           s.Start.AddMonths(to),
		Length:        to - from + 1,
		LeftCensored:  from == 0,
		RightCensored: to == len(s.Active)-1,
	}
}

// DetectRuns densifies the flags and returns the runs of every item whose
// series is consistent, ordered by item and then start month. Integrity
// errors for individual items are joined into the returned error.
func DetectRuns(flags []domain.ConcessionFlag) ([]domain.ConcessionRun, error) {
	series, err := Densify(flags)
	var runs []domain.ConcessionRun
	for _, s := range series {
		runs = append(runs, Detect(s)...)
	}
	return runs, err
}

// Eligible keeps runs followed by at least minPostMonths observed months, so
// that a post-run reference price can exist.
func Eligible(runs []domain.ConcessionRun, lastObserved domain.Month, minPostMonths int) []domain.ConcessionRun {
	return lo.Filter(runs, func(r domain.ConcessionRun, _ int) bool {
		return !r.End.AddMonths(minPostMonths).After(lastObserved)
	})
}

// LastMonth returns the latest month among the flags.
func LastMonth(flags []domain.ConcessionFlag) (domain.Month, bool) {
	if len(flags) == 0 {
		return domain.Month{}, false
	}
	return lo.MaxBy(flags, func(a, b domain.ConcessionFlag) bool {
		return a.Month.After(b.Month)
	}).Month, true
}
