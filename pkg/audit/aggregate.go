package audit

import (
	"fmt"
	"sort"
	"time"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
)

// Aggregate cross-tabulates the classified incidents into age buckets: a
// totals row, one row per business unit (all units, zeros included), one per
// platform, and one per observed missing field. Field rows count one
// increment per missing field, so an incident missing two fields shows up in
// two field rows.
func Aggregate(classified []model.ClassifiedIncident, now time.Time, b model.Boundaries, lookbackDays int) model.Aggregation {
	agg := model.Aggregation{
		Now:        now,
		Boundaries: b,
		Labels:     b.Labels(),
		Available:  b.Available(lookbackDays),
	}

	var totals model.BucketCounts
	unitCounts := make(map[model.BusinessUnit]model.BucketCounts)
	platformCounts := make(map[model.Platform]model.BucketCounts)
	fieldCounts := make(map[string]model.BucketCounts)

	for _, inc := range classified {
		bucket := b.BucketFor(model.AgeDays(now, inc.CreatedAt))
		totals[bucket]++

		uc := unitCounts[inc.BusinessUnit]
		uc[bucket]++
		unitCounts[inc.BusinessUnit] = uc

		pc := platformCounts[inc.Platform]
		pc[bucket]++
		platformCounts[inc.Platform] = pc

		for _, field := range inc.MissingFields {
			fc := fieldCounts[field]
			fc[bucket]++
			fieldCounts[field] = fc
		}
	}

	agg.GrandTotal = sumBuckets(totals)
	agg.Totals = makeRow("Total", totals, agg.GrandTotal)

	for _, unit := range model.AllBusinessUnits {
		agg.ByUnit = append(agg.ByUnit, makeRow(string(unit), unitCounts[unit], agg.GrandTotal))
	}
	for _, platform := range model.AllPlatforms {
		agg.ByPlatform = append(agg.ByPlatform, makeRow(string(platform), platformCounts[platform], agg.GrandTotal))
	}

	names := make([]string, 0, len(fieldCounts))
	for name := range fieldCounts {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ti, tj := sumBuckets(fieldCounts[names[i]]), sumBuckets(fieldCounts[names[j]])
		if ti != tj {
			return ti > tj
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		agg.ByField = append(agg.ByField, makeRow(name, fieldCounts[name], agg.GrandTotal))
	}

	return agg
}

func makeRow(key string, counts model.BucketCounts, grandTotal int) model.AggregationRow {
	total := sumBuckets(counts)
	return model.AggregationRow{
		Key:     key,
		Counts:  counts,
		Total:   total,
		Percent: percentOf(total, grandTotal),
	}
}

func sumBuckets(counts model.BucketCounts) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// percentOf formats n as a share of grandTotal to one decimal place. A zero
// grand total short-circuits to "0.0" instead of dividing by zero.
func percentOf(n, grandTotal int) string {
	if grandTotal == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(n)*100/float64(grandTotal))
}
