package model

import (
	"fmt"
	"time"
)

// NumBuckets is the number of fixed age ranges reports break down by.
const NumBuckets = 4

// AgeBucket indexes one of the four age ranges, youngest first.
type AgeBucket int

const (
	BucketFirst AgeBucket = iota
	BucketSecond
	BucketThird
	BucketOldest
)

// Boundaries holds the day thresholds separating the four age buckets.
// With the defaults the buckets read 0-7, 7-30, 30-90 and 90+ days.
type Boundaries struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
}

func DefaultBoundaries() Boundaries {
	return Boundaries{First: 7, Second: 30, Third: 90}
}

func (b Boundaries) Valid() bool {
	return b.First > 0 && b.Second > b.First && b.Third > b.Second
}

// Labels renders the four bucket labels for these boundaries.
func (b Boundaries) Labels() [NumBuckets]string {
	return [NumBuckets]string{
		fmt.Sprintf("0-%d days", b.First),
		fmt.Sprintf("%d-%d days", b.First, b.Second),
		fmt.Sprintf("%d-%d days", b.Second, b.Third),
		fmt.Sprintf("%d+ days", b.Third),
	}
}

// BucketFor assigns an incident age in whole days to a bucket. Each boundary
// is inclusive at the upper bound: an incident exactly First days old still
// lands in the first bucket.
func (b Boundaries) BucketFor(ageDays int) AgeBucket {
	switch {
	case ageDays <= b.First:
		return BucketFirst
	case ageDays <= b.Second:
		return BucketSecond
	case ageDays <= b.Third:
		return BucketThird
	default:
		return BucketOldest
	}
}

// Available reports which buckets a lookback window can populate at all.
// A 7-day lookback can never fill the 90+ bucket; reporting marks such
// buckets not-applicable instead of showing a misleading zero. The two
// middle buckets share the second threshold.
func (b Boundaries) Available(lookbackDays int) [NumBuckets]bool {
	return [NumBuckets]bool{
		lookbackDays >= b.First,
		lookbackDays >= b.Second,
		lookbackDays >= b.Second,
		lookbackDays >= b.Third,
	}
}

// AgeDays returns the whole days elapsed between createdAt and now,
// truncating partial days and clamping future timestamps to zero.
func AgeDays(now, createdAt time.Time) int {
	if !createdAt.Before(now) {
		return 0
	}
	return int(now.Sub(createdAt).Hours() / 24)
}
