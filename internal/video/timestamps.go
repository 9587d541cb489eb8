package video

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Range is a clip window in seconds.
type Range struct {
	Start float64
	End   float64
}

const stampExpr = `\d+(?:\.\d+)?(?::\d+(?:\.\d+)?)?`

var (
	rangePattern = regexp.MustCompile(`(` + stampExpr + `)\s*[-~]\s*(` + stampExpr + `)`)
	stampPattern = regexp.MustCompile(stampExpr)
)

// Ranges closer than mergeGap seconds are joined into one clip.
const mergeGap = 5.0

// toSeconds reads "90", "90.5" or "1:30".
func toSeconds(s string) (float64, bool) {
	if m, sec, found := strings.Cut(s, ":"); found {
		mins, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		secs, err := strconv.ParseFloat(sec, 64)
		if err != nil {
			return 0, false
		}
		return mins*60 + secs, true
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// clamp limits v to [lo, hi]. hi <= 0 means no upper bound.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

// ParseTimestamps pulls time ranges out of free text. Explicit ranges
// ("10.5-20", "1:30~2:45") are read first; the remaining single stamps are
// paired in order and an unpaired last stamp is dropped. Values are clamped
// to [0, duration], then the ranges are de-duplicated, sorted by start and
// merged when the gap to the previous range is under five seconds.
func ParseTimestamps(text string, duration float64) []Range {
	var ranges []Range

	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		start, ok1 := toSeconds(m[1])
		end, ok2 := toSeconds(m[2])
		if !ok1 || !ok2 {
			continue
		}
		start = clamp(start, 0, duration)
		ranges = append(ranges, Range{Start: start, End: clamp(end, start, duration)})
	}

	var singles []float64
	for _, s := range stampPattern.FindAllString(rangePattern.ReplaceAllString(text, " "), -1) {
		if v, ok := toSeconds(s); ok {
			singles = append(singles, clamp(v, 0, duration))
		}
	}
	for i := 0; i+1 < len(singles); i += 2 {
		start := singles[i]
		ranges = append(ranges, Range{Start: start, End: clamp(singles[i+1], start, duration)})
	}

	if len(ranges) == 0 {
		return nil
	}

	seen := make(map[Range]bool, len(ranges))
	unique := ranges[:0]
	for _, r := range ranges {
		if !seen[r] {
			seen[r] = true
			unique = append(unique, r)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Start != unique[j].Start {
			return unique[i].Start < unique[j].Start
		}
		return unique[i].End < unique[j].End
	})

	merged := []Range{unique[0]}
	for _, r := range unique[1:] {
		last := &merged[len(merged)-1]
		if r.Start-last.End < mergeGap {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
