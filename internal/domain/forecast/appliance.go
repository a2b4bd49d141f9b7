package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var weekdayOrder = []Weekday{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var weekdayAliases = func() map[string]Weekday {
	out := make(map[string]Weekday, len(weekdayOrder)*2)
	for _, day := range weekdayOrder {
		full := strings.ToLower(string(day))
		out[full] = day
		out[full[:3]] = day
	}
	return out
}()

var bucketAliases = map[string]TimeBucket{
	"morning":   BucketMorning,
	"noon":      BucketNoon,
	"afternoon": BucketNoon,
	"evening":   BucketEvening,
	"night":     BucketNight,
}

// maxUsageMinutes caps a declared duration at one week of continuous use.
const maxUsageMinutes = 7 * 24 * 60

var durationUnits = strings.NewReplacer(
	"hours", "h", "hour", "h", "hrs", "h", "hr", "h",
	"minutes", "m", "minute", "m", "mins", "m", "min", "m",
)

// NormalizeAppliances validates every appliance in submission order. Valid ones are
// returned as usages; the rest are reported with a reason and never reach the model.
func NormalizeAppliances(set ApplianceSet) ([]ApplianceUsage, []ExcludedAppliance) {
	valid := make([]ApplianceUsage, 0, len(set))
	var excluded []ExcludedAppliance
	seen := make(map[string]struct{}, len(set))
	for _, item := range set {
		name := strings.TrimSpace(item.Name)
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup && name != "" {
			excluded = append(excluded, ExcludedAppliance{Name: name, Reason: "duplicate appliance name"})
			continue
		}
		if item.DecodeErr != nil {
			excluded = append(excluded, ExcludedAppliance{Name: name, Reason: describeDecodeErr(item.DecodeErr)})
			continue
		}
		usage, err := normalizeAppliance(name, item.Input)
		if err != nil {
			excluded = append(excluded, ExcludedAppliance{Name: name, Reason: err.Error()})
			continue
		}
		seen[key] = struct{}{}
		valid = append(valid, usage)
	}
	return valid, excluded
}

func describeDecodeErr(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	}
	return "malformed appliance declaration: " + err.Error()
}

func normalizeAppliance(name string, in ApplianceInput) (ApplianceUsage, error) {
	if name == "" {
		return ApplianceUsage{}, errors.New("name cannot be empty")
	}
	power := float64(in.Power)
	if !(power > 0) || math.IsInf(power, 0) {
		return ApplianceUsage{}, errors.New("power must be a positive number of watts")
	}
	count := float64(in.Count)
	if !(count > 0) || count != math.Trunc(count) || count > math.MaxInt32 {
		return ApplianceUsage{}, errors.New("count must be a positive integer")
	}
	days, err := normalizeDays(in.Days)
	if err != nil {
		return ApplianceUsage{}, err
	}
	times, err := normalizeTimes(days, in.Times)
	if err != nil {
		return ApplianceUsage{}, err
	}
	minutes, err := ParseUsageDuration(string(in.UsageTime))
	if err != nil {
		return ApplianceUsage{}, err
	}
	return ApplianceUsage{
		Name:              name,
		PowerRatingWatts:  power,
		Count:             int(count),
		UsageDays:         days,
		UsageTimesByDay:   times,
		TotalUsageMinutes: minutes,
	}, nil
}

func normalizeDays(raw []string) ([]Weekday, error) {
	if len(raw) == 0 {
		return nil, errors.New("at least one usage day is required")
	}
	set := make(map[Weekday]struct{}, len(raw))
	for _, d := range raw {
		day, ok := ParseWeekday(d)
		if !ok {
			return nil, fmt.Errorf("unknown usage day %q", d)
		}
		set[day] = struct{}{}
	}
	days := make([]Weekday, 0, len(set))
	for day := range set {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return weekdayIndex(days[i]) < weekdayIndex(days[j])
	})
	return days, nil
}

func normalizeTimes(days []Weekday, raw map[string][]string) (map[Weekday][]TimeBucket, error) {
	byDay := make(map[Weekday][]string, len(raw))
	for key, buckets := range raw {
		day, ok := ParseWeekday(key)
		if !ok {
			continue
		}
		byDay[day] = append(byDay[day], buckets...)
	}
	out := make(map[Weekday][]TimeBucket, len(days))
	for _, day := range days {
		buckets, err := normalizeBuckets(byDay[day])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", day, err)
		}
		out[day] = buckets
	}
	return out, nil
}

func normalizeBuckets(raw []string) ([]TimeBucket, error) {
	seen := make(map[TimeBucket]struct{}, len(raw))
	for _, b := range raw {
		bucket, ok := bucketAliases[strings.ToLower(strings.TrimSpace(b))]
		if !ok {
			return nil, fmt.Errorf("unknown time of day %q", b)
		}
		seen[bucket] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, errors.New("at least one time of day is required")
	}
	out := make([]TimeBucket, 0, len(seen))
	for _, bucket := range []TimeBucket{BucketMorning, BucketNoon, BucketEvening, BucketNight} {
		if _, ok := seen[bucket]; ok {
			out = append(out, bucket)
		}
	}
	return out, nil
}

// ParseWeekday accepts full or three-letter English day names in any case.
func ParseWeekday(raw string) (Weekday, bool) {
	day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

func weekdayIndex(day Weekday) int {
	for i, d := range weekdayOrder {
		if d == day {
			return i
		}
	}
	return len(weekdayOrder)
}

// ParseUsageDuration converts "2h30m", "90 mins", "1.5 hours" or a bare number of
// hours into whole minutes.
func ParseUsageDuration(raw string) (int, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return 0, errors.New("usage time is required")
	}
	var minutes float64
	if hours, err := strconv.ParseFloat(text, 64); err == nil {
		minutes = hours * 60
	} else {
		compact := durationUnits.Replace(strings.ReplaceAll(text, " ", ""))
		d, err := time.ParseDuration(compact)
		if err != nil {
			return 0, fmt.Errorf("usage time %q is not a duration", raw)
		}
		minutes = d.Minutes()
	}
	rounded := math.Round(minutes)
	if !(rounded > 0) {
		return 0, fmt.Errorf("usage time %q must be positive", raw)
	}
	if rounded > maxUsageMinutes {
		return 0, fmt.Errorf("usage time %q exceeds one week", raw)
	}
	return int(rounded), nil
}
