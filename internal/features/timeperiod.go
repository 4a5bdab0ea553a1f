package features

// TimePeriod is a named slice of the day the classifier was trained with.
type TimePeriod string

const (
	Night       TimePeriod = "Night"
	MorningRush TimePeriod = "Morning Rush"
	LateMorning TimePeriod = "Late Morning"
	Lunch       TimePeriod = "Lunch"
	Afternoon   TimePeriod = "Afternoon"
	EveningRush TimePeriod = "Evening Rush"
	Evening     TimePeriod = "Evening"
)

// periodStarts partitions [0,24): each period runs until the next start.
var periodStarts = []struct {
	start  int
	period TimePeriod
}{
	{0, Night},
	{6, MorningRush},
	{9, LateMorning},
	{12, Lunch},
	{14, Afternoon},
	{17, EveningRush},
	{20, Evening},
}

// TimePeriodOf returns the period containing hour. Hours outside 0-23 wrap.
func TimePeriodOf(hour int) TimePeriod {
	h := ((hour % 24) + 24) % 24

	period := Night
	for _, p := range periodStarts {
		if h >= p.start {
			period = p.period
		}
	}
	return period
}

// IsRushHour is true on weekdays (Monday=0..Friday=4) between 07-09 or 17-19 inclusive.
func IsRushHour(hour, weekday int) bool {
	return weekday < 5 && ((hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19))
}

func IsWeekend(weekday int) bool {
	return weekday >= 5
}
