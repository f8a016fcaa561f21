package types

// Weekday values for WeeklyItem.Day.
const (
	DayMonday    = "monday"
	DayTuesday   = "tuesday"
	DayWednesday = "wednesday"
	DayThursday  = "thursday"
	DayFriday    = "friday"
	DaySaturday  = "saturday"
	DaySunday    = "sunday"
)

// validDays is the set of recognized weekday values.
var validDays = map[string]bool{
	DayMonday:    true,
	DayTuesday:   true,
	DayWednesday: true,
	DayThursday:  true,
	DayFriday:    true,
	DaySaturday:  true,
	DaySunday:    true,
}

// ValidDay reports whether d is a recognized weekday value.
func ValidDay(d string) bool {
	return validDays[d]
}

// WeeklyItem places one entity on one day of one calendar week. Its
// lifecycle parallels Position but is keyed by week rather than by board
// cell: the record ID is the derived key WeeklyItemID(weekKey, entityId).
type WeeklyItem struct {
	ID       string `json:"id"`
	WeekKey  string `json:"weekKey"`
	EntityID string `json:"entityId"`
	Day      string `json:"day"`
	Order    int    `json:"order"`
}

// WeeklyItemID derives the record key for a (weekKey, entityId) pair.
func WeeklyItemID(weekKey, entityID string) string {
	return weekKey + "|" + entityID
}

// Key returns the derived record key for this item.
func (w *WeeklyItem) Key() string {
	return WeeklyItemID(w.WeekKey, w.EntityID)
}

// WeeklyPlan is the wire grouping of one week's items, keyed by weekKey in
// the snapshot's weeklyPlans map.
type WeeklyPlan struct {
	Items []*WeeklyItem `json:"items"`
}
