package domain

// WaterYear is one Oct 1 to Sep 30 slice of the day grid.
type WaterYear struct {
	// StartYear is the calendar year of the Oct 1 the water year begins on.
	StartYear int
	Values    [DaysInWaterYear]Value
}

// Label returns the water year's name, the calendar year it ends in.
func (w WaterYear) Label() int {
	return w.StartYear + 1
}

// ToWaterYears splits a flat grid-aligned sequence that begins Oct 1 of
// startYear into consecutive water years. A short final chunk (the current,
// partial year) is right-padded with Missing.
func ToWaterYears(flat []Value, startYear int) []WaterYear {
	years := make([]WaterYear, 0, (len(flat)+DaysInWaterYear-1)/DaysInWaterYear)
	for i := 0; i < len(flat); i += DaysInWaterYear {
		wy := WaterYear{StartYear: startYear + len(years)}
		copy(wy.Values[:], flat[i:min(i+DaysInWaterYear, len(flat))])
		years = append(years, wy)
	}
	return years
}
