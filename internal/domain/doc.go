// Package domain models daily snow water equivalent (SWE) and streamflow records
// and derives the water-year statistics behind a snow-to-flow chart.
//
// # Data Source
//
// Site records originate from the NRCS Air and Water Database (AWDB). An upstream
// collector caches each station's daily record as a flat JSON file:
//
//	{"stationTriplet": "1234:UT:SNTL", "beginDate": "1980-10-01 00:00:00",
//	 "endDate": "2100-01-01 00:00:00", "values": [0.1, null, 0.3, ...]}
//
// A null value is a day with no observation. A null endDate marks a record that
// cannot be placed on the calendar; such records are skipped, never guessed.
//
// # Day Grid
//
// AWDB daily records reserve a Feb 29 slot in every year and leave it empty in
// non-leap years. Every water year therefore holds exactly 366 values and
// day-of-year index i names the same calendar date in every year:
//
//	index   0  -> Oct 1
//	index 150  -> Feb 28
//	index 151  -> Feb 29 (Missing in non-leap years)
//	index 365  -> Sep 30
//
// Plain calendar arithmetic undercounts this grid by one day per non-leap
// February crossed. [NonLeapYearsBetween] supplies that correction and
// [GridDays] is the resulting day count of a window.
//
// # Water Years
//
// A water year starts Oct 1 and is named by the calendar year in which it ends:
// Oct 1 2020 through Sep 30 2021 is water year 2021. The analysis window for a
// basin runs from Oct 1 of the year its earliest site came online through today,
// so the last water year is the current, partial one.
//
// # Statistics
//
// For every day-of-year the bands report min, 10th, 30th, 50th, 70th, 90th
// percentile and max across historical years, using linear interpolation between
// closest ranks (the (n-1)p rank rule). The current water year never contributes.
// The Feb 29 row borrows the Feb 28 distribution. Only leap years observe it, so
// its own population would be a quarter the size of its neighbours.
//
// SWE for a basin is the per-day mean of its sites. A historical year feeds the
// SWE bands only when its median daily site count is at least half of the
// current year's count; see [SiteThreshold].
package domain
