package umpire

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Window returns the inclusive date range the batch aggregates over.
// Before April there is too little current-season data, so the whole
// previous regular season is used; otherwise the last lookbackDays days
// ending on now's date.
func Window(now time.Time, lookbackDays int) (start, end string) {
	if now.Month() < time.April {
		prev := now.Year() - 1
		return fmt.Sprintf("%d-03-25", prev), fmt.Sprintf("%d-11-05", prev)
	}
	return now.AddDate(0, 0, -lookbackDays).Format(dateLayout), now.Format(dateLayout)
}
