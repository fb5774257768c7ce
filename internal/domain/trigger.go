package domain

import "time"

// IsWeekday reports whether now falls on Monday..Friday in the reference
// timezone. Standups never open on weekends.
func IsWeekday(now time.Time, ref *time.Location) bool {
	wd := now.In(ref).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// MatchesTrigger reports whether the subscriber's local wall clock at now
// equals the trigger moment exactly. Comparison is on hour:minute only;
// evaluation granularity is one minute. An unknown timezone never matches —
// the caller decides how to surface that.
func MatchesTrigger(now time.Time, sub *Subscriber, settings ScheduleSettings) (bool, error) {
	loc, err := time.LoadLocation(sub.TZ)
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	return local.Hour() == settings.TriggerHour && local.Minute() == settings.TriggerMinute, nil
}

// AtTriggerMoment reports whether now is the canonical trigger minute in the
// reference timezone. This is the once-per-day anchor the late-reminder
// timer is armed from.
func AtTriggerMoment(now time.Time, ref *time.Location, settings ScheduleSettings) bool {
	local := now.In(ref)
	return local.Hour() == settings.TriggerHour && local.Minute() == settings.TriggerMinute
}
