package domain

// Defaults applied when the settings table is empty.
const (
	DefaultTriggerHour   = 9
	DefaultTriggerMinute = 30
	DefaultReminderDelay = 4

	MinReminderDelayHours = 1
	MaxReminderDelayHours = 12
)

// ScheduleSettings is the process-wide standup schedule. The trigger moment
// is interpreted in the reference timezone; the reminder delay is counted
// from that moment.
type ScheduleSettings struct {
	TriggerHour        int
	TriggerMinute      int
	ReminderEnabled    bool
	ReminderDelayHours int
}

// DefaultSettings returns the schedule used until an admin changes it.
func DefaultSettings() ScheduleSettings {
	return ScheduleSettings{
		TriggerHour:        DefaultTriggerHour,
		TriggerMinute:      DefaultTriggerMinute,
		ReminderEnabled:    true,
		ReminderDelayHours: DefaultReminderDelay,
	}
}
