package telegram

// UI texts in English
const (
	helpText = "👋 I run the daily standup.\n\n" +
		"/subscribe — join the daily standup\n" +
		"/unsubscribe — leave\n" +
		"/standup — answer the questions right now\n" +
		"/skip — skip the current question\n" +
		"/vacation YYYY-MM-DD — pause until that day (inclusive)\n" +
		"/back — return from vacation\n" +
		"/timezone Region/City — set your timezone\n" +
		"/status — your current settings\n\n" +
		"Admins: /settime HH:MM, /setreminder <off|hours>, /whoshere, /report"

	notMemberText      = "You need to be a member of the standup channel to talk to me."
	unknownCommandText = "Unknown command. Try /help."
	storageErrorText   = "Something went wrong on my side. Please try again."
	submitFailedText   = "Could not process that. Please try again."

	alreadySubscribedText = "You're already on the standup list."
	subscribedFmt         = "✅ Subscribed. I'll ask for your standup on weekdays at %s (%s). Change it with /timezone."
	notSubscribedText     = "You're not subscribed. Use /subscribe first."
	unsubscribedText      = "Unsubscribed. Your standups will no longer be collected."

	vacationUsageText = "Usage: /vacation YYYY-MM-DD (last day off, today or later)"
	vacationSetFmt    = "🏖 Enjoy! No standups until %s inclusive. /back to return early."
	welcomeBackText   = "Welcome back! Standups resume tomorrow morning."
	onVacationText    = "You're on vacation. Use /back first."

	timezoneUsageText = "Usage: /timezone Region/City, e.g. /timezone America/New_York"
	timezoneSetFmt    = "🌍 Timezone set to %s."

	sessionOpenText = "Your standup is already in progress — just answer the question above."
	noSessionText   = "No standup in progress. Start one with /standup."
	cannotSkipText  = "This one can't be skipped — what will you do today?"

	statusFmt = "🧾 Your settings:\n• Timezone: %s\n• Vacation: %s\n• Standup time: %s\n• Late reminder: %s"

	adminOnlyText        = "Only standup admins can do that."
	setTimeUsageText     = "Usage: /settime HH:MM (in the team's reference timezone)"
	timeSetFmt           = "⏱ Standup time set to %s. Takes effect from the next cycle."
	setReminderUsageText = "Usage: /setreminder <off|1-12> (hours after standup time)"
	reminderSetFmt       = "🔔 Late reminder set: %d hours after standup time."
	reminderOffText      = "🔕 Late reminders disabled."

	whosHereFmt = "📅 %s\n✅ Answered: %s\n⏳ Waiting on: %s"

	reportHeaderFmt = "📈 Standups %s — %s:"
	reportEmptyFmt  = "📈 No standups between %s and %s."
)
