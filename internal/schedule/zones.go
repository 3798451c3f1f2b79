package schedule

// Zone pairs a display name with its IANA identifier for the operator
// UI's target-country select.
type Zone struct {
	Country string
	ID      string
}

// Zones is the target-country list offered by the UI, in display order.
// Any IANA identifier is accepted by the gate; this list is just the
// curated default set.
var Zones = []Zone{
	{"India", "Asia/Kolkata"},
	{"Pakistan", "Asia/Karachi"},
	{"United Arab Emirates", "Asia/Dubai"},
	{"Singapore", "Asia/Singapore"},
	{"United Kingdom", "Europe/London"},
	{"Germany", "Europe/Berlin"},
	{"United States (East)", "America/New_York"},
	{"United States (West)", "America/Los_Angeles"},
	{"Canada (East)", "America/Toronto"},
	{"Australia (East)", "Australia/Sydney"},
}
