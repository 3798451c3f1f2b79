package model

// Attachment represents an uploaded file sent with every message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Outcome is the per-recipient result of one send attempt.
type Outcome struct {
	Recipient Recipient
	Err       string
}

// Failed reports whether the attempt ended in an error.
func (o Outcome) Failed() bool {
	return o.Err != ""
}

// Summary is the single end-of-session report.
type Summary struct {
	SessionID string
	Sent      int
	Failed    int
	Outcomes  []Outcome
}

// Failures returns only the failed outcomes, in send order.
func (s *Summary) Failures() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}
