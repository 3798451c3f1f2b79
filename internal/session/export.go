package session

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/resumeblast/internal/model"
)

type failureRow struct {
	Recipient string `csv:"recipient"`
	Company   string `csv:"company"`
	Error     string `csv:"error"`
}

// ExportFailures writes the failed outcomes as CSV, the downloadable
// artifact offered to the operator when a session ends with failures.
func ExportFailures(w io.Writer, outcomes []model.Outcome) error {
	rows := make([]*failureRow, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Failed() {
			continue
		}
		rows = append(rows, &failureRow{
			Recipient: o.Recipient.Email,
			Company:   o.Recipient.Company,
			Error:     o.Err,
		})
	}
	return gocsv.Marshal(&rows, w)
}
