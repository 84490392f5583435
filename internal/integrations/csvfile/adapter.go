// Package csvfile parses comma-separated job uploads.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"

	"fieldroute/internal/integrations"
	"fieldroute/internal/model"
)

type Source struct{}

func (Source) Name() string { return "csv" }

func (Source) ParseJobs(r io.Reader) ([]model.JobIn, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return integrations.RowsToJobs(rows)
}
