// Package xlsxfile parses spreadsheet job uploads (first sheet).
package xlsxfile

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fieldroute/internal/integrations"
	"fieldroute/internal/model"
)

type Source struct{}

func (Source) Name() string { return "xlsx" }

func (Source) ParseJobs(r io.Reader) ([]model.JobIn, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return integrations.RowsToJobs(rows)
}
