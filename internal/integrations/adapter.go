// Package integrations adapts external job feeds into inbound jobs.
package integrations

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"fieldroute/internal/model"
)

// JobSource parses one upload format into inbound jobs. Implementations are
// selected by file extension at the import endpoint.
type JobSource interface {
	Name() string
	ParseJobs(r io.Reader) ([]model.JobIn, error)
}

// Columns recognized by the CSV and XLSX sources. A header row is required;
// extra columns are ignored.
const (
	colExternalRef   = "externalRef"
	colCustomerName  = "customerName"
	colAddress       = "address"
	colLat           = "lat"
	colLng           = "lng"
	colDurationMin   = "durationMin"
	colScheduledTime = "scheduledTime"
	colPriority      = "priority"
)

// RowsToJobs converts header+data rows to inbound jobs. Rows missing both
// coordinates are still accepted; the optimizer reports them unrouted.
func RowsToJobs(rows [][]string) ([]model.JobIn, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colCustomerName, colDurationMin} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	jobs := make([]model.JobIn, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		dur, err := strconv.Atoi(cell(row, colDurationMin))
		if err != nil || dur <= 0 {
			return nil, fmt.Errorf("row %d: bad durationMin %q", n+2, cell(row, colDurationMin))
		}
		job := model.JobIn{
			ExternalRef:   cell(row, colExternalRef),
			CustomerName:  cell(row, colCustomerName),
			Address:       cell(row, colAddress),
			DurationMin:   dur,
			ScheduledTime: cell(row, colScheduledTime),
			Priority:      cell(row, colPriority),
		}
		latS, lngS := cell(row, colLat), cell(row, colLng)
		if latS != "" && lngS != "" {
			lat, errLat := strconv.ParseFloat(latS, 64)
			lng, errLng := strconv.ParseFloat(lngS, 64)
			if errLat != nil || errLng != nil {
				return nil, fmt.Errorf("row %d: bad coordinates %q,%q", n+2, latS, lngS)
			}
			job.Location = &model.GeoPoint{Lat: lat, Lng: lng}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
