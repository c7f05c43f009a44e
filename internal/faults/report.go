package faults

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/technosupport/fleetwatch/internal/data"
)

// ReportRow is one line of the fault report, a read-only projection of a
// FaultRecord.
type ReportRow struct {
	DeviceID   string `json:"device_id"`
	Sequence   int    `json:"sequence"`
	CameraName string `json:"camera_name"`
	Location   string `json:"location"`
	NVRID      string `json:"nvr_id"`
	TimeOff    string `json:"time_off"`
	TimeOn     string `json:"time_on"`
	Duration   string `json:"duration"`
}

// BuildReport renders the ledger newest-record-last, one row per fault. Open
// faults show a dash for TimeOn and a duration measured against now.
func BuildReport(faults []*data.FaultRecord, now time.Time) []ReportRow {
	rows := make([]ReportRow, 0, len(faults))
	for i, f := range faults {
		timeOn := "-"
		if f.TimeOn != nil {
			timeOn = f.TimeOn.Format(time.RFC3339)
		}
		rows = append(rows, ReportRow{
			DeviceID:   f.CameraID.String(),
			Sequence:   i + 1,
			CameraName: f.CameraName,
			Location:   f.Location,
			NVRID:      f.NVRID.String(),
			TimeOff:    f.TimeOff.Format(time.RFC3339),
			TimeOn:     timeOn,
			Duration:   FormatDuration(f.Duration(now)),
		})
	}
	return rows
}

// WriteCSV streams the report with a header row.
func WriteCSV(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"device_id", "seq", "camera_name", "location", "nvr_id", "time_off", "time_on", "duration"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.DeviceID, fmt.Sprintf("%d", r.Sequence), r.CameraName, r.Location, r.NVRID, r.TimeOff, r.TimeOn, r.Duration}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatDuration renders whole-second precision as HH:MM:SS. Durations of a
// day or more keep accumulating hours.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
