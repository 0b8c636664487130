package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/gincana/internal/domain/model"
)

var dateLayouts = []string{ //nolint:gochecknoglobals // read-only layouts
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
}

// ParseDate reads a donation date from a time value, a text date or an Excel
// serial number. Anything else yields nil.
func ParseDate(cell model.Cell) *time.Time {
	switch v := cell.(type) {
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case float64:
		return fromSerial(v)
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(serial)
		}
	}
	return nil
}

func fromSerial(serial float64) *time.Time {
	if serial <= 0 {
		return nil
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil
	}
	return &t
}
