package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/pkg/dateutil"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func parsePositiveInt(raw string) (int, error) {
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if val < 1 {
		return 0, fmt.Errorf("%d is not positive", val)
	}
	return val, nil
}

func parseDateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := dateutil.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &parsed, nil
}
