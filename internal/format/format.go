// Package format renders job durations, timestamps and default job names.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
)

// ConvertTime renders an "HH:MM:SS[.fff]" duration as words, for example
// "02 hours, 30 minutes, 45 seconds". Seconds are rounded; zero leading
// components are omitted. ok is false unless there are exactly three
// numeric parts.
func ConvertTime(s string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return "", false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	secs, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return "", false
	}
	seconds := int(math.Round(secs))

	var out []string
	if hours > 0 {
		out = append(out, pad(hours)+" hours")
	}
	if minutes > 0 {
		out = append(out, pad(minutes)+" minutes")
	}
	if seconds > 0 {
		out = append(out, pad(seconds)+" seconds")
	}
	if len(out) == 0 {
		return "0 seconds", true
	}
	return strings.Join(out, ", "), true
}

func pad(n int) string {
	return fmt.Sprintf("%02d", n)
}

type FormattedDateTime struct {
	FormattedDateTime string `json:"formattedDateTime"`
	Timestamp         int64  `json:"timestamp"`
}

const dateTimeLayout = "1/2/06, 3:04:05 PM"

// FormatUTCDateTime renders an ISO-8601 timestamp as a short date and medium
// time in UTC, with its epoch milliseconds.
func FormatUTCDateTime(iso string) (FormattedDateTime, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return FormattedDateTime{}, false
	}
	t, err := parseISO(iso)
	if err != nil {
		return FormattedDateTime{}, false
	}
	t = t.UTC()
	return FormattedDateTime{
		FormattedDateTime: t.Format(dateTimeLayout),
		Timestamp:         t.UnixMilli(),
	}, true
}

// parseISO accepts RFC 3339 and the zone-less form the data transfer service
// emits, which is treated as UTC.
func parseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}

const jobNamePartLimit = 5

// DefaultJobName proposes a job name for a single container pair. It returns
// "" unless exactly one pair is given.
func DefaultJobName(containers []copyjob.ContainerPair, now time.Time) string {
	if len(containers) != 1 {
		return ""
	}
	c := containers[0]
	return fmt.Sprintf("%s.%s_%s.%s_%d",
		truncate(c.SourceDatabaseName),
		truncate(c.SourceContainerName),
		truncate(c.TargetDatabaseName),
		truncate(c.TargetContainerName),
		now.UnixMilli(),
	)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > jobNamePartLimit {
		r = r[:jobNamePartLimit]
	}
	return string(r)
}
