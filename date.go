package magpie

import (
	"fmt"
	"time"
)

// NNTP date/time layouts. NEWGROUPS and NEWNEWS take the date and time as
// two arguments; DATE replies with a single 14-digit stamp. The client
// always emits four-digit years; two-digit years are accepted on input for
// legacy servers.
const (
	dateLayout      = "20060102"
	timeLayout      = "150405"
	dateStampLayout = "20060102150405"
)

// formatDateTime renders t as the "YYYYMMDD" and "HHMMSS" argument pair
// used by NEWGROUPS and NEWNEWS. Times are rendered in UTC.
func formatDateTime(t time.Time) (date, tod string) {
	u := t.UTC()
	return u.Format(dateLayout), u.Format(timeLayout)
}

// ParseDateStamp parses the reply to DATE: exactly fourteen digits,
// YYYYMMDDHHMMSS. Any deviation is a DataError.
func ParseDateStamp(s string) (time.Time, error) {
	if len(s) != 14 || !allDigits(s) {
		return time.Time{}, &DataError{Reason: "bad date stamp", Detail: fmt.Sprintf("%q", s)}
	}
	t, err := time.Parse(dateStampLayout, s)
	if err != nil {
		return time.Time{}, &DataError{Reason: "bad date stamp", Detail: fmt.Sprintf("%q", s), Err: err}
	}
	return t, nil
}

// ParseDateTime parses a server-produced date and time argument pair.
// Both the four-digit-year form (YYYYMMDD) and the legacy two-digit form
// (YYMMDD) are accepted: years below 70 map to 20yy, 70 through 99 to 19yy.
func ParseDateTime(date, tod string) (time.Time, error) {
	switch {
	case len(date) == 8 && allDigits(date):
		// Four-digit year.
	case len(date) == 6 && allDigits(date):
		yy := int(date[0]-'0')*10 + int(date[1]-'0')
		if yy < 70 {
			date = fmt.Sprintf("20%s", date)
		} else {
			date = fmt.Sprintf("19%s", date)
		}
	default:
		return time.Time{}, &DataError{Reason: "bad date", Detail: fmt.Sprintf("%q", date)}
	}

	if len(tod) != 6 || !allDigits(tod) {
		return time.Time{}, &DataError{Reason: "bad time", Detail: fmt.Sprintf("%q", tod)}
	}

	t, err := time.Parse(dateStampLayout, date+tod)
	if err != nil {
		return time.Time{}, &DataError{Reason: "bad date", Detail: fmt.Sprintf("%q %q", date, tod), Err: err}
	}
	return t, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
