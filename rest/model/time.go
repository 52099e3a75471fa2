package model

import "time"

// APITimeFormat is the timestamp layout of the REST API, RFC3339 with
// millisecond precision, always UTC. The embedded quotes make values
// round-trip through JSON without a custom encoder.
const APITimeFormat = "\"2006-01-02T15:04:05.000Z\""

// APITime is the timestamp representation of the REST API.
type APITime time.Time

// NewTime creates a new APITime from an existing time.Time, normalizing
// the value to UTC.
func NewTime(t time.Time) APITime {
	return APITime(time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).In(time.FixedZone("", 0)))
}

func (at *APITime) UnmarshalJSON(b []byte) error {
	str := string(b)
	t := time.Time{}
	var err error
	if str != "null" {
		t, err = time.ParseInLocation(APITimeFormat, str, time.FixedZone("", 0))
		if err != nil {
			return err
		}
	}

	*at = APITime(t)
	return nil
}

func (at APITime) MarshalJSON() ([]byte, error) {
	t := time.Time(at)
	if t.IsZero() {
		return []byte("null"), nil
	}

	return []byte(t.Format(APITimeFormat)), nil
}

func (at APITime) String() string {
	return time.Time(at).Format(APITimeFormat)
}
