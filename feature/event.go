package feature

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Event is an indicator feature that is one on the calendar day at Offset days from
// any of its holiday dates and zero elsewhere.
type Event struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
}

// NewEvent creates a new event instance given a name and day offset
func NewEvent(name string, offset int) *Event {
	return &Event{name, offset}
}

// String returns the string representation of the event feature
func (e Event) String() string {
	return fmt.Sprintf("event_%s_%+d", e.Name, e.Offset)
}

// Get returns the value of an arbitrary label and returns the value along with whether
// the label exists
func (e Event) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return e.Name, true
	case "offset":
		return strconv.Itoa(e.Offset), true
	}
	return "", false
}

// Type returns the type of this feature
func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

// Decode converts the feature into a map of label values
func (e Event) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = e.Name
	res["offset"] = strconv.Itoa(e.Offset)
	return res
}

// UnmarshalJSON is the custom unmarshalling to convert a map[string]string
// to a event feature
func (e *Event) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name   string `json:"name"`
		Offset string `json:"offset"`
	}
	err := json.Unmarshal(data, &labelStr)
	if err != nil {
		return err
	}
	e.Name = labelStr.Name
	e.Offset = 0
	if labelStr.Offset != "" {
		e.Offset, err = strconv.Atoi(labelStr.Offset)
		if err != nil {
			return err
		}
	}
	return nil
}

// Generate marks every time that falls on the calendar day Offset days away from one of
// the holiday dates. Holiday dates are taken as calendar dates and times are compared
// in UTC.
func (e Event) Generate(t []time.Time, dates []time.Time) []float64 {
	days := make(map[int64]struct{}, len(dates))
	for _, d := range dates {
		days[dayNumber(d.Year(), d.Month(), d.Day())+int64(e.Offset)] = struct{}{}
	}
	res := make([]float64, len(t))
	for i, tPnt := range t {
		u := tPnt.UTC()
		if _, exists := days[dayNumber(u.Year(), u.Month(), u.Day())]; exists {
			res[i] = 1.0
		}
	}
	return res
}

func dayNumber(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
