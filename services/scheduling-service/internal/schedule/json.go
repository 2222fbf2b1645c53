package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type exceptionJSON struct {
	Closed bool   `json:"closed,omitempty"`
	Start  *Clock `json:"start,omitempty"`
	End    *Clock `json:"end,omitempty"`
}

type scheduleJSON struct {
	Weekly     map[string]Day          `json:"weekly"`
	Exceptions map[Date]exceptionJSON `json:"exceptions,omitempty"`
}

var weekdayKeys = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// MarshalJSON writes weekly entries keyed by three-letter day name and
// exceptions keyed by date, either {"closed":true} or {"start","end"}.
func (s Schedule) MarshalJSON() ([]byte, error) {
	out := scheduleJSON{Weekly: make(map[string]Day, 7)}
	for wd, day := range s.Weekly {
		out.Weekly[weekdayKeys[wd]] = day
	}
	if len(s.Exceptions) > 0 {
		out.Exceptions = make(map[Date]exceptionJSON, len(s.Exceptions))
		for date, ex := range s.Exceptions {
			switch e := ex.(type) {
			case Open:
				start, end := e.Start, e.End
				out.Exceptions[date] = exceptionJSON{Start: &start, End: &end}
			case Closed:
				out.Exceptions[date] = exceptionJSON{Closed: true}
			}
		}
	}
	return json.Marshal(out)
}

func (s *Schedule) UnmarshalJSON(b []byte) error {
	var in scheduleJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	var parsed Schedule
	for name, day := range in.Weekly {
		wd, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		parsed.Weekly[wd] = day
	}
	if len(in.Exceptions) > 0 {
		parsed.Exceptions = make(map[Date]Exception, len(in.Exceptions))
		for date, ex := range in.Exceptions {
			switch {
			case ex.Closed:
				parsed.Exceptions[date] = Closed{}
			case ex.Start != nil && ex.End != nil:
				parsed.Exceptions[date] = Open{Start: *ex.Start, End: *ex.End}
			default:
				return fmt.Errorf("exception %s: want closed or start/end", date)
			}
		}
	}
	*s = parsed
	return nil
}

// WeekdayKey returns the three-letter key used in JSON and BUSINESS_HOURS.
func WeekdayKey(wd time.Weekday) string {
	return weekdayKeys[wd]
}
