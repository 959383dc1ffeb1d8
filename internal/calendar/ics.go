// Package calendar exports event occurrences as iCalendar feeds.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"winecompanion-backend/internal/model"
)

const productID = "-//Wine Companion//Events//EN"

// EventICS renders one VEVENT per occurrence of ev. Occurrences that were
// called off, or all of them when the event is cancelled, are marked
// STATUS:CANCELLED. host is used to build globally unique UIDs.
func EventICS(ev *model.Event, occurrences []model.Occurrence, host string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(ev.Name)

	location := ev.Winery.Name
	for _, occ := range occurrences {
		vevent := cal.AddEvent(fmt.Sprintf("occurrence-%d@%s", occ.ID, host))
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(occ.Start.UTC())
		vevent.SetEndAt(occ.End.UTC())
		vevent.SetSummary(ev.Name)
		if desc := strings.TrimSpace(ev.Description); desc != "" {
			vevent.SetDescription(desc)
		}
		if location != "" {
			vevent.SetLocation(location)
		}
		if ev.IsCancelled() || occ.IsCancelled() {
			vevent.SetStatus(ical.ObjectStatusCancelled)
		} else {
			vevent.SetStatus(ical.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize()
}
