package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/david8015838-create/nexus-mind/internal/models"
)

const icsProdID = "-//NexusMind//Schedules//EN"

// stubCalendar keeps calendar clients happy when there is nothing to export.
const stubCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + icsProdID + "\r\nEND:VCALENDAR\r\n"

// ExportICS writes schedules and contact birthdays as an iCalendar feed.
// Birthdays are emitted for the current year so a fresh export always has
// the upcoming occurrences.
func ExportICS(w io.Writer, schedules []models.Schedule, contacts []models.Contact, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProdID)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, sc := range schedules {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, sc.ID+"@nexusmind")
		event.Props.SetText(ical.PropSummary, sc.Title)
		if sc.Type != "" {
			event.Props.SetText(ical.PropCategories, sc.Type)
		}
		event.Props.SetDateTime(ical.PropDateTimeStart, sc.Date.UTC())
		event.Props.Set(stamp)
		cal.Children = append(cal.Children, event.Component)
	}

	for _, c := range contacts {
		if c.Birthday == nil {
			continue
		}
		bday := *c.Birthday
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, c.ID+"-birthday@nexusmind")
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s's birthday", c.Name))
		event.Props.SetText(ical.PropCategories, "birthday")

		start := ical.NewProp(ical.PropDateTimeStart)
		start.SetDate(time.Date(now.Year(), bday.Month(), bday.Day(), 0, 0, 0, 0, time.UTC))
		event.Props.Set(start)
		event.Props.Set(stamp)
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		_, err := io.WriteString(w, stubCalendar)
		return err
	}
	return ical.NewEncoder(w).Encode(cal)
}
