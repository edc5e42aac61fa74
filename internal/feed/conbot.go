package feed

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
	"time"

	"confeed/internal/config"
	"confeed/internal/schedule"
)

var conbotTypes = map[schedule.ProgramType]string{
	schedule.TypeCompetition: "Súťaž",
	schedule.TypeDiscussion:  "Diskusia",
	schedule.TypeGame:        "Hra",
	schedule.TypeOther:       "Iné",
	schedule.TypePerformance: "Vystúpenie",
	schedule.TypeTalk:        "Prednáška",
	schedule.TypeWorkshop:    "Workshop",
}

const conbotTypeFallback = "Prednáška"

// ConbotInput carries everything the extended feed embeds besides the
// normalized schedule: static event blocks from config, the
// parallel-track room list, and the zone timestamps are rewritten into.
type ConbotInput struct {
	Primary       []schedule.Entry
	Extra         []schedule.Entry
	Event         config.EventConfig
	ParallelRooms []string
	Location      *time.Location
}

type conbotDocument struct {
	XMLName     xml.Name           `xml:"event"`
	LastUpdate  string             `xml:"last-update,attr"`
	Annotations conbotAnnotations  `xml:"annotations"`
	Extra       conbotExtraSection `xml:"extra-program"`
	FloorPlan   conbotFloorPlan    `xml:"planek"`
	EventInfo   conbotEventInfo    `xml:"event-info"`
	Feedback    *conbotFeedback    `xml:"dotaznik-spokojenosti,omitempty"`
}

type conbotAnnotations struct {
	Count      int               `xml:"count,attr"`
	Programmes []conbotProgramme `xml:"programme"`
}

type conbotProgramme struct {
	Highlight  bool           `xml:"highlight,attr"`
	Color      string         `xml:"color,attr"`
	PID        cdata          `xml:"pid"`
	Speaker    cdata          `xml:"speaker"`
	Title      cdata          `xml:"title"`
	Type       cdata          `xml:"type"`
	Line       cdata          `xml:"program-line"`
	Location   conbotLocation `xml:"location"`
	StartTime  string         `xml:"start-time"`
	EndTime    string         `xml:"end-time"`
	Annotation cdata          `xml:"annotation"`
}

type conbotLocation struct {
	ParallelEvents string `xml:"parallel-events,attr,omitempty"`
	Value          string `xml:",cdata"`
}

type conbotExtraSection struct {
	Programmes []conbotExtraProgramme `xml:"programme"`
}

type conbotExtraProgramme struct {
	Highlight    bool   `xml:"highlight,attr"`
	Color        string `xml:"color,attr"`
	ID           cdata  `xml:"id"`
	Title        cdata  `xml:"title"`
	Enterpreneur *cdata `xml:"enterpreneur,omitempty"`
	Annotation   cdata  `xml:"annotation"`
	Description  cdata  `xml:"description"`
}

type conbotFloorPlan struct {
	Figures []conbotFigure `xml:"figure"`
}

type conbotFigure struct {
	Title       cdata `xml:"title"`
	Description cdata `xml:"description"`
	Image       cdata `xml:"image"`
}

type conbotEventInfo struct {
	Title       cdata `xml:"title"`
	Description cdata `xml:"description"`
	WebURL      cdata `xml:"web-url"`
	FBURL       cdata `xml:"fb-url"`
}

type conbotFeedback struct {
	Title      cdata `xml:"title"`
	Annotation cdata `xml:"annotation"`
	Image      cdata `xml:"image"`
	Link       cdata `xml:"link"`
}

// Conbot renders the extended feed. Main-section records must have a
// resolved location and are stably sorted by room weight; extra
// records are kept as-is. The document's last-update attribute is the
// maximum changed timestamp across both record sets (safe to compare
// as text, the format is fixed-width and zero-padded).
func Conbot(in ConbotInput) ([]byte, error) {
	doc := conbotDocument{
		LastUpdate: lastUpdate(in.Primary, in.Extra),
		EventInfo: conbotEventInfo{
			Title:       pad(in.Event.Title),
			Description: pad(in.Event.Description),
			WebURL:      pad(in.Event.WebURL),
			FBURL:       pad(in.Event.FBURL),
		},
	}

	main := make([]schedule.Entry, 0, len(in.Primary))
	for _, e := range in.Primary {
		if e.LocationLabel != schedule.Undefined {
			main = append(main, e)
		}
	}
	sort.SliceStable(main, func(i, j int) bool { return main[i].SortWeight < main[j].SortWeight })

	doc.Annotations.Count = len(main)
	doc.Annotations.Programmes = make([]conbotProgramme, 0, len(main))
	for _, e := range main {
		doc.Annotations.Programmes = append(doc.Annotations.Programmes, conbotProgramme{
			Highlight: e.Highlight,
			Color:     e.Color,
			PID:       padInt(e.PID),
			Speaker:   pad(e.AuthorNames),
			Title:     pad(e.Title),
			Type:      pad(conbotType(e.Types)),
			Line:      pad(e.LineNames),
			Location: conbotLocation{
				ParallelEvents: parallelAttr(e.LocationLabel, in.ParallelRooms),
				Value:          " " + e.LocationLabel + " ",
			},
			StartTime:  rewriteZone(e.StartTime, in.Location),
			EndTime:    rewriteZone(e.EndTime, in.Location),
			Annotation: pad(e.Annotation),
		})
	}

	doc.Extra.Programmes = make([]conbotExtraProgramme, 0, len(in.Extra))
	for _, e := range in.Extra {
		p := conbotExtraProgramme{
			Highlight:   e.Highlight,
			Color:       e.Color,
			ID:          padInt(e.PID),
			Title:       pad(e.Title),
			Annotation:  pad(e.Annotation),
			Description: pad(extraDescription(e)),
		}
		if e.AuthorNames != "" {
			speaker := pad(e.AuthorNames)
			p.Enterpreneur = &speaker
		}
		doc.Extra.Programmes = append(doc.Extra.Programmes, p)
	}

	doc.FloorPlan.Figures = make([]conbotFigure, 0, len(in.Event.FloorPlan))
	for _, f := range in.Event.FloorPlan {
		doc.FloorPlan.Figures = append(doc.FloorPlan.Figures, conbotFigure{
			Title:       pad(f.Title),
			Description: pad(f.Description),
			Image:       pad(f.Image),
		})
	}

	if in.Event.FeedbackForm.Enabled {
		doc.Feedback = &conbotFeedback{
			Title:      pad(in.Event.FeedbackForm.Title),
			Annotation: pad(in.Event.FeedbackForm.Description),
			Image:      pad(in.Event.FeedbackForm.Image),
			Link:       pad(in.Event.FeedbackForm.Link),
		}
	}

	return xml.MarshalIndent(doc, "", "  ")
}

func conbotType(types []schedule.ProgramType) string {
	labels := make([]string, 0, len(types))
	for _, t := range types {
		label, ok := conbotTypes[t]
		if !ok {
			label = conbotTypeFallback
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}

// extraDescription composes the teaser shown for extra-program
// entries: summary, then bold location (when resolved), type labels
// and program lines.
func extraDescription(e schedule.Entry) string {
	var b strings.Builder
	b.WriteString(e.Summary)
	b.WriteString("<br/>")
	if e.LocationLabel != schedule.Undefined {
		b.WriteString("<strong>" + e.LocationLabel + "</strong>, ")
	}
	b.WriteString(conbotType(e.Types))
	b.WriteString(", ")
	b.WriteString(e.LineNames)
	b.WriteString("<br/>")
	return b.String()
}

func parallelAttr(label string, parallelRooms []string) string {
	for _, room := range parallelRooms {
		if room == label {
			return "true"
		}
	}
	return ""
}

// rewriteZone converts an upstream UTC timestamp into the local event
// zone with a numeric offset. Empty timestamps stay empty.
func rewriteZone(iso string, loc *time.Location) string {
	if iso == "" || loc == nil {
		return iso
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.In(loc).Format("2006-01-02T15:04:05-07:00")
}

func lastUpdate(primary, extra []schedule.Entry) string {
	last := ""
	for _, e := range primary {
		if strings.Compare(e.Changed, last) > 0 {
			last = e.Changed
		}
	}
	for _, e := range extra {
		if strings.Compare(e.Changed, last) > 0 {
			last = e.Changed
		}
	}
	return last
}

func pad(s string) cdata {
	return cdata{" " + s + " "}
}

func padInt(n int) cdata {
	return pad(strconv.Itoa(n))
}
