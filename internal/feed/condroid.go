// Package feed renders normalized schedule entries into the downstream
// feed formats. Tag names and attribute casing are load-bearing: the
// consuming apps pattern-match on them.
package feed

import (
	"encoding/xml"

	"confeed/internal/schedule"
)

// cdata wraps free-text values that may contain markup-unsafe
// characters; enumerated and numeric fields are emitted bare.
type cdata struct {
	Value string `xml:",cdata"`
}

// Letter codes of the compact dialect's program-type vocabulary.
const (
	condroidTalk        = "P"
	condroidDiscussion  = "B"
	condroidWorkshop    = "W"
	condroidQuiz        = "Q"
	condroidPerformance = "C"
	condroidCompetition = "G"
)

var condroidTypes = map[schedule.ProgramType]string{
	schedule.TypeTalk:        condroidTalk,
	schedule.TypeDiscussion:  condroidDiscussion,
	schedule.TypeWorkshop:    condroidWorkshop,
	schedule.TypeGame:        condroidQuiz,
	schedule.TypePerformance: condroidPerformance,
	schedule.TypeCompetition: condroidCompetition,
	schedule.TypeOther:       condroidTalk,
}

type condroidDocument struct {
	XMLName    xml.Name            `xml:"annotations"`
	Programmes []condroidProgramme `xml:"programme"`
}

type condroidProgramme struct {
	PID        int    `xml:"pid"`
	Author     cdata  `xml:"author"`
	Title      cdata  `xml:"title"`
	Type       string `xml:"type"`
	Line       cdata  `xml:"program-line"`
	Location   string `xml:"location"`
	StartTime  string `xml:"start-time"`
	EndTime    string `xml:"end-time"`
	Annotation cdata  `xml:"annotation"`
}

// Condroid renders the compact flat feed. Timestamps pass through
// verbatim, only the first resolved program line is shown, and empty
// author lists fall back to the UNDEFINED sentinel.
func Condroid(entries []schedule.Entry) ([]byte, error) {
	doc := condroidDocument{Programmes: make([]condroidProgramme, 0, len(entries))}
	for _, e := range entries {
		author := e.AuthorNames
		if author == "" {
			author = schedule.Undefined
		}
		doc.Programmes = append(doc.Programmes, condroidProgramme{
			PID:        e.PID,
			Author:     cdata{author},
			Title:      cdata{e.Title},
			Type:       condroidType(e.Types),
			Line:       cdata{e.FirstLine},
			Location:   e.LocationLabel,
			StartTime:  e.StartTime,
			EndTime:    e.EndTime,
			Annotation: cdata{e.Annotation},
		})
	}
	return xml.MarshalIndent(doc, "", "  ")
}

// condroidType maps the first type code into the letter vocabulary;
// unknown codes and untyped records default to a talk.
func condroidType(types []schedule.ProgramType) string {
	if len(types) == 0 {
		return condroidTalk
	}
	if code, ok := condroidTypes[types[0]]; ok {
		return code
	}
	return condroidTalk
}
