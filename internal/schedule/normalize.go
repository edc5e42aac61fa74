package schedule

import "strings"

// Normalize resolves every record's references against the catalog
// lookups. This is the single place reference-resolution policy lives:
// unresolved individual refs are dropped from joins, fully unresolved
// fields get their sentinel, and nothing here can fail.
func Normalize(programs []Program, authors map[int]Author, rooms map[int]Room, lines map[int]Line) []Entry {
	entries := make([]Entry, 0, len(programs))
	for _, p := range programs {
		entries = append(entries, normalizeOne(p, authors, rooms, lines))
	}
	return entries
}

func normalizeOne(p Program, authors map[int]Author, rooms map[int]Room, lines map[int]Line) Entry {
	e := Entry{
		Program:       p,
		LineNames:     Undefined,
		FirstLine:     Undefined,
		LocationLabel: Undefined,
		Color:         ColorUnresolved,
		SortWeight:    WeightUnresolved,
	}

	var names []string
	for _, uid := range p.Authors {
		if a, ok := authors[uid]; ok {
			names = append(names, a.Name)
		}
	}
	e.AuthorNames = strings.Join(names, ", ")

	var lineNames []string
	for _, tid := range p.Lines {
		ln, ok := lines[tid]
		if !ok {
			continue
		}
		lineNames = append(lineNames, ln.Name)
		if len(lineNames) == 1 {
			e.FirstLine = ln.Name
			if ln.Color != "" {
				e.Color = ln.Color
			}
		}
	}
	if len(lineNames) > 0 {
		e.LineNames = strings.Join(lineNames, ", ")
	}

	if room, ok := rooms[p.Location]; ok {
		e.LocationLabel = room.Name
		if room.Description != "" {
			e.LocationLabel += " (" + room.Description + ")"
		}
		e.SortWeight = room.Weight
	}

	return e
}
