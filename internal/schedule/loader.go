package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"confeed/internal/client/cms"
)

// ErrEditionNotFound is returned when the year has no matching edition
// in the CMS; it surfaces to clients as a 404.
var ErrEditionNotFound = errors.New("edition not found")

// isoMillis matches the upstream convention of UTC timestamps with
// milliseconds (JavaScript Date#toISOString); downstream consumers
// compare these strings lexicographically.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Loader fetches catalogs and schedule views from the CMS and maps
// them into canonical records.
type Loader struct {
	CMS *cms.Client
}

// Bundle is everything one feed invocation needs, loaded behind a
// join barrier. Reference catalogs are keyed lookups; duplicate keys
// in the source data overwrite last-wins.
type Bundle struct {
	Primary []Program
	Extra   []Program
	Authors map[int]Author
	Rooms   map[int]Room
	Lines   map[int]Line
}

// Load resolves the edition first (so an unknown year fails without
// touching the other endpoints), then fans the remaining fetches out
// concurrently. The extra schedule view is only fetched when the
// target dialect uses it.
func (l *Loader) Load(ctx context.Context, year int, withExtra bool) (*Bundle, error) {
	editionID, err := l.EditionID(ctx, year)
	if err != nil {
		return nil, err
	}

	b := &Bundle{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		b.Primary, err = l.Primary(ctx, year)
		return err
	})
	if withExtra {
		g.Go(func() error {
			var err error
			b.Extra, err = l.Extra(ctx, year)
			return err
		})
	}
	g.Go(func() error {
		authors, err := l.Authors(ctx, year)
		if err != nil {
			return err
		}
		b.Authors = make(map[int]Author, len(authors))
		for _, a := range authors {
			b.Authors[a.UID] = a
		}
		return nil
	})
	g.Go(func() error {
		rooms, err := l.Rooms(ctx, editionID)
		if err != nil {
			return err
		}
		b.Rooms = make(map[int]Room, len(rooms))
		for _, r := range rooms {
			b.Rooms[r.TID] = r
		}
		return nil
	})
	g.Go(func() error {
		lines, err := l.Lines(ctx, editionID)
		if err != nil {
			return err
		}
		b.Lines = make(map[int]Line, len(lines))
		for _, ln := range lines {
			b.Lines[ln.TID] = ln
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// EditionID maps a human-facing year to the internal edition taxonomy
// id required by the room and line catalogs.
func (l *Loader) EditionID(ctx context.Context, year int) (int, error) {
	var doc struct {
		Data []struct {
			Attributes struct {
				TID int `json:"drupal_internal__tid"`
			} `json:"attributes"`
		} `json:"data"`
	}
	query := url.Values{}
	query.Set("filter[name]", strconv.Itoa(year))
	query.Set("fields[taxonomy_term--rocnik]", "drupal_internal__tid")
	if err := l.CMS.Get(ctx, "edition", "/taxonomy_term/rocnik", query, &doc); err != nil {
		return 0, err
	}
	if len(doc.Data) == 0 {
		return 0, fmt.Errorf("%w for year %d", ErrEditionNotFound, year)
	}
	return doc.Data[0].Attributes.TID, nil
}

func (l *Loader) Authors(ctx context.Context, year int) ([]Author, error) {
	var doc struct {
		Data []struct {
			Attributes struct {
				UID         int    `json:"drupal_internal__uid"`
				DisplayName string `json:"field_displayname"`
				Name        string `json:"field_meno"`
			} `json:"attributes"`
		} `json:"data"`
	}
	query := url.Values{}
	query.Set("views-argument[0]", strconv.Itoa(year))
	query.Set("fields[user--user]", "drupal_internal__uid,field_displayname,field_meno")
	if err := l.CMS.Get(ctx, "authors", "/views/users/guests_page", query, &doc); err != nil {
		return nil, err
	}
	authors := make([]Author, 0, len(doc.Data))
	for _, res := range doc.Data {
		name := res.Attributes.DisplayName
		if name == "" {
			name = res.Attributes.Name
		}
		authors = append(authors, Author{UID: res.Attributes.UID, Name: name})
	}
	return authors, nil
}

func (l *Loader) Rooms(ctx context.Context, editionID int) ([]Room, error) {
	var doc struct {
		Data []struct {
			Attributes struct {
				TID         int    `json:"drupal_internal__tid"`
				Name        string `json:"name"`
				Description *struct {
					Processed string `json:"processed"`
				} `json:"description"`
				Weight int `json:"weight"`
			} `json:"attributes"`
		} `json:"data"`
	}
	query := url.Values{}
	query.Set("filter[field_rocnik.meta.drupal_internal__target_id]", strconv.Itoa(editionID))
	query.Set("fields[taxonomy_term--miestnosti]", "drupal_internal__tid,name,description,weight")
	if err := l.CMS.Get(ctx, "rooms", "/taxonomy_term/miestnosti", query, &doc); err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(doc.Data))
	for _, res := range doc.Data {
		room := Room{
			TID:    res.Attributes.TID,
			Name:   res.Attributes.Name,
			Weight: res.Attributes.Weight,
		}
		if res.Attributes.Description != nil {
			room.Description = res.Attributes.Description.Processed
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (l *Loader) Lines(ctx context.Context, editionID int) ([]Line, error) {
	var doc struct {
		Data []struct {
			Attributes struct {
				TID   int    `json:"drupal_internal__tid"`
				Name  string `json:"name"`
				Color *struct {
					Color string `json:"color"`
				} `json:"field_color"`
				Weight       int  `json:"weight"`
				ExtraProgram bool `json:"field_extra_program"`
			} `json:"attributes"`
		} `json:"data"`
	}
	query := url.Values{}
	query.Set("filter[field_rocnik.meta.drupal_internal__target_id]", strconv.Itoa(editionID))
	query.Set("fields[taxonomy_term--anotacie]", "drupal_internal__tid,name,field_color,weight,field_extra_program")
	if err := l.CMS.Get(ctx, "lines", "/taxonomy_term/anotacie", query, &doc); err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(doc.Data))
	for _, res := range doc.Data {
		line := Line{
			TID:          res.Attributes.TID,
			Name:         res.Attributes.Name,
			Weight:       res.Attributes.Weight,
			ExtraProgram: res.Attributes.ExtraProgram,
		}
		if res.Attributes.Color != nil {
			line.Color = res.Attributes.Color.Color
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Primary returns the timed schedule; nodes without a start time are
// unscheduled placeholders and are dropped here.
func (l *Loader) Primary(ctx context.Context, year int) ([]Program, error) {
	programs, err := l.schedule(ctx, "schedule", "/views/program/program_page", year)
	if err != nil {
		return nil, err
	}
	timed := programs[:0]
	for _, p := range programs {
		if p.StartTime != "" {
			timed = append(timed, p)
		}
	}
	return timed, nil
}

// Extra returns the bonus program view; entries may legitimately lack
// a start time and are kept either way.
func (l *Loader) Extra(ctx context.Context, year int) ([]Program, error) {
	return l.schedule(ctx, "extra schedule", "/views/program/extra_program", year)
}

type programNode struct {
	Attributes struct {
		NID      int    `json:"drupal_internal__nid"`
		Title    string `json:"title"`
		Start    string `json:"field_start"`
		Duration int    `json:"field_dlzka"`
		Body     struct {
			Processed string `json:"processed"`
			Summary   string `json:"summary"`
		} `json:"body"`
		Highlight bool   `json:"field_highlight"`
		Changed   string `json:"changed"`
		Metatag   []struct {
			Attributes struct {
				Name    string `json:"name"`
				Content string `json:"content"`
			} `json:"attributes"`
		} `json:"metatag"`
	} `json:"attributes"`
	Relationships struct {
		Guests   cms.Relationship `json:"field_guest"`
		Types    cms.Relationship `json:"field_type"`
		Lines    cms.Relationship `json:"field_category"`
		Location cms.Relationship `json:"field_miestnost"`
	} `json:"relationships"`
}

const scheduleFields = "drupal_internal__nid,title,field_start,field_dlzka,body,field_highlight,changed,metatag,field_guest,field_type,field_category,field_miestnost"

func (l *Loader) schedule(ctx context.Context, resource, endpoint string, year int) ([]Program, error) {
	var doc struct {
		Data []programNode `json:"data"`
	}
	query := url.Values{}
	query.Set("views-argument[0]", strconv.Itoa(year))
	query.Set("fields[node--program]", scheduleFields)
	if err := l.CMS.Get(ctx, resource, endpoint, query, &doc); err != nil {
		return nil, err
	}
	programs := make([]Program, 0, len(doc.Data))
	for _, node := range doc.Data {
		p, err := mapProgram(node)
		if err != nil {
			return nil, fmt.Errorf("%s node %d: %w", resource, node.Attributes.NID, err)
		}
		programs = append(programs, p)
	}
	return programs, nil
}

func mapProgram(node programNode) (Program, error) {
	attrs := node.Attributes
	p := Program{
		PID:        attrs.NID,
		Title:      attrs.Title,
		Annotation: attrs.Body.Processed,
		Highlight:  attrs.Highlight,
		Authors:    node.Relationships.Guests.TargetIDs(),
		Lines:      node.Relationships.Lines.TargetIDs(),
		Summary:    summaryOf(node),
	}
	for _, tid := range node.Relationships.Types.TargetIDs() {
		p.Types = append(p.Types, ProgramType(tid))
	}
	if loc, ok := node.Relationships.Location.TargetID(); ok {
		p.Location = loc
	}
	if attrs.Start != "" {
		start, err := time.Parse(time.RFC3339, attrs.Start)
		if err != nil {
			return Program{}, fmt.Errorf("parse start time %q: %w", attrs.Start, err)
		}
		p.StartTime = start.UTC().Format(isoMillis)
		p.EndTime = start.Add(time.Duration(attrs.Duration) * time.Minute).UTC().Format(isoMillis)
	}
	if attrs.Changed != "" {
		changed, err := time.Parse(time.RFC3339, attrs.Changed)
		if err != nil {
			return Program{}, fmt.Errorf("parse changed time %q: %w", attrs.Changed, err)
		}
		p.Changed = changed.UTC().Format(isoMillis)
	}
	return p, nil
}

// summaryOf implements the teaser fallback: explicit body summary,
// then the "description" metatag, then the full annotation body.
func summaryOf(node programNode) string {
	if node.Attributes.Body.Summary != "" {
		return node.Attributes.Body.Summary
	}
	for _, tag := range node.Attributes.Metatag {
		if tag.Attributes.Name == "description" {
			return tag.Attributes.Content
		}
	}
	return node.Attributes.Body.Processed
}
