package session

import (
	"errors"

	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
	domsession "github.com/bryanwahyu/synthscreen/internal/domain/session"
)

// ErrNoResult: the session has no settled result to render.
var ErrNoResult = errors.New("no settled result")

// NoticeView is a rendered warning or error entry from the response.
type NoticeView struct {
	Title     string               `json:"title"`
	Detail    string               `json:"detail"`
	LineRange *screening.LineRange `json:"line_range,omitempty"`
}

// HazardView is one hazard row. Projections are attached only when the
// hazard is expanded, and only the projection matching the current view mode.
type HazardView struct {
	Key          domsession.HazardKey      `json:"key"`
	Type         screening.HitType         `json:"type"`
	IsWildType   *bool                     `json:"is_wild_type"`
	OrganismName string                    `json:"organism_name"`
	OrganismType screening.OrganismType    `json:"organism_type"`
	Icon         string                    `json:"icon"`
	Color        string                    `json:"color"`
	RegionCount  int                       `json:"region_count"`
	RegionSpan   int                       `json:"region_span"`
	Expanded     bool                      `json:"expanded"`
	Summary      *screening.SummaryView    `json:"summary,omitempty"`
	Structured   *screening.StructuredView `json:"structured,omitempty"`
	HitRegions   []screening.HitRegion     `json:"hit_regions,omitempty"`
}

// RecordView is one input record row. Hazards render only when expanded.
type RecordView struct {
	Header         string              `json:"header"`
	LineRange      screening.LineRange `json:"line_range"`
	SequenceLength int                 `json:"sequence_length"`
	HazardCount    int                 `json:"hazard_count"`
	Expanded       bool                `json:"expanded"`
	Hazards        []HazardView        `json:"hazards,omitempty"`
}

// ResultView is the full rendered result for the current view mode and
// expansion state. Always derived fresh from the immutable response.
type ResultView struct {
	Permission        screening.Permission `json:"permission"`
	ProviderReference string               `json:"provider_reference,omitempty"`
	ViewMode          domsession.ViewMode  `json:"view_mode"`
	Stats             screening.Stats      `json:"stats"`
	Warnings          []NoticeView         `json:"warnings"`
	Errors            []NoticeView         `json:"errors"`
	Records           []RecordView         `json:"records"`
}

// Render projects the settled response into the consumer-facing view.
func (c *Controller) Render() (*ResultView, error) {
	c.mu.Lock()
	resp := c.result
	view := c.view
	expansion := c.expansion
	c.mu.Unlock()

	if resp == nil {
		return nil, ErrNoResult
	}

	out := &ResultView{
		Permission:        resp.SynthesisPermission,
		ProviderReference: resp.ProviderReference,
		ViewMode:          view,
		Stats:             resp.Stats(),
		Warnings:          make([]NoticeView, 0, len(resp.Warnings)),
		Errors:            make([]NoticeView, 0, len(resp.Errors)),
		Records:           make([]RecordView, 0, len(resp.HitsByRecord)),
	}
	for _, w := range resp.Warnings {
		out.Warnings = append(out.Warnings, NoticeView{
			Title: w.Title(), Detail: w.AdditionalInfo, LineRange: w.LineRange,
		})
	}
	for _, e := range resp.Errors {
		out.Errors = append(out.Errors, NoticeView{
			Title: e.Title(), Detail: e.AdditionalInfo, LineRange: e.LineRange,
		})
	}
	for ri, rec := range resp.HitsByRecord {
		rv := RecordView{
			Header:         rec.DisplayHeader(ri),
			LineRange:      rec.LineRange,
			SequenceLength: rec.SequenceLength,
			HazardCount:    len(rec.Hazards),
			Expanded:       expansion.RecordExpanded(ri),
		}
		if rv.Expanded {
			rv.Hazards = make([]HazardView, 0, len(rec.Hazards))
			for hi, h := range rec.Hazards {
				key := domsession.HazardKey{Record: ri, Hazard: hi}
				hv := HazardView{
					Key:          key,
					Type:         h.Type,
					IsWildType:   h.IsWildType,
					OrganismName: h.MostLikelyOrganism.Name,
					OrganismType: h.MostLikelyOrganism.OrganismType,
					Icon:         screening.IconOf(h.MostLikelyOrganism.OrganismType),
					Color:        screening.ColorOf(h.MostLikelyOrganism.OrganismType),
					RegionCount:  len(h.HitRegions),
					RegionSpan:   h.RegionSpan(),
					Expanded:     expansion.HazardExpanded(key),
				}
				if hv.Expanded {
					hv.HitRegions = h.HitRegions
					switch view {
					case domsession.ViewStructured:
						sv := screening.Structured(h)
						hv.Structured = &sv
					default:
						sv := screening.Summarize(h)
						hv.Summary = &sv
					}
				}
				rv.Hazards = append(rv.Hazards, hv)
			}
		}
		out.Records = append(out.Records, rv)
	}
	return out, nil
}

// Export returns the settled response for the lossless JSON download,
// together with its artifact file name.
func (c *Controller) Export() (*screening.Response, string, error) {
	c.mu.Lock()
	resp := c.result
	id := c.runID
	c.mu.Unlock()

	if resp == nil {
		return nil, "", ErrNoResult
	}
	return resp, "securedna-results-" + string(id) + ".json", nil
}
