package screening

// Stats is the results-overview aggregate computed over a whole response.
type Stats struct {
	RecordsScreened int `json:"records_screened"`
	TotalHazards    int `json:"total_hazards"`
	UniqueOrganisms int `json:"unique_organisms"`
	TotalBasePairs  int `json:"total_base_pairs"`
}

// Stats computes the overview numbers. Unique organisms counts distinct
// most-likely names across all hazards, not the full candidate lists.
func (r *Response) Stats() Stats {
	s := Stats{RecordsScreened: len(r.HitsByRecord)}
	names := make(map[string]struct{})
	for _, rec := range r.HitsByRecord {
		s.TotalHazards += len(rec.Hazards)
		s.TotalBasePairs += rec.SequenceLength
		for _, h := range rec.Hazards {
			names[h.MostLikelyOrganism.Name] = struct{}{}
		}
	}
	s.UniqueOrganisms = len(names)
	return s
}
