package screening

// The two interpretive views of a hazard are always derived fresh from the
// response; nothing here mutates the source.

// AnnotatedOrganism is one candidate-list entry in the structured view,
// flagged relative to the most-likely organism.
type AnnotatedOrganism struct {
	HitOrganism
	Index               int  `json:"index"`
	SameNameAsPrimary   bool `json:"same_name_as_primary"`
	DivergesFromPrimary bool `json:"diverges_from_primary"`
}

// StructuredView shows every candidate organism exactly as returned by the
// engine. Entries are never merged or dropped: len(Organisms) always equals
// the length of the hazard's candidate list, name collisions included.
type StructuredView struct {
	Primary   HitOrganism         `json:"primary"`
	Organisms []AnnotatedOrganism `json:"organisms"`
}

// Structured derives the structured projection of one hazard.
func Structured(h HazardHits) StructuredView {
	v := StructuredView{
		Primary:   h.MostLikelyOrganism,
		Organisms: make([]AnnotatedOrganism, 0, len(h.Organisms)),
	}
	for i, org := range h.Organisms {
		sameName := org.Name == h.MostLikelyOrganism.Name
		v.Organisms = append(v.Organisms, AnnotatedOrganism{
			HitOrganism:         org,
			Index:               i,
			SameNameAsPrimary:   sameName,
			DivergesFromPrimary: sameName && !org.Equal(h.MostLikelyOrganism),
		})
	}
	return v
}

// SummaryView shows the primary match plus only those candidates whose name
// differs from the primary's. It does not deduplicate the alternatives among
// themselves; two alternatives sharing a name are both shown.
type SummaryView struct {
	Primary      HitOrganism   `json:"primary"`
	Alternatives []HitOrganism `json:"alternatives"`
}

// Summarize derives the summary projection of one hazard, preserving the
// original relative order of the alternatives.
func Summarize(h HazardHits) SummaryView {
	v := SummaryView{
		Primary:      h.MostLikelyOrganism,
		Alternatives: make([]HitOrganism, 0, len(h.Organisms)),
	}
	for _, org := range h.Organisms {
		if org.Name != h.MostLikelyOrganism.Name {
			v.Alternatives = append(v.Alternatives, org)
		}
	}
	return v
}
