package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hazardFixture() HazardHits {
	flu := HitOrganism{
		Name:             "Influenza A virus",
		OrganismType:     OrganismVirus,
		AccessionNumbers: []string{"NC_002016.1"},
		Tags:             []Tag{TagHumanToHuman, TagPotentialPandemicPathogen},
	}
	fluVariant := HitOrganism{
		Name:             "Influenza A virus",
		OrganismType:     OrganismVirus,
		AccessionNumbers: []string{"NC_007373.1"},
		Tags:             []Tag{TagHumanToHuman},
	}
	ebola := HitOrganism{
		Name:             "Ebola virus",
		OrganismType:     OrganismVirus,
		AccessionNumbers: []string{"NC_002549.1"},
		Tags:             []Tag{TagHumanToHuman, TagSelectAgentHhs},
	}
	return HazardHits{
		Type:               HitTypeNucleotide,
		MostLikelyOrganism: flu,
		Organisms:          []HitOrganism{flu, fluVariant, ebola},
	}
}

func TestStructuredKeepsEveryCandidate(t *testing.T) {
	h := hazardFixture()
	v := Structured(h)

	// never merged or dropped, collisions included
	require.Len(t, v.Organisms, len(h.Organisms))
	for i, org := range v.Organisms {
		assert.Equal(t, i, org.Index)
		assert.Equal(t, h.Organisms[i].Name, org.Name)
	}
}

func TestStructuredFlags(t *testing.T) {
	v := Structured(hazardFixture())

	// exact duplicate of the primary: same name, no divergence
	assert.True(t, v.Organisms[0].SameNameAsPrimary)
	assert.False(t, v.Organisms[0].DivergesFromPrimary)

	// same name, different accessions and tags: flagged as diverging
	assert.True(t, v.Organisms[1].SameNameAsPrimary)
	assert.True(t, v.Organisms[1].DivergesFromPrimary)

	// different name never diverges, whatever its fields
	assert.False(t, v.Organisms[2].SameNameAsPrimary)
	assert.False(t, v.Organisms[2].DivergesFromPrimary)
}

func TestSummarizeFiltersPrimaryName(t *testing.T) {
	h := hazardFixture()
	v := Summarize(h)

	assert.Equal(t, h.MostLikelyOrganism, v.Primary)
	require.Len(t, v.Alternatives, 1)
	assert.Equal(t, "Ebola virus", v.Alternatives[0].Name)
}

func TestSummarizeKeepsOrderAndMultiplicity(t *testing.T) {
	marburg := HitOrganism{Name: "Marburg virus", OrganismType: OrganismVirus}
	lassa := HitOrganism{Name: "Lassa virus", OrganismType: OrganismVirus}
	h := HazardHits{
		MostLikelyOrganism: HitOrganism{Name: "Ebola virus", OrganismType: OrganismVirus},
		Organisms:          []HitOrganism{marburg, lassa, marburg},
	}

	v := Summarize(h)
	require.Len(t, v.Alternatives, 3)
	assert.Equal(t, "Marburg virus", v.Alternatives[0].Name)
	assert.Equal(t, "Lassa virus", v.Alternatives[1].Name)
	assert.Equal(t, "Marburg virus", v.Alternatives[2].Name)
}

func TestOrganismEqual(t *testing.T) {
	base := HitOrganism{
		Name:             "Bacillus anthracis",
		OrganismType:     OrganismBacterium,
		AccessionNumbers: []string{"A1", "A2"},
		Tags:             []Tag{TagSelectAgentHhs, TagAustraliaGroupHumanAnimalPathogen},
	}

	reorderedTags := base
	reorderedTags.Tags = []Tag{TagAustraliaGroupHumanAnimalPathogen, TagSelectAgentHhs}
	// tags compare as a set
	assert.True(t, base.Equal(reorderedTags))

	reorderedAns := base
	reorderedAns.AccessionNumbers = []string{"A2", "A1"}
	// accession numbers compare as an ordered sequence
	assert.False(t, base.Equal(reorderedAns))

	otherType := base
	otherType.OrganismType = OrganismToxin
	assert.False(t, base.Equal(otherType))

	extraTag := base
	extraTag.Tags = append([]Tag{TagCommon}, base.Tags...)
	assert.False(t, base.Equal(extraTag))
}

func TestOrganismDisplayLookups(t *testing.T) {
	for _, ot := range []OrganismType{OrganismVirus, OrganismToxin, OrganismBacterium, OrganismFungus} {
		assert.NotEmpty(t, IconOf(ot))
		assert.NotEmpty(t, ColorOf(ot))
	}
	assert.Equal(t, "red", ColorOf(OrganismVirus))
	assert.Equal(t, "purple", ColorOf(OrganismToxin))
}
