package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryTagHasTierAndLabel(t *testing.T) {
	require.Len(t, AllTags, 13)

	seenLabels := make(map[string]struct{})
	for _, tag := range AllTags {
		assert.NotEmpty(t, TierOf(tag), "tag %q has no tier", tag)
		label := LabelOf(tag)
		assert.NotEmpty(t, label, "tag %q has no label", tag)
		// labels are distinct per tag
		_, dup := seenLabels[label]
		assert.False(t, dup, "label %q reused", label)
		seenLabels[label] = struct{}{}
	}
}

func TestTagTiers(t *testing.T) {
	cases := []struct {
		tag  Tag
		tier Tier
	}{
		{TagHumanToHuman, TierHighRisk},
		{TagPotentialPandemicPathogen, TierHighRisk},
		{TagArthropodToHuman, TierElevated},
		{TagSelectAgentHhs, TierRegulatoryStrict},
		{TagSelectAgentUsda, TierRegulatoryStrict},
		{TagSelectAgentAphis, TierRegulatoryStrict},
		{TagAustraliaGroupHumanAnimalPathogen, TierRegulatoryListed},
		{TagAustraliaGroupPlantPathogen, TierRegulatoryListed},
		{TagEuropeanUnion, TierRegulatoryListed},
		{TagPRCExportControlPart1, TierRegulatoryListed},
		{TagPRCExportControlPart2, TierRegulatoryListed},
		{TagCommon, TierLowRisk},
		{TagRegulatedButPass, TierLowRisk},
	}
	require.Len(t, cases, len(AllTags))
	for _, c := range cases {
		assert.Equal(t, c.tier, TierOf(c.tag), "tag %q", c.tag)
	}
}

func TestParseTagRejectsUnknown(t *testing.T) {
	_, err := ParseTag("SelectAgentHhs")
	assert.NoError(t, err)

	_, err = ParseTag("BrandNewListing")
	assert.Error(t, err)

	_, err = ParseTag("")
	assert.Error(t, err)
}
