package screening

import (
	"encoding/json"
	"fmt"
)

// Tag is the closed enumeration of hazard classification tags across three
// families: transmission pathway, risk categorization and regulatory list
// membership, plus two low-risk markers.
type Tag string

const (
	// Transmission pathways
	TagArthropodToHuman Tag = "ArthropodToHuman"
	TagHumanToHuman     Tag = "HumanToHuman"
	// Risk categorization
	TagPotentialPandemicPathogen Tag = "PotentialPandemicPathogen"
	// Regulatory lists
	TagAustraliaGroupHumanAnimalPathogen Tag = "AustraliaGroupHumanAnimalPathogen"
	TagAustraliaGroupPlantPathogen       Tag = "AustraliaGroupPlantPathogen"
	TagEuropeanUnion                     Tag = "EuropeanUnion"
	TagPRCExportControlPart1             Tag = "PRCExportControlPart1"
	TagPRCExportControlPart2             Tag = "PRCExportControlPart2"
	TagSelectAgentHhs                    Tag = "SelectAgentHhs"
	TagSelectAgentUsda                   Tag = "SelectAgentUsda"
	TagSelectAgentAphis                  Tag = "SelectAgentAphis"
	// Other classifications
	TagCommon           Tag = "Common"
	TagRegulatedButPass Tag = "RegulatedButPass"
)

// AllTags lists every member in display enumeration order.
var AllTags = []Tag{
	TagArthropodToHuman,
	TagHumanToHuman,
	TagPotentialPandemicPathogen,
	TagAustraliaGroupHumanAnimalPathogen,
	TagAustraliaGroupPlantPathogen,
	TagEuropeanUnion,
	TagPRCExportControlPart1,
	TagPRCExportControlPart2,
	TagSelectAgentHhs,
	TagSelectAgentUsda,
	TagSelectAgentAphis,
	TagCommon,
	TagRegulatedButPass,
}

func ParseTag(s string) (Tag, error) {
	t := Tag(s)
	if _, ok := tagLabels[t]; !ok {
		return "", fmt.Errorf("unknown tag: %q", s)
	}
	return t, nil
}

func (t *Tag) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTag(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Tier is the display risk tier of a tag.
type Tier string

const (
	TierHighRisk         Tier = "high_risk"
	TierElevated         Tier = "elevated"
	TierRegulatoryStrict Tier = "regulatory_strict"
	TierRegulatoryListed Tier = "regulatory_listed"
	TierLowRisk          Tier = "low_risk"
)

var tagTiers = map[Tag]Tier{
	TagHumanToHuman:                      TierHighRisk,
	TagPotentialPandemicPathogen:         TierHighRisk,
	TagArthropodToHuman:                  TierElevated,
	TagSelectAgentHhs:                    TierRegulatoryStrict,
	TagSelectAgentUsda:                   TierRegulatoryStrict,
	TagSelectAgentAphis:                  TierRegulatoryStrict,
	TagAustraliaGroupHumanAnimalPathogen: TierRegulatoryListed,
	TagAustraliaGroupPlantPathogen:       TierRegulatoryListed,
	TagEuropeanUnion:                     TierRegulatoryListed,
	TagPRCExportControlPart1:             TierRegulatoryListed,
	TagPRCExportControlPart2:             TierRegulatoryListed,
	TagCommon:                            TierLowRisk,
	TagRegulatedButPass:                  TierLowRisk,
}

var tagLabels = map[Tag]string{
	TagArthropodToHuman:                  "Arthropod → Human",
	TagHumanToHuman:                      "Human → Human",
	TagPotentialPandemicPathogen:         "Pandemic Potential",
	TagAustraliaGroupHumanAnimalPathogen: "Australia Group (Human/Animal)",
	TagAustraliaGroupPlantPathogen:       "Australia Group (Plant)",
	TagEuropeanUnion:                     "EU Regulated",
	TagPRCExportControlPart1:             "PRC Export Control (Part 1)",
	TagPRCExportControlPart2:             "PRC Export Control (Part 2)",
	TagSelectAgentHhs:                    "Select Agent (HHS)",
	TagSelectAgentUsda:                   "Select Agent (USDA)",
	TagSelectAgentAphis:                  "Select Agent (APHIS)",
	TagCommon:                            "Common",
	TagRegulatedButPass:                  "Regulated (Pass)",
}

// Both lookup tables must cover the whole enumeration. An unmapped tag is a
// construction-time defect, never a runtime fallback to the raw name.
func init() {
	for _, t := range AllTags {
		if _, ok := tagTiers[t]; !ok {
			panic(fmt.Sprintf("screening: tag %q has no tier", t))
		}
		if _, ok := tagLabels[t]; !ok {
			panic(fmt.Sprintf("screening: tag %q has no label", t))
		}
	}
	if len(tagTiers) != len(AllTags) || len(tagLabels) != len(AllTags) {
		panic("screening: tag tables out of sync with enumeration")
	}
}

// TierOf maps a tag to its display risk tier. Total over the enumeration.
func TierOf(t Tag) Tier { return tagTiers[t] }

// LabelOf maps a tag to its fixed human label. Total over the enumeration.
func LabelOf(t Tag) string { return tagLabels[t] }
