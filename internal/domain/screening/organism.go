package screening

import (
	"encoding/json"
	"fmt"
)

// OrganismType enum
type OrganismType string

const (
	OrganismVirus     OrganismType = "Virus"
	OrganismToxin     OrganismType = "Toxin"
	OrganismBacterium OrganismType = "Bacterium"
	OrganismFungus    OrganismType = "Fungus"
)

var allOrganismTypes = []OrganismType{
	OrganismVirus, OrganismToxin, OrganismBacterium, OrganismFungus,
}

func ParseOrganismType(s string) (OrganismType, error) {
	switch OrganismType(s) {
	case OrganismVirus, OrganismToxin, OrganismBacterium, OrganismFungus:
		return OrganismType(s), nil
	}
	return "", fmt.Errorf("unknown organism type: %q", s)
}

func (t *OrganismType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseOrganismType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

var organismIcons = map[OrganismType]string{
	OrganismVirus:     "🦠",
	OrganismToxin:     "☠️",
	OrganismBacterium: "🔬",
	OrganismFungus:    "🍄",
}

var organismColors = map[OrganismType]string{
	OrganismVirus:     "red",
	OrganismToxin:     "purple",
	OrganismBacterium: "blue",
	OrganismFungus:    "green",
}

func init() {
	for _, t := range allOrganismTypes {
		if _, ok := organismIcons[t]; !ok {
			panic(fmt.Sprintf("screening: organism type %q has no icon", t))
		}
		if _, ok := organismColors[t]; !ok {
			panic(fmt.Sprintf("screening: organism type %q has no color", t))
		}
	}
}

// IconOf maps an organism type to its display icon. Total 4-way lookup.
func IconOf(t OrganismType) string { return organismIcons[t] }

// ColorOf maps an organism type to its display color. Total 4-way lookup.
func ColorOf(t OrganismType) string { return organismColors[t] }

// Equal reports field-for-field structural equality between two candidate
// organisms: accession numbers compare as an ordered sequence, tags compare
// as a set. Two organisms with the same tags in different order are equal.
func (o HitOrganism) Equal(other HitOrganism) bool {
	if o.Name != other.Name || o.OrganismType != other.OrganismType {
		return false
	}
	if len(o.AccessionNumbers) != len(other.AccessionNumbers) {
		return false
	}
	for i := range o.AccessionNumbers {
		if o.AccessionNumbers[i] != other.AccessionNumbers[i] {
			return false
		}
	}
	return tagSetEqual(o.Tags, other.Tags)
}

func tagSetEqual(a, b []Tag) bool {
	as := make(map[Tag]struct{}, len(a))
	for _, t := range a {
		as[t] = struct{}{}
	}
	bs := make(map[Tag]struct{}, len(b))
	for _, t := range b {
		bs[t] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for t := range as {
		if _, ok := bs[t]; !ok {
			return false
		}
	}
	return true
}
