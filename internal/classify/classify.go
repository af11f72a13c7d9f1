// Package classify computes the highest-priority offense for a person and
// groups people into the categorized views. It is pure: callers load persons
// with their offense links and pass them in.
package classify

import (
	"casefile/internal/models"
)

// offensePriority maps severity tiers to scores, descending. Types absent
// from this map score 0 and are never selected.
var offensePriority = map[models.OffenseType]int{
	models.Felony:      3,
	models.Misdemeanor: 2,
	models.Infraction:  1,
}

// Priority returns the score for an offense type (0 for unknown types).
func Priority(t models.OffenseType) int {
	return offensePriority[t]
}

// Classification is the highest-priority offense of a person. A zero Score
// means the person has no classifiable offense and is excluded from every
// categorized view.
type Classification struct {
	Score        int
	Jurisdiction models.Jurisdiction
	Offense      *models.Offense
}

// Highest scans the links in order and keeps the first link whose score
// strictly exceeds the best seen so far. Ties keep the earlier link; callers
// pass links in creation order, which pins the tie-break.
func Highest(links []*models.OffenseLink) Classification {
	var best Classification
	for _, link := range links {
		if !link.HasOffense() {
			continue
		}
		score := offensePriority[link.Offense.Type]
		if score > best.Score {
			best = Classification{
				Score:        score,
				Jurisdiction: link.Jurisdiction,
				Offense:      link.Offense,
			}
		}
	}
	return best
}

// ClassifiedPerson pairs a person with their highest offense for display.
type ClassifiedPerson struct {
	Person  *models.Person  `json:"person"`
	Offense *models.Offense `json:"offense"`
}

// Category identifies one of the six top-level buckets.
type Category struct {
	Jurisdiction models.Jurisdiction
	Type         models.OffenseType
}

// Key is the stable identifier used in route paths and page query parameters,
// e.g. "federal_felons".
func (c Category) Key() string {
	return string(c.Jurisdiction) + "_" + categoryTypeSuffix(c.Type)
}

// Label is the display name, e.g. "Federal Felons".
func (c Category) Label() string {
	var j string
	if c.Jurisdiction == models.JurisdictionFederal {
		j = "Federal"
	} else {
		j = "State"
	}
	switch c.Type {
	case models.Felony:
		return j + " Felons"
	case models.Misdemeanor:
		return j + " Misdemeanors"
	default:
		return j + " Infractions"
	}
}

func categoryTypeSuffix(t models.OffenseType) string {
	switch t {
	case models.Felony:
		return "felons"
	case models.Misdemeanor:
		return "misdemeanors"
	default:
		return "infractions"
	}
}

// Categories returns the six buckets in display order.
func Categories() []Category {
	return []Category{
		{models.JurisdictionFederal, models.Felony},
		{models.JurisdictionFederal, models.Misdemeanor},
		{models.JurisdictionFederal, models.Infraction},
		{models.JurisdictionState, models.Felony},
		{models.JurisdictionState, models.Misdemeanor},
		{models.JurisdictionState, models.Infraction},
	}
}

// Categorize places each person into exactly one bucket, the one matching
// their highest offense's jurisdiction and type. Persons with no classifiable
// offense appear in no bucket.
func Categorize(people []*models.PersonWithLinks) map[Category][]ClassifiedPerson {
	out := make(map[Category][]ClassifiedPerson, 6)
	for _, cat := range Categories() {
		out[cat] = nil
	}
	for _, p := range people {
		c := Highest(p.Links)
		if c.Offense == nil {
			continue
		}
		cat := Category{Jurisdiction: c.Jurisdiction, Type: c.Offense.Type}
		out[cat] = append(out[cat], ClassifiedPerson{Person: p.Person, Offense: c.Offense})
	}
	return out
}

// ClassGroup is one class-code bucket within a jurisdiction+type view.
type ClassGroup struct {
	Class   string // "" for the unknown-class bucket
	Label   string
	Persons []ClassifiedPerson
}

// UnknownClassLabel is the bucket for offenses with a missing class code.
const UnknownClassLabel = "Unknown Class"

// ByClass filters people to those whose highest offense matches the category,
// then groups them by the offense's class code. Offenses with an empty class
// fall into an explicit "Unknown Class" group rather than being dropped.
// Groups follow the jurisdiction's class-code order, with the unknown group
// last; empty groups are omitted.
func ByClass(people []*models.PersonWithLinks, cat Category) []ClassGroup {
	byCode := make(map[string][]ClassifiedPerson)
	for _, p := range people {
		c := Highest(p.Links)
		if c.Offense == nil || c.Jurisdiction != cat.Jurisdiction || c.Offense.Type != cat.Type {
			continue
		}
		byCode[c.Offense.Class] = append(byCode[c.Offense.Class], ClassifiedPerson{Person: p.Person, Offense: c.Offense})
	}

	groups := make([]ClassGroup, 0, len(byCode))
	for _, code := range models.ClassCodes(cat.Jurisdiction) {
		if persons, ok := byCode[code]; ok && len(persons) > 0 {
			groups = append(groups, ClassGroup{Class: code, Label: models.ClassLabel(code), Persons: persons})
			delete(byCode, code)
		}
	}
	if persons, ok := byCode[""]; ok && len(persons) > 0 {
		groups = append(groups, ClassGroup{Class: "", Label: UnknownClassLabel, Persons: persons})
	}
	return groups
}
