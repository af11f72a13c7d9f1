package models

import (
	"fmt"

	"github.com/google/uuid"
)

// OffenseType is the severity tier of an offense.
type OffenseType string

const (
	Felony      OffenseType = "Felony"
	Misdemeanor OffenseType = "Misdemeanor"
	Infraction  OffenseType = "Infraction"
)

// Jurisdiction identifies which code an offense was charged under.
type Jurisdiction string

const (
	JurisdictionFederal Jurisdiction = "federal"
	JurisdictionState   Jurisdiction = "state"
)

// Offense is a reusable offense definition. Federal and state offenses live in
// disjoint tables but share this shape; an offense is deduplicated on the
// (type, class, description) triple within its jurisdiction.
type Offense struct {
	ID          uuid.UUID   `json:"id"`
	Type        OffenseType `json:"type"`
	Class       string      `json:"class"`
	Description string      `json:"description"`
}

// federalClasses and stateClasses are the closed class-code sets per
// jurisdiction. "NA" is the infraction placeholder in both codes.
var federalClasses = map[string]bool{
	"A": true, "B": true, "C": true, "D": true, "E": true, "NA": true,
}

var stateClasses = map[string]bool{
	"1": true, "2": true, "3": true, "4": true, "5": true, "6": true, "NA": true,
}

// ClassCodes returns the ordered class codes for a jurisdiction, used to build
// sub-classified views in a stable order.
func ClassCodes(j Jurisdiction) []string {
	if j == JurisdictionFederal {
		return []string{"A", "B", "C", "D", "E", "NA"}
	}
	return []string{"1", "2", "3", "4", "5", "6", "NA"}
}

// ClassLabel returns the display label for a class code ("Class A",
// "Infraction" for NA).
func ClassLabel(code string) string {
	if code == "NA" {
		return "Infraction"
	}
	return "Class " + code
}

// ValidOffenseType reports whether t is one of the known severity tiers.
func ValidOffenseType(t OffenseType) bool {
	switch t {
	case Felony, Misdemeanor, Infraction:
		return true
	}
	return false
}

// ValidOffense checks the (type, class) combination for a jurisdiction.
// The class lists are closed; validation happens here, server-side, regardless
// of what any client form offered.
func ValidOffense(j Jurisdiction, t OffenseType, class string) bool {
	if !ValidOffenseType(t) {
		return false
	}
	switch j {
	case JurisdictionFederal:
		return federalClasses[class]
	case JurisdictionState:
		return stateClasses[class]
	}
	return false
}

// ParseJurisdiction maps an offense source string to a jurisdiction.
// "virginia" is accepted as a legacy alias for the state code, matching the
// CSV import format.
func ParseJurisdiction(source string) (Jurisdiction, error) {
	switch source {
	case "federal":
		return JurisdictionFederal, nil
	case "state", "virginia":
		return JurisdictionState, nil
	}
	return "", fmt.Errorf("unknown offense source %q", source)
}
