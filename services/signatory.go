package services

import "strings"

// Role is a signature slot in the two-signature layout.
type Role int

const (
	RoleUnknown Role = iota
	RoleReviewed
	RoleAuthorized
)

func (r Role) String() string {
	switch r {
	case RoleReviewed:
		return "reviewed"
	case RoleAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Label is printed under a two-signature slot whose signatory has no title.
func (r Role) Label() string {
	switch r {
	case RoleReviewed:
		return "Reviewed By"
	case RoleAuthorized:
		return "Authorized By"
	default:
		return ""
	}
}

// TwoSignSlots holds at most one signatory per side of the two-signature block.
type TwoSignSlots struct {
	Reviewed   *Signatory
	Authorized *Signatory
}

// ClassifyByKeyword is the first pass: titles containing "review" are
// reviewers, titles containing "authoriz" are authorizers. Review wins when
// both appear.
func ClassifyByKeyword(title string) Role {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "review"):
		return RoleReviewed
	case strings.Contains(t, "authoriz"):
		return RoleAuthorized
	default:
		return RoleUnknown
	}
}

// RoleByPosition is the second pass for titles that match no keyword:
// even list positions review, odd positions authorize.
func RoleByPosition(index int) Role {
	if index%2 == 0 {
		return RoleReviewed
	}
	return RoleAuthorized
}

// PartitionForTwoSign assigns signatories to the reviewed/authorized slots.
// Only the first signatory landing on each side is kept.
func PartitionForTwoSign(signatories []Signatory) TwoSignSlots {
	var slots TwoSignSlots
	for i := range signatories {
		role := ClassifyByKeyword(signatories[i].Title)
		if role == RoleUnknown {
			role = RoleByPosition(i)
		}

		sig := signatories[i]
		switch role {
		case RoleReviewed:
			if slots.Reviewed == nil {
				slots.Reviewed = &sig
			}
		case RoleAuthorized:
			if slots.Authorized == nil {
				slots.Authorized = &sig
			}
		}
	}
	return slots
}
