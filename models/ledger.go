package models

import "sort"

const (
	subjectScopePrefix  = "subject:"
	resourceScopePrefix = "resource:"
)

// ScopeLedger holds the version token of one subject's or resource's busy set.
type ScopeLedger struct {
	Scope   string `bson:"_id" json:"scope"`
	Version int64  `bson:"version" json:"version"`
}

func SubjectScope(subjectID string) string   { return subjectScopePrefix + subjectID }
func ResourceScope(resourceID string) string { return resourceScopePrefix + resourceID }

// ScopesFor returns sorted, de-duplicated ledger keys.
func ScopesFor(subjectIDs []string, resourceID string) []string {
	seen := make(map[string]bool, len(subjectIDs)+1)
	scopes := make([]string, 0, len(subjectIDs)+1)
	for _, s := range subjectIDs {
		key := SubjectScope(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		scopes = append(scopes, key)
	}
	if resourceID != "" {
		scopes = append(scopes, ResourceScope(resourceID))
	}
	sort.Strings(scopes)
	return scopes
}

// Reservation is the unit written atomically by the reserve step.
// Every ledger in Versions must still hold the recorded version; a version of 0 means the ledger
// did not exist when read. Supersedes, when set, is written conditioned on SupersedesVersion.
type Reservation struct {
	Booking           *Booking
	Versions          map[string]int64
	Supersedes        *Booking
	SupersedesVersion int64
}
