package domain

import (
	"strings"
	"unicode"
)

// Company is a row in the "companies" table.
//
// OwnerID and ManagerID are back-references that must stay consistent with
// the role on the referenced user row. UpdatedAt is kept as the verbatim
// string returned by the store so it can be replayed as an equality filter
// on conditional writes (optimistic concurrency token).
type Company struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Domain    string  `json:"domain"`
	OwnerID   *string `json:"owner_id"`
	ManagerID *string `json:"manager_id"`
	UpdatedAt string  `json:"updated_at"`
}

// EmailDomain extracts the domain part of an email address, lowercased.
// Returns "" when the address has no usable domain.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// CompanyNameFromDomain derives a display name from a company domain.
//
// The domain is split on "."; when the last two labels are both three
// characters or fewer (patterns like "acme.co.uk") the third-from-last label
// is the name, otherwise the second-from-last. The first letter is
// capitalised. A bare label is returned capitalised as-is.
func CompanyNameFromDomain(domain string) string {
	labels := strings.Split(domain, ".")
	name := labels[0]
	if n := len(labels); n >= 2 {
		name = labels[n-2]
		if n >= 3 && len(labels[n-1]) <= 3 && len(labels[n-2]) <= 3 {
			name = labels[n-3]
		}
	}
	return capitalize(name)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
