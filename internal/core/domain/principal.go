package domain

// Principal is the identity resolved from a bearer token for the duration of
// a single request. ID is the identity-provider subject, which user rows
// reference through their auth_id column.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
