package domain

import "time"

// APIKey authenticates a caller and scopes it to one tenant.
type APIKey struct {
	TokenHash string
	TenantID  string
	Name      string
	Active    bool
	CreatedAt time.Time
}
