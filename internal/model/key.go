package model

import "time"

// Role determines which operations an API key is authorized to perform.
// Stored keys carry one of admin, issuer, or reader. Bootstrap is a
// pseudo-role held only by the configuration-derived bootstrap credential;
// it is never persisted.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleIssuer    Role = "issuer"
	RoleReader    Role = "reader"
	RoleBootstrap Role = "bootstrap"
)

// StorableRoles are the role values a key record may carry.
var StorableRoles = []Role{RoleAdmin, RoleIssuer, RoleReader}

// ParseRole validates a role string against the storable role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleIssuer, RoleReader:
		return Role(s), true
	}
	return "", false
}

// BootstrapKeyID is the well-known identifier the bootstrap credential
// embeds as its JWT subject. No stored key ever uses this id.
const BootstrapKeyID = "bootstrap"

// Key is a stored API credential. The secret doubles as the HMAC signing
// secret for JWTs presented by this key; it is returned exactly once, in the
// creation response, and is excluded from every other serialization.
type Key struct {
	ID            string     `json:"keyId" db:"id"`
	Secret        string     `json:"-" db:"secret"`
	Role          Role       `json:"role" db:"role"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	Description   *string    `json:"description,omitempty" db:"description"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	CreatedBy     string     `json:"createdBy" db:"created_by"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
	UpdatedBy     *string    `json:"updatedBy,omitempty" db:"updated_by"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty" db:"deactivated_at"`
	DeactivatedBy *string    `json:"deactivatedBy,omitempty" db:"deactivated_by"`
}
