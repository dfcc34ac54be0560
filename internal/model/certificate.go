package model

import "time"

// Certificate is an event-participation record. Certificates are never
// hard-deleted; revocation sets the revoked flag and audit fields so the
// code remains resolvable (as invalid) by the public lookup.
type Certificate struct {
	Code          string     `json:"code" db:"code"`
	RecipientName string     `json:"recipientName" db:"recipient_name"`
	EventName     string     `json:"eventName" db:"event_name"`
	EventDate     string     `json:"eventDate,omitempty" db:"event_date"`
	IssuedAt      time.Time  `json:"issuedAt" db:"issued_at"`
	IssuedBy      string     `json:"issuedBy" db:"issued_by"`
	Revoked       bool       `json:"revoked" db:"revoked"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
	RevokedBy     *string    `json:"revokedBy,omitempty" db:"revoked_by"`
}

// Valid reports whether the certificate should validate for a public lookup.
func (c *Certificate) Valid() bool {
	return !c.Revoked
}
