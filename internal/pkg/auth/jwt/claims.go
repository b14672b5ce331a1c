package jwt

import "github.com/golang-jwt/jwt"

// Payload is the identity carried by bearer tokens issued to marketplace users.
// The relay's HTTP chat API trusts it to decide who is calling.
type Payload struct {
	// StandardClaims embeds expiry, issue time and issuer.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the numeric marketplace user id.
	UserID int64 `json:"uid"`

	// UserType is "seller" or "collector".
	UserType string `json:"user_type"`
}
