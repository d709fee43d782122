package models

import "github.com/golang-jwt/jwt/v5"

const ObserverRole = "observer"

// ObserverClaims authorise a client to watch the alert stream. The subject
// names the observer.
type ObserverClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
