// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only authorization scheme accepted by the server.
const BearerScheme = "Bearer"

// TokenTypeBearer is reported to clients alongside every issued access token.
const TokenTypeBearer = "bearer"
