// Package common contains shared constants and sentinel errors used across
// DriveKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// identity provider token on inbound requests.
const AccessTokenHeaderName = "access_token"

// PurgeLockKey names the distributed lock held while a purge run is active.
const PurgeLockKey = "drivekeeper:purge:lock"
