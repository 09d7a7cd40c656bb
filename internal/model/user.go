package model

import "time"

// DefaultVehicle is stamped on accounts that never picked a vehicle.
const DefaultVehicle = "🚗"

// Vehicles lists the symbols a user may choose for their profile, in the
// order the client presents them.
var Vehicles = []string{"🚗", "🛸", "🚀", "✈️", "🚢", "🚁", "🚙", "🚣", "🚂", "🚃", "🚆", "🚋", "🚌", "🚑", "🚒"}

// IsAllowedVehicle reports whether v is one of Vehicles.
func IsAllowedVehicle(v string) bool {
    for _, a := range Vehicles {
        if a == v {
            return true
        }
    }
    return false
}

// User represents an application user record as stored in the
// `users` table.  The vehicle is the symbol stamped onto every grid
// cell the user claims.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Vehicle      – selected vehicle symbol (see Vehicles).
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    // users.id
    Username     string    // users.username
    PasswordHash string    // users.password_hash
    Vehicle      string    // users.vehicle
    CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
