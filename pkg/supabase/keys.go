package supabase

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Key roles issued by the platform.
const (
	RoleAnon    = "anon"
	RoleService = "service_role"
)

// ErrNotJWT is returned by KeyRole for keys that are not JWTs, such as the
// newer opaque publishable and secret keys.
var ErrNotJWT = errors.New("key is not a JWT")

// KeyRole reads the role claim of an API key without verifying its
// signature. It is only used to warn about keys pasted into the wrong field.
func KeyRole(key string) (string, error) {
	if key == "" {
		return "", ErrNotJWT
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	role, _ := claims["role"].(string)
	return role, nil
}
