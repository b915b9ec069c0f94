package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Permissions carried by device tokens.
const (
	PermissionDetectionsWrite    = "detections:write"
	PermissionConfirmationsWrite = "confirmations:write"
	PermissionSessionsWrite      = "sessions:write"
)

// DeviceClaims defines the custom claims for camera agents and operator
// consoles calling the API.
type DeviceClaims struct {
	jwt.RegisteredClaims
	DeviceID    string   `json:"device_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the token carries the given permission.
func (c *DeviceClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}

	return false
}

// JWTManager handles token generation and validation.
type JWTManager struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
}

func NewJWTManager(secretKey string, issuer string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
	}
}

// Generate creates a new signed token for a device.
func (m *JWTManager) Generate(deviceID string, permissions []string) (string, error) {
	claims := DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
			Subject:   deviceID,
		},
		DeviceID:    deviceID,
		Permissions: permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate validates the token and returns the claims.
func (m *JWTManager) Validate(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
