package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by API bearer tokens. Non-browser clients use these
// instead of the session cookie; both resolve to the same AuthContext.
type Claims struct {
	HouseholdID int64 `json:"hid"`
	jwt.RegisteredClaims
}

// GenerateToken signs a bearer token for the user scoped to a household.
func GenerateToken(secret []byte, userID, householdID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		HouseholdID: householdID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a bearer token and returns the user and household IDs.
func ParseToken(secret []byte, tokenString string) (userID, householdID int64, err error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return 0, 0, fmt.Errorf("invalid token")
	}

	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return 0, 0, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, claims.HouseholdID, nil
}
