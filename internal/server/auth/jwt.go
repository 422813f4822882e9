// Package auth issues and verifies the HS256 tokens handed to clients.
//
// Two purposes exist. An access token is returned by login and authorizes
// regular calls. A setup token is returned by registration confirmation and
// authorizes only the password call that activates the account.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type Purpose string

const (
	PurposeAccess Purpose = "access"
	PurposeSetup  Purpose = "setup"
)

// Claims carries the standard claims plus the user id and token purpose.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string  `json:"uid"`
	Purpose Purpose `json:"pur"`
}

func GenerateToken(userID string, purpose Purpose, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:  userID,
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken returns the user id of a token issued for purpose.
func GetUserIDFromToken(tokenString string, purpose Purpose, secretKey []byte) (string, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return "", err
	}
	if claims.Purpose != purpose {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
