package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAuthor is recorded as the author of keys created without a token.
const DefaultAuthor = "anonymous"

type Claims struct {
	Author string `json:"author"`
	jwt.RegisteredClaims
}

func GenerateJWT(secret []byte, author string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Author: author,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ValidateJWT(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Author == "" {
		return nil, errors.New("token has no author")
	}

	return claims, nil
}

// GetAuthorFromClaims returns the author of the validated token of the
// request, or DefaultAuthor when the request carried none.
func GetAuthorFromClaims(c *gin.Context) string {
	claims, exists := c.Get("claims")
	if !exists {
		return DefaultAuthor
	}

	authorClaims, ok := claims.(*Claims)
	if !ok || authorClaims.Author == "" {
		return DefaultAuthor
	}

	return authorClaims.Author
}
