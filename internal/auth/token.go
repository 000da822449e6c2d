package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims JWT 声明
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenService JWT 令牌服务
type TokenService struct {
	secretKey []byte
	expire    time.Duration
}

// NewTokenService 创建令牌服务
func NewTokenService(secretKey string, expire time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secretKey),
		expire:    expire,
	}
}

// Issue 为指定用户签发令牌
func (s *TokenService) Issue(uid string) (string, error) {
	return s.issue(uid, time.Now().Add(s.expire))
}

func (s *TokenService) issue(uid string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "conecr",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate 验证令牌并返回用户 ID
func (s *TokenService) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" {
		return "", ErrTokenInvalid
	}

	return claims.UID, nil
}
