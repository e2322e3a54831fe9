package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokensDisabled 表示当前部署没有配置令牌签发。
var ErrTokensDisabled = errors.New("token issuing is disabled")

// Session 是登录成功后附加给客户端的会话凭据。
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// TokenIssuer 是登录会话的扩展点。默认实现不签发任何令牌，
// 登录只返回用户 ID。
type TokenIssuer interface {
	Issue(userID uint) (*Session, error)
	Validate(token string) (*TokenClaims, error)
}

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// NoopIssuer returns no session at all.
type NoopIssuer struct{}

func (NoopIssuer) Issue(uint) (*Session, error) { return nil, nil }

func (NoopIssuer) Validate(string) (*TokenClaims, error) { return nil, ErrTokensDisabled }

// JWTIssuer 使用 RS256 签发与校验访问令牌。
type JWTIssuer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
}

// NewJWTIssuer 解析 PEM 密钥并构造签发器。
func NewJWTIssuer(privateKeyPEM, publicKeyPEM []byte, ttl time.Duration) (*JWTIssuer, error) {
	if len(privateKeyPEM) == 0 {
		return nil, errors.New("private key pem is required")
	}
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	return &JWTIssuer{privateKey: privateKey, publicKey: publicKey, ttl: ttl}, nil
}

// NewJWTIssuerFromFiles reads both PEM files from disk.
func NewJWTIssuerFromFiles(privateKeyPath, publicKeyPath string, ttl time.Duration) (*JWTIssuer, error) {
	privatePEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return NewJWTIssuer(privatePEM, publicPEM, ttl)
}

// Issue 创建访问令牌。
func (s *JWTIssuer) Issue(userID uint) (*Session, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{AccessToken: signed, TokenType: "Bearer", ExpiresIn: s.ttl}, nil
}

// Validate 解析并验证 JWT。
func (s *JWTIssuer) Validate(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
