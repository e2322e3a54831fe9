package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong 表示密码超过 bcrypt 的 72 字节上限。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// hashCost 在测试中可调低以加快用例。
var hashCost = bcrypt.DefaultCost

// HashPassword returns a salted bcrypt hash; the algorithm, cost and salt
// are all encoded in the result.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", ErrPasswordTooLong
	case err != nil:
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash 校验明文与存储的哈希是否匹配，哈希格式错误视为不匹配。
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
