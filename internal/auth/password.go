package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// 固定使用较高的代价因子抵御暴力破解
const bcryptCost = 12

const (
	passwordMinLength = 6
	passwordMaxLength = 128
)

const randomPasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// DefaultRandomPasswordLength 是管理员重置密码时生成的默认长度。
const DefaultRandomPasswordLength = 12

// HashPassword 对明文密码进行哈希处理
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword 验证密码是否与存储的哈希值匹配
func VerifyPassword(hash, candidate string) error {
	if strings.TrimSpace(hash) == "" {
		return errors.New("stored password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
}

// StrengthResult 密码强度校验结果，Errors 包含所有未满足的规则。
type StrengthResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidatePasswordStrength 校验密码强度。
//
// 返回全部违反的规则而不是第一条，前端需要完整列表做提示。
func ValidatePasswordStrength(password string) StrengthResult {
	var errs []string

	if len(password) < passwordMinLength {
		errs = append(errs, fmt.Sprintf("密码长度不能少于%d位", passwordMinLength))
	}
	if len(password) > passwordMaxLength {
		errs = append(errs, fmt.Sprintf("密码长度不能超过%d位", passwordMaxLength))
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLower {
		errs = append(errs, "密码必须包含小写字母")
	}
	if !hasUpper {
		errs = append(errs, "密码必须包含大写字母")
	}
	if !hasDigit {
		errs = append(errs, "密码必须包含数字")
	}

	return StrengthResult{IsValid: len(errs) == 0, Errors: errs}
}

// GenerateRandomPassword 生成随机密码，用于管理员重置。
func GenerateRandomPassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultRandomPasswordLength
	}
	max := big.NewInt(int64(len(randomPasswordCharset)))
	builder := strings.Builder{}
	builder.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate random password: %w", err)
		}
		builder.WriteByte(randomPasswordCharset[idx.Int64()])
	}
	return builder.String(), nil
}
