package chat

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Sender 标识消息作者，只允许 user 与 assistant 两个取值。
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ErrInvalidSender 表示 sender 字段不在允许范围内。
var ErrInvalidSender = errors.New("sender must be 'user' or 'assistant'")

// ParseSender converts raw input into a Sender, rejecting unknown values.
func ParseSender(raw string) (Sender, error) {
	switch s := Sender(raw); s {
	case SenderUser, SenderAssistant:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSender, raw)
	}
}

// Valid reports whether s is one of the two senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Value implements driver.Valuer.
func (s Sender) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSender, string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *Sender) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan sender: unsupported type %T", value)
	}
	parsed, err := ParseSender(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
