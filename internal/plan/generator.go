package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTopics 表示没有提交任何主题。
var ErrEmptyTopics = errors.New("topics must not be empty")

// Draft 是生成器返回、尚未持久化的计划。
type Draft struct {
	Content string
	Steps   []string
}

// Generator 产出学习计划。接入模型时替换实现即可，处理器不变。
type Generator interface {
	Generate(ctx context.Context, topics string) (Draft, error)
}

// PlaceholderGenerator returns a fixed, deterministic plan.
type PlaceholderGenerator struct{}

func (PlaceholderGenerator) Generate(ctx context.Context, topics string) (Draft, error) {
	if err := ctx.Err(); err != nil {
		return Draft{}, err
	}
	topics = strings.TrimSpace(topics)
	if topics == "" {
		return Draft{}, ErrEmptyTopics
	}
	return Draft{
		Content: fmt.Sprintf("Plan steps for %s", topics),
		Steps:   []string{"Step 1", "Step 2", "..."},
	}, nil
}
