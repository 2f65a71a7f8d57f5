package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Machine Learning", "machine-learning"},
		{"  C++ / Python!! ", "c-python"},
		{"AI-Basics--2", "ai-basics-2"},
		{"数据处理", "cat-19ce1149"},
		{"模型训练", "cat-53ea81c1"},
		{"", "cat-811c9dc5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}
