package blobpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendedOpenFileLimitIsPositive(t *testing.T) {
	limit := RecommendedOpenFileLimit()
	assert.Greater(t, limit, 0)
	assert.LessOrEqual(t, limit, reasonableFileLimit)
}
