package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "no mentions here", nil},
		{"single", "thanks @octocat", []string{"octocat"}},
		{"dedupe keeps first order", "@octocat and @hubot, thanks @octocat", []string{"octocat", "hubot"}},
		{"hyphen and trailing punctuation", "ping @a-b.", []string{"a-b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.text))
		})
	}
}

func TestMentions(t *testing.T) {
	assert.True(t, Mentions("cc @hubot", "hubot"))
	assert.False(t, Mentions("cc @hubot", "octocat"))
}
