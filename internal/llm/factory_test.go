package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcrafter/internal/config"
)

func TestFactory_CreateClient(t *testing.T) {
	f := NewFactory(&config.Config{OpenAIAPIKey: "k", OpenAIBaseURL: "http://localhost/v1"})

	c, err := f.CreateClient("OpenAI", "gpt-x")
	require.NoError(t, err)
	oa, ok := c.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "gpt-x", oa.model)

	_, err = f.CreateClient("anthropic", "m")
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestUpstreamError_Error(t *testing.T) {
	assert.Equal(t, "openai: boom", (&UpstreamError{Provider: "openai", Message: "boom"}).Error())
}
