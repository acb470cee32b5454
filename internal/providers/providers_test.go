package providers

import (
	"context"
	"errors"
	"testing"

	"litscout/internal/config"

	"github.com/stretchr/testify/require"
)

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList("mock|openai:key1|openai:key2")
	if len(refs) != 3 {
		t.Fatalf("expected 3 providers got %d", len(refs))
	}
	if refs[1].Name != "openai" || refs[1].KeyAlias != "key1" {
		t.Fatalf("unexpected parse result: %+v", refs[1])
	}
}

func TestParseProviderListEmptyFallsBackToMock(t *testing.T) {
	refs := ParseProviderList("")
	require.Len(t, refs, 1)
	require.Equal(t, "mock", refs[0].Name)
}

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota": ErrorQuota,
		"429 rate":           ErrorRate,
		"context too long":   ErrorContext,
		"timeout":            ErrorTransient,
		"bad request":        ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider(8)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta"}})
	require.NoError(t, err)
	b, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"alpha", "beta"}})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 2)
	require.Len(t, a[0], 8)
}

func TestMockChatReturnsPlanJSON(t *testing.T) {
	m := NewMockProvider(8)
	resp, _, err := m.Chat(context.Background(), ChatRequest{Operation: "planner", JSONObject: true})
	require.NoError(t, err)
	require.Contains(t, resp.Text, `"action"`)
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	a := matchDimension(src, 2)
	if len(a) != 2 || a[0] != 1 || a[1] != 2 {
		t.Fatalf("truncate failed: %#v", a)
	}
	b := matchDimension(src, 5)
	if len(b) != 5 || b[0] != 1 || b[2] != 3 || b[3] != 0 || b[4] != 0 {
		t.Fatalf("pad failed: %#v", b)
	}
}

func TestManagerFallsBackToMock(t *testing.T) {
	cfg := config.Config{LLMProviders: "mock", EmbedProviders: "mock", VisionProvider: "mock", EmbedDim: 8}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.NotNil(t, m.FirstLLMProvider())
	require.NotNil(t, m.FirstEmbedProvider())
	require.NotNil(t, m.Vision())
}

func TestManagerRejectsUnknownProvider(t *testing.T) {
	cfg := config.Config{LLMProviders: "nope", EmbedProviders: "mock", VisionProvider: "mock"}
	_, err := NewManager(cfg)
	require.Error(t, err)
}
