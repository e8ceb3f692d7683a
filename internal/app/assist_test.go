package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/pkg/ai"
	"storefront/pkg/store"
)

// fakeEmbedder returns fixed vectors keyed by substring match.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
	calls   int
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider down")
	}
	for key, vec := range f.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

type fakeGenerator struct {
	reply string
	fail  bool
	calls int
}

func (f *fakeGenerator) Complete(_ context.Context, _ []ai.Message) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("provider down")
	}
	return f.reply, nil
}

func newAssistApp(t *testing.T, emb ai.Embedder, gen ai.ChatGenerator) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	a, err := New(Config{Store: mem, Embedder: emb, Generator: gen})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem
}

func TestRecommendationsRanksBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Laptop":     {1, 0, 0},
		"Ultrabook":  {0.9, 0.1, 0},
		"Teapot":     {0, 1, 0},
		"Mousepad":   {0.5, 0.5, 0},
		"Dishwasher": {0, 0.9, 0.1},
	}}
	a, mem := newAssistApp(t, emb, nil)

	laptop := seedProduct(t, mem, "Laptop", 999)
	ultra := seedProduct(t, mem, "Ultrabook", 1299)
	teapot := seedProduct(t, mem, "Teapot", 20)
	seedProduct(t, mem, "Mousepad", 9)
	seedProduct(t, mem, "Dishwasher", 400)

	if err := a.backfillEmbeddings(context.Background()); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	recs, err := a.Recommendations(context.Background(), laptop.ID)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("expected recommendations")
	}
	if recs[0].ID != ultra.ID {
		t.Fatalf("expected ultrabook first, got %q", recs[0].Name)
	}
	for _, r := range recs {
		if r.ID == laptop.ID {
			t.Fatalf("target product must not recommend itself")
		}
	}
	if recs[0].ID == teapot.ID {
		t.Fatalf("teapot must not outrank ultrabook")
	}
}

func TestRecommendationsDegradesOnEmbedFailure(t *testing.T) {
	a, mem := newAssistApp(t, &fakeEmbedder{fail: true}, nil)
	p := seedProduct(t, mem, "Laptop", 999)

	recs, err := a.Recommendations(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("expected degradation, got error %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty list, got %d", len(recs))
	}
}

func TestRecommendationsUnknownProduct(t *testing.T) {
	a, _ := newAssistApp(t, &fakeEmbedder{}, nil)
	if _, err := a.Recommendations(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSemanticSearchThresholdAndOrder(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Laptop":    {1, 0, 0},
		"Ultrabook": {0.9, 0.1, 0},
		"Teapot":    {0, 1, 0},
		"portable computer": {0.95, 0.05, 0},
	}}
	a, mem := newAssistApp(t, emb, nil)
	laptop := seedProduct(t, mem, "Laptop", 999)
	seedProduct(t, mem, "Ultrabook", 1299)
	teapot := seedProduct(t, mem, "Teapot", 20)

	// No embeddings cached: search must backfill synchronously first.
	results, err := a.SemanticSearch(context.Background(), "portable computer")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].ID != laptop.ID {
		t.Fatalf("expected laptop first, got %q", results[0].Name)
	}
	for _, r := range results {
		if r.ID == teapot.ID {
			t.Fatalf("teapot is below threshold and must be excluded")
		}
	}

	embeddings, _ := mem.ListProductEmbeddings()
	if len(embeddings) != 3 {
		t.Fatalf("expected backfill to cache 3 embeddings, got %d", len(embeddings))
	}
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	a, _ := newAssistApp(t, &fakeEmbedder{}, nil)
	if _, err := a.SemanticSearch(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSemanticSearchDegradesOnProviderFailure(t *testing.T) {
	a, mem := newAssistApp(t, &fakeEmbedder{fail: true}, nil)
	seedProduct(t, mem, "Laptop", 999)

	results, err := a.SemanticSearch(context.Background(), "laptop")
	if err != nil {
		t.Fatalf("expected degradation, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}

func TestSupportChatAppendsAndReplies(t *testing.T) {
	gen := &fakeGenerator{reply: "You can return items within 30 days."}
	a, mem := newAssistApp(t, nil, gen)

	reply, err := a.SupportChat(context.Background(), "chat-1", "What is your return policy?")
	if err != nil {
		t.Fatalf("support chat: %v", err)
	}
	if reply.Role != "assistant" || reply.Content != gen.reply {
		t.Fatalf("unexpected reply %+v", reply)
	}

	history, _ := mem.ListChatMessages("chat-1")
	if len(history) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Fatalf("unexpected history order %+v", history)
	}
}

func TestSupportChatFallbackOnProviderFailure(t *testing.T) {
	a, mem := newAssistApp(t, nil, &fakeGenerator{fail: true})

	reply, err := a.SupportChat(context.Background(), "chat-1", "Hello?")
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if reply.Content != supportFallbackReply {
		t.Fatalf("expected canned fallback, got %q", reply.Content)
	}
	history, _ := mem.ListChatMessages("chat-1")
	if len(history) != 2 {
		t.Fatalf("fallback must still be persisted, got %d messages", len(history))
	}
}

func TestCompareNarrativeValidation(t *testing.T) {
	a, mem := newAssistApp(t, nil, &fakeGenerator{reply: "x"})
	p := seedProduct(t, mem, "A", 1)

	if _, err := a.CompareNarrative(context.Background(), []int64{p.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 1 id, got %v", err)
	}
	if _, err := a.CompareNarrative(context.Background(), []int64{p.ID, 404}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing product, got %v", err)
	}
}

func TestCompareNarrativeFallsBackToTemplate(t *testing.T) {
	a, mem := newAssistApp(t, nil, &fakeGenerator{fail: true})
	p1 := seedProduct(t, mem, "Laptop", 999)
	p2 := seedProduct(t, mem, "Ultrabook", 1299)

	narrative, err := a.CompareNarrative(context.Background(), []int64{p1.ID, p2.ID})
	if err != nil {
		t.Fatalf("expected template fallback, got %v", err)
	}
	if !strings.Contains(narrative, "Laptop") || !strings.Contains(narrative, "Ultrabook") {
		t.Fatalf("template must mention both products: %q", narrative)
	}
	if !strings.Contains(narrative, "$999.00") {
		t.Fatalf("template must mention the cheaper price: %q", narrative)
	}
}

func TestGenerateSEOMetaCachesResult(t *testing.T) {
	gen := &fakeGenerator{reply: "Great Laptop | Shop\nThe best laptop for work and play."}
	a, mem := newAssistApp(t, nil, gen)
	p := seedProduct(t, mem, "Laptop", 999)

	meta, err := a.GenerateSEOMeta(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if meta.MetaTitle != "Great Laptop | Shop" || meta.GeneratedBy != "ai" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	again, err := a.GenerateSEOMeta(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected provider called once, got %d", gen.calls)
	}
	if again.ID != meta.ID {
		t.Fatalf("expected cached row, got %+v", again)
	}

	cached, err := a.GetSEOMeta(p.ID)
	if err != nil || cached.ID != meta.ID {
		t.Fatalf("get cached meta: %+v err=%v", cached, err)
	}
}

func TestGenerateSEOMetaFallbackPersisted(t *testing.T) {
	a, mem := newAssistApp(t, nil, &fakeGenerator{fail: true})
	p := seedProduct(t, mem, "Laptop", 999)

	meta, err := a.GenerateSEOMeta(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if meta.GeneratedBy != "fallback" {
		t.Fatalf("expected fallback meta, got %+v", meta)
	}
	if !strings.Contains(meta.MetaTitle, "Laptop") {
		t.Fatalf("fallback title must derive from the product name: %q", meta.MetaTitle)
	}
	if _, ok, _ := mem.GetSEOMeta(p.ID); !ok {
		t.Fatalf("fallback meta must be persisted")
	}
}

func TestGenerateSEOMetaUnknownProduct(t *testing.T) {
	a, _ := newAssistApp(t, nil, &fakeGenerator{})
	if _, err := a.GenerateSEOMeta(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
