package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/util"
	"storefront/pkg/ai"
	"storefront/pkg/domain"
)

const (
	providerTimeout      = 10 * time.Second
	searchThreshold      = 0.3
	maxRecommendations   = 5
	chatHistoryWindow    = 10
	backfillConcurrency  = 4
	seoDescriptionLength = 160

	supportFallbackReply = "I'm sorry, I'm having trouble answering right now. " +
		"Please try again in a moment or reach us through the contact form."

	supportKnowledgeBase = `You are a helpful customer support assistant for an online store.
Store policies: free shipping on all orders, 30-day returns on unused items,
support hours 9am-6pm Monday to Friday. Orders ship within 2 business days.
Answer briefly and helpfully. If you do not know, say so and suggest the
contact form.`
)

// aiContext bounds every provider call so a slow provider can never
// hold a storefront request open.
func aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, providerTimeout)
}

func productEmbeddingText(p domain.Product) string {
	parts := []string{p.Name, p.Description, p.Category}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, " "))
	}
	return strings.Join(parts, " ")
}

// embeddingFor returns the cached embedding for a product, computing
// and persisting it when absent.
func (a *App) embeddingFor(ctx context.Context, p domain.Product) ([]float32, error) {
	cached, ok, err := a.store.GetProductEmbedding(p.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return cached.Embedding, nil
	}
	if a.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	callCtx, cancel := aiContext(ctx)
	defer cancel()
	vec, err := a.embedder.EmbedText(callCtx, productEmbeddingText(p))
	if err != nil {
		return nil, fmt.Errorf("embed product %d: %w", p.ID, err)
	}
	if _, err := a.store.SaveProductEmbedding(domain.ProductEmbedding{ProductID: p.ID, Embedding: vec}); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedProduct computes and caches the embedding for one product. Used
// by the backfill queue consumer.
func (a *App) EmbedProduct(ctx context.Context, productID int64) error {
	p, ok, err := a.store.GetProduct(productID)
	if err != nil {
		return err
	}
	if !ok {
		// Deleted since enqueue; nothing to embed.
		return nil
	}
	if a.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	callCtx, cancel := aiContext(ctx)
	defer cancel()
	vec, err := a.embedder.EmbedText(callCtx, productEmbeddingText(p))
	if err != nil {
		return fmt.Errorf("embed product %d: %w", p.ID, err)
	}
	_, err = a.store.SaveProductEmbedding(domain.ProductEmbedding{ProductID: p.ID, Embedding: vec})
	return err
}

type scoredProduct struct {
	product domain.Product
	score   float64
}

// Recommendations ranks the catalog by similarity to the target
// product and returns the top matches. Provider failure degrades to an
// empty list, never an error for the caller.
func (a *App) Recommendations(ctx context.Context, productID int64) ([]domain.Product, error) {
	target, err := a.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	targetVec, err := a.embeddingFor(ctx, target)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("recommendations degraded",
			"product_id", productID, "error", err)
		return []domain.Product{}, nil
	}
	embeddings, err := a.store.ListProductEmbeddings()
	if err != nil {
		return nil, err
	}
	scored := make([]scoredProduct, 0, len(embeddings))
	for _, e := range embeddings {
		if e.ProductID == productID {
			continue
		}
		p, ok, err := a.store.GetProduct(e.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		scored = append(scored, scoredProduct{
			product: p,
			score:   ai.CosineSimilarity(targetVec, e.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxRecommendations {
		scored = scored[:maxRecommendations]
	}
	out := make([]domain.Product, len(scored))
	for i, s := range scored {
		out[i] = s.product
	}
	return out, nil
}

// SemanticSearch embeds the query and returns products above the
// similarity threshold, best first. An empty embedding cache triggers a
// synchronous backfill of the whole catalog first.
func (a *App) SemanticSearch(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	embeddings, err := a.store.ListProductEmbeddings()
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		if err := a.backfillEmbeddings(ctx); err != nil {
			util.LoggerFromContext(ctx).Warn("search backfill failed", "error", err)
			return []domain.Product{}, nil
		}
		if embeddings, err = a.store.ListProductEmbeddings(); err != nil {
			return nil, err
		}
	}
	if a.embedder == nil {
		return []domain.Product{}, nil
	}
	callCtx, cancel := aiContext(ctx)
	defer cancel()
	queryVec, err := a.embedder.EmbedText(callCtx, query)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("search degraded", "error", err)
		return []domain.Product{}, nil
	}
	scored := make([]scoredProduct, 0, len(embeddings))
	for _, e := range embeddings {
		score := ai.CosineSimilarity(queryVec, e.Embedding)
		if score < searchThreshold {
			continue
		}
		p, ok, err := a.store.GetProduct(e.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		scored = append(scored, scoredProduct{product: p, score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	out := make([]domain.Product, len(scored))
	for i, s := range scored {
		out[i] = s.product
	}
	return out, nil
}

func (a *App) backfillEmbeddings(ctx context.Context) error {
	if a.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	products, err := a.store.ListProducts()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)
	for _, p := range products {
		p := p
		g.Go(func() error {
			return a.EmbedProduct(gctx, p.ID)
		})
	}
	return g.Wait()
}

// SupportChat appends the user's message, asks the provider with the
// recent history and the store knowledge base, and appends the reply.
// Provider failure yields a canned reply, never an error.
func (a *App) SupportChat(ctx context.Context, sessionID, message string) (domain.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if strings.TrimSpace(sessionID) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: session is required", ErrValidation)
	}
	if _, err := a.store.AppendChatMessage(domain.ChatMessage{
		SessionID: sessionID,
		Role:      "user",
		Content:   message,
	}); err != nil {
		return domain.ChatMessage{}, err
	}

	history, err := a.store.ListChatMessages(sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, ai.Message{Role: "system", Content: supportKnowledgeBase})
	for _, m := range history {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}

	reply := supportFallbackReply
	if a.generator != nil {
		callCtx, cancel := aiContext(ctx)
		answer, genErr := a.generator.Complete(callCtx, messages)
		cancel()
		if genErr != nil {
			util.LoggerFromContext(ctx).Warn("support chat degraded",
				"session_id", sessionID, "error", genErr)
		} else {
			reply = answer
		}
	}

	return a.store.AppendChatMessage(domain.ChatMessage{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   reply,
	})
}

// ChatHistory returns the stored conversation for a support session.
func (a *App) ChatHistory(sessionID string) ([]domain.ChatMessage, error) {
	return a.store.ListChatMessages(sessionID)
}

// CompareNarrative produces a prose comparison of 2-3 products,
// degrading to a catalog-derived summary when the provider fails.
func (a *App) CompareNarrative(ctx context.Context, productIDs []int64) (string, error) {
	if len(productIDs) < 2 || len(productIDs) > 3 {
		return "", fmt.Errorf("%w: comparison needs 2 or 3 products", ErrValidation)
	}
	products := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		p, err := a.GetProduct(id)
		if err != nil {
			return "", err
		}
		products = append(products, p)
	}

	if a.generator != nil {
		var sb strings.Builder
		sb.WriteString("Compare the following products for a shopper and recommend which suits which need:\n")
		for _, p := range products {
			fmt.Fprintf(&sb, "- %s (%s, $%.2f): %s\n", p.Name, p.Category, p.Price, p.Description)
		}
		callCtx, cancel := aiContext(ctx)
		narrative, err := a.generator.Complete(callCtx, []ai.Message{
			{Role: "system", Content: "You are a product comparison assistant. Be concise and concrete."},
			{Role: "user", Content: sb.String()},
		})
		cancel()
		if err == nil {
			return narrative, nil
		}
		util.LoggerFromContext(ctx).Warn("compare narrative degraded", "error", err)
	}
	return templatedComparison(products), nil
}

func templatedComparison(products []domain.Product) string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Comparing %s.", strings.Join(names, " vs "))
	cheapest := products[0]
	for _, p := range products[1:] {
		if p.Price < cheapest.Price {
			cheapest = p
		}
	}
	fmt.Fprintf(&sb, " %s is the most affordable at $%.2f.", cheapest.Name, cheapest.Price)
	for _, p := range products {
		fmt.Fprintf(&sb, " %s ($%.2f, %s): %s.", p.Name, p.Price, p.Category, firstSentence(p.Description))
	}
	return sb.String()
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i > 0 {
		return s[:i]
	}
	return s
}

// GetSEOMeta returns cached SEO metadata for a product, if present.
func (a *App) GetSEOMeta(productID int64) (domain.SEOMeta, error) {
	meta, ok, err := a.store.GetSEOMeta(productID)
	if err != nil {
		return domain.SEOMeta{}, err
	}
	if !ok {
		return domain.SEOMeta{}, fmt.Errorf("seo meta for product %d: %w", productID, ErrNotFound)
	}
	return meta, nil
}

// GenerateSEOMeta returns cached metadata when present, otherwise asks
// the provider and persists the result. Provider failure falls back to
// metadata derived from the catalog fields, also persisted.
func (a *App) GenerateSEOMeta(ctx context.Context, productID int64) (domain.SEOMeta, error) {
	if cached, ok, err := a.store.GetSEOMeta(productID); err != nil {
		return domain.SEOMeta{}, err
	} else if ok {
		return cached, nil
	}
	p, err := a.GetProduct(productID)
	if err != nil {
		return domain.SEOMeta{}, err
	}

	meta := domain.SEOMeta{
		ProductID:       productID,
		MetaTitle:       fmt.Sprintf("%s | Shop %s", p.Name, p.Category),
		MetaDescription: truncate(p.Description, seoDescriptionLength),
		GeneratedBy:     "fallback",
	}
	if a.generator != nil {
		prompt := fmt.Sprintf(
			"Write an SEO page title (max 60 chars) and meta description (max 160 chars) for this product.\n"+
				"Name: %s\nCategory: %s\nPrice: $%.2f\nDescription: %s\n"+
				"Reply with the title on the first line and the description on the second line.",
			p.Name, p.Category, p.Price, p.Description)
		callCtx, cancel := aiContext(ctx)
		out, genErr := a.generator.Complete(callCtx, []ai.Message{
			{Role: "user", Content: prompt},
		})
		cancel()
		if genErr != nil {
			util.LoggerFromContext(ctx).Warn("seo generation degraded",
				"product_id", productID, "error", genErr)
		} else if title, desc, ok := splitSEOReply(out); ok {
			meta.MetaTitle = title
			meta.MetaDescription = desc
			meta.GeneratedBy = "ai"
		}
	}
	return a.store.SaveSEOMeta(meta)
}

func splitSEOReply(out string) (string, string, bool) {
	lines := strings.SplitN(strings.TrimSpace(out), "\n", 2)
	if len(lines) != 2 {
		return "", "", false
	}
	title := strings.TrimSpace(lines[0])
	desc := strings.TrimSpace(lines[1])
	if title == "" || desc == "" {
		return "", "", false
	}
	return title, desc, true
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
