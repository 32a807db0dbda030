package tasks

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"photo-curator/internal/config"
	"photo-curator/internal/logging"
	"photo-curator/internal/media"
	"photo-curator/internal/ratingstore"
	"photo-curator/internal/vision"
	"photo-curator/internal/worker"
)

// DefaultRatingPrompt is the stock photography evaluation prompt used
// when no custom prompt is configured.
const DefaultRatingPrompt = `You are a professional stock photography evaluator. Analyze this SPECIFIC image for commercial stock sales potential.

IMPORTANT: Evaluate THIS image carefully and give honest, varied scores based on what you actually see. Do NOT always give the same scores.

Rate each criterion from 1-10 (be honest and critical - scores should vary based on actual quality):
1. Technical Quality: sharpness, focus, noise level, lighting, exposure
2. Composition: rule of thirds, framing, balance, visual flow
3. Commercial Appeal: market demand, versatility, usability in ads/articles
4. Uniqueness: fresh perspective, not oversaturated in stock libraries
5. Editorial Value: storytelling, emotion, clear context

AI DEFECTS CHECK (for AI-generated images):
Look for common AI generation artifacts that would make the image unsellable:
- Extra or missing fingers/limbs
- Unnatural anatomy (twisted limbs, wrong proportions)
- Melted or distorted faces/hands
- Text/watermark artifacts
- Impossible physics or perspectives
- Blurry areas that should be sharp

Respond ONLY with valid JSON:
{
    "technical": <score 1-10>,
    "composition": <score 1-10>,
    "commercial": <score 1-10>,
    "uniqueness": <score 1-10>,
    "editorial": <score 1-10>,
    "defects": ["list", "of", "defects", "found"],
    "categories": ["category1", "category2"],
    "notes": "Specific feedback for THIS image"
}`

// Criterion weights for the overall score.
const (
	weightTechnical   = 0.25
	weightComposition = 0.20
	weightCommercial  = 0.25
	weightUniqueness  = 0.15
	weightEditorial   = 0.15
)

var (
	ratingObjectRe = regexp.MustCompile(`(?s)\{[^{}]*"technical"[^{}]*\}`)
	fencedBlockRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// RatingCache is the persistence the rate worker needs: a snapshot load
// before the pool starts and per-item saves as results arrive.
type RatingCache interface {
	LoadAll(ctx context.Context) (map[string]ratingstore.Rating, error)
	Save(ctx context.Context, r ratingstore.Rating) error
}

// PromptHash identifies a rating prompt for cache invalidation. Stored
// ratings carry the hash of the prompt that produced them; a prompt
// edit changes the hash and forces a re-rate.
func PromptHash(prompt string) string {
	sum := md5.Sum([]byte(prompt))
	return fmt.Sprintf("%x", sum)[:16]
}

// EchoPrompt duplicates the prompt with a separator, which measurably
// improves score adherence on small vision models.
func EchoPrompt(prompt string) string {
	return prompt + "\n\n---\n\n" + prompt
}

// Score fields are pointers so a JSON object missing a criterion is
// distinguishable from an explicit zero.
type ratingPayload struct {
	Technical   *float64 `json:"technical"`
	Composition *float64 `json:"composition"`
	Commercial  *float64 `json:"commercial"`
	Uniqueness  *float64 `json:"uniqueness"`
	Editorial   *float64 `json:"editorial"`
	Defects     []string `json:"defects"`
	Categories  []string `json:"categories"`
	Notes       string   `json:"notes"`
}

// ParseRatingResponse extracts the rating JSON from the model's
// free-text answer. The echoed prompt contains an example JSON object,
// so candidates are tried last-first: the real answer follows the echo.
func ParseRatingResponse(text string) (ratingstore.Rating, error) {
	var candidates []string
	candidates = append(candidates, ratingObjectRe.FindAllString(text, -1)...)
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, strings.TrimSpace(text))

	for i := len(candidates) - 1; i >= 0; i-- {
		var payload ratingPayload
		dec := json.NewDecoder(strings.NewReader(candidates[i]))
		if err := dec.Decode(&payload); err != nil {
			continue
		}
		if r, ok := validateRating(payload); ok {
			return r, nil
		}
	}
	return ratingstore.Rating{}, fmt.Errorf("no valid rating JSON in response: %s", truncate(text, 200))
}

// validateRating requires all five criteria, clamps scores to [1, 10],
// computes the weighted overall score, and maps it to a recommendation.
func validateRating(p ratingPayload) (ratingstore.Rating, bool) {
	if p.Technical == nil || p.Composition == nil || p.Commercial == nil ||
		p.Uniqueness == nil || p.Editorial == nil {
		return ratingstore.Rating{}, false
	}

	clamp := func(v float64) float64 { return math.Max(1, math.Min(10, v)) }
	r := ratingstore.Rating{
		Technical:   clamp(*p.Technical),
		Composition: clamp(*p.Composition),
		Commercial:  clamp(*p.Commercial),
		Uniqueness:  clamp(*p.Uniqueness),
		Editorial:   clamp(*p.Editorial),
		Defects:     p.Defects,
		Categories:  p.Categories,
		Notes:       p.Notes,
	}

	overall := r.Technical*weightTechnical + r.Composition*weightComposition +
		r.Commercial*weightCommercial + r.Uniqueness*weightUniqueness + r.Editorial*weightEditorial
	r.Overall = math.Round(overall*10) / 10

	switch {
	case r.Overall >= 7:
		r.Recommendation = "KEEP"
	case r.Overall >= 5:
		r.Recommendation = "REVIEW"
	default:
		r.Recommendation = "DELETE"
	}
	return r, true
}

// NewRate builds the worker that scores each image for stock sales
// potential. Images already rated under the current prompt are served
// from the cache without a model call.
func NewRate(cfg *config.Config, client *vision.Client, cache RatingCache, customPrompt string) *worker.Worker {
	prompt := customPrompt
	if prompt == "" {
		prompt = DefaultRatingPrompt
	}
	hash := PromptHash(prompt)
	echoed := EchoPrompt(prompt)

	prefilter := func(ctx context.Context, items []worker.Item) ([]worker.Item, []worker.Result, error) {
		stored, err := cache.LoadAll(ctx)
		if err != nil {
			return nil, nil, err
		}
		logging.Debug("Loaded %d cached ratings (prompt hash %s)", len(stored), hash)

		var remaining []worker.Item
		var cached []worker.Result
		for _, item := range items {
			if r, ok := stored[item.Path]; ok && r.PromptHash == hash {
				cached = append(cached, worker.Result{Path: item.Path, OK: true, Data: r})
				continue
			}
			remaining = append(remaining, item)
		}
		return remaining, cached, nil
	}

	process := func(ctx context.Context, item worker.Item) worker.Result {
		encoded, err := media.ResizeAndEncode(item.Path, cfg.MaxImageSize)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("encode failed: %v", err)}
		}

		answer, err := client.Generate(ctx, echoed, encoded)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("model call failed: %v", err)}
		}

		rating, err := ParseRatingResponse(answer)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: err.Error()}
		}
		rating.Path = item.Path
		rating.PromptHash = hash
		rating.RatedAt = time.Now()

		if err := cache.Save(ctx, rating); err != nil {
			logging.Warn("Failed to cache rating for %s: %v", item.Path, err)
		}
		return worker.Result{Path: item.Path, OK: true, Data: rating}
	}

	return worker.New("rate", cfg.Workers, process, worker.WithPrefilter(prefilter))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
