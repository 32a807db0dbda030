package tasks

import (
	"context"
	"fmt"
	"strings"

	"photo-curator/internal/config"
	"photo-curator/internal/logging"
	"photo-curator/internal/media"
	"photo-curator/internal/metadata"
	"photo-curator/internal/vision"
	"photo-curator/internal/worker"
)

// maxKeywordLen drops runaway model output that is clearly not a keyword.
const maxKeywordLen = 50

// TagData is the per-item payload of a tag run: the keywords written to
// the file after any append-mode merge.
type TagData struct {
	Keywords []string `json:"keywords"`
}

func tagPrompt(numKeywords int) string {
	return fmt.Sprintf(`Analyze this image and generate exactly %d relevant English keywords for stock photography.
Focus on: objects, subjects, colors, mood, style, concepts.
Return ONLY a comma-separated list of single-word or two-word keywords.
Example format: nature, forest, green, peaceful, outdoor, landscape`, numKeywords)
}

// ParseKeywords splits the model's comma-separated answer into at most
// max lowercase keywords, dropping blanks and oversized entries.
func ParseKeywords(answer string, max int) []string {
	var keywords []string
	for _, part := range strings.Split(answer, ",") {
		kw := strings.ToLower(strings.TrimSpace(part))
		if kw == "" || len(kw) > maxKeywordLen {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) == max {
			break
		}
	}
	return keywords
}

// NewTag builds the worker that generates keywords for each image and
// embeds them in the file's metadata. In append mode generated keywords
// are merged with the file's existing ones instead of replacing them.
func NewTag(cfg *config.Config, client *vision.Client, keyworder metadata.Keyworder, numKeywords int, appendMode bool) *worker.Worker {
	prompt := tagPrompt(numKeywords)

	process := func(ctx context.Context, item worker.Item) worker.Result {
		encoded, err := media.ResizeAndEncode(item.Path, cfg.MaxImageSize)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("encode failed: %v", err)}
		}

		answer, err := client.Generate(ctx, prompt, encoded)
		if err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("model call failed: %v", err)}
		}

		keywords := ParseKeywords(answer, numKeywords)
		if len(keywords) == 0 {
			return worker.Result{Path: item.Path, Reason: "model returned no usable keywords"}
		}

		if appendMode {
			existing, err := keyworder.Read(ctx, item.Path)
			if err != nil {
				logging.Warn("Could not read existing keywords for %s: %v", item.Path, err)
			}
			keywords = metadata.Merge(existing, keywords)
		}

		if err := keyworder.Write(ctx, item.Path, keywords); err != nil {
			return worker.Result{Path: item.Path, Reason: fmt.Sprintf("metadata write failed: %v", err)}
		}
		return worker.Result{Path: item.Path, OK: true, Data: TagData{Keywords: keywords}}
	}

	return worker.New("tag", cfg.Workers, process)
}
