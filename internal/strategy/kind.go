package strategy

import (
	"fmt"
	"strings"

	"imgdupes/internal/pipeline"
)

// Kind names a strategy variant.
type Kind string

const (
	KindExact      Kind = "exact"
	KindPerceptual Kind = "perceptual"
	KindNeural     Kind = "neural"
)

// Kinds lists the recognized variants.
func Kinds() []Kind {
	return []Kind{KindExact, KindPerceptual, KindNeural}
}

// ParseKind resolves a case-insensitive strategy name.
func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindExact, KindPerceptual, KindNeural:
		return kind, nil
	case "similar", "phash":
		return KindPerceptual, nil
	default:
		return "", pipeline.Wrap(pipeline.ErrConfiguration, "", "parse strategy",
			fmt.Sprintf("unknown strategy %q (want exact, perceptual, or neural)", value), nil)
	}
}
