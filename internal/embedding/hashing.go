package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingProvider is a local embedder based on feature hashing. Lower-cased
// word unigrams and bigrams are hashed into a fixed number of signed buckets
// and the result is L2-normalized. It keeps no state between calls.
type HashingProvider struct {
	dimension int
}

var _ Provider = (*HashingProvider)(nil)

// NewHashingProvider returns a provider producing vectors of the given size
func NewHashingProvider(dimension int) *HashingProvider {
	if dimension <= 0 {
		dimension = 512
	}
	return &HashingProvider{dimension: dimension}
}

// Embed never fails except on a cancelled context. Text without any word
// tokens yields the zero vector.
func (h *HashingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimension)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok)
		}
	}

	normalize(vec)
	return vec, nil
}

func (h *HashingProvider) add(vec []float32, feature string) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	bucket := sum % uint64(h.dimension)
	if sum>>63 == 1 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

// tokenize lower-cases text and splits it into words. '+' and '#' stay part
// of a word so that "c++" and "c#" survive.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

func (h *HashingProvider) Dimension() int { return h.dimension }

func (h *HashingProvider) Name() string { return fmt.Sprintf("local/hashing-%d", h.dimension) }

func (h *HashingProvider) Close() error { return nil }
