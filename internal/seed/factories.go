package seed

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"feedline/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds fake users and post content. A fixed seed gives a
// reproducible data set.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a factory. seed 0 picks a random seed.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Usernames returns n distinct lowercase usernames.
func (f *Factory) Usernames(n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		name := strings.ToLower(f.faker.Username())
		if seen[name] {
			name = fmt.Sprintf("%s%d", name, len(out))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// PostContent returns post text within the post length limit.
func (f *Factory) PostContent() string {
	text := f.faker.Sentence(f.faker.Number(4, 18))
	if utf8.RuneCountInString(text) <= models.MaxPostLength {
		return text
	}
	return string([]rune(text)[:models.MaxPostLength])
}

// ImageRef returns a placeholder image URL roughly one post in five.
func (f *Factory) ImageRef() *string {
	if f.faker.Number(1, 5) != 1 {
		return nil
	}
	ref := fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	return &ref
}

// Chance reports true with probability p.
func (f *Factory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

// Pick returns a random element of items.
func (f *Factory) Pick(items []string) string {
	return items[f.faker.Number(0, len(items)-1)]
}
