// Package lawcode serves the rule text a verdict prompt quotes for a case's
// law category.
package lawcode

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JustJay7/gosomi-court/internal/cache"
)

// DefaultCategory is used when a case names no category or an unknown one.
const DefaultCategory = "general"

//go:embed book.yaml
var defaultBook []byte

type Article struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

type Category struct {
	Title    string    `yaml:"title"`
	Articles []Article `yaml:"articles"`
}

type Book struct {
	Categories map[string]Category `yaml:"categories"`
}

// Provider renders rule text per category.
type Provider interface {
	RuleText(category string) string
	Categories() []string
}

type bookProvider struct {
	book  Book
	cache cache.Cache
}

// LoadBook parses a law book. An empty path loads the embedded default.
func LoadBook(path string) (Book, error) {
	data := defaultBook
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Book{}, fmt.Errorf("failed to read law book: %w", err)
		}
		data = raw
	}

	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return Book{}, fmt.Errorf("failed to parse law book: %w", err)
	}
	if _, ok := book.Categories[DefaultCategory]; !ok {
		return Book{}, fmt.Errorf("law book has no %q category", DefaultCategory)
	}
	return book, nil
}

// NewProvider serves book through c. c may be nil.
func NewProvider(book Book, c cache.Cache) Provider {
	return &bookProvider{book: book, cache: c}
}

func (p *bookProvider) RuleText(category string) string {
	name := normalize(category)
	if _, ok := p.book.Categories[name]; !ok {
		name = DefaultCategory
	}

	key := cache.GenerateCacheKey(name)
	if p.cache != nil {
		if text, ok := p.cache.Get(key); ok {
			return text
		}
	}

	text := render(name, p.book.Categories[name])
	if p.cache != nil {
		_ = p.cache.Set(key, text)
	}
	return text
}

func (p *bookProvider) Categories() []string {
	names := make([]string, 0, len(p.book.Categories))
	for name := range p.book.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func render(name string, c Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", name, c.Title)
	for _, a := range c.Articles {
		fmt.Fprintf(&b, "- %s: %s\n", a.ID, a.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
