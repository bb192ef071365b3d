package llm

import (
	"fmt"
	"sort"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/ports"
)

// Registry maps provider names to generators. It is filled at startup and
// read-only afterwards.
type Registry struct {
	defaultName string
	text        map[string]ports.TextGenerator
	image       map[string]ports.ImageGenerator
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		defaultName: defaultName,
		text:        make(map[string]ports.TextGenerator),
		image:       make(map[string]ports.ImageGenerator),
	}
}

func (r *Registry) RegisterText(name string, g ports.TextGenerator) {
	r.text[name] = g
}

func (r *Registry) RegisterImage(name string, g ports.ImageGenerator) {
	r.image[name] = g
}

// Default is the provider used when a request names none.
func (r *Registry) Default() string { return r.defaultName }

// Names lists the providers with a text generator.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.text))
	for n := range r.text {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Text(name string) (ports.TextGenerator, error) {
	if name == "" {
		name = r.defaultName
	}
	g, ok := r.text[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	return g, nil
}

// Image resolves an image generator. A known provider without image support
// (ollama) falls back to the default provider's generator.
func (r *Registry) Image(name string) (ports.ImageGenerator, error) {
	if name == "" {
		name = r.defaultName
	}
	if g, ok := r.image[name]; ok {
		return g, nil
	}
	if _, known := r.text[name]; known {
		if g, ok := r.image[r.defaultName]; ok {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q has no image generator", domain.ErrUnknownProvider, name)
}
