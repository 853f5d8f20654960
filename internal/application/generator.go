package application

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// 248 is the largest multiple of 62 below 256; bytes above it are discarded
// so every symbol is equally likely.
const base62Cutoff = 248

var slugRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reservedSlugs collide with router paths and can never be custom codes.
var reservedSlugs = map[string]struct{}{
	"api":     {},
	"health":  {},
	"ready":   {},
	"metrics": {},
	"swagger": {},
	"redoc":   {},
}

// CodeGenerator produces random short codes and vets caller-supplied slugs.
type CodeGenerator struct {
	repo    domain.LinkRepository
	length  int
	minSlug int
	maxSlug int
}

// Defaults applied when the configuration leaves a bound unset.
const (
	DefaultCodeLength    = 7
	DefaultMinSlugLength = 3
	DefaultMaxSlugLength = 32
)

func NewCodeGenerator(repo domain.LinkRepository, cfg *config.Config) *CodeGenerator {
	g := &CodeGenerator{
		repo:    repo,
		length:  cfg.App.ShortCodeLength,
		minSlug: cfg.App.CustomSlug.MinLength,
		maxSlug: cfg.App.CustomSlug.MaxLength,
	}
	if g.length <= 0 {
		g.length = DefaultCodeLength
	}
	if g.minSlug <= 0 {
		g.minSlug = DefaultMinSlugLength
	}
	if g.maxSlug <= 0 {
		g.maxSlug = DefaultMaxSlugLength
	}
	g.maxSlug = min(g.maxSlug, domain.MaxShortCodeLength)
	return g
}

// Generate returns a uniformly random base62 code of the configured length.
func (g *CodeGenerator) Generate() (string, error) {
	code := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)

	for len(code) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= base62Cutoff {
				continue
			}
			code = append(code, base62Alphabet[int(b)%len(base62Alphabet)])
			if len(code) == g.length {
				break
			}
		}
	}

	return string(code), nil
}

// CheckSlug validates a custom slug's shape without touching the store.
func (g *CodeGenerator) CheckSlug(candidate string) error {
	if len(candidate) < g.minSlug || len(candidate) > g.maxSlug {
		return fmt.Errorf("%w: custom slug must be %d-%d characters", domain.ErrInvalidShortCode, g.minSlug, g.maxSlug)
	}
	if !slugRe.MatchString(candidate) {
		return fmt.Errorf("%w: custom slug may only contain letters, digits, '-' and '_'", domain.ErrInvalidShortCode)
	}
	if _, reserved := reservedSlugs[strings.ToLower(candidate)]; reserved {
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidShortCode, candidate)
	}
	return nil
}

// ValidateCustom checks candidate and that no link uses it yet. The store's
// conditional insert still decides races between concurrent creators.
func (g *CodeGenerator) ValidateCustom(ctx context.Context, candidate string) (string, error) {
	if err := g.CheckSlug(candidate); err != nil {
		return "", err
	}

	exists, err := g.repo.Exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.ErrShortCodeExists
	}

	return candidate, nil
}
