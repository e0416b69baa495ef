package ruleset

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/noah-isme/toko-promo/internal/campaign"
	"github.com/noah-isme/toko-promo/internal/common"
)

//go:embed defaults.yaml
var defaultDocument []byte

// Ruleset is the compiled, immutable campaign configuration.
type Ruleset struct {
	Source string
	// Digest identifies the document content; cached evaluations are keyed by it.
	Digest    string
	Campaigns []campaign.Campaign
}

// Load reads the ruleset at path, or the embedded storefront defaults when
// path is empty.
func Load(path string) (*Ruleset, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	return FromBytes(path, data)
}

// Default compiles the embedded ruleset.
func Default() (*Ruleset, error) {
	return FromBytes("embedded:defaults.yaml", defaultDocument)
}

// FromBytes parses and compiles a ruleset document.
func FromBytes(source string, data []byte) (*Ruleset, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	campaigns, err := Compile(doc)
	if err != nil {
		return nil, err
	}
	return &Ruleset{Source: source, Digest: common.Sha256Hex(data), Campaigns: campaigns}, nil
}

// Names lists the campaign names in evaluation order.
func (r *Ruleset) Names() []string {
	names := make([]string, len(r.Campaigns))
	for i, c := range r.Campaigns {
		names[i] = c.Name()
	}
	return names
}
