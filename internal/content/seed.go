package content

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"go-engsite/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed holds the sample lists shipped with the site. They seed an empty
// local store and back every read when both tiers are empty.
type Seed struct {
	BlogPosts    []model.BlogPost    `json:"blogPosts"`
	Events       []model.Event       `json:"events"`
	Team         []model.TeamMember  `json:"team"`
	Testimonials []model.Testimonial `json:"testimonials"`
	TreePackages []model.TreePackage `json:"treePackages"`
	Buttons      []model.Button      `json:"buttons"`
}

// LoadSeed parses the embedded seed file.
func LoadSeed() (*Seed, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed decodes seed YAML. The document is converted through JSON so
// the models' json tags are the single source of field names.
func ParseSeed(data []byte) (*Seed, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing seed yaml: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting seed yaml: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(asJSON, &seed); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	return &seed, nil
}
