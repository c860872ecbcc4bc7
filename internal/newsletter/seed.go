package newsletter

import (
	"fmt"
	"os"

	"github.com/dme-bo/briskolive/internal/record"
	"gopkg.in/yaml.v3"
)

// DefaultContent is used until staff save newsletter content or a seed file
// is loaded.
func DefaultContent() record.NewsletterContent {
	return record.NewsletterContent{
		Title:   "Brisk Olive Newsletter",
		Edition: "",
		Intro:   "Opportunities and updates for our veteran community.",
		AboutUs: "Brisk Olive places former service members in civilian roles across India.",
		Footer:  []string{"Brisk Olive Business Solutions"},
	}
}

// LoadSeed reads newsletter content from a YAML file. Keys missing from the
// file keep their DefaultContent values.
func LoadSeed(path string) (record.NewsletterContent, error) {
	content := DefaultContent()
	data, err := os.ReadFile(path)
	if err != nil {
		return content, fmt.Errorf("read newsletter seed: %w", err)
	}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return content, fmt.Errorf("parse newsletter seed %s: %w", path, err)
	}
	return content, nil
}
