// Package content loads the bundled word, story, rhyme and phrase tables.
package content

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tinytalk/internal/model"
)

//go:embed data/*.toml
var files embed.FS

// Library is the full set of content shown to the child.
type Library struct {
	Words   []model.Word
	Stories []model.Story
	Rhymes  []model.Rhyme
	Phrases model.Phrases
}

type wordFile struct {
	Words []model.Word `toml:"word"`
}

type storyFile struct {
	Stories []model.Story `toml:"story"`
}

type rhymeFile struct {
	Rhymes []model.Rhyme `toml:"rhyme"`
}

var categoryLabels = map[string]string{
	"animal":    "动物",
	"food":      "食物",
	"transport": "交通",
	"verb":      "动作",
	"social":    "社交",
}

// CategoryLabel returns the display label for a word category.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}

// Load decodes the embedded tables.
func Load() (Library, error) {
	var lib Library

	var wf wordFile
	if err := decodeEmbedded("data/words.toml", &wf); err != nil {
		return Library{}, err
	}
	words, err := validateWords(wf.Words)
	if err != nil {
		return Library{}, fmt.Errorf("bundled words: %w", err)
	}
	lib.Words = words

	var sf storyFile
	if err := decodeEmbedded("data/stories.toml", &sf); err != nil {
		return Library{}, err
	}
	lib.Stories = sf.Stories

	var rf rhymeFile
	if err := decodeEmbedded("data/rhymes.toml", &rf); err != nil {
		return Library{}, err
	}
	lib.Rhymes = rf.Rhymes

	if err := decodeEmbedded("data/phrases.toml", &lib.Phrases); err != nil {
		return Library{}, err
	}
	if len(lib.Phrases.Praise) == 0 || len(lib.Phrases.Encouragement) == 0 {
		return Library{}, fmt.Errorf("phrases: praise and encouragement must not be empty")
	}
	return lib, nil
}

func decodeEmbedded(name string, dst any) error {
	data, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if _, err := toml.Decode(string(data), dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// LoadWords reads a custom word table from path. The file uses the same
// [[word]] layout as the bundled table; entries without an id get one
// derived from their position.
func LoadWords(path string) ([]model.Word, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	var wf wordFile
	if _, err := toml.DecodeFile(path, &wf); err != nil {
		return nil, fmt.Errorf("failed to decode word file: %w", err)
	}
	for i := range wf.Words {
		if strings.TrimSpace(wf.Words[i].ID) == "" {
			wf.Words[i].ID = fmt.Sprintf("custom-%03d", i+1)
		}
	}
	return validateWords(wf.Words)
}

func validateWords(words []model.Word) ([]model.Word, error) {
	seen := make(map[string]struct{}, len(words))
	out := make([]model.Word, 0, len(words))
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		if _, ok := seen[w.ID]; ok {
			return nil, fmt.Errorf("duplicate word id %q", w.ID)
		}
		seen[w.ID] = struct{}{}
		if w.Prompt == "" {
			w.Prompt = w.Text
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return out, nil
}

// FilterCategory keeps words from the given categories. An empty list keeps all.
func FilterCategory(words []model.Word, categories []string) []model.Word {
	if len(categories) == 0 {
		return words
	}
	keep := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		keep[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	var out []model.Word
	for _, w := range words {
		if _, ok := keep[w.Category]; ok {
			out = append(out, w)
		}
	}
	return out
}

// StoryScript returns the lines read aloud for a story, ending with the moral.
func StoryScript(s model.Story, p model.Phrases) []string {
	lines := make([]string, 0, len(s.Paragraphs)+1)
	lines = append(lines, s.Paragraphs...)
	if s.Moral != "" {
		lines = append(lines, p.MoralPrefix+s.Moral)
	}
	return lines
}

// DifficultyLabel returns the display label for a difficulty.
func DifficultyLabel(d string) string {
	switch d {
	case "easy":
		return "简单"
	case "medium":
		return "中等"
	case "hard":
		return "困难"
	default:
		return d
	}
}
