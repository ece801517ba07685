package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpus []byte

// Article is a text players can memorize. Segments, when present, are used
// as-is instead of segmenting the paragraphs.
type Article struct {
	ID         string   `yaml:"id" json:"id"`
	Title      string   `yaml:"title" json:"title"`
	Author     string   `yaml:"author" json:"author"`
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs"`
	Segments   []string `yaml:"segments,omitempty" json:"segments,omitempty"`
}

// ParseCorpus decodes a YAML corpus document.
func ParseCorpus(data []byte) ([]*Article, error) {
	var doc struct {
		Articles []*Article `yaml:"articles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}

	seen := make(map[string]bool, len(doc.Articles))
	for i, a := range doc.Articles {
		switch {
		case a == nil || a.ID == "":
			return nil, fmt.Errorf("article %d: missing id", i)
		case seen[a.ID]:
			return nil, fmt.Errorf("article %q: duplicate id", a.ID)
		case len(a.Paragraphs) == 0 && len(a.Segments) == 0:
			return nil, fmt.Errorf("article %q: no text", a.ID)
		}
		seen[a.ID] = true
	}
	if len(doc.Articles) == 0 {
		return nil, errors.New("corpus has no articles")
	}
	return doc.Articles, nil
}

// LoadCorpus reads the corpus at path, or the built-in one when path is empty.
func LoadCorpus(path string) ([]*Article, error) {
	if path == "" {
		return ParseCorpus(defaultCorpus)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return ParseCorpus(data)
}

// WatchCorpus reloads the corpus file whenever it changes and hands the new
// articles to onLoad. Invalid edits are logged and ignored. It blocks until
// ctx is done.
func WatchCorpus(ctx context.Context, path string, onLoad func([]*Article)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	name := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			articles, err := LoadCorpus(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("corpus reload failed, keeping previous articles")
				continue
			}
			log.Info().Int("articles", len(articles)).Msg("corpus reloaded")
			onLoad(articles)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("corpus watcher")
		}
	}
}
