package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCorpus(t *testing.T) {
	articles, err := LoadCorpus("")
	require.NoError(t, err)
	require.Len(t, articles, 4)

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		assert.NotEmpty(t, a.Title)
		assert.NotEmpty(t, a.Paragraphs)
	}
	assert.Equal(t, []string{"sanzijing", "qianziwen", "chunxiao", "xueer"}, ids)
	assert.Len(t, articles[2].Segments, 2)
}

func TestParseCorpusErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "articles: [\n"},
		{"empty", "articles: []\n"},
		{"missing id", "articles:\n  - title: x\n    paragraphs: [天地]\n"},
		{"duplicate id", "articles:\n  - id: a\n    paragraphs: [天]\n  - id: a\n    paragraphs: [地]\n"},
		{"no text", "articles:\n  - id: a\n    title: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCorpus([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseCorpusSegmentsOnly(t *testing.T) {
	articles, err := ParseCorpus([]byte("articles:\n  - id: a\n    segments: [天地玄黃]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"天地玄黃"}, articles[0].Segments)
}

func TestWatchCorpusReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("articles:\n  - id: a\n    paragraphs: [天]\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	loaded := make(chan []*Article, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchCorpus(ctx, path, func(a []*Article) {
			select {
			case loaded <- a:
			default:
			}
		})
	}()

	// The watcher may start after the first write; keep writing until it reports.
	valid := []byte("articles:\n  - id: b\n    paragraphs: [地]\n")
	var got []*Article
	require.Eventually(t, func() bool {
		select {
		case got = <-loaded:
			return true
		default:
			_ = os.WriteFile(path, valid, 0o644)
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchCorpusMissingDir(t *testing.T) {
	err := WatchCorpus(context.Background(), filepath.Join(t.TempDir(), "nope", "corpus.yaml"), func([]*Article) {})
	assert.Error(t, err)
}
