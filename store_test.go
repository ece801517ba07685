package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodul/recite/internal/puzzle"
	"github.com/bodul/recite/internal/segment"
)

// remoteFunc adapts a function to segment.Segmenter.
type remoteFunc func(paragraphs []string) ([]string, error)

func (f remoteFunc) Segment(_ context.Context, paragraphs []string) ([]string, error) {
	return f(paragraphs)
}

func testGenerator() *puzzle.Generator {
	return puzzle.NewGenerator(puzzle.NewLockedSource(7), puzzle.DefaultOptions())
}

func TestStoreArticles(t *testing.T) {
	s := NewStore(nil, testGenerator())
	s.SetArticles([]*Article{
		{ID: "b", Paragraphs: []string{"乙"}},
		{ID: "a", Paragraphs: []string{"甲"}},
	})

	list := s.ListArticles()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID, "corpus order is kept")
	assert.Equal(t, "a", s.GetArticle("a").ID)
	assert.Nil(t, s.GetArticle("c"))

	// Replacing the corpus drops old articles.
	s.SetArticles([]*Article{{ID: "c", Paragraphs: []string{"丙"}}})
	assert.Nil(t, s.GetArticle("a"))
	assert.Len(t, s.ListArticles(), 1)
}

func TestCreateSessionSources(t *testing.T) {
	ctx := context.Background()
	remote := &segment.Resolver{
		Remote: remoteFunc(func([]string) ([]string, error) {
			return []string{"人之初性本善", "性相近習相遠"}, nil
		}),
	}

	tests := []struct {
		name     string
		resolver *segment.Resolver
		article  *Article
		want     []string
		source   segment.Source
	}{
		{
			name:     "local",
			resolver: nil,
			article:  &Article{ID: "x", Paragraphs: []string{"人之初，性本善。", "性相近，習相遠。"}},
			want:     []string{"人之初性本善性相近習相遠"},
			source:   segment.SourceLocal,
		},
		{
			name:     "remote",
			resolver: remote,
			article:  &Article{ID: "x", Paragraphs: []string{"人之初，性本善。", "性相近，習相遠。"}},
			want:     []string{"人之初性本善", "性相近習相遠"},
			source:   segment.SourceRemote,
		},
		{
			name:     "preset wins",
			resolver: remote,
			article: &Article{
				ID:         "x",
				Paragraphs: []string{"人之初，性本善。"},
				Segments:   []string{"人之初，", "性本善。", "  "},
			},
			want:   []string{"人之初", "性本善"},
			source: sourcePreset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.resolver, testGenerator())
			s.SetArticles([]*Article{tt.article})

			game, err := s.CreateSession(ctx, "x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, game.Segments)
			assert.Equal(t, tt.source, game.Source)
			assert.Same(t, game, s.GetSession(game.ID))
		})
	}
}

func TestStoreCreateSessionErrors(t *testing.T) {
	s := NewStore(nil, testGenerator())
	s.SetArticles([]*Article{{ID: "blank", Paragraphs: []string{"。，！"}}})

	_, err := s.CreateSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrArticleNotFound))

	_, err = s.CreateSession(context.Background(), "blank")
	assert.True(t, errors.Is(err, ErrNoSegments))
	assert.Zero(t, s.SessionCount())
}

func TestDeleteSessionStore(t *testing.T) {
	s := NewStore(nil, testGenerator())
	s.SetArticles([]*Article{{ID: "a", Paragraphs: []string{"學而時習之"}}})

	game, err := s.CreateSession(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, s.SessionCount())

	assert.True(t, s.DeleteSession(game.ID))
	assert.False(t, s.DeleteSession(game.ID))
	assert.Nil(t, s.GetSession(game.ID))
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(nil, testGenerator())
	s.SetArticles([]*Article{{ID: "a", Paragraphs: []string{"學而時習之，不亦說乎？"}}})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			game, err := s.CreateSession(context.Background(), "a")
			if err != nil {
				t.Error(err)
				return
			}
			game.View()
			s.ListArticles()
			s.DeleteSession(game.ID)
		}()
	}
	wg.Wait()

	assert.Zero(t, s.SessionCount())
}
