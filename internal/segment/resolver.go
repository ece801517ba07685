package segment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyResponse     = errors.New("empty response")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTextMismatch      = errors.New("segments do not reproduce the text")
)

// ServiceError reports a remote segmentation failure. Resolver recovers from
// it by falling back to Split.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string { return "segmentation service: " + e.Err.Error() }

func (e *ServiceError) Unwrap() error { return e.Err }

// Cache stores validated remote results by text key.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Put(ctx context.Context, key string, segments []string) error
}

// Source tells where a Result came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// Result is the outcome of Resolve.
type Result struct {
	Segments []string `json:"segments"`
	Source   Source   `json:"source"`
}

// Resolver prefers Remote and falls back to the local chunker on any remote
// failure. A zero Resolver is local-only.
type Resolver struct {
	Remote   Segmenter
	Cache    Cache
	Timeout  time.Duration // per remote call; 0 means the caller's deadline
	MaxRunes int           // longest acceptable remote segment; 0 means unbounded

	group singleflight.Group
}

// Key identifies cleaned text in caches and in-flight calls.
func Key(cleaned string) string {
	sum := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(sum[:])
}

// Resolve segments paragraphs. It never fails: remote errors, empty or
// malformed responses all end in the local result. Concurrent calls for the
// same text share one remote call.
func (r *Resolver) Resolve(ctx context.Context, paragraphs []string) Result {
	cleaned := Clean(strings.Join(paragraphs, ""))
	if cleaned == "" {
		return Result{Source: SourceLocal}
	}
	if r.Remote == nil {
		return Result{Segments: Chunk(cleaned), Source: SourceLocal}
	}

	v, _, _ := r.group.Do(Key(cleaned), func() (any, error) {
		return r.resolve(ctx, cleaned, paragraphs), nil
	})
	res := v.(Result)
	res.Segments = slices.Clone(res.Segments)
	return res
}

func (r *Resolver) resolve(ctx context.Context, cleaned string, paragraphs []string) Result {
	key := Key(cleaned)
	if r.Cache != nil {
		segs, ok, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("key", key[:12]).Msg("segment cache read")
		case ok:
			if segs, err = r.check(segs, cleaned); err == nil {
				return Result{Segments: segs, Source: SourceCache}
			}
			log.Warn().Err(err).Str("key", key[:12]).Msg("discarding cached segments")
		}
	}

	callCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	segs, err := r.Remote.Segment(callCtx, paragraphs)
	if err != nil {
		err = &ServiceError{Err: err}
	} else {
		segs, err = r.check(segs, cleaned)
	}
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("remote segmentation failed, using local fallback")
		return Result{Segments: Chunk(cleaned), Source: SourceLocal}
	}

	if r.Cache != nil {
		if err := r.Cache.Put(ctx, key, segs); err != nil {
			log.Warn().Err(err).Str("key", key[:12]).Msg("segment cache write")
		}
	}
	log.Debug().Int("segments", len(segs)).Dur("elapsed", time.Since(start)).Msg("remote segmentation")
	return Result{Segments: segs, Source: SourceRemote}
}

// check cleans remote segments and makes sure they cover cleaned exactly.
func (r *Resolver) check(segs []string, cleaned string) ([]string, error) {
	if len(segs) == 0 {
		return nil, &ServiceError{Err: ErrEmptyResponse}
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		s = Clean(s)
		if s == "" {
			return nil, &ServiceError{Err: fmt.Errorf("%w: segment %d is empty", ErrMalformedResponse, i)}
		}
		if n := utf8.RuneCountInString(s); r.MaxRunes > 0 && n > r.MaxRunes {
			return nil, &ServiceError{Err: fmt.Errorf("%w: segment %d has %d characters", ErrMalformedResponse, i, n)}
		}
		out[i] = s
	}
	if strings.Join(out, "") != cleaned {
		return nil, &ServiceError{Err: ErrTextMismatch}
	}
	return out, nil
}
