// Package preview generates derived preview artifacts for theme
// packages asynchronously.
//
// The provider dispatches a (package, op) pair after a commit that
// requires (re)generation. Each job runs on its own goroutine under a
// fresh job token, renders per-component artifacts through opaque
// Renderer collaborators, persists the bytes through the Codec, and
// writes the resulting entries back through the provider's guarded
// writeback. A package that disappeared between dispatch and writeback
// is ignored.
package preview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
)

// Op distinguishes first-time generation from regeneration.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
)

func (o Op) String() string {
	if o == OpInsert {
		return "insert"
	}
	return "update"
}

// Dispatcher receives generation requests from the provider. Dispatch
// must not block; implementations queue or spawn.
type Dispatcher interface {
	Dispatch(pkg string, op Op)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(pkg string, op Op)

func (f DispatcherFunc) Dispatch(pkg string, op Op) { f(pkg, op) }

// Renderer produces the preview artifacts for one component of one
// package: semantic key to raw bytes. Renderers are opaque to the
// service; rendering is platform work, not registry work.
type Renderer interface {
	Render(ctx context.Context, pkg string, kind registry.ComponentKind) (map[string][]byte, error)
}

// Codec persists rendered bytes and returns the stored value (a blob
// path, or the bytes inlined as text for small artifacts).
type Codec interface {
	CompressAndStore(pkg, key string, data []byte) (string, error)
}

// Registry is the writeback surface the service needs from the
// provider. Both paths are guarded: they cannot alter install state.
type Registry interface {
	ThemeByPkg(ctx context.Context, pkg string) (*registry.Theme, error)
	WritePreviewArtifacts(ctx context.Context, pkg string, uris map[string]string) error
	ReplacePreviews(ctx context.Context, pkg string, componentID int, entries map[string]string) error
}

// Service is the in-process preview generator.
type Service struct {
	registry  Registry
	policy    *policy.Policy
	renderers map[registry.ComponentKind]Renderer
	codec     Codec

	wg sync.WaitGroup
}

// NewService creates a Service. Components without a renderer are
// skipped at generation time.
func NewService(reg Registry, pol *policy.Policy, renderers map[registry.ComponentKind]Renderer, codec Codec) *Service {
	return &Service{registry: reg, policy: pol, renderers: renderers, codec: codec}
}

// Dispatch starts one generation job for the package. Never blocks.
func (s *Service) Dispatch(pkg string, op Op) {
	job := uuid.Must(uuid.NewV7()).String()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.Background(), job, pkg, op)
	}()
}

// Wait blocks until every dispatched job has finished. Tests use this
// to observe writebacks deterministically.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) run(ctx context.Context, job, pkg string, op Op) {
	log := slog.With("job", job, "pkg", pkg, "op", op.String())

	theme, err := s.registry.ThemeByPkg(ctx, pkg)
	if registry.IsNotFound(err) {
		log.Info("package gone before generation, ignoring")
		return
	}
	if err != nil {
		log.Error("preview generation aborted", "error", err)
		return
	}

	artifacts := map[string]string{}
	for idx, kind := range s.policy.Kinds() {
		if !theme.Capabilities.Has(kind) {
			continue
		}
		renderer, ok := s.renderers[kind]
		if !ok {
			continue
		}
		rendered, err := renderer.Render(ctx, pkg, kind)
		if err != nil {
			log.Warn("component render failed, skipping", "component", kind, "error", err)
			continue
		}

		entries := map[string]string{}
		for key, data := range rendered {
			value, err := s.codec.CompressAndStore(pkg, key, data)
			if err != nil {
				log.Warn("artifact store failed, skipping key",
					"component", kind, "key", key, "error", err)
				continue
			}
			if store.PreviewArtifactColumns[key] {
				artifacts[key] = value
			} else {
				entries[key] = value
			}
		}
		if len(entries) == 0 {
			continue
		}
		if err := s.registry.ReplacePreviews(ctx, pkg, idx, entries); err != nil {
			if registry.IsNotFound(err) {
				log.Info("package gone before writeback, ignoring", "component", kind)
				return
			}
			log.Error("preview writeback failed", "component", kind, "error", err)
			return
		}
	}

	if len(artifacts) == 0 {
		return
	}
	if err := s.registry.WritePreviewArtifacts(ctx, pkg, artifacts); err != nil {
		if registry.IsNotFound(err) {
			log.Info("package gone before writeback, ignoring")
			return
		}
		log.Error("artifact writeback failed", "error", err)
	}
}
