package openapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/readerspec/core/convention"
	"github.com/artpar/readerspec/core/spec"
)

// Loader returns the current set of valid resource descriptions.
type Loader func(ctx context.Context) ([]spec.ResourceDescription, error)

// Service serves OpenAPI specs for a changing set of documents. The spec is
// regenerated only when the loaded descriptions change.
type Service struct {
	load    Loader
	appName string
	logger  zerolog.Logger

	mu    sync.Mutex
	cache *cachedSpec
}

type cachedSpec struct {
	spec     *Spec
	dataHash string
}

// ServiceConfig contains configuration for the OpenAPI service.
type ServiceConfig struct {
	Loader  Loader
	AppName string
	Logger  zerolog.Logger
}

// NewService creates a new OpenAPI service.
func NewService(cfg ServiceConfig) *Service {
	appName := cfg.AppName
	if appName == "" {
		appName = "readerspec"
	}

	return &Service{
		load:    cfg.Loader,
		appName: appName,
		logger:  cfg.Logger,
	}
}

// Combined returns one spec covering every loaded resource, with baseURL as
// its server.
func (s *Service) Combined(ctx context.Context, baseURL string) (*Spec, error) {
	rds, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load descriptions: %w", err)
	}

	dataHash, err := computeDataHash(rds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil || s.cache.dataHash != dataHash {
		g := NewGenerator(convention.DeriveAll(rds))
		g.SetInfo(Info{
			Title:       s.appName + " API",
			Description: "Generated from readerspec documents",
			Version:     "1.0.0",
		})
		s.cache = &cachedSpec{spec: g.Generate(), dataHash: dataHash}
		s.logger.Debug().Int("resources", len(rds)).Str("hash", dataHash).Msg("OpenAPI spec regenerated")
	}

	return withServer(s.cache.spec, baseURL)
}

// Resource returns the spec of a single resource with baseURL as its server.
func Resource(rd spec.ResourceDescription, baseURL string) (*Spec, error) {
	return withServer(ForResource(rd).Generate(), baseURL)
}

// InvalidateCache forces the next Combined call to regenerate the spec.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	s.logger.Debug().Msg("OpenAPI cache invalidated")
}

// computeDataHash fingerprints the descriptions in order.
func computeDataHash(rds []spec.ResourceDescription) (string, error) {
	data, err := json.Marshal(rds)
	if err != nil {
		return "", fmt.Errorf("hash descriptions: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

// withServer returns a deep copy of s with baseURL as its only server.
func withServer(s *Spec, baseURL string) (*Spec, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("clone spec: %w", err)
	}

	var cloned Spec
	if err := json.Unmarshal(data, &cloned); err != nil {
		return nil, fmt.Errorf("clone spec: %w", err)
	}

	if baseURL != "" {
		cloned.Servers = []Server{{URL: baseURL, Description: "Current server"}}
	}
	return &cloned, nil
}
