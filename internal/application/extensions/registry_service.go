// Package extensions exposes the extension registry administratively: the
// per-target catalogue owning modules query, and the rebuild operation
// with its cross-instance broadcast.
package extensions

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
)

// RebuildPublisher broadcasts a registry rebuild to other instances
type RebuildPublisher interface {
	PublishRebuild(ctx context.Context, module string) error
}

// FieldDTO describes one contributed storage field
type FieldDTO struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ColumnType string `json:"columnType"`
	Label      string `json:"label,omitempty"`
}

// DescriptorDTO is the catalogue entry for one extension's contributions
// to one target
type DescriptorDTO struct {
	Target     string            `json:"target"`
	Fields     []FieldDTO        `json:"fields"`
	Relations  []string          `json:"relations"`
	Computed   []string          `json:"computed"`
	Scopes     []string          `json:"scopes"`
	Validation map[string]string `json:"validation,omitempty"`
}

// RegistryService answers catalogue queries and performs rebuilds
type RegistryService struct {
	registry  *extension.Registry
	publisher RebuildPublisher
	logger    *zap.Logger
}

// NewRegistryService creates a new RegistryService. The publisher may be
// nil when no broadcast transport is configured.
func NewRegistryService(registry *extension.Registry, publisher RebuildPublisher, log *zap.Logger) *RegistryService {
	if log == nil {
		log = logger.L(context.Background())
	}
	return &RegistryService{registry: registry, publisher: publisher, logger: log}
}

// Catalogue lists what every registered extension contributes to one
// target entity, in registration order
func (s *RegistryService) Catalogue(module, entity string) ([]DescriptorDTO, error) {
	target := module + "." + entity
	descriptors := s.registry.DescriptorsFor(target)
	if descriptors == nil {
		if !targetKnown(s.registry, target) {
			return nil, shared.ErrNotFound
		}
		return []DescriptorDTO{}, nil
	}

	result := make([]DescriptorDTO, len(descriptors))
	for i, desc := range descriptors {
		result[i] = toDescriptorDTO(desc)
	}
	return result, nil
}

// Targets lists the base entities open for extension
func (s *RegistryService) Targets() []string {
	return s.registry.Targets()
}

// Version returns the published index version
func (s *RegistryService) Version() int64 {
	return s.registry.Version()
}

// Rebuild re-validates and atomically republishes the index, then
// broadcasts so other instances do the same. A failed rebuild leaves the
// previous index serving and is returned to the caller.
func (s *RegistryService) Rebuild(ctx context.Context, module string) (int64, error) {
	if err := s.registry.Rebuild(); err != nil {
		s.logger.Error("registry rebuild failed", zap.Error(err))
		return s.registry.Version(), err
	}

	version := s.registry.Version()
	s.logger.Info("extension registry rebuilt",
		zap.Int64("version", version),
		zap.String("module", module))

	if s.publisher != nil {
		if err := s.publisher.PublishRebuild(ctx, module); err != nil {
			// Local rebuild already succeeded; peers catch up on their
			// next explicit rebuild.
			s.logger.Warn("rebuild broadcast failed", zap.Error(err))
		}
	}
	return version, nil
}

func toDescriptorDTO(desc extension.Descriptor) DescriptorDTO {
	dto := DescriptorDTO{
		Target:     desc.Target,
		Fields:     make([]FieldDTO, 0, len(desc.Fields)),
		Relations:  sortedKeys(desc.Relations),
		Computed:   sortedKeys(desc.Computed),
		Scopes:     sortedKeys(desc.Scopes),
		Validation: desc.Validation,
	}
	for _, name := range sortedKeys(desc.Fields) {
		field := desc.Fields[name]
		dto.Fields = append(dto.Fields, FieldDTO{
			Name:       name,
			Type:       string(field.Kind),
			ColumnType: field.ColumnType(),
			Label:      field.Label,
		})
	}
	return dto
}

func targetKnown(registry *extension.Registry, target string) bool {
	target = strings.ToLower(strings.TrimSpace(target))
	for _, known := range registry.Targets() {
		if known == target {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
