package settings

import (
	"context"
	"sort"
	"strconv"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/rs/zerolog"
)

// Setting is a key with its effective value.
type Setting struct {
	Key         string  `json:"key"`
	Value       float64 `json:"value"`
	Default     float64 `json:"default"`
	Overridden  bool    `json:"overridden"`
	Description string  `json:"description"`
}

// Service validates and serves numeric runtime settings.
type Service struct {
	repo     *Repository
	defaults map[string]float64
	events   *events.Manager
	log      zerolog.Logger
}

// NewService creates a settings service. eventManager may be nil.
func NewService(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	defaults := make(map[string]float64, len(Definitions))
	for k, d := range Definitions {
		defaults[k] = d.Default
	}
	return &Service{
		repo:     repo,
		defaults: defaults,
		events:   eventManager,
		log:      log.With().Str("service", "settings").Logger(),
	}
}

// SetDefault replaces the fallback for key, typically with an environment value.
func (s *Service) SetDefault(key string, value float64) {
	if _, ok := Definitions[key]; ok {
		s.defaults[key] = value
	}
}

// GetFloat returns the stored override for key, or its default.
func (s *Service) GetFloat(ctx context.Context, key string) (float64, error) {
	def, ok := s.defaults[key]
	if !ok {
		return 0, &domain.NotFoundError{Kind: "setting", ID: key}
	}
	v, err := s.repo.GetFloat(ctx, key, def)
	if err != nil {
		return def, &domain.PersistenceError{Op: "get setting", ID: key, Err: err}
	}
	if Definitions[key].Validate(key, v) != nil {
		s.log.Warn().Str("key", key).Float64("value", v).Msg("Stored setting out of range, using default")
		return def, nil
	}
	return v, nil
}

// GetInt is GetFloat truncated to int.
func (s *Service) GetInt(ctx context.Context, key string) (int, error) {
	v, err := s.GetFloat(ctx, key)
	return int(v), err
}

// Set validates and stores an override, then publishes SETTINGS_CHANGED.
func (s *Service) Set(ctx context.Context, key string, value float64) error {
	def, ok := Definitions[key]
	if !ok {
		return &domain.NotFoundError{Kind: "setting", ID: key}
	}
	if err := def.Validate(key, value); err != nil {
		return domain.NewValidationError(key, "%s", err.Error())
	}
	desc := def.Description
	if err := s.repo.Set(ctx, key, formatFloat(value), &desc); err != nil {
		return &domain.PersistenceError{Op: "set setting", ID: key, Err: err}
	}

	s.log.Info().Str("key", key).Float64("value", value).Msg("Setting updated")
	s.events.EmitTyped("settings", &events.SettingsChangedData{Key: key, Value: value})
	return nil
}

// Reset removes the override so the default applies again.
func (s *Service) Reset(ctx context.Context, key string) error {
	if _, ok := Definitions[key]; !ok {
		return &domain.NotFoundError{Kind: "setting", ID: key}
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return &domain.PersistenceError{Op: "reset setting", ID: key, Err: err}
	}
	s.events.EmitTyped("settings", &events.SettingsChangedData{Key: key, Value: s.defaults[key]})
	return nil
}

// List returns every known setting with its effective value, sorted by key.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	stored, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list settings", Err: err}
	}

	out := make([]Setting, 0, len(Definitions))
	for key, def := range Definitions {
		v, err := s.GetFloat(ctx, key)
		if err != nil {
			return nil, err
		}
		_, overridden := stored[key]
		out = append(out, Setting{
			Key:         key,
			Value:       v,
			Default:     s.defaults[key],
			Overridden:  overridden,
			Description: def.Description,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
