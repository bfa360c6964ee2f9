package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/semchunk/internal/storage"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix limits which environment variables are considered.
const EnvPrefix = "SEMCHUNK_"

// Load builds a Config from defaults, then SEMCHUNK_* environment variables,
// then overrides. Override keys are dotted koanf paths such as
// "chunking.chunk_size".
func Load(ctx context.Context, overrides map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	envToPath := envMappings()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// unmapped variables are skipped
			return envToPath[key], value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set key %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	if err := validate().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ch := cfg.Chunking
	switch {
	case ch.ChunkOverlap >= ch.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", ErrInvalid, ch.ChunkOverlap, ch.ChunkSize)
	case ch.MinTokens > ch.MaxTokens:
		return fmt.Errorf("%w: min_tokens (%d) exceeds max_tokens (%d)", ErrInvalid, ch.MinTokens, ch.MaxTokens)
	case ch.ChildChunkSize > ch.ParentChunkSize:
		return fmt.Errorf("%w: child_chunk_size (%d) exceeds parent_chunk_size (%d)", ErrInvalid, ch.ChildChunkSize, ch.ParentChunkSize)
	case ch.ParentChunkSize > ch.MaxTokens:
		return fmt.Errorf("%w: parent_chunk_size (%d) exceeds max_tokens (%d)", ErrInvalid, ch.ParentChunkSize, ch.MaxTokens)
	}

	switch cfg.Cache.Backend {
	case storage.BackendSQLite:
		if strings.TrimSpace(cfg.Cache.Path) == "" {
			return fmt.Errorf("%w: cache.path is required for the sqlite backend", ErrInvalid)
		}
	case storage.BackendRedis:
		if strings.TrimSpace(cfg.Cache.URL) == "" {
			return fmt.Errorf("%w: cache.url is required for the redis backend", ErrInvalid)
		}
	}
	return nil
}

// EnvVars lists every supported environment variable with its config path.
func EnvVars() map[string]string {
	src := envMappings()
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var envMappings = sync.OnceValue(func() map[string]string {
	out := make(map[string]string)
	extractMappings(reflect.TypeOf(Config{}), "", out)
	return out
})

func extractMappings(t reflect.Type, prefix string, out map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if envVar := field.Tag.Get("env"); envVar != "" && envVar != "-" {
			out[envVar] = path
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			extractMappings(field.Type, path, out)
		}
	}
}
