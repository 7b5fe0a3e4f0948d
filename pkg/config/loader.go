package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	glob "github.com/bmatcuk/doublestar/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	tserr "github.com/tagsweep/tagsweep/errors"
	"github.com/tagsweep/tagsweep/pkg/common"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
)

// metadataConfig reports metadata after parsing, which we use to track
// unknown keys.
func metadataConfig(md *mapstructure.Metadata) viper.DecoderConfigOption {
	return func(c *mapstructure.DecoderConfig) {
		c.Metadata = md
	}
}

// Load reads configPath into conf and validates it. Validation failures are
// reported before any registry I/O happens.
func Load(conf *Config, configPath string, log zlog.Logger) error {
	viperInstance := viper.New()

	ext := filepath.Ext(configPath)
	ext = strings.Replace(ext, ".", "", 1)

	/* if file extension is not supported, try everything
	it's also possible that the filename is starting with a dot eg: ".config". */
	if !common.Contains(viper.SupportedExts, ext) {
		ext = ""
	}

	switch ext {
	case "":
		log.Info().Str("path", configPath).Msg("config file with no extension, trying all supported config types")

		var err error

		for _, configType := range viper.SupportedExts {
			viperInstance.SetConfigType(configType)
			viperInstance.SetConfigFile(configPath)

			err = viperInstance.ReadInConfig()
			if err == nil {
				break
			}
		}

		if err != nil {
			log.Error().Err(err).Str("path", configPath).
				Msg("failed to read configuration, tried all supported config types")

			return err
		}
	default:
		viperInstance.SetConfigFile(configPath)

		if err := viperInstance.ReadInConfig(); err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("failed to read configuration")

			return err
		}
	}

	metaData := &mapstructure.Metadata{}

	decoderOpts := []viper.DecoderConfigOption{
		metadataConfig(metaData),
		viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()),
	}

	if err := viperInstance.Unmarshal(conf, decoderOpts...); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config")

		return err
	}

	if len(metaData.Keys) == 0 {
		msg := "failed to load config due to the absence of any key:value pair"
		log.Error().Err(tserr.ErrBadConfig).Msg(msg)

		return fmt.Errorf("%w: %s", tserr.ErrBadConfig, msg)
	}

	if len(metaData.Unused) > 0 {
		msg := "failed to load config due to unknown keys"
		log.Error().Err(tserr.ErrBadConfig).Strs("keys", metaData.Unused).Msg(msg)

		return fmt.Errorf("%w: %s", tserr.ErrBadConfig, msg)
	}

	return Validate(conf, log)
}

// Validate rejects malformed configuration, the PolicyError class: nothing
// downstream runs on an invalid policy.
func Validate(conf *Config, log zlog.Logger) error {
	if conf.Log != nil && conf.Log.Level != "" {
		if _, err := zerolog.ParseLevel(conf.Log.Level); err != nil {
			log.Error().Err(tserr.ErrBadConfig).Str("level", conf.Log.Level).Msg("invalid log level")

			return fmt.Errorf("%w: invalid log level: %s", tserr.ErrBadConfig, conf.Log.Level)
		}
	}

	if conf.Registry.MaxRetries != nil && *conf.Registry.MaxRetries < 0 {
		return fmt.Errorf("%w: registry maxRetries cannot be negative", tserr.ErrBadConfig)
	}

	if conf.Retention.Workers < 0 {
		return fmt.Errorf("%w: retention workers cannot be negative", tserr.ErrBadConfig)
	}

	if conf.Backup.Prefix == "" {
		return fmt.Errorf("%w: backup prefix cannot be empty", tserr.ErrBadConfig)
	}

	for _, policy := range conf.Retention.Policies {
		if err := validatePolicy(policy, log); err != nil {
			return err
		}
	}

	return nil
}

func validatePolicy(policy RetentionPolicy, log zlog.Logger) error {
	if len(policy.Repositories) == 0 {
		msg := "retention policy has no repository patterns"
		log.Error().Err(tserr.ErrBadConfig).Msg(msg)

		return fmt.Errorf("%w: %s", tserr.ErrBadConfig, msg)
	}

	for _, pattern := range policy.Repositories {
		if ok := glob.ValidatePattern(pattern); !ok {
			log.Error().Err(glob.ErrBadPattern).Str("pattern", pattern).
				Msg("retention repo glob pattern could not be compiled")

			return fmt.Errorf("%w: retention repo glob pattern could not be compiled: %s",
				tserr.ErrBadConfig, pattern)
		}
	}

	if policy.KeepCount < 0 {
		return fmt.Errorf("%w: retention keepCount cannot be negative", tserr.ErrBadConfig)
	}

	if policy.MaxAgeDays != nil && *policy.MaxAgeDays < 0 {
		return fmt.Errorf("%w: retention maxAgeDays cannot be negative", tserr.ErrBadConfig)
	}

	switch policy.Combine {
	case "", CombineUnion, CombineIntersection:
	default:
		return fmt.Errorf("%w: unknown combine mode: %s", tserr.ErrBadConfig, policy.Combine)
	}

	for _, protected := range policy.ProtectedTags {
		if _, err := regexp.Compile(protected); err != nil {
			log.Error().Err(err).Str("regex", protected).
				Msg("protected tag regex could not be compiled")

			return fmt.Errorf("%w: protected tag regex could not be compiled: %s",
				tserr.ErrBadConfig, protected)
		}
	}

	return nil
}
