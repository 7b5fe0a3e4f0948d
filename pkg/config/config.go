package config

import (
	"fmt"
	"time"

	glob "github.com/bmatcuk/doublestar/v4"

	tserr "github.com/tagsweep/tagsweep/errors"
)

var (
	Commit     string //nolint: gochecknoglobals
	ReleaseTag string //nolint: gochecknoglobals
	GoVersion  string //nolint: gochecknoglobals
)

// CombineMode decides how the count and age constraints of a policy are
// combined when both are configured.
type CombineMode string

const (
	// CombineUnion deletes a tag when either constraint selects it for
	// deletion, i.e. whichever constraint would delete more, deletes.
	CombineUnion CombineMode = "union"
	// CombineIntersection deletes a tag only when both constraints agree.
	CombineIntersection CombineMode = "intersection"
)

type LogConfig struct {
	Level  string
	Output string
	Audit  string
}

type RegistryConfig struct {
	Address         string // registry host[:port], an optional http:// scheme disables TLS
	Insecure        bool   // skip TLS certificate verification
	Username        string
	Password        string
	CredentialsFile string `mapstructure:",omitempty"`
	MaxRetries      *int
	RetryDelay      *time.Duration
}

type BackupConfig struct {
	Prefix string
}

// RetentionPolicy is the rule set applied to every repository matched by one
// of its glob patterns. ProtectedTags entries are matched first as literal
// tag names and then as regular expressions.
type RetentionPolicy struct {
	Repositories  []string
	KeepCount     int
	MaxAgeDays    *int
	ProtectedTags []string
	Combine       CombineMode
}

type RetentionConfig struct {
	DryRun   bool
	Workers  int
	Policies []RetentionPolicy
}

type Config struct {
	Log       *LogConfig
	Registry  RegistryConfig
	Backup    BackupConfig
	Retention RetentionConfig
}

func New() *Config {
	return &Config{
		Log:    &LogConfig{Level: "info"},
		Backup: BackupConfig{Prefix: "backup"},
		Retention: RetentionConfig{
			Workers: 1,
		},
	}
}

// PolicyForRepo returns the first policy whose repository globs match repo.
func (c *Config) PolicyForRepo(repo string) (RetentionPolicy, error) {
	for _, policy := range c.Retention.Policies {
		for _, pattern := range policy.Repositories {
			matched, err := glob.Match(pattern, repo)
			if err == nil && matched {
				return policy, nil
			}
		}
	}

	return RetentionPolicy{}, fmt.Errorf("%w: %s", tserr.ErrPolicyNotFound, repo)
}

// MaxAge returns the age constraint as a duration, or false when unset.
func (p RetentionPolicy) MaxAge() (time.Duration, bool) {
	if p.MaxAgeDays == nil {
		return 0, false
	}

	return time.Duration(*p.MaxAgeDays) * 24 * time.Hour, true
}

func (p RetentionPolicy) CombineMode() CombineMode {
	if p.Combine == "" {
		return CombineUnion
	}

	return p.Combine
}
