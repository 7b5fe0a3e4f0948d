// Package backup snapshots a mutable tag under a unique name before a
// deploy repoints it, so a rollback target always exists.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	godigest "github.com/opencontainers/go-digest"

	tserr "github.com/tagsweep/tagsweep/errors"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
	"github.com/tagsweep/tagsweep/pkg/registry"
)

// Record describes one backup tag. The backup tag itself is just a tag:
// a later retention run governs its lifecycle.
type Record struct {
	Repository string
	SourceTag  string
	BackupTag  string
	Digest     godigest.Digest
	CreatedAt  time.Time
}

type Step struct {
	client registry.Client
	prefix string
	log    zlog.Logger
}

func NewStep(client registry.Client, prefix string, log zlog.Logger) *Step {
	return &Step{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

// Run creates "<prefix>-<sourceTag>-<token>" pointing at the digest
// sourceTag currently resolves to. A missing source tag is a no-op (first
// deploy, nothing to back up). Any other failure is fatal: callers must not
// proceed to overwrite sourceTag without a backup.
func (s *Step) Run(ctx context.Context, repo, sourceTag, token string) (*Record, error) {
	if token == "" {
		generated, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup token: %w", err)
		}

		token = generated.String()
	}

	digest, err := s.client.ResolveTag(ctx, repo, sourceTag)
	if err != nil {
		if errors.Is(err, tserr.ErrTagNotFound) {
			s.log.Info().Str("module", "backup").Str("repository", repo).Str("tag", sourceTag).
				Msg("source tag does not exist, nothing to back up")

			return nil, nil
		}

		return nil, err
	}

	backupTag := fmt.Sprintf("%s-%s-%s", s.prefix, sourceTag, token)

	// the uniqueness token is supposed to prevent collisions; a resolvable
	// backup name means a token was reused and the run must not clobber it
	_, err = s.client.ResolveTag(ctx, repo, backupTag)
	if err == nil {
		return nil, fmt.Errorf("%w: %s:%s", tserr.ErrBackupTagExists, repo, backupTag)
	} else if !errors.Is(err, tserr.ErrTagNotFound) {
		return nil, err
	}

	if err := s.client.PutTag(ctx, repo, backupTag, digest); err != nil {
		return nil, err
	}

	record := &Record{
		Repository: repo,
		SourceTag:  sourceTag,
		BackupTag:  backupTag,
		Digest:     digest,
		CreatedAt:  time.Now(),
	}

	s.log.Info().Str("module", "backup").Str("repository", repo).Str("sourceTag", sourceTag).
		Str("backupTag", backupTag).Str("digest", digest.String()).Msg("created backup tag")

	return record, nil
}
