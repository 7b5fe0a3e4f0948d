package backup_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	godigest "github.com/opencontainers/go-digest"
	. "github.com/smartystreets/goconvey/convey"

	tserr "github.com/tagsweep/tagsweep/errors"
	"github.com/tagsweep/tagsweep/pkg/backup"
	"github.com/tagsweep/tagsweep/pkg/log"
	"github.com/tagsweep/tagsweep/pkg/test/mocks"
)

func TestBackupStep(t *testing.T) {
	logger := log.NewLogger("debug", "")
	digest := godigest.FromString("image-content")

	Convey("backing up a resolvable tag", t, func() {
		tags := map[string]godigest.Digest{"latest": digest}

		client := mocks.RegistryClientMock{
			ResolveTagFn: func(ctx context.Context, repo, tag string) (godigest.Digest, error) {
				resolved, ok := tags[tag]
				if !ok {
					return "", fmt.Errorf("%w: %s:%s", tserr.ErrTagNotFound, repo, tag)
				}

				return resolved, nil
			},
			PutTagFn: func(ctx context.Context, repo, tag string, dgst godigest.Digest) error {
				tags[tag] = dgst

				return nil
			},
		}

		step := backup.NewStep(client, "backup", logger)

		Convey("creates a backup tag resolving to the source digest", func() {
			record, err := step.Run(context.Background(), "repo", "latest", "42")

			So(err, ShouldBeNil)
			So(record, ShouldNotBeNil)
			So(record.BackupTag, ShouldEqual, "backup-latest-42")
			So(record.Digest, ShouldEqual, digest)

			// round-trip: the backup resolves to the digest the source had
			So(tags["backup-latest-42"], ShouldEqual, digest)
			// and the source tag itself is untouched
			So(tags["latest"], ShouldEqual, digest)
		})

		Convey("generates a token when the orchestrator supplies none", func() {
			record, err := step.Run(context.Background(), "repo", "latest", "")

			So(err, ShouldBeNil)
			So(record, ShouldNotBeNil)
			So(record.BackupTag, ShouldStartWith, "backup-latest-")
			So(len(record.BackupTag), ShouldBeGreaterThan, len("backup-latest-"))
		})

		Convey("refuses to clobber an existing backup tag", func() {
			tags["backup-latest-42"] = godigest.FromString("previous-backup")

			record, err := step.Run(context.Background(), "repo", "latest", "42")

			So(record, ShouldBeNil)
			So(errors.Is(err, tserr.ErrBackupTagExists), ShouldBeTrue)
			// the colliding tag is untouched
			So(tags["backup-latest-42"], ShouldEqual, godigest.FromString("previous-backup"))
		})
	})

	Convey("a missing source tag is a no-op, not an error", t, func() {
		client := mocks.RegistryClientMock{
			ResolveTagFn: func(ctx context.Context, repo, tag string) (godigest.Digest, error) {
				return "", fmt.Errorf("%w: %s:%s", tserr.ErrTagNotFound, repo, tag)
			},
			PutTagFn: func(ctx context.Context, repo, tag string, dgst godigest.Digest) error {
				t.Fatal("nothing should be created")

				return nil
			},
		}

		step := backup.NewStep(client, "backup", logger)

		record, err := step.Run(context.Background(), "repo", "latest", "1")

		So(err, ShouldBeNil)
		So(record, ShouldBeNil)
	})

	Convey("failures are fatal so the deploy does not proceed", t, func() {
		Convey("when the source cannot be resolved", func() {
			client := mocks.RegistryClientMock{
				ResolveTagFn: func(ctx context.Context, repo, tag string) (godigest.Digest, error) {
					return "", tserr.ErrRegistryUnavailable
				},
			}

			step := backup.NewStep(client, "backup", logger)

			record, err := step.Run(context.Background(), "repo", "latest", "1")

			So(record, ShouldBeNil)
			So(errors.Is(err, tserr.ErrRegistryUnavailable), ShouldBeTrue)
		})

		Convey("when tag creation fails", func() {
			client := mocks.RegistryClientMock{
				ResolveTagFn: func(ctx context.Context, repo, tag string) (godigest.Digest, error) {
					if tag == "latest" {
						return godigest.FromString("image-content"), nil
					}

					return "", fmt.Errorf("%w: %s:%s", tserr.ErrTagNotFound, repo, tag)
				},
				PutTagFn: func(ctx context.Context, repo, tag string, dgst godigest.Digest) error {
					return tserr.ErrRegistryUnavailable
				},
			}

			step := backup.NewStep(client, "backup", logger)

			record, err := step.Run(context.Background(), "repo", "latest", "1")

			So(record, ShouldBeNil)
			So(errors.Is(err, tserr.ErrRegistryUnavailable), ShouldBeTrue)
		})
	})
}
