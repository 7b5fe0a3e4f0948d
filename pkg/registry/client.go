// Package registry defines the registry collaborator contract consumed by
// the retention engine, plus a remote implementation speaking the OCI
// distribution API.
package registry

import (
	"context"
	"time"

	godigest "github.com/opencontainers/go-digest"
)

// TagInfo describes one tag of a repository. Multiple tags may share a
// digest: the same image content referenced by more than one name.
type TagInfo struct {
	Name     string
	Digest   godigest.Digest
	PushedAt time.Time
}

// Client is the only shared resource of a retention run. It is safe for
// sequential reuse; coordinating concurrent runs against the same repository
// is the caller's job.
type Client interface {
	// ListTags returns all tags of repo with their push timestamps. A
	// failure here aborts a run before anything has been mutated.
	ListTags(ctx context.Context, repo string) ([]TagInfo, error)

	// ResolveTag returns the digest tag currently points at, or
	// errors.ErrTagNotFound.
	ResolveTag(ctx context.Context, repo, tag string) (godigest.Digest, error)

	// DeleteTag removes the manifest tag points at. Returns
	// errors.ErrTagNotFound when the tag or its manifest is already absent,
	// which callers treat as success.
	DeleteTag(ctx context.Context, repo, tag string) error

	// PutTag creates tag pointing at an existing manifest digest.
	PutTag(ctx context.Context, repo, tag string, digest godigest.Digest) error
}
