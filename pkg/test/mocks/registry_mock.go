package mocks

import (
	"context"

	godigest "github.com/opencontainers/go-digest"

	"github.com/tagsweep/tagsweep/pkg/registry"
)

type RegistryClientMock struct {
	ListTagsFn   func(ctx context.Context, repo string) ([]registry.TagInfo, error)
	ResolveTagFn func(ctx context.Context, repo, tag string) (godigest.Digest, error)
	DeleteTagFn  func(ctx context.Context, repo, tag string) error
	PutTagFn     func(ctx context.Context, repo, tag string, digest godigest.Digest) error
}

func (client RegistryClientMock) ListTags(ctx context.Context, repo string) ([]registry.TagInfo, error) {
	if client.ListTagsFn != nil {
		return client.ListTagsFn(ctx, repo)
	}

	return []registry.TagInfo{}, nil
}

func (client RegistryClientMock) ResolveTag(ctx context.Context, repo, tag string) (godigest.Digest, error) {
	if client.ResolveTagFn != nil {
		return client.ResolveTagFn(ctx, repo, tag)
	}

	return "", nil
}

func (client RegistryClientMock) DeleteTag(ctx context.Context, repo, tag string) error {
	if client.DeleteTagFn != nil {
		return client.DeleteTagFn(ctx, repo, tag)
	}

	return nil
}

func (client RegistryClientMock) PutTag(ctx context.Context, repo, tag string, digest godigest.Digest) error {
	if client.PutTagFn != nil {
		return client.PutTagFn(ctx, repo, tag, digest)
	}

	return nil
}
