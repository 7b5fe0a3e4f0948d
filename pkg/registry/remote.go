package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	godigest "github.com/opencontainers/go-digest"
	ispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/regclient/regclient"
	regcfg "github.com/regclient/regclient/config"
	"github.com/regclient/regclient/scheme/reg"
	"github.com/regclient/regclient/types/errs"
	"github.com/regclient/regclient/types/manifest"
	"github.com/regclient/regclient/types/ref"

	tserr "github.com/tagsweep/tagsweep/errors"
	"github.com/tagsweep/tagsweep/pkg/common"
	"github.com/tagsweep/tagsweep/pkg/config"
	"github.com/tagsweep/tagsweep/pkg/log"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

type Credentials struct {
	Username string
	Password string
}

// CredentialsFile maps a registry hostname to its credentials.
type CredentialsFile map[string]Credentials

func GetFileCredentials(filepath string) (CredentialsFile, error) {
	credsFile, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	var creds CredentialsFile

	err = json.Unmarshal(credsFile, &creds)
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// RemoteRegistry implements Client over the OCI distribution API.
type RemoteRegistry struct {
	client     *regclient.RegClient
	host       string
	maxRetries int
	retryDelay time.Duration
	log        log.Logger
}

func NewRemoteRegistry(conf config.RegistryConfig, logger log.Logger) (*RemoteRegistry, error) {
	address := conf.Address
	if !strings.Contains(address, "://") {
		address = "https://" + address
	}

	registryURL, err := url.Parse(address)
	if err != nil || registryURL.Host == "" {
		return nil, fmt.Errorf("%w: %s", tserr.ErrParseReference, conf.Address)
	}

	hostConfig := regcfg.Host{}

	host := regcfg.HostNew()
	if host != nil {
		hostConfig = *host
	}

	hostConfig.Name = registryURL.Host
	hostConfig.Hostname = registryURL.Host
	hostConfig.TLS = getTLSConfigOption(registryURL, conf.Insecure)

	username, password := conf.Username, conf.Password

	if conf.CredentialsFile != "" {
		creds, err := GetFileCredentials(conf.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading credentials file: %w", tserr.ErrBadConfig, err)
		}

		if cred, ok := creds[registryURL.Host]; ok {
			username = cred.Username
			password = cred.Password
		}
	}

	hostConfig.User = username
	hostConfig.Pass = password

	maxRetries := defaultMaxRetries
	if conf.MaxRetries != nil {
		maxRetries = *conf.MaxRetries
	}

	retryDelay := defaultRetryDelay
	if conf.RetryDelay != nil {
		retryDelay = *conf.RetryDelay
	}

	client := regclient.New(
		regclient.WithDockerCerts(),
		regclient.WithDockerCreds(),
		regclient.WithRegOpts(reg.WithRetryLimit(maxRetries)),
		regclient.WithConfigHost(hostConfig),
	)

	return &RemoteRegistry{
		client:     client,
		host:       registryURL.Host,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        logger,
	}, nil
}

func getTLSConfigOption(registryURL *url.URL, insecure bool) regcfg.TLSConf {
	// by default enabled
	tls := regcfg.TLSEnabled

	if insecure {
		tls = regcfg.TLSInsecure
	}

	// conn is http => disabled
	if registryURL.Scheme == "http" {
		tls = regcfg.TLSDisabled
	}

	return tls
}

func (r *RemoteRegistry) ListTags(ctx context.Context, repo string) ([]TagInfo, error) {
	repoRef, err := ref.New(fmt.Sprintf("%s/%s", r.host, repo))
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", tserr.ErrParseReference, r.host, repo)
	}

	var tags []string

	err = common.RetryWithContext(ctx, func(attempt int, retryIn time.Duration) error {
		tagList, err := r.client.TagList(ctx, repoRef)
		if err != nil {
			r.log.Warn().Err(err).Str("repository", repo).Int("attempt", attempt).
				Dur("retryIn", retryIn).Msg("failed to list tags in remote registry")

			return err
		}

		tags, err = tagList.GetTags()

		return err
	}, r.maxRetries, r.retryDelay)
	if err != nil {
		return nil, mapTransportErr(err, fmt.Sprintf("listing tags of %s", repo))
	}

	infos := make([]TagInfo, 0, len(tags))

	for _, tag := range tags {
		imageRef, err := r.imageReference(repo, tag)
		if err != nil {
			return nil, err
		}

		man, err := r.client.ManifestGet(ctx, imageRef)
		if err != nil {
			// deleted between list and inspect
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}

			return nil, mapTransportErr(err, fmt.Sprintf("inspecting %s:%s", repo, tag))
		}

		infos = append(infos, TagInfo{
			Name:     tag,
			Digest:   man.GetDescriptor().Digest,
			PushedAt: r.pushTimestamp(ctx, imageRef, man),
		})

		_ = r.client.Close(ctx, imageRef)
	}

	return infos, nil
}

func (r *RemoteRegistry) ResolveTag(ctx context.Context, repo, tag string) (godigest.Digest, error) {
	imageRef, err := r.imageReference(repo, tag)
	if err != nil {
		return "", err
	}

	man, err := r.client.ManifestHead(ctx, imageRef)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", fmt.Errorf("%w: %s:%s", tserr.ErrTagNotFound, repo, tag)
		}

		return "", mapTransportErr(err, fmt.Sprintf("resolving %s:%s", repo, tag))
	}

	return man.GetDescriptor().Digest, nil
}

// DeleteTag removes the manifest the tag points at, which is how registries
// in the wild (ACR, distribution) implement tag deletion. When several tags
// share the manifest they all disappear together; a later DeleteTag for one
// of them then reports ErrTagNotFound, which callers count as success.
func (r *RemoteRegistry) DeleteTag(ctx context.Context, repo, tag string) error {
	digest, err := r.ResolveTag(ctx, repo, tag)
	if err != nil {
		return err
	}

	digestRef, err := r.digestReference(repo, digest)
	if err != nil {
		return err
	}

	if err := r.client.ManifestDelete(ctx, digestRef); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: %s:%s", tserr.ErrTagNotFound, repo, tag)
		}

		return mapTransportErr(err, fmt.Sprintf("deleting %s:%s", repo, tag))
	}

	return nil
}

func (r *RemoteRegistry) PutTag(ctx context.Context, repo, tag string, digest godigest.Digest) error {
	digestRef, err := r.digestReference(repo, digest)
	if err != nil {
		return err
	}

	man, err := r.client.ManifestGet(ctx, digestRef)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: %s@%s", tserr.ErrTagNotFound, repo, digest)
		}

		return mapTransportErr(err, fmt.Sprintf("fetching %s@%s", repo, digest))
	}

	imageRef, err := r.imageReference(repo, tag)
	if err != nil {
		return err
	}

	if err := r.client.ManifestPut(ctx, imageRef, man); err != nil {
		return mapTransportErr(err, fmt.Sprintf("tagging %s:%s", repo, tag))
	}

	return nil
}

func (r *RemoteRegistry) imageReference(repo, tag string) (ref.Ref, error) {
	imageRef, err := ref.New(fmt.Sprintf("%s/%s:%s", r.host, repo, tag))
	if err != nil {
		return ref.Ref{}, fmt.Errorf("%w: %s/%s:%s", tserr.ErrParseReference, r.host, repo, tag)
	}

	return imageRef, nil
}

func (r *RemoteRegistry) digestReference(repo string, digest godigest.Digest) (ref.Ref, error) {
	digestRef, err := ref.New(fmt.Sprintf("%s/%s@%s", r.host, repo, digest.String()))
	if err != nil {
		return ref.Ref{}, fmt.Errorf("%w: %s/%s@%s", tserr.ErrParseReference, r.host, repo, digest)
	}

	return digestRef, nil
}

// pushTimestamp reads the push time from the manifest's created annotation,
// falling back to the image config's created field. Registries which expose
// neither yield the zero time, ranking the tag oldest.
func (r *RemoteRegistry) pushTimestamp(ctx context.Context, imageRef ref.Ref, man manifest.Manifest) time.Time {
	if annotator, ok := man.(manifest.Annotator); ok {
		annotations, err := annotator.GetAnnotations()
		if err == nil {
			if created, ok := annotations[ispec.AnnotationCreated]; ok {
				if timestamp, err := time.Parse(time.RFC3339, created); err == nil {
					return timestamp
				}
			}
		}
	}

	if imager, ok := man.(manifest.Imager); ok {
		configDesc, err := imager.GetConfig()
		if err == nil {
			ociConfig, err := r.client.BlobGetOCIConfig(ctx, imageRef, configDesc)
			if err == nil {
				conf := ociConfig.GetConfig()

				image := ispec.Image{Created: conf.Created}
				for _, entry := range conf.History {
					image.History = append(image.History, ispec.History{
						Created:    entry.Created,
						CreatedBy:  entry.CreatedBy,
						Author:     entry.Author,
						Comment:    entry.Comment,
						EmptyLayer: entry.EmptyLayer,
					})
				}

				return common.GetImageLastUpdated(image)
			}
		}
	}

	return time.Time{}
}

func mapTransportErr(err error, op string) error {
	/* public registries may return 401 for image not found
	they will try to check private registries as a fallback => 401 */
	if errors.Is(err, errs.ErrHTTPUnauthorized) {
		return fmt.Errorf("%w: %s: %w", tserr.ErrUnauthorizedAccess, op, err)
	}

	return fmt.Errorf("%w: %s: %w", tserr.ErrRegistryUnavailable, op, err)
}
