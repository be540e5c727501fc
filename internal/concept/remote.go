package concept

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/httpclient"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// maxResponseBytes bounds the thesaurus response body.
const maxResponseBytes = 1 << 20

// RemoteResolver looks concept types up in a thesaurus service:
//
//	GET {baseURL}/concept-types/{key}  ->  200 {"id": ..., "key": ..., "label": ..., "code": ...}
//	                                   ->  404 when the key is unknown
type RemoteResolver struct {
	baseURL string
	client  *httpclient.Client
	log     logger.Logger
	limiter *rate.Limiter // nil means unlimited
}

// RemoteOption configures a RemoteResolver.
type RemoteOption func(*RemoteResolver)

// WithRateLimit caps requests to the thesaurus at perSecond with the given
// burst. A perSecond of zero or less leaves requests unlimited.
func WithRateLimit(perSecond float64, burst int) RemoteOption {
	return func(r *RemoteResolver) {
		if perSecond <= 0 {
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// NewRemoteResolver creates a resolver for baseURL using client.
func NewRemoteResolver(baseURL string, client *httpclient.Client, log logger.Logger, opts ...RemoteOption) (*RemoteResolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Newf("invalid concept service url %q", baseURL).
			Component(componentConcept).
			Category(errors.CategoryConfiguration).
			Build()
	}

	r := &RemoteResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	if log != nil {
		client.SetAfterResponseHook(r.logResponse)
	}
	return r, nil
}

func (r *RemoteResolver) logResponse(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	if err != nil {
		r.log.Warn("concept service request failed",
			logger.String("url", req.URL.Redacted()),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return
	}
	r.log.Debug("concept service request",
		logger.String("url", req.URL.Redacted()),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", elapsed))
}

// Resolve fetches the concept type for key.
func (r *RemoteResolver) Resolve(ctx context.Context, key string) (*ConceptType, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, notFound(key, "remote")
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, errors.New(err).
				Component(componentConcept).
				Category(errors.CategoryNetwork).
				Context("operation", "rate_limiter_wait").
				Context("key", key).
				Build()
		}
	}

	endpoint := r.baseURL + "/concept-types/" + url.PathEscape(key)
	resp, err := r.client.Get(ctx, endpoint, "application/json")
	if err != nil {
		return nil, r.networkError(err, key)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFound(key, "remote")
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, errors.Newf("concept service returned status %d", resp.StatusCode).
			Component(componentConcept).
			Category(errors.CategoryHTTP).
			Context("key", key).
			Context("status", resp.StatusCode).
			Build()
	}

	var ct ConceptType
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&ct); err != nil {
		return nil, errors.New(fmt.Errorf("decode concept type: %w", err)).
			Component(componentConcept).
			Category(errors.CategoryFileParsing).
			Context("key", key).
			Build()
	}
	if ct.ID == "" {
		return nil, errors.Newf("concept service returned no id for %q", key).
			Component(componentConcept).
			Category(errors.CategoryValidation).
			Context("key", key).
			Build()
	}
	if ct.Key == "" {
		ct.Key = key
	}
	return &ct, nil
}

func (r *RemoteResolver) networkError(err error, key string) error {
	category := errors.CategoryNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		category = errors.CategoryTimeout
	} else if errors.Is(err, context.Canceled) {
		category = errors.CategoryCancellation
	}
	return errors.New(err).
		Component(componentConcept).
		Category(category).
		Context("key", key).
		Build()
}
