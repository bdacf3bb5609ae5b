package redisview

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/cqrs-es-go/cqrs"
)

const (
	defaultKeyPrefix = "cqrs:view:"

	fieldVersion = "version"
	fieldPayload = "payload"

	logMsgViewVersionConflict = "redisview: view version conflict detected"
	logMsgViewUpdated         = "redisview: view updated"
	logMsgRedisFailed         = "redisview: redis command failed"
	logAttrKey                = "key"
	logAttrVersion            = "version"
	logAttrError              = "error"
)

// updateViewScript stores the view only if the stored version equals the expected one.
// KEYS[1] = view key
// ARGV[1] = expected version, 0 for a view that does not exist yet
// ARGV[2] = view payload
var updateViewScript = redis.NewScript(`
local current = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
if current ~= tonumber(ARGV[1]) then
    return 0
end
redis.call("HSET", KEYS[1], "version", current + 1, "payload", ARGV[2])
return 1
`)

// Option configures a Repository.
type Option func(*settings)

type settings struct {
	keyPrefix string
	logger    cqrs.Logger
}

// WithKeyPrefix sets the prefix of all keys, the default is "cqrs:view:".
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		s.keyPrefix = prefix
	}
}

// WithLogger sets the logger, version conflicts are logged at info level, redis failures at error level.
func WithLogger(logger cqrs.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Repository stores views of type V in Redis hashes.
type Repository[V any] struct {
	client   redis.UniversalClient
	viewType string
	settings
}

// NewRepository creates a Repository for the view type on the client.
func NewRepository[V any](client redis.UniversalClient, viewType string, options ...Option) (*Repository[V], error) {
	if client == nil {
		return nil, ErrNilClient
	}

	if viewType == "" {
		return nil, ErrEmptyViewTypeSupplied
	}

	s := settings{keyPrefix: defaultKeyPrefix}
	for _, option := range options {
		option(&s)
	}

	return &Repository[V]{client: client, viewType: viewType, settings: s}, nil
}

// Key returns the redis key of the view.
func (r *Repository[V]) Key(viewID string) string {
	return r.keyPrefix + r.viewType + ":" + viewID
}

// Load returns the view and true, or the zero view and false if it does not exist.
func (r *Repository[V]) Load(ctx context.Context, viewID string) (V, bool, error) {
	view, _, found, err := r.LoadWithContext(ctx, viewID)

	return view, found, err
}

// LoadWithContext returns the view together with the version it was stored at.
func (r *Repository[V]) LoadWithContext(ctx context.Context, viewID string) (V, cqrs.ViewContext, bool, error) {
	var view V

	if viewID == "" {
		return view, cqrs.ViewContext{}, false, cqrs.ErrEmptyViewID
	}

	key := r.Key(viewID)

	values, err := r.client.HMGet(ctx, key, fieldVersion, fieldPayload).Result()
	if err != nil {
		r.logError(logMsgRedisFailed, err, key)
		return view, cqrs.ViewContext{}, false, errors.Join(ErrLoadingViewFailed, err)
	}

	viewContext := cqrs.ViewContext{ViewID: viewID}

	rawVersion, versionOK := values[0].(string)
	rawPayload, payloadOK := values[1].(string)

	if !versionOK || !payloadOK {
		return view, viewContext, false, nil
	}

	version, err := strconv.ParseUint(rawVersion, 10, 64)
	if err != nil {
		return view, cqrs.ViewContext{}, false, errors.Join(ErrLoadingViewFailed, err)
	}

	if err := jsoniter.ConfigFastest.UnmarshalFromString(rawPayload, &view); err != nil {
		return view, cqrs.ViewContext{}, false, errors.Join(cqrs.ErrSerializingViewFailed, err)
	}

	viewContext.Version = uint(version)

	return view, viewContext, true, nil
}

// UpdateView stores the view if it was not updated since it was loaded with viewContext.
func (r *Repository[V]) UpdateView(ctx context.Context, view V, viewContext cqrs.ViewContext) error {
	if viewContext.ViewID == "" {
		return cqrs.ErrEmptyViewID
	}

	payload, err := jsoniter.ConfigFastest.MarshalToString(view)
	if err != nil {
		return errors.Join(cqrs.ErrSerializingViewFailed, err)
	}

	key := r.Key(viewContext.ViewID)

	stored, err := updateViewScript.Run(ctx, r.client, []string{key}, viewContext.Version, payload).Int64()
	if err != nil {
		r.logError(logMsgRedisFailed, err, key)
		return errors.Join(ErrStoringViewFailed, err)
	}

	switch stored {
	case 1:
		r.logDebug(logMsgViewUpdated, logAttrKey, key, logAttrVersion, viewContext.Version+1)
		return nil
	case 0:
		r.logInfo(logMsgViewVersionConflict, logAttrKey, key, logAttrVersion, viewContext.Version)
		return cqrs.ErrViewVersionConflict
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedScriptResult, stored)
	}
}

func (r *Repository[V]) logDebug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Repository[V]) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Repository[V]) logError(msg string, err error, key string) {
	if r.logger != nil {
		r.logger.Error(msg, logAttrError, err.Error(), logAttrKey, key)
	}
}
