package adapters

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"teemarker/models"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Deps are handed to adapter factories.
type Deps struct {
	Logger               *zap.Logger
	Timeout              time.Duration // per HTTP request
	FrancisByrneUsername string
	FrancisByrnePassword string
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Settings tune the dispatch wrapper around every adapter call.
type Settings struct {
	CallTimeout       time.Duration
	RequestsPerMinute int // per platform; <= 0 disables limiting
}

// Factory constructs the single shared instance of a platform adapter.
type Factory func(Deps) Adapter

type entry struct {
	adapter Adapter
	caps    Capabilities
	limiter *rate.Limiter
}

// Registry resolves course platforms to adapter instances and wraps every call
// with the authentication check and single refresh retry. Safe for concurrent use.
type Registry struct {
	deps     Deps
	settings Settings
	logger   *zap.Logger
	now      func() time.Time

	factories map[string]Factory
	aliases   map[string]string

	mu        sync.Mutex
	instances map[string]*entry

	refreshes singleflight.Group
}

func NewRegistry(deps Deps, settings Settings) *Registry {
	return &Registry{
		deps:      deps,
		settings:  settings,
		logger:    deps.logger().Named("registry"),
		now:       time.Now,
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
		instances: make(map[string]*entry),
	}
}

// NewDefaultRegistry registers every platform shipped with the server.
func NewDefaultRegistry(deps Deps, settings Settings) *Registry {
	r := NewRegistry(deps, settings)
	r.Register(PlatformFrancisByrne, func(d Deps) Adapter { return NewForeUpAdapter(d) }, "francis-byrne", "francis_byrne", "foreup")
	r.Register(PlatformREST, func(d Deps) Adapter { return NewRESTAdapter(d) }, "generic")
	return r
}

// Register adds a platform under key and its aliases. Registering must happen
// before the registry is shared.
func (r *Registry) Register(key string, factory Factory, aliases ...string) {
	key = normalizeKey(key)
	r.factories[key] = factory
	r.aliases[key] = key
	for _, alias := range aliases {
		r.aliases[normalizeKey(alias)] = key
	}
}

func normalizeKey(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// SupportedPlatforms lists canonical platform keys.
func (r *Registry) SupportedPlatforms() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) IsPlatformSupported(platform string) bool {
	_, ok := r.aliases[normalizeKey(platform)]
	return ok
}

func (r *Registry) entryFor(platform string) (*entry, string, error) {
	key, ok := r.aliases[normalizeKey(platform)]
	if !ok {
		return nil, "", newAdapterError(ErrUnsupportedPlatform, platform, "", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.instances[key]; ok {
		return e, key, nil
	}

	adapter := r.factories[key](r.deps)
	limit := rate.Inf
	burst := 1
	if r.settings.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(r.settings.RequestsPerMinute))
		burst = r.settings.RequestsPerMinute
	}
	e := &entry{adapter: adapter, caps: capabilitiesOf(adapter), limiter: rate.NewLimiter(limit, burst)}
	r.instances[key] = e

	r.logger.Info("Adapter initialized", zap.String("platform", key), zap.Stringer("capabilities", e.caps))
	return e, key, nil
}

// Resolve returns the shared adapter for the course's platform.
func (r *Registry) Resolve(course models.Course) (Adapter, error) {
	e, _, err := r.entryFor(course.Platform)
	if err != nil {
		return nil, err
	}
	return e.adapter, nil
}

// Capabilities reports the optional features of the course's adapter.
func (r *Registry) Capabilities(course models.Course) (Capabilities, error) {
	e, _, err := r.entryFor(course.Platform)
	if err != nil {
		return Capabilities{}, err
	}
	return e.caps, nil
}

// call bounds fn by the call timeout and the platform's outbound rate.
func (r *Registry) call(ctx context.Context, e *entry, key string, fn func(context.Context) error) error {
	if r.settings.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.settings.CallTimeout)
		defer cancel()
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return remoteError(key, err)
	}
	return classify(key, fn(ctx))
}

// refresh runs one login per platform and course at a time. The login is
// detached from the caller that started it and bounded by the call timeout, so
// callers joining it are not cut short by the first caller's deadline; each
// caller still stops waiting when its own context ends.
func (r *Registry) refresh(ctx context.Context, e *entry, key string, course models.Course) error {
	detached := context.WithoutCancel(ctx)
	ch := r.refreshes.DoChan(key+":"+course.ID, func() (any, error) {
		return nil, r.call(detached, e, key, func(ctx context.Context) error {
			return e.adapter.(TokenRefresher).RefreshToken(ctx, course)
		})
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.logger.Debug("Joined in-flight token refresh", zap.String("platform", key), zap.String("courseId", course.ID))
		}
		return res.Err
	case <-ctx.Done():
		return remoteError(key, ctx.Err())
	}
}

// ensureAuthenticated performs the auth check and at most one refresh.
func (r *Registry) ensureAuthenticated(ctx context.Context, e *entry, key string, course models.Course) error {
	if !e.caps.AuthCheck || e.adapter.(AuthChecker).IsAuthenticated(ctx, course) {
		return nil
	}
	if !e.caps.Refresh {
		return authError(key, "not authenticated and no refresh available")
	}

	if err := r.refresh(ctx, e, key, course); err != nil {
		r.logger.Warn("Token refresh failed", zap.String("platform", key), zap.String("courseId", course.ID), zap.Error(err))
		if errors.Is(err, ErrAuthentication) || ctx.Err() != nil {
			return err
		}
		return newAdapterError(ErrAuthentication, key, "token refresh failed", err)
	}
	return nil
}

// SearchTeeTimes dispatches a search to the course's adapter.
func (r *Registry) SearchTeeTimes(ctx context.Context, course models.Course, params models.SearchParams) ([]models.TeeTime, error) {
	e, key, err := r.entryFor(course.Platform)
	if err != nil {
		return nil, err
	}
	if err := r.ensureAuthenticated(ctx, e, key, course); err != nil {
		return nil, err
	}

	var teeTimes []models.TeeTime
	err = r.call(ctx, e, key, func(ctx context.Context) error {
		var err error
		teeTimes, err = e.adapter.SearchTeeTimes(ctx, course, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return teeTimes, nil
}

// BookTeeTime dispatches a booking to the course's adapter.
func (r *Registry) BookTeeTime(ctx context.Context, course models.Course, teeTime models.TeeTime, params models.BookingParams) (*models.Booking, error) {
	e, key, err := r.entryFor(course.Platform)
	if err != nil {
		return nil, err
	}
	if err := r.ensureAuthenticated(ctx, e, key, course); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = r.call(ctx, e, key, func(ctx context.Context) error {
		var err error
		booking, err = e.adapter.BookTeeTime(ctx, course, teeTime, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, malformedError(key, "adapter returned no booking", nil)
	}
	return booking, nil
}

// RefreshToken forces a refresh. It reports false when the adapter cannot refresh.
func (r *Registry) RefreshToken(ctx context.Context, course models.Course) (bool, error) {
	e, key, err := r.entryFor(course.Platform)
	if err != nil {
		return false, err
	}
	if !e.caps.Refresh {
		return false, nil
	}
	if err := r.refresh(ctx, e, key, course); err != nil {
		return false, err
	}
	return true, nil
}

// GetCourseInfo returns nil info when the adapter does not describe courses.
func (r *Registry) GetCourseInfo(ctx context.Context, course models.Course) (CourseInfo, error) {
	e, key, err := r.entryFor(course.Platform)
	if err != nil {
		return nil, err
	}
	if !e.caps.CourseInfo {
		return nil, nil
	}

	var info CourseInfo
	err = r.call(ctx, e, key, func(ctx context.Context) error {
		var err error
		info, err = e.adapter.(CourseInfoProvider).GetCourseInfo(ctx, course)
		return err
	})
	return info, err
}

// TestConnection is a best-effort probe: course info first, then the auth
// check, then a search for today. Any failure yields false.
func (r *Registry) TestConnection(ctx context.Context, course models.Course) bool {
	e, key, err := r.entryFor(course.Platform)
	if err != nil {
		r.logger.Warn("Connection test failed", zap.String("courseId", course.ID), zap.Error(err))
		return false
	}

	switch {
	case e.caps.CourseInfo:
		info, err := r.GetCourseInfo(ctx, course)
		return err == nil && info != nil
	case e.caps.AuthCheck:
		return e.adapter.(AuthChecker).IsAuthenticated(ctx, course)
	default:
		today := r.now().In(course.Location()).Format("2006-01-02")
		_, err := r.SearchTeeTimes(ctx, course, models.SearchParams{Date: today})
		if err != nil {
			r.logger.Info("Connection test search failed", zap.String("platform", key), zap.String("courseId", course.ID), zap.Error(err))
		}
		return err == nil
	}
}
