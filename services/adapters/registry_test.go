package adapters

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"teemarker/models"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAdapter struct {
	searches atomic.Int32
	bookings atomic.Int32
	result   []models.TeeTime
	err      error
	delay    time.Duration
}

func (f *fakeAdapter) SearchTeeTimes(ctx context.Context, _ models.Course, _ models.SearchParams) ([]models.TeeTime, error) {
	f.searches.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeAdapter) BookTeeTime(_ context.Context, course models.Course, tt models.TeeTime, _ models.BookingParams) (*models.Booking, error) {
	f.bookings.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Booking{ID: "b-" + tt.ID, CourseID: course.ID, Status: models.BookingStatusConfirmed}, nil
}

type authFake struct {
	fakeAdapter
	authenticated atomic.Bool
	refreshErr    error
	refreshes     atomic.Int32
}

func (f *authFake) IsAuthenticated(context.Context, models.Course) bool { return f.authenticated.Load() }

func (f *authFake) RefreshToken(context.Context, models.Course) error {
	f.refreshes.Add(1)
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.authenticated.Store(true)
	return nil
}

type checkOnlyFake struct {
	fakeAdapter
}

func (f *checkOnlyFake) IsAuthenticated(context.Context, models.Course) bool { return false }

type infoFake struct {
	fakeAdapter
	err error
}

func (f *infoFake) GetCourseInfo(_ context.Context, course models.Course) (CourseInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return CourseInfo{"name": course.Name}, nil
}

// slowRefresher blocks its login until released and records the context state
// the login saw when it finished.
type slowRefresher struct {
	fakeAdapter
	started chan struct{}
	release chan struct{}
	seen    chan error
}

func newSlowRefresher() *slowRefresher {
	return &slowRefresher{started: make(chan struct{}, 1), release: make(chan struct{}), seen: make(chan error, 4)}
}

func (f *slowRefresher) IsAuthenticated(context.Context, models.Course) bool { return false }

func (f *slowRefresher) RefreshToken(ctx context.Context, _ models.Course) error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	select {
	case <-f.release:
		f.seen <- ctx.Err()
		return nil
	case <-ctx.Done():
		f.seen <- ctx.Err()
		return ctx.Err()
	}
}

func newTestRegistry(t *testing.T, settings Settings) *Registry {
	return NewRegistry(Deps{Logger: zaptest.NewLogger(t)}, settings)
}

func TestRegistryResolveAliasesShareInstance(t *testing.T) {
	var built atomic.Int32
	r := newTestRegistry(t, Settings{})
	r.Register("francisbyrne", func(Deps) Adapter {
		built.Add(1)
		return &fakeAdapter{}
	}, "francis-byrne", "francis_byrne")

	first, err := r.Resolve(models.Course{Platform: "FrancisByrne"})
	require.NoError(t, err)
	for _, alias := range []string{"francis-byrne", "francis_byrne", " FRANCISBYRNE "} {
		got, err := r.Resolve(models.Course{Platform: alias})
		require.NoError(t, err)
		assert.Same(t, first, got, alias)
	}
	assert.EqualValues(t, 1, built.Load())
	assert.True(t, r.IsPlatformSupported("Francis_Byrne"))
	assert.Equal(t, []string{"francisbyrne"}, r.SupportedPlatforms())
}

func TestRegistryUnsupportedPlatform(t *testing.T) {
	r := newTestRegistry(t, Settings{})

	_, err := r.SearchTeeTimes(t.Context(), models.Course{ID: "c", Platform: "teeitup"}, models.SearchParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.False(t, r.IsPlatformSupported("teeitup"))
}

func TestRegistryRefreshesOnceBeforeSearch(t *testing.T) {
	fake := &authFake{}
	fake.result = []models.TeeTime{{ID: "s1"}}
	r := newTestRegistry(t, Settings{})
	r.Register("p", func(Deps) Adapter { return fake })

	got, err := r.SearchTeeTimes(t.Context(), models.Course{ID: "c", Platform: "p"}, models.SearchParams{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.EqualValues(t, 1, fake.refreshes.Load())

	_, err = r.SearchTeeTimes(t.Context(), models.Course{ID: "c", Platform: "p"}, models.SearchParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, fake.refreshes.Load())
	assert.EqualValues(t, 2, fake.searches.Load())
}

func TestRegistryFailedRefreshIsAuthenticationFailure(t *testing.T) {
	fake := &authFake{refreshErr: errors.New("login page changed")}
	r := newTestRegistry(t, Settings{})
	r.Register("p", func(Deps) Adapter { return fake })

	_, err := r.BookTeeTime(t.Context(), models.Course{ID: "c", Platform: "p"}, models.TeeTime{ID: "s1"}, models.BookingParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.EqualValues(t, 1, fake.refreshes.Load())
	assert.Zero(t, fake.bookings.Load())
}

func TestRegistryRefreshOutlivesCancelledCaller(t *testing.T) {
	slow := newSlowRefresher()
	r := newTestRegistry(t, Settings{CallTimeout: 5 * time.Second})
	r.Register("foreup", func(Deps) Adapter { return slow })
	course := models.Course{ID: "c1", Platform: "foreup"}

	first, cancel := context.WithCancel(t.Context())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.RefreshToken(first, course)
		firstErr <- err
	}()
	<-slow.started

	cancel()
	err := <-firstErr
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteCall), err.Error())
	assert.True(t, errors.Is(err, context.Canceled), err.Error())

	secondErr := make(chan error, 1)
	go func() {
		_, err := r.RefreshToken(t.Context(), course)
		secondErr <- err
	}()
	close(slow.release)

	require.NoError(t, <-secondErr)
	assert.NoError(t, <-slow.seen, "the login keeps running after its first caller gives up")
}

func TestRegistryNoRefreshCapability(t *testing.T) {
	fake := &checkOnlyFake{}
	r := newTestRegistry(t, Settings{})
	r.Register("p", func(Deps) Adapter { return fake })

	caps, err := r.Capabilities(models.Course{Platform: "p"})
	require.NoError(t, err)
	assert.Equal(t, Capabilities{AuthCheck: true}, caps)

	_, err = r.SearchTeeTimes(t.Context(), models.Course{ID: "c", Platform: "p"}, models.SearchParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.Zero(t, fake.searches.Load())

	refreshed, err := r.RefreshToken(t.Context(), models.Course{ID: "c", Platform: "p"})
	require.NoError(t, err)
	assert.False(t, refreshed)
}

func TestRegistrySurfacesAdapterFailuresUnchanged(t *testing.T) {
	rejected := rejectedError("p", "Slot taken")
	fake := &fakeAdapter{err: rejected}
	r := newTestRegistry(t, Settings{})
	r.Register("p", func(Deps) Adapter { return fake })

	_, err := r.BookTeeTime(t.Context(), models.Course{ID: "c", Platform: "p"}, models.TeeTime{ID: "s1"}, models.BookingParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBookingRejected))
	assert.Equal(t, "Slot taken", RemoteMessage(err))
}

func TestRegistryCallTimeoutIsRemoteFailure(t *testing.T) {
	fake := &fakeAdapter{delay: time.Second}
	r := newTestRegistry(t, Settings{CallTimeout: 20 * time.Millisecond})
	r.Register("p", func(Deps) Adapter { return fake })

	start := time.Now()
	_, err := r.SearchTeeTimes(t.Context(), models.Course{ID: "c", Platform: "p"}, models.SearchParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteCall))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRegistryTestConnection(t *testing.T) {
	r := newTestRegistry(t, Settings{})
	r.Register("info", func(Deps) Adapter { return &infoFake{} })
	r.Register("broken-info", func(Deps) Adapter { return &infoFake{err: errors.New("down")} })
	r.Register("check", func(Deps) Adapter { return &checkOnlyFake{} })
	basic := &fakeAdapter{}
	r.Register("basic", func(Deps) Adapter { return basic })
	r.Register("failing", func(Deps) Adapter { return &fakeAdapter{err: remoteError("failing", errors.New("boom"))} })

	assert.True(t, r.TestConnection(t.Context(), models.Course{Platform: "info", Name: "Byrne"}))
	assert.False(t, r.TestConnection(t.Context(), models.Course{Platform: "broken-info"}))
	assert.False(t, r.TestConnection(t.Context(), models.Course{Platform: "check"}))
	assert.True(t, r.TestConnection(t.Context(), models.Course{Platform: "basic"}))
	assert.EqualValues(t, 1, basic.searches.Load())
	assert.False(t, r.TestConnection(t.Context(), models.Course{Platform: "failing"}))
	assert.False(t, r.TestConnection(t.Context(), models.Course{Platform: "unknown"}))
}

func TestDefaultRegistryPlatforms(t *testing.T) {
	r := NewDefaultRegistry(Deps{Logger: zaptest.NewLogger(t)}, Settings{})

	assert.Equal(t, []string{"francisbyrne", "rest"}, r.SupportedPlatforms())
	for _, p := range []string{"francis-byrne", "foreup", "generic"} {
		assert.True(t, r.IsPlatformSupported(p), p)
	}

	caps, err := r.Capabilities(models.Course{Platform: "francis_byrne"})
	require.NoError(t, err)
	assert.Equal(t, Capabilities{Refresh: true, AuthCheck: true, CourseInfo: true}, caps)
	assert.Equal(t, "refresh+auth-check+course-info", caps.String())

	caps, err = r.Capabilities(models.Course{Platform: "rest"})
	require.NoError(t, err)
	assert.Equal(t, Capabilities{Refresh: true, AuthCheck: true}, caps)
}
