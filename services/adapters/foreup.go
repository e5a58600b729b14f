package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"teemarker/models"
	"teemarker/services/normalize"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	PlatformFrancisByrne = "francisbyrne"

	foreUpBaseURL         = "https://foreupsoftware.com"
	foreUpAPIKey          = "no_limits"
	foreUpDateLayout      = "01-02-2006"
	stripeSessionURL      = "https://m.stripe.com/6"
	defaultForeUpCourseID = "22528"
	defaultScheduleID     = "11078"
	defaultScheduleIDs    = "11078,11075,11077"
	defaultBookingClassID = "49772" // non-resident adult

	tokenExpiryLeeway = 30 * time.Second
)

type stripeSession struct {
	MUID string `json:"muid"`
	GUID string `json:"guid"`
	SID  string `json:"sid"`
}

type foreUpLoginResponse struct {
	JWT             string `json:"jwt"`
	UserID          int64  `json:"user_id"`
	BookingClassIDs []any  `json:"booking_class_ids"`
	PersonID        any    `json:"person_id"`
}

type foreUpSlot struct {
	Time           string `json:"time"`
	AvailableSpots *int   `json:"available_spots"`
	Price          any    `json:"price"`
	GreenFee       any    `json:"green_fee"`
	BookingClassID any    `json:"booking_class_id"`
	ScheduleID     any    `json:"schedule_id"`
}

// ForeUpAdapter speaks the foreUP booking protocol used by the Francis A. Byrne
// course: anti-bot session bootstrap, credential login for a bearer token,
// then token-bearing search and reservation calls. One instance is shared by
// every course on the platform, so the session state is guarded.
type ForeUpAdapter struct {
	client   *http.Client
	logger   *zap.Logger
	username string
	password string
	now      func() time.Time

	mu             sync.RWMutex
	jwtToken       string
	tokenExpiry    time.Time
	sessionCookies string
	bookingClassID string

	logins singleflight.Group
}

// NewForeUpAdapter builds the adapter. username and password are used when a
// course carries no credentials of its own.
func NewForeUpAdapter(deps Deps) *ForeUpAdapter {
	return &ForeUpAdapter{
		client:         newHTTPClient(deps.Timeout),
		logger:         deps.logger().Named(PlatformFrancisByrne),
		username:       deps.FrancisByrneUsername,
		password:       deps.FrancisByrnePassword,
		now:            time.Now,
		bookingClassID: defaultBookingClassID,
	}
}

func (a *ForeUpAdapter) baseURL(course models.Course) string {
	if course.APIConfig.BaseURL != "" {
		return strings.TrimRight(course.APIConfig.BaseURL, "/")
	}
	return foreUpBaseURL
}

func (a *ForeUpAdapter) bookingPage(course models.Course) string {
	return fmt.Sprintf("%s/index.php/booking/%s/%s", a.baseURL(course),
		course.Param("course_id", defaultForeUpCourseID), course.Param("schedule_id", defaultScheduleID))
}

func (a *ForeUpAdapter) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Api-Key", foreUpAPIKey)
	req.Header.Set("X-Fu-Golfer-Location", "foreup")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}

func (a *ForeUpAdapter) authorize(req *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	req.Header.Set("X-Authorization", "Bearer "+a.jwtToken)
	if a.sessionCookies != "" {
		req.Header.Set("Cookie", a.sessionCookies)
	}
}

// IsAuthenticated reports whether a bearer token is held and not about to expire.
func (a *ForeUpAdapter) IsAuthenticated(_ context.Context, _ models.Course) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.jwtToken == "" {
		return false
	}
	return a.tokenExpiry.IsZero() || a.now().Add(tokenExpiryLeeway).Before(a.tokenExpiry)
}

// RefreshToken logs in again, bootstrapping a session first if none exists.
// Concurrent callers share a single login round trip.
func (a *ForeUpAdapter) RefreshToken(ctx context.Context, course models.Course) error {
	_, err, _ := a.logins.Do("login", func() (any, error) {
		a.mu.RLock()
		hasSession := a.sessionCookies != ""
		a.mu.RUnlock()

		if !hasSession {
			if err := a.establishSession(ctx, course); err != nil {
				return nil, err
			}
		}
		return nil, a.login(ctx, course)
	})
	return err
}

func (a *ForeUpAdapter) ensureToken(ctx context.Context, course models.Course) error {
	a.mu.RLock()
	has := a.jwtToken != ""
	a.mu.RUnlock()
	if has {
		return nil
	}
	return a.RefreshToken(ctx, course)
}

func (a *ForeUpAdapter) invalidateToken() {
	a.mu.Lock()
	a.jwtToken = ""
	a.tokenExpiry = time.Time{}
	a.mu.Unlock()
}

// establishSession obtains the anti-automation cookies foreUP expects alongside
// the login.
func (a *ForeUpAdapter) establishSession(ctx context.Context, course models.Course) error {
	payload, err := json.Marshal(map[string]any{
		"muid":   uuid.NewString(),
		"sid":    uuid.NewString(),
		"url":    a.bookingPage(course),
		"source": "mouse-timings-10",
		"data":   []int{755, 9, 33, 294, 2087, 9, 8, 11, 5, 10},
	})
	if err != nil {
		return errors.Wrap(err, "encode session payload")
	}

	req, err := http.NewRequest(http.MethodPost, course.Param("session_url", stripeSessionURL), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build session request")
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	req.Header.Set("Origin", "https://m.stripe.network")
	req.Header.Set("Referer", "https://m.stripe.network/")
	req.Header.Set("User-Agent", browserUserAgent)

	_, body, err := send(ctx, a.client, PlatformFrancisByrne, req)
	if err != nil {
		return err
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return malformedError(PlatformFrancisByrne, "session response", err)
	}
	if session.MUID == "" || session.SID == "" {
		return malformedError(PlatformFrancisByrne, "session response missing muid/sid", nil)
	}

	a.mu.Lock()
	a.sessionCookies = fmt.Sprintf("__stripe_mid=%s; __stripe_sid=%s", session.MUID, session.SID)
	a.mu.Unlock()

	a.logger.Debug("Session initialized")
	return nil
}

func (a *ForeUpAdapter) credentials(course models.Course) (string, string) {
	creds := course.APIConfig.Auth.Credentials
	username, password := creds.Get("username"), creds.Get("password")
	if username == "" {
		username = a.username
	}
	if password == "" {
		password = a.password
	}
	return username, password
}

func (a *ForeUpAdapter) login(ctx context.Context, course models.Course) error {
	username, password := a.credentials(course)
	if username == "" || password == "" {
		return authError(PlatformFrancisByrne, "no credentials configured")
	}

	form := url.Values{
		"username":         {username},
		"password":         {password},
		"booking_class_id": {""},
		"api_key":          {foreUpAPIKey},
		"course_id":        {course.Param("course_id", defaultForeUpCourseID)},
	}
	req, err := http.NewRequest(http.MethodPost, a.baseURL(course)+"/index.php/api/booking/users/login", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build login request")
	}
	a.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Origin", a.baseURL(course))
	req.Header.Set("Referer", a.bookingPage(course))
	a.mu.RLock()
	req.Header.Set("Cookie", a.sessionCookies)
	a.mu.RUnlock()

	_, body, err := send(ctx, a.client, PlatformFrancisByrne, req)
	if err != nil {
		return err
	}

	var resp foreUpLoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return malformedError(PlatformFrancisByrne, "login response", err)
	}
	if resp.JWT == "" {
		return authError(PlatformFrancisByrne, "login returned no token")
	}

	bookingClass := course.Param("booking_class_id", defaultBookingClassID)
	if len(resp.BookingClassIDs) > 0 {
		if id := idString(resp.BookingClassIDs[0]); id != "" && id != "0" {
			bookingClass = id
		}
	}

	a.mu.Lock()
	a.jwtToken = resp.JWT
	a.tokenExpiry = tokenExpiry(resp.JWT)
	a.bookingClassID = bookingClass
	a.mu.Unlock()

	a.logger.Info("Login successful", zap.String("bookingClassId", bookingClass))
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// is only ever presented back to its issuer.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		if v, err := exp.Int64(); err == nil {
			return time.Unix(v, 0)
		}
	}
	return time.Time{}
}

func (a *ForeUpAdapter) currentBookingClass() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bookingClassID
}

// SearchTeeTimes queries every configured schedule for the given date.
func (a *ForeUpAdapter) SearchTeeTimes(ctx context.Context, course models.Course, params models.SearchParams) ([]models.TeeTime, error) {
	if err := a.ensureToken(ctx, course); err != nil {
		return nil, err
	}

	date := normalize.ParseDate(params.Date)
	day, err := time.Parse(normalize.DateLayout, date)
	if err != nil {
		return nil, errors.Newf("invalid search date %q", params.Date)
	}
	players := params.PlayerCount()

	query := url.Values{
		"time":          {"all"},
		"date":          {day.Format(foreUpDateLayout)},
		"holes":         {"all"},
		"players":       {strconv.Itoa(players)},
		"booking_class": {a.currentBookingClass()},
		"schedule_id":   {course.Param("schedule_id", defaultScheduleID)},
		"specials_only": {"0"},
		"api_key":       {foreUpAPIKey},
	}
	for _, id := range strings.Split(course.Param("schedule_ids", defaultScheduleIDs), ",") {
		if id = strings.TrimSpace(id); id != "" {
			query.Add("schedule_ids[]", id)
		}
	}

	req, err := http.NewRequest(http.MethodGet, a.baseURL(course)+"/index.php/api/booking/times?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	a.setCommonHeaders(req)
	a.authorize(req)

	_, body, err := send(ctx, a.client, PlatformFrancisByrne, req)
	if err != nil {
		if errors.Is(err, ErrAuthentication) {
			a.invalidateToken()
		}
		return nil, err
	}

	raw, err := decodeSlotList(body)
	if err != nil {
		return nil, malformedError(PlatformFrancisByrne, "tee time list", err)
	}

	now := a.now()
	teeTimes := make([]models.TeeTime, 0, len(raw))
	for _, item := range raw {
		var slot foreUpSlot
		if err := json.Unmarshal(item, &slot); err != nil {
			a.logger.Debug("Skipping undecodable slot", zap.Error(err))
			continue
		}
		tt, ok := slot.toTeeTime(course.ID, date, now)
		if !ok || tt.AvailableSpots < players {
			continue
		}
		teeTimes = append(teeTimes, tt)
	}
	return teeTimes, nil
}

// decodeSlotList accepts a JSON array; foreUP answers false or null when a day
// has no times.
func decodeSlotList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// toTeeTime validates the fields a slot needs to be re-addressed for booking.
func (s foreUpSlot) toTeeTime(courseID, date string, now time.Time) (models.TeeTime, bool) {
	scheduleID := idString(s.ScheduleID)
	if s.Time == "" || scheduleID == "" || s.AvailableSpots == nil {
		return models.TeeTime{}, false
	}

	// times arrive as "2026-02-09 13:48" or a bare clock value
	slotDate, clock := date, s.Time
	if d, c, found := strings.Cut(s.Time, " "); found && strings.ContainsAny(d, "-/") {
		slotDate, clock = normalize.ParseDate(d), c
	}
	clock = normalize.ParseTime(clock)
	if len(clock) != 5 || clock[2] != ':' {
		return models.TeeTime{}, false
	}

	price := normalize.PricePtr(s.Price)
	if price == nil {
		price = normalize.PricePtr(s.GreenFee)
	}

	id := scheduleID + "_" + s.Time
	return models.TeeTime{
		ID:             id,
		CourseID:       courseID,
		Date:           slotDate,
		Time:           clock,
		AvailableSpots: *s.AvailableSpots,
		Price:          price,
		PlatformID:     id,
		LastChecked:    now,
		CreatedAt:      now,
	}, true
}

// BookTeeTime reserves the slot addressed by its scheduleId_time identifier.
func (a *ForeUpAdapter) BookTeeTime(ctx context.Context, course models.Course, teeTime models.TeeTime, params models.BookingParams) (*models.Booking, error) {
	platformID := teeTime.PlatformID
	if platformID == "" {
		platformID = params.TeeTimeID
	}
	scheduleID, slotTime, found := strings.Cut(platformID, "_")
	if !found || scheduleID == "" || slotTime == "" {
		return nil, errors.Newf("invalid tee time id format %q", platformID)
	}

	if err := a.ensureToken(ctx, course); err != nil {
		return nil, err
	}

	date := teeTime.Date
	if d, err := time.Parse(normalize.DateLayout, normalize.ParseDate(teeTime.Date)); err == nil {
		date = d.Format(foreUpDateLayout)
	}
	players := params.Players
	if players < 1 {
		players = 1
	}

	form := url.Values{
		"schedule_id":      {scheduleID},
		"time":             {slotTime},
		"date":             {date},
		"players":          {strconv.Itoa(players)},
		"holes":            {course.Param("holes", "18")},
		"booking_class_id": {a.currentBookingClass()},
		"api_key":          {foreUpAPIKey},
	}
	req, err := http.NewRequest(http.MethodPost, a.baseURL(course)+"/index.php/api/booking/reservations", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build reservation request")
	}
	a.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	a.authorize(req)

	httpResp, body, sendErr := send(ctx, a.client, PlatformFrancisByrne, req)
	if errors.Is(sendErr, ErrAuthentication) {
		a.invalidateToken()
		return nil, sendErr
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		if sendErr != nil {
			return nil, sendErr
		}
		return nil, malformedError(PlatformFrancisByrne, "reservation response", err)
	}

	if success, _ := resp["success"].(bool); !success || sendErr != nil {
		return nil, bookingFailure(PlatformFrancisByrne, httpResp, sendErr, resp)
	}

	bookingID := idString(resp["booking_id"])
	if bookingID == "" {
		bookingID = fmt.Sprintf("booking_%d", a.now().UnixMilli())
	}
	now := a.now()
	return &models.Booking{
		ID:        bookingID,
		CourseID:  course.ID,
		TeeTimeID: teeTime.ID,
		Status:    models.BookingStatusConfirmed,
		Details: models.BookingDetails{
			Date:    teeTime.Date,
			Time:    teeTime.Time,
			Players: players,
			Price:   teeTime.Price,
		},
		PlatformResponse: resp,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// GetCourseInfo describes the facility; the defaults are the Francis A. Byrne course.
func (a *ForeUpAdapter) GetCourseInfo(_ context.Context, course models.Course) (CourseInfo, error) {
	name := course.Name
	if name == "" {
		name = "Francis A. Byrne Golf Course"
	}
	return CourseInfo{
		"name":     name,
		"location": course.Param("location", "Newark, NJ"),
		"holes":    18,
		"par":      72,
		"length":   "6,200 yards",
		"website":  a.bookingPage(course),
		"phone":    course.Param("phone", "(973) 268-2600"),
	}, nil
}

// idString renders numeric or string identifiers from loosely typed JSON.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
