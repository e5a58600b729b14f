package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"teemarker/models"
	"teemarker/services/normalize"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const PlatformREST = "rest"

type oauthToken struct {
	accessToken string
	expiresAt   time.Time
}

// RESTAdapter drives platforms exposing a plain JSON search and book endpoint
// pair, configured entirely from the course's apiConfig.
type RESTAdapter struct {
	client *http.Client
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	tokens map[string]oauthToken // by course id
}

func NewRESTAdapter(deps Deps) *RESTAdapter {
	return &RESTAdapter{
		client: newHTTPClient(deps.Timeout),
		logger: deps.logger().Named(PlatformREST),
		now:    time.Now,
		tokens: make(map[string]oauthToken),
	}
}

func (a *RESTAdapter) cachedToken(courseID string) (oauthToken, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	tok, ok := a.tokens[courseID]
	if !ok || (!tok.expiresAt.IsZero() && !a.now().Before(tok.expiresAt)) {
		return oauthToken{}, false
	}
	return tok, true
}

func (a *RESTAdapter) setAuthHeaders(req *http.Request, course models.Course) {
	auth := course.APIConfig.Auth
	switch auth.Type {
	case models.AuthTypeAPIKey:
		req.Header.Set("X-API-Key", auth.Credentials.Get("apiKey"))
	case models.AuthTypeToken:
		req.Header.Set("Authorization", "Bearer "+auth.Credentials.Get("token"))
	case models.AuthTypeOAuth:
		token := auth.Credentials.Get("accessToken")
		if tok, ok := a.cachedToken(course.ID); ok {
			token = tok.accessToken
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (a *RESTAdapter) endpoint(course models.Course, path string) (string, error) {
	base := strings.TrimRight(course.APIConfig.BaseURL, "/")
	if base == "" || path == "" {
		return "", errors.Newf("course %s has no endpoint configured", course.ID)
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	return base + "/" + strings.TrimLeft(path, "/"), nil
}

// IsAuthenticated reports whether the course's auth type has what it needs.
func (a *RESTAdapter) IsAuthenticated(_ context.Context, course models.Course) bool {
	creds := course.APIConfig.Auth.Credentials
	switch course.APIConfig.Auth.Type {
	case models.AuthTypeAPIKey:
		return creds.Get("apiKey") != ""
	case models.AuthTypeToken:
		return creds.Get("token") != ""
	case models.AuthTypeOAuth:
		if _, ok := a.cachedToken(course.ID); ok {
			return true
		}
		return creds.Get("accessToken") != "" && creds.Get("refreshToken") == ""
	default:
		return true
	}
}

// RefreshToken exchanges the course refresh token for a new access token. The
// result is cached per course; the course's own credentials are never changed.
func (a *RESTAdapter) RefreshToken(ctx context.Context, course models.Course) error {
	auth := course.APIConfig.Auth
	if auth.Type != models.AuthTypeOAuth {
		if a.IsAuthenticated(ctx, course) {
			return nil
		}
		return authError(PlatformREST, "missing "+auth.Type+" credentials")
	}
	if auth.TokenRefreshURL == "" {
		return authError(PlatformREST, "no token refresh url configured")
	}
	refreshURL, err := a.endpoint(course, auth.TokenRefreshURL)
	if err != nil {
		return authError(PlatformREST, err.Error())
	}

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {auth.Credentials.Get("refreshToken")}}
	if id := auth.Credentials.Get("clientId"); id != "" {
		form.Set("client_id", id)
	}
	if secret := auth.Credentials.Get("clientSecret"); secret != "" {
		form.Set("client_secret", secret)
	}

	req, err := http.NewRequest(http.MethodPost, refreshURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	_, body, err := send(ctx, a.client, PlatformREST, req)
	if err != nil {
		return err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return malformedError(PlatformREST, "token response", err)
	}
	if resp.AccessToken == "" {
		return authError(PlatformREST, "token response carried no access_token")
	}

	tok := oauthToken{accessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		tok.expiresAt = a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	a.mu.Lock()
	a.tokens[course.ID] = tok
	a.mu.Unlock()

	a.logger.Info("Access token refreshed", zap.String("courseId", course.ID))
	return nil
}

func (a *RESTAdapter) SearchTeeTimes(ctx context.Context, course models.Course, params models.SearchParams) ([]models.TeeTime, error) {
	endpoint, err := a.endpoint(course, course.APIConfig.Endpoints.Search)
	if err != nil {
		return nil, err
	}

	players := params.PlayerCount()
	query := url.Values{
		"date":    {normalize.ParseDate(params.Date)},
		"players": {strconv.Itoa(players)},
	}
	if params.TimeRange != nil {
		query.Set("startTime", params.TimeRange.Start)
		query.Set("endTime", params.TimeRange.End)
	}
	for k, v := range course.APIConfig.Params {
		if query.Get(k) == "" {
			query.Set(k, v)
		}
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	req, err := http.NewRequest(http.MethodGet, endpoint+sep+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", browserUserAgent)
	a.setAuthHeaders(req, course)

	_, body, err := send(ctx, a.client, PlatformREST, req)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecordList(body)
	if err != nil {
		return nil, malformedError(PlatformREST, "tee time list", err)
	}

	now := a.now()
	date := normalize.ParseDate(params.Date)
	teeTimes := make([]models.TeeTime, 0, len(records))
	for _, rec := range records {
		tt, ok := recordToTeeTime(rec, course.ID, date, now)
		if !ok || tt.AvailableSpots < players {
			continue
		}
		teeTimes = append(teeTimes, tt)
	}
	return teeTimes, nil
}

// decodeRecordList accepts either a bare array or an object wrapping one.
func decodeRecordList(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range []string{"teeTimes", "tee_times", "data", "results"} {
			if list, ok := v[key].([]any); ok {
				items = list
				break
			}
		}
		if items == nil {
			return nil, errors.New("no tee time list in response object")
		}
	default:
		return nil, errors.Newf("unexpected response type %T", doc)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func recordToTeeTime(rec map[string]any, courseID, date string, now time.Time) (models.TeeTime, bool) {
	id := idString(firstOf(rec, "id", "teeTimeId", "tee_time_id"))
	clock := normalize.ParseTime(anyString(firstOf(rec, "time", "teeTime", "tee_time", "startTime")))
	if id == "" || len(clock) != 5 || clock[2] != ':' {
		return models.TeeTime{}, false
	}

	spots, ok := anyInt(firstOf(rec, "availableSpots", "available_spots", "spots", "openSpots"))
	if !ok {
		return models.TeeTime{}, false
	}

	if d := anyString(rec["date"]); d != "" {
		date = normalize.ParseDate(d)
	}

	return models.TeeTime{
		ID:             id,
		CourseID:       courseID,
		Date:           date,
		Time:           clock,
		AvailableSpots: spots,
		Price:          normalize.PricePtr(firstOf(rec, "price", "greenFee", "green_fee", "rate")),
		PlatformID:     id,
		LastChecked:    now,
		CreatedAt:      now,
	}, true
}

func (a *RESTAdapter) BookTeeTime(ctx context.Context, course models.Course, teeTime models.TeeTime, params models.BookingParams) (*models.Booking, error) {
	endpoint, err := a.endpoint(course, course.APIConfig.Endpoints.Book)
	if err != nil {
		return nil, err
	}

	platformID := teeTime.PlatformID
	if platformID == "" {
		platformID = params.TeeTimeID
	}
	players := params.Players
	if players < 1 {
		players = 1
	}

	payload, err := json.Marshal(map[string]any{
		"teeTimeId": platformID,
		"players":   players,
		"userInfo":  params.UserInfo,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode booking request")
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build booking request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	a.setAuthHeaders(req, course)

	httpResp, body, sendErr := send(ctx, a.client, PlatformREST, req)
	if errors.Is(sendErr, ErrAuthentication) {
		return nil, sendErr
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		if sendErr != nil {
			return nil, sendErr
		}
		return nil, malformedError(PlatformREST, "booking response", err)
	}
	if success, ok := resp["success"].(bool); (ok && !success) || sendErr != nil {
		return nil, bookingFailure(PlatformREST, httpResp, sendErr, resp)
	}

	bookingID := idString(firstOf(resp, "bookingId", "booking_id", "id", "confirmationNumber"))
	if bookingID == "" {
		return nil, malformedError(PlatformREST, "booking response carried no booking id", nil)
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

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func anyString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func anyInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
