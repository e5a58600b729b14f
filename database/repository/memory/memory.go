// Package memory keeps every collection in process memory. It backs tests and
// the DATABASE_URL=memory:// development mode.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"teemarker/database"
	"teemarker/database/repository"
	"teemarker/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// NewRepositories returns empty in-memory repositories.
func NewRepositories() repository.Repositories {
	return repository.Repositories{
		Courses:       NewCourses(),
		Automations:   NewAutomations(),
		TeeTimes:      NewTeeTimes(),
		Bookings:      NewBookings(),
		Notifications: NewNotifications(),
		Users:         NewUsers(),
	}
}

func notFound() error { return errors.WithStack(database.ErrNotFound) }

type Courses struct {
	mu   sync.RWMutex
	byID map[string]models.Course
}

func NewCourses() *Courses { return &Courses{byID: map[string]models.Course{}} }

func (r *Courses) Create(_ context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now()
	course.CreatedAt, course.UpdatedAt = now, now
	r.byID[course.ID] = *course
	return nil
}

func (r *Courses) GetByID(_ context.Context, id string) (*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, notFound()
	}
	return &c, nil
}

func (r *Courses) List(context.Context) ([]models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Course, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Courses) ListActiveByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Course
	seen := map[string]bool{}
	for _, id := range ids {
		if c, ok := r.byID[id]; ok && c.IsActive && !seen[id] {
			out = append(out, c)
			seen[id] = true
		}
	}
	return out, nil
}

func (r *Courses) Update(_ context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[course.ID]; !ok {
		return notFound()
	}
	course.UpdatedAt = time.Now()
	r.byID[course.ID] = *course
	return nil
}

func (r *Courses) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return notFound()
	}
	delete(r.byID, id)
	return nil
}

type Automations struct {
	mu   sync.RWMutex
	byID map[string]models.Automation
}

func NewAutomations() *Automations { return &Automations{byID: map[string]models.Automation{}} }

func (r *Automations) Create(_ context.Context, a *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.byID[a.ID] = *a
	return nil
}

func (r *Automations) GetByID(_ context.Context, id string) (*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, notFound()
	}
	return &a, nil
}

func (r *Automations) ListByUser(_ context.Context, userID string) ([]models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Automation{}
	for _, a := range r.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Automations) Update(_ context.Context, a *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return notFound()
	}
	a.UpdatedAt = time.Now()
	r.byID[a.ID] = *a
	return nil
}

func (r *Automations) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return notFound()
	}
	delete(r.byID, id)
	return nil
}

func (r *Automations) UpdateSchedule(_ context.Context, id string, lastChecked, nextCheck time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return notFound()
	}
	a.LastChecked, a.NextCheck = &lastChecked, &nextCheck
	r.byID[id] = a
	return nil
}

func (r *Automations) ListDue(_ context.Context, now time.Time, limit int64) ([]models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []models.Automation
	for _, a := range r.byID {
		if a.IsActive && (a.NextCheck == nil || !a.NextCheck.After(now)) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].NextCheck == nil || due[j].NextCheck == nil {
			return due[i].NextCheck == nil && due[j].NextCheck != nil
		}
		return due[i].NextCheck.Before(*due[j].NextCheck)
	})
	if limit > 0 && int64(len(due)) > limit {
		due = due[:limit]
	}
	return due, nil
}

type TeeTimes struct {
	mu      sync.RWMutex
	records []models.TeeTime
}

func NewTeeTimes() *TeeTimes { return &TeeTimes{} }

func sameSlot(a, b *models.TeeTime) bool {
	return a.CourseID == b.CourseID && a.Date == b.Date && a.Time == b.Time && a.PlatformID == b.PlatformID
}

func (r *TeeTimes) Upsert(_ context.Context, tt *models.TeeTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if tt.LastChecked.IsZero() {
		tt.LastChecked = now
	}
	for i := range r.records {
		if sameSlot(&r.records[i], tt) {
			r.records[i].AvailableSpots = tt.AvailableSpots
			r.records[i].Price = tt.Price
			r.records[i].LastChecked = tt.LastChecked
			tt.ID, tt.CreatedAt = r.records[i].ID, r.records[i].CreatedAt
			return nil
		}
	}
	stored := *tt
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	r.records = append(r.records, stored)
	tt.ID, tt.CreatedAt = stored.ID, stored.CreatedAt
	return nil
}

func (r *TeeTimes) GetByID(_ context.Context, id string) (*models.TeeTime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tt := range r.records {
		if tt.ID == id {
			return &tt, nil
		}
	}
	return nil, notFound()
}

func (r *TeeTimes) ListByCourse(_ context.Context, courseID string, limit int64) ([]models.TeeTime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.TeeTime{}
	for _, tt := range r.records {
		if tt.CourseID == courseID {
			out = append(out, tt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastChecked.After(out[j].LastChecked) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TeeTimes) DecrementSpots(_ context.Context, id string, players int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].AvailableSpots -= players
			r.records[i].LastChecked = time.Now()
			return nil
		}
	}
	return notFound()
}

// All returns every stored slot in insertion order.
func (r *TeeTimes) All() []models.TeeTime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

type Bookings struct {
	mu      sync.RWMutex
	records []models.Booking
}

func NewBookings() *Bookings { return &Bookings{} }

func (r *Bookings) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.PlatformRef == "" {
		b.PlatformRef = b.ID
	}
	b.ID = uuid.NewString()
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	r.records = append(r.records, *b)
	return nil
}

func (r *Bookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.records {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, notFound()
}

func (r *Bookings) ListByUser(_ context.Context, userID string) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Booking{}
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

// All returns every stored booking in insertion order.
func (r *Bookings) All() []models.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

type Notifications struct {
	mu      sync.RWMutex
	records []models.Notification
}

func NewNotifications() *Notifications { return &Notifications{} }

func (r *Notifications) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.records = append(r.records, *n)
	return nil
}

func (r *Notifications) ListByUser(_ context.Context, userID string, limit int64) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Notification{}
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			out = append(out, r.records[i])
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r *Notifications) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id && r.records[i].UserID == userID {
			r.records[i].IsRead = true
			return nil
		}
	}
	return notFound()
}

// All returns every stored notification in insertion order.
func (r *Notifications) All() []models.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

type Users struct {
	mu   sync.RWMutex
	byID map[string]models.User
}

func NewUsers() *Users { return &Users{byID: map[string]models.User{}} }

func (r *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, notFound()
	}
	return &u, nil
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	return nil
}

func (r *Users) UpdateProfile(_ context.Context, id string, update repository.ProfileUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, notFound()
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Preferences != nil {
		u.Preferences = *update.Preferences
	}
	u.UpdatedAt = time.Now()
	r.byID[id] = u
	return &u, nil
}
