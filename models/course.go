// File: models/course.go
package models

import "time"

// Auth types understood by the platform adapters.
const (
	AuthTypeToken  = "token"
	AuthTypeOAuth  = "oauth"
	AuthTypeAPIKey = "api-key"
)

// Course is a golf facility and the platform configuration used to reach its tee sheet.
type Course struct {
	ID            string        `bson:"id" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Platform      string        `bson:"platform" json:"platform"` // adapter key, e.g. "francisbyrne"
	APIConfig     APIConfig     `bson:"apiConfig" json:"apiConfig"`
	BookingWindow BookingWindow `bson:"bookingWindow" json:"bookingWindow"`
	Timezone      string        `bson:"timezone" json:"timezone"` // IANA name, e.g. "America/New_York"
	IsActive      bool          `bson:"isActive" json:"isActive"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type APIConfig struct {
	BaseURL   string            `bson:"baseUrl" json:"baseUrl"`
	Endpoints Endpoints         `bson:"endpoints" json:"endpoints"`
	Auth      AuthConfig        `bson:"auth" json:"auth"`
	Params    map[string]string `bson:"params,omitempty" json:"params,omitempty"` // platform specific ids (schedule, booking class...)
}

type Endpoints struct {
	Search string `bson:"search" json:"search"`
	Book   string `bson:"book" json:"book"`
}

type AuthConfig struct {
	Type            string      `bson:"type" json:"type"` // token | oauth | api-key
	TokenRefreshURL string      `bson:"tokenRefreshUrl,omitempty" json:"tokenRefreshUrl,omitempty"`
	Credentials     Credentials `bson:"credentials,omitempty" json:"credentials,omitempty"`
}

type BookingWindow struct {
	AdvanceDays int    `bson:"advanceDays" json:"advanceDays"`
	StartTime   string `bson:"startTime" json:"startTime"` // HH:MM
}

// Location resolves the course timezone, falling back to UTC.
func (c Course) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Param returns a platform parameter or def when unset.
func (c Course) Param(key, def string) string {
	if v, ok := c.APIConfig.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// Redacted returns a copy safe to hand to API callers: credential values are masked.
func (c Course) Redacted() Course {
	c.APIConfig.Auth.Credentials = c.APIConfig.Auth.Credentials.Redacted()
	return c
}
