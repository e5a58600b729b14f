// models/user.go
package models

import "time"

// User is the profile record of an authenticated account.
type User struct {
	ID          string          `bson:"id" json:"uid"`
	Email       string          `bson:"email" json:"email"`
	Name        string          `bson:"name,omitempty" json:"name,omitempty"`
	DisplayName string          `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Phone       string          `bson:"phone,omitempty" json:"phone,omitempty"`
	Preferences UserPreferences `bson:"preferences" json:"preferences"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

type UserPreferences struct {
	Notifications NotificationPreferences `bson:"notifications" json:"notifications"`
	Timezone      string                  `bson:"timezone" json:"timezone"`
}

type NotificationPreferences struct {
	Email bool `bson:"email" json:"email"`
	Push  bool `bson:"push" json:"push"`
}

// ContactInfo builds booking contact details, preferring Name over DisplayName.
func (u User) ContactInfo() UserInfo {
	name := u.Name
	if name == "" {
		name = u.DisplayName
	}
	if name == "" {
		name = "User"
	}
	return UserInfo{Name: name, Email: u.Email, Phone: u.Phone}
}
