package user

import "time"

// Default values applied to freshly created profiles.
const (
	DefaultBio            = "New MindMate user"
	DefaultPreferredModel = "groq"
	DefaultDisplayName    = "Friend"
)

// Profile is the per-user document read by the chat pipeline and the profile endpoints.
type Profile struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Bio              string    `json:"bio"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	PreferredModel   string    `json:"preferred_model"`
	Keywords         []string  `json:"keywords"`
	CreatedAt        time.Time `json:"created_at"`
}

// DisplayName falls back to DefaultDisplayName for blank names.
func (p Profile) DisplayName() string {
	if p.Name == "" {
		return DefaultDisplayName
	}
	return p.Name
}

// ProfileUpdate carries a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Bio              *string `json:"bio,omitempty"`
	EmergencyContact *string `json:"emergency_contact,omitempty"`
	PreferredModel   *string `json:"preferred_model,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Bio == nil && u.EmergencyContact == nil && u.PreferredModel == nil
}

// Apply copies the non-nil fields onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = *u.EmergencyContact
	}
	if u.PreferredModel != nil {
		p.PreferredModel = *u.PreferredModel
	}
}
