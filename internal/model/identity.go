package model

import "time"

// IdentityRecord is the remote-canonical user profile. The identity backend
// owns it; the orchestrator only reads and writes it through the backend
// interface and projects it into a Session.
type IdentityRecord struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Phone                 string    `json:"phone,omitempty"`
	AvatarURL             string    `json:"avatarUrl,omitempty"`
	Bio                   string    `json:"bio,omitempty"`
	Company               string    `json:"company,omitempty"`
	JobTitle              string    `json:"jobTitle,omitempty"`
	Location              string    `json:"location,omitempty"`
	Skills                []string  `json:"skills,omitempty"`
	Interests             []string  `json:"interests,omitempty"`
	ProfileSetupCompleted bool      `json:"profileSetupCompleted"`
	IsPro                 bool      `json:"isPro"`
	ProExpiry             string    `json:"proExpiry,omitempty"`
	LikesRemaining        int       `json:"likesRemaining"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// ExtendedProfile is the optional rich-profile row a user fills in after
// onboarding. Its mere existence is evidence that profile setup happened,
// even when the IdentityRecord flag is stale — login ORs the two together.
type ExtendedProfile struct {
	UserID    string    `json:"userId"`
	Headline  string    `json:"headline,omitempty"`
	About     string    `json:"about,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IdentityUpdate is a partial-field update applied to an IdentityRecord.
// Nil pointers mean "leave unchanged"; only set fields are written.
type IdentityUpdate struct {
	Name                  *string `json:"name,omitempty"`
	Email                 *string `json:"email,omitempty"`
	AvatarURL             *string `json:"avatarUrl,omitempty"`
	ProfileSetupCompleted *bool   `json:"profileSetupCompleted,omitempty"`
}
