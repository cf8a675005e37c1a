package models

// User is a read-only copy of a backend user record.
type User struct {
	ID          int     `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Image       *string `db:"image" json:"image"`
	Bio         *string `db:"bio" json:"bio,omitempty"`
	Address     *string `db:"address" json:"address,omitempty"`
	PhoneNumber *string `db:"phone_number" json:"phone_number,omitempty"`
}

// ProfileUpdate holds the fields editable from the profile screen.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	Image       *string `json:"image"`
	Bio         *string `json:"bio"`
	Address     *string `json:"address"`
	PhoneNumber *string `json:"phone_number"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Image == nil && p.Bio == nil && p.Address == nil && p.PhoneNumber == nil
}
