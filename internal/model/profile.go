package model

// UserProfile is the Graph user profile resolved for one sender.
type UserProfile struct {
	ID         string  `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	ProfilePic string  `json:"profile_pic,omitempty"`
	Locale     string  `json:"locale,omitempty"`
	Timezone   float64 `json:"timezone,omitempty"`
	Gender     string  `json:"gender,omitempty"`
}
