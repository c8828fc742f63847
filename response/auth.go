package response

type UserAuthResponse struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	TargetLevel string `json:"target_level"`
	Token       string `json:"token"`
}

type UserProfileResponse struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	TargetLevel string `json:"target_level"`
}
