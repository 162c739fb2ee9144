package dto

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,digits"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type VerifyCodeResponse struct {
	Message  string `json:"message"`
	Verified bool   `json:"verified"`
}

type SignInConfirmationResponse struct {
	Message      string `json:"message"`
	IsNewAccount bool   `json:"isNewAccount"`
}
