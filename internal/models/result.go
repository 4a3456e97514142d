package models

// RankedResult is one row of the ranking report. The JSON keys are consumed
// verbatim by the frontend.
type RankedResult struct {
	Name            string  `json:"Name"`
	ResumeFilename  string  `json:"Resume Filename"`
	Email           string  `json:"Email"`
	Category        string  `json:"Category"`
	SimilarityScore float64 `json:"Similarity Score"`
}

type UploadResponse struct {
	Results   []RankedResult `json:"results"`
	RequestID string         `json:"request_id"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

type UserResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}
