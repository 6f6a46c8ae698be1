package model

// ActivityType names an integrity event reported during an attempt.
type ActivityType string

const (
	ActivityTabSwitch  ActivityType = "TAB_SWITCH"
	ActivityLargePaste ActivityType = "LARGE_PASTE"
)

// ReportActivityRequest is the payload of the report-activity call.
type ReportActivityRequest struct {
	ActivityType ActivityType `json:"activityType" binding:"required,oneof=TAB_SWITCH LARGE_PASTE"`
}

// LoginRequest exchanges a candidate access code for a bearer token.
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	AccessCode string `json:"accessCode" binding:"required,min=4,max=64"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token       string `json:"token" binding:"required"`
	CandidateID string `json:"candidateId"`
}
