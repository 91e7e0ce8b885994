package model

import "time"

// Message represents one stored contact-form message. ID and CreatedAt are
// assigned by the messages store; a record is never updated or deleted.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission carries one validated contact-form submission through the
// service layer. It exists only for the duration of a single request.
type Submission struct {
	Name         string
	Email        string
	Subject      string
	Message      string
	CaptchaToken string
	IP           string
}
