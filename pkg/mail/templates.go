package mail

import "fmt"

// VerificationMessage builds the account verification email.
func VerificationMessage(to, name, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify your MoodMate account",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWelcome to MoodMate! Please confirm your email address by visiting the link below:\n%s\n\nThe link expires in one hour. If you did not create an account, you can ignore this message.\n",
			name, link),
	}
}

// PasswordResetMessage builds the password reset email.
func PasswordResetMessage(to, name, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your MoodMate password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWe received a request to reset your password. Use the link below to choose a new one:\n%s\n\nThe link expires in one hour. If you did not request a reset, your password is still safe.\n",
			name, link),
	}
}
