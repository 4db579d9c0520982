package backend

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/sakif/linkup/internal/apperror"
)

// errorBody is the structured error shape the backend returns on non-2xx
// responses. Code is the machine-readable taxonomy; Message/Detail are for
// humans.
type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// classify maps a backend failure onto the local error taxonomy.
//
// Preferred path: the structured code field. Degraded path: substring
// matching on the human-readable message, kept only because older backend
// versions ship no code field. New code mappings go in the switch, not the
// substring table.
func classify(body errorBody, cause error) error {
	switch body.Code {
	case "invalid_credentials", "wrong_password", "user_not_found":
		return apperror.Wrap(apperror.ErrInvalidCredentials,
			"the email or password is incorrect", cause)
	case "duplicate_email", "email_taken":
		return apperror.Wrap(apperror.ErrEmailExists,
			"an account with this email already exists", cause)
	case "duplicate_phone", "phone_taken":
		return apperror.Wrap(apperror.ErrPhoneExists,
			"an account with this phone number already exists", cause)
	case "weak_password":
		return apperror.Wrap(apperror.ErrInvalidCredentials,
			"the password does not meet the requirements", cause)
	}

	msg := strings.ToLower(body.Message + " " + body.Detail)
	switch {
	case strings.Contains(msg, "already registered"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "duplicate key"):
		if strings.Contains(msg, "phone") {
			return apperror.Wrap(apperror.ErrPhoneExists,
				"an account with this phone number already exists", cause)
		}
		return apperror.Wrap(apperror.ErrEmailExists,
			"an account with this email already exists", cause)
	case strings.Contains(msg, "password"):
		return apperror.Wrap(apperror.ErrInvalidCredentials,
			"the email or password is incorrect", cause)
	case strings.Contains(msg, "credential"), strings.Contains(msg, "unauthorized"):
		return apperror.Wrap(apperror.ErrInvalidCredentials,
			"the email or password is incorrect", cause)
	}

	return apperror.Wrap(apperror.ErrUnknown, "something went wrong, please try again", cause)
}

// classifyTransport maps a failed round-trip (no response at all) onto the
// taxonomy. Timeouts, DNS failures, and refused connections are all
// network-error to the UI.
func classifyTransport(err error) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperror.Wrap(apperror.ErrNetwork,
			"could not reach the server, check your connection", err)
	}
	// http.Client wraps url.Error around everything, including dial errors;
	// a round-trip that produced no response is a network problem either way.
	return apperror.Wrap(apperror.ErrNetwork,
		"could not reach the server, check your connection", err)
}
