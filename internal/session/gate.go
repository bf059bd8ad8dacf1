package session

import "github.com/example/shiporbit-client/internal/api"

// Destination is where the gate routes a user on arrival.
type Destination string

const (
	// DestinationLogin routes unauthenticated users to the login screen.
	DestinationLogin Destination = "login"
	// DestinationShippingNeeds routes users who have not completed the
	// shipping-needs step of onboarding.
	DestinationShippingNeeds Destination = "shipping_needs"
	// DestinationEmailVerification routes users whose email is unverified.
	DestinationEmailVerification Destination = "email_verification"
	// DestinationGranted admits the user to the protected area.
	DestinationGranted Destination = "granted"
)

// Check decides where an arriving user goes. Onboarding completeness is
// checked before email verification, so a freshly registered user finishes
// describing their shipping needs before being parked on the verification
// screen.
func Check(user *api.User, authenticated bool) Destination {
	if !authenticated || user == nil {
		return DestinationLogin
	}
	if user.ShippingNeeds == nil {
		return DestinationShippingNeeds
	}
	if !user.IsEmailVerified {
		return DestinationEmailVerification
	}
	return DestinationGranted
}
