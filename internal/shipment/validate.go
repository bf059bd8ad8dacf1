package shipment

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/example/shiporbit-client/internal/api"
)

// ValidationError reports per-field problems with a submission. One message
// per field keeps rendering simple; the first problem found for a field wins.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// Field returns the message for a field, or "".
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.FieldErrors[name]
}

const blankFieldMessage = "This field may not be blank."

// DatesInput is the first wizard step's submission.
type DatesInput struct {
	Equipment     api.Equipment
	PickupCityID  int
	DropoffCityID int
	PickupDate    string
	DropoffDate   string
}

// ValidateDates checks the lane-selection step: a recognised equipment type,
// both cities committed from the autocomplete, and both dates in calendar
// form.
func ValidateDates(input DatesInput) *ValidationError {
	fields := map[string]string{}
	if !input.Equipment.Valid() {
		fields["equipment"] = "You must select an option"
	}
	if input.PickupCityID <= 0 {
		fields["pickup_city"] = "Pick-up location is required"
	}
	if input.DropoffCityID <= 0 {
		fields["dropoff_city"] = "Drop-off location is required"
	}
	if len(input.PickupDate) != 10 {
		fields["pickup_date"] = "Pick-up date is required"
	}
	if len(input.DropoffDate) != 10 {
		fields["dropoff_date"] = "Drop-off date is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{FieldErrors: fields}
}

// ValidateFacility checks one leg's facility details for the appointment
// step.
func ValidateFacility(facility api.Facility) *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(facility.FacilityName) == "" {
		fields["facility_name"] = "Facility name is required"
	}
	if strings.TrimSpace(facility.FacilityAddress) == "" {
		fields["facility_address"] = "Address is required"
	}
	if len(strings.TrimSpace(facility.ZipCode)) < 4 {
		fields["zip_code"] = "Zip code is too short"
	}
	if !facility.SchedulingPreference.Valid() {
		fields["scheduling_preference"] = "You must select an option"
	}
	if strings.TrimSpace(facility.ContactName) == "" {
		fields["contact_name"] = "Contact name is required"
	}
	if len(strings.TrimSpace(facility.PhoneNumber)) < 7 {
		fields["phone_number"] = "Invalid phone number"
	}
	if _, err := mail.ParseAddress(facility.Email); err != nil {
		fields["email"] = "Invalid email address"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{FieldErrors: fields}
}

// ValidateFinalize checks the finalize-details step. The four appointment
// confirmation fields are mandatory; cargo details are optional but must be
// positive when given.
func ValidateFinalize(patch api.FinalizePatch) *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(patch.PickupNumber) == "" {
		fields["pickup_number"] = blankFieldMessage
	}
	if strings.TrimSpace(patch.PickupNotes) == "" {
		fields["pickup_notes"] = blankFieldMessage
	}
	if strings.TrimSpace(patch.DropoffNumber) == "" {
		fields["dropoff_number"] = blankFieldMessage
	}
	if strings.TrimSpace(patch.DropoffNotes) == "" {
		fields["dropoff_notes"] = blankFieldMessage
	}
	if patch.Weight != nil && *patch.Weight <= 0 {
		fields["weight"] = "Weight must be a positive number"
	}
	if patch.Packaging != nil && *patch.Packaging <= 0 {
		fields["packaging"] = "Packaging count must be a positive number"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{FieldErrors: fields}
}

// fromAPIError maps a backend rejection onto the same field slots local
// validation uses, so server-side messages land under the inputs they
// describe. Rejections without field detail surface nothing here and fall
// back to the general message.
func fromAPIError(err *api.Error) *ValidationError {
	if !err.HasFieldErrors() {
		return nil
	}
	fields := make(map[string]string, len(err.FieldErrors))
	for field, messages := range err.FieldErrors {
		if len(messages) > 0 {
			fields[field] = messages[0]
		}
	}
	return &ValidationError{FieldErrors: fields}
}
