package api

// Wire types for the ShipOrbit backend. Field names and JSON tags follow the
// backend's snake_case contract; status-like fields are closed string types so
// switches over them can be checked for exhaustiveness.

// Equipment is the trailer category requested for a shipment.
type Equipment string

const (
	EquipmentDryVan Equipment = "dryVan"
	EquipmentReefer Equipment = "reefer"
)

// Valid reports whether the value is one of the known equipment types.
func (e Equipment) Valid() bool {
	switch e {
	case EquipmentDryVan, EquipmentReefer:
		return true
	}
	return false
}

// ShipmentStatus is the server-driven shipment lifecycle status.
type ShipmentStatus string

const (
	StatusUnfinished ShipmentStatus = "unfinished"
	StatusUpcoming   ShipmentStatus = "upcoming"
	StatusInProgress ShipmentStatus = "inprogress"
	StatusPast       ShipmentStatus = "past"
)

// SchedulingPreference describes how a facility expects appointments to be set.
type SchedulingPreference string

const (
	SchedulingFirstCome        SchedulingPreference = "first_come"
	SchedulingAlreadyScheduled SchedulingPreference = "already_scheduled"
	SchedulingToBeScheduled    SchedulingPreference = "to_be_scheduled"
)

// Valid reports whether the value is one of the known preferences.
func (p SchedulingPreference) Valid() bool {
	switch p {
	case SchedulingFirstCome, SchedulingAlreadyScheduled, SchedulingToBeScheduled:
		return true
	}
	return false
}

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePending InvoiceStatus = "pending"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// User is the authenticated shipper account.
type User struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	PhoneNumber     string         `json:"phone_number"`
	IsEmailVerified bool           `json:"is_email_verified"`
	Company         *Company       `json:"company,omitempty"`
	ShippingNeeds   *ShippingNeeds `json:"shipping_needs,omitempty"`
}

// Company is the shipper's organisation.
type Company struct {
	Name                string `json:"name"`
	Location            string `json:"location"`
	PrimaryShipsCountry string `json:"primary_ships_country"`
}

// ShippingNeeds records the onboarding questionnaire answers.
type ShippingNeeds struct {
	Mode        []string `json:"mode"`
	AverageFTL  string   `json:"average_ftl"`
	TrailerType []string `json:"trailer_type"`
}

// AuthResponse is the login payload: token plus the authenticated user.
type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}

// City is an immutable geocoding lookup result.
type City struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	RegionCode  string  `json:"region_code"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Region is a country-region lookup result.
type Region struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	ISOCode     string `json:"isoCode"`
}

// PriceQuote is the priced, timed estimate for a lane under an equipment type.
type PriceQuote struct {
	PickupLocation       string    `json:"pickup_location"`
	DropoffLocation      string    `json:"dropoff_location"`
	Equipment            Equipment `json:"equipment"`
	Miles                float64   `json:"miles"`
	BasePrice            float64   `json:"base_price"`
	MinTransitDays       int       `json:"min_transit_time"`
	DriverAssistFee      float64   `json:"driver_assist_fee"`
	TotalPriceWithAssist float64   `json:"total_price_with_assist"`
}

// Leg is one side (pickup or dropoff) of a shipment, including facility info.
type Leg struct {
	City                 City                 `json:"city"`
	Date                 string               `json:"date"`
	FacilityName         string               `json:"facility_name"`
	FacilityAddress      string               `json:"facility_address"`
	ZipCode              string               `json:"zip_code"`
	SchedulingPreference SchedulingPreference `json:"scheduling_preference"`
	ContactName          string               `json:"contact_name"`
	PhoneNumber          string               `json:"phone_number"`
	Email                string               `json:"email"`
	LocationNumber       string               `json:"location_number"`
	AdditionalNotes      string               `json:"additional_notes"`
}

// Facility is the subset of a leg edited through the appointment step.
type Facility struct {
	FacilityName         string               `json:"facility_name"`
	FacilityAddress      string               `json:"facility_address"`
	ZipCode              string               `json:"zip_code"`
	SchedulingPreference SchedulingPreference `json:"scheduling_preference"`
	ContactName          string               `json:"contact_name"`
	PhoneNumber          string               `json:"phone_number"`
	Email                string               `json:"email"`
}

// Shipment is the server-owned shipment draft.
type Shipment struct {
	ID              string         `json:"id"`
	Equipment       Equipment      `json:"equipment"`
	Status          ShipmentStatus `json:"status"`
	BasePrice       string         `json:"base_price"`
	TotalPrice      float64        `json:"total_price"`
	DriverAssist    bool           `json:"driver_assist"`
	DriverAssistFee string         `json:"driver_assist_fee"`
	Miles           *float64       `json:"miles"`
	MinTransitDays  *int           `json:"min_transit_time"`
	ReferenceNumber string         `json:"reference_number"`
	Weight          *int           `json:"weight"`
	Commodity       string         `json:"commodity"`
	Packaging       *int           `json:"packaging"`
	PackagingType   string         `json:"packaging_type"`
	Pickup          Leg            `json:"pickup"`
	Dropoff         Leg            `json:"dropoff"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"update_at"`
}

// ShipmentList is the paginated shipment collection response.
type ShipmentList struct {
	Results []Shipment `json:"results"`
	Count   int        `json:"count"`
}

// Invoice is a read-only billing record.
type Invoice struct {
	ID            int           `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	CreatedAt     string        `json:"create_at"`
	TotalAmount   string        `json:"total_amount"`
	Status        InvoiceStatus `json:"status"`
	PaidAt        string        `json:"paid_at"`
	Shipments     int           `json:"shipments"`
}

// InvoiceList is the invoice collection response.
type InvoiceList struct {
	Results []Invoice `json:"results"`
}

// PaymentIntent is the backend's create-intent response.
type PaymentIntent struct {
	Payment        IntentRef `json:"payment"`
	ClientSecret   string    `json:"client_secret"`
	Status         string    `json:"status"`
	RequiresAction bool      `json:"requires_action"`
	Message        string    `json:"message"`
}

// IntentRef carries the processor-side intent identifier.
type IntentRef struct {
	ProcessorIntentID string `json:"stripe_payment_intent_id"`
	Status            string `json:"status"`
}

// ConfirmResult is the confirm-payment response.
type ConfirmResult struct {
	Payment IntentRef `json:"payment"`
}
