package api

import (
	"context"
	"net/http"
	"net/url"
)

// ShippingNeedsParams completes the onboarding questionnaire.
type ShippingNeedsParams struct {
	CompanyLocation string   `json:"company_location"`
	Mode            []string `json:"mode"`
	AverageFTL      string   `json:"average_ftl"`
	TrailerType     []string `json:"trailer_type"`
}

// ShippingNeedsResult acknowledges the questionnaire submission.
type ShippingNeedsResult struct {
	Message                string `json:"message"`
	RedirectToVerification bool   `json:"redirect_to_verification"`
}

// DistancePriceParams requests a quote for a lane under an equipment type.
type DistancePriceParams struct {
	PickupLocation  City      `json:"pickup_location"`
	DropoffLocation City      `json:"dropoff_location"`
	Equipment       Equipment `json:"equipment"`
}

// CreateShipmentLeg is one side of a new shipment draft.
type CreateShipmentLeg struct {
	City int    `json:"city"`
	Date string `json:"date"`
}

// CreateShipmentParams creates the initial draft.
type CreateShipmentParams struct {
	Equipment Equipment         `json:"equipment"`
	Pickup    CreateShipmentLeg `json:"pickup"`
	Dropoff   CreateShipmentLeg `json:"dropoff"`
}

// AppointmentPatch partially updates the appointment sub-resource. Nil fields
// are omitted so each facility and the driver-assist flag patch independently.
type AppointmentPatch struct {
	Pickup       *Facility `json:"pickup,omitempty"`
	Dropoff      *Facility `json:"dropoff,omitempty"`
	DriverAssist *bool     `json:"driver_assist,omitempty"`
}

// FinalizePatch partially updates the finalize-details sub-resource.
type FinalizePatch struct {
	ReferenceNumber string `json:"reference_number,omitempty"`
	Weight          *int   `json:"weight,omitempty"`
	Commodity       string `json:"commodity,omitempty"`
	Packaging       *int   `json:"packaging,omitempty"`
	PackagingType   string `json:"packaging_type,omitempty"`
	PickupNumber    string `json:"pickup_number"`
	PickupNotes     string `json:"pickup_notes"`
	DropoffNumber   string `json:"dropoff_number"`
	DropoffNotes    string `json:"dropoff_notes"`
}

func (c *Client) CreateShippingNeeds(ctx context.Context, params ShippingNeedsParams) (ShippingNeedsResult, error) {
	var result ShippingNeedsResult
	err := c.do(ctx, requestSpec{method: http.MethodPost, path: "/shipper/shipping-needs/", body: params}, &result)
	return result, err
}

// SearchCities returns city matches for a free-text prefix.
func (c *Client) SearchCities(ctx context.Context, namePrefix string) ([]City, error) {
	var cities []City
	query := url.Values{"name_prefix": []string{namePrefix}}
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/shipper/cities", query: query}, &cities)
	return cities, err
}

// CountryRegions returns region matches for a free-text prefix.
func (c *Client) CountryRegions(ctx context.Context, namePrefix string) ([]Region, error) {
	var regions []Region
	query := url.Values{"namePrefix": []string{namePrefix}}
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/shipper/country-regions", query: query}, &regions)
	return regions, err
}

// DistancePrice fetches the quote for (pickup, dropoff, equipment).
func (c *Client) DistancePrice(ctx context.Context, params DistancePriceParams) (PriceQuote, error) {
	var quote PriceQuote
	err := c.do(ctx, requestSpec{method: http.MethodPost, path: "/shipper/distance-price/", body: params}, &quote)
	return quote, err
}

// CreateShipment persists the initial draft and returns the server-assigned
// shipment.
func (c *Client) CreateShipment(ctx context.Context, params CreateShipmentParams) (Shipment, error) {
	var shipment Shipment
	err := c.do(ctx, requestSpec{method: http.MethodPost, path: "/shipper/shipments/", body: params}, &shipment)
	return shipment, err
}

// Shipments lists the shipper's shipments.
func (c *Client) Shipments(ctx context.Context) (ShipmentList, error) {
	var list ShipmentList
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/shipper/shipments/"}, &list)
	return list, err
}

// Shipment fetches a single shipment by id.
func (c *Client) Shipment(ctx context.Context, id string) (Shipment, error) {
	var shipment Shipment
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/shipper/shipments/" + id}, &shipment)
	return shipment, err
}

// UpdateAppointment patches facility info and the driver-assist flag.
func (c *Client) UpdateAppointment(ctx context.Context, id string, patch AppointmentPatch) (Shipment, error) {
	var shipment Shipment
	err := c.do(ctx, requestSpec{
		method: http.MethodPatch,
		path:   "/shipper/shipments/" + id + "/appointment/",
		body:   patch,
	}, &shipment)
	return shipment, err
}

// UpdateFinalizing patches the finalize-details fields.
func (c *Client) UpdateFinalizing(ctx context.Context, id string, patch FinalizePatch) (Shipment, error) {
	var shipment Shipment
	err := c.do(ctx, requestSpec{
		method: http.MethodPatch,
		path:   "/shipper/shipments/" + id + "/finalizing/",
		body:   patch,
	}, &shipment)
	return shipment, err
}
