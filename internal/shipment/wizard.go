package shipment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/logging"
	"github.com/example/shiporbit-client/internal/persistence"
)

// DriverAssistFee is the flat charge for loading assistance, in dollars.
const DriverAssistFee = 150

// API is the slice of the backend client the wizard depends on.
type API interface {
	CreateShipment(ctx context.Context, params api.CreateShipmentParams) (api.Shipment, error)
	UpdateAppointment(ctx context.Context, id string, patch api.AppointmentPatch) (api.Shipment, error)
	UpdateFinalizing(ctx context.Context, id string, patch api.FinalizePatch) (api.Shipment, error)
}

// Wizard walks a draft through the booking steps. The server owns the draft;
// the wizard holds the latest server-returned copy, advances one step at a
// time, and mirrors the draft into the local cache so an interrupted booking
// can be resumed.
type Wizard struct {
	api    API
	cache  persistence.DraftCache
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	step        Step
	shipment    api.Shipment
	pickupDone  bool
	dropoffDone bool
}

// NewWizard starts a fresh booking at the date-selection step.
func NewWizard(backend API, cache persistence.DraftCache, logger *slog.Logger) *Wizard {
	return &Wizard{
		api:    backend,
		cache:  cache,
		logger: logging.Default(logger),
		now:    time.Now,
		step:   StepSelectingDates,
	}
}

// CachedDraft is the locally cached copy of a booking in progress: the
// last server-returned draft plus the step it had reached.
type CachedDraft struct {
	Step     Step         `json:"step"`
	Shipment api.Shipment `json:"shipment"`
}

// Resume restores a wizard around an existing draft, placing it at the given
// step.
func Resume(backend API, cache persistence.DraftCache, logger *slog.Logger, shipment api.Shipment, step Step) (*Wizard, error) {
	if _, ok := stepOrder[step]; !ok {
		return nil, fmt.Errorf("unknown step %q", step)
	}
	w := NewWizard(backend, cache, logger)
	w.shipment = shipment
	w.step = step
	if step != StepSelectingDates {
		w.pickupDone = shipment.Pickup.FacilityName != ""
		w.dropoffDone = shipment.Dropoff.FacilityName != ""
	}
	return w, nil
}

// ResumeFromCache rebuilds a wizard from the locally cached draft, so an
// interrupted booking picks up at the step it had reached without refetching.
func ResumeFromCache(ctx context.Context, backend API, cache persistence.DraftCache, logger *slog.Logger, id string) (*Wizard, error) {
	payload, err := cache.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	var cached CachedDraft
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, fmt.Errorf("decode cached draft: %w", err)
	}
	return Resume(backend, cache, logger, cached.Shipment, cached.Step)
}

// Step returns the wizard's current position.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Shipment returns the latest server-returned draft.
func (w *Wizard) Shipment() api.Shipment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shipment
}

func (w *Wizard) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.ServiceLogger(ctx, w.logger, "ShipmentWizard", operation, attrs...)
}

// SubmitDates validates the lane selection and creates the draft on the
// server. Success advances to the appointment step.
func (w *Wizard) SubmitDates(ctx context.Context, input DatesInput) error {
	w.mu.Lock()
	if w.step != StepSelectingDates {
		w.mu.Unlock()
		return fmt.Errorf("dates already submitted at step %q", w.step)
	}
	w.mu.Unlock()

	if verr := ValidateDates(input); verr != nil {
		return verr
	}

	shipment, err := w.api.CreateShipment(ctx, api.CreateShipmentParams{
		Equipment: input.Equipment,
		Pickup:    api.CreateShipmentLeg{City: input.PickupCityID, Date: input.PickupDate},
		Dropoff:   api.CreateShipmentLeg{City: input.DropoffCityID, Date: input.DropoffDate},
	})
	if err != nil {
		return w.submissionError(ctx, "SubmitDates", err)
	}

	w.advance(shipment, StepAppointment)
	w.cacheDraft(ctx)
	w.log(ctx, "SubmitDates", "shipment_id", shipment.ID).InfoContext(ctx, "draft created")
	return nil
}

// SubmitFacility validates and saves one leg's facility details.
func (w *Wizard) SubmitFacility(ctx context.Context, leg Leg, facility api.Facility) error {
	w.mu.Lock()
	if w.step != StepAppointment {
		w.mu.Unlock()
		return fmt.Errorf("facility details belong to the appointment step, not %q", w.step)
	}
	id := w.shipment.ID
	w.mu.Unlock()

	if verr := ValidateFacility(facility); verr != nil {
		return verr
	}

	patch := api.AppointmentPatch{}
	switch leg {
	case LegPickup:
		patch.Pickup = &facility
	case LegDropoff:
		patch.Dropoff = &facility
	default:
		return fmt.Errorf("unknown leg %q", leg)
	}

	shipment, err := w.api.UpdateAppointment(ctx, id, patch)
	if err != nil {
		return w.submissionError(ctx, "SubmitFacility", err)
	}

	w.mu.Lock()
	w.shipment = shipment
	switch leg {
	case LegPickup:
		w.pickupDone = true
	case LegDropoff:
		w.dropoffDone = true
	}
	w.mu.Unlock()
	w.cacheDraft(ctx)
	return nil
}

// SetDriverAssist toggles loading assistance on the draft. The returned
// total from the server already reflects the flat fee.
func (w *Wizard) SetDriverAssist(ctx context.Context, assist bool) error {
	w.mu.Lock()
	if w.step != StepAppointment {
		w.mu.Unlock()
		return fmt.Errorf("driver assist belongs to the appointment step, not %q", w.step)
	}
	id := w.shipment.ID
	w.mu.Unlock()

	shipment, err := w.api.UpdateAppointment(ctx, id, api.AppointmentPatch{DriverAssist: &assist})
	if err != nil {
		return w.submissionError(ctx, "SetDriverAssist", err)
	}

	w.mu.Lock()
	w.shipment = shipment
	w.mu.Unlock()
	w.cacheDraft(ctx)
	return nil
}

// ConfirmAppointment advances past the appointment step once both
// facilities are on file, recording the new position in the draft cache.
func (w *Wizard) ConfirmAppointment(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepAppointment {
		w.mu.Unlock()
		return fmt.Errorf("cannot confirm the appointment from step %q", w.step)
	}
	if !w.pickupDone || !w.dropoffDone {
		w.mu.Unlock()
		return errors.New("both pickup and dropoff facility details are required")
	}
	w.step = StepFinalizing
	w.mu.Unlock()
	w.cacheDraft(ctx)
	return nil
}

// SaveFinalize persists the finalize-details fields without advancing,
// letting a partially filled form survive an interruption. Only the
// optional-field constraints are enforced here.
func (w *Wizard) SaveFinalize(ctx context.Context, patch api.FinalizePatch) error {
	w.mu.Lock()
	if w.step != StepFinalizing {
		w.mu.Unlock()
		return fmt.Errorf("finalize details belong to the finalizing step, not %q", w.step)
	}
	id := w.shipment.ID
	w.mu.Unlock()

	if patch.Weight != nil && *patch.Weight <= 0 {
		return &ValidationError{FieldErrors: map[string]string{"weight": "Weight must be a positive number"}}
	}
	if patch.Packaging != nil && *patch.Packaging <= 0 {
		return &ValidationError{FieldErrors: map[string]string{"packaging": "Packaging count must be a positive number"}}
	}

	shipment, err := w.api.UpdateFinalizing(ctx, id, patch)
	if err != nil {
		return w.submissionError(ctx, "SaveFinalize", err)
	}

	w.mu.Lock()
	w.shipment = shipment
	w.mu.Unlock()
	w.cacheDraft(ctx)
	return nil
}

// Finalize fully validates the finalize-details form, persists it, and
// advances to checkout.
func (w *Wizard) Finalize(ctx context.Context, patch api.FinalizePatch) error {
	w.mu.Lock()
	if w.step != StepFinalizing {
		w.mu.Unlock()
		return fmt.Errorf("finalize details belong to the finalizing step, not %q", w.step)
	}
	id := w.shipment.ID
	w.mu.Unlock()

	if verr := ValidateFinalize(patch); verr != nil {
		return verr
	}

	shipment, err := w.api.UpdateFinalizing(ctx, id, patch)
	if err != nil {
		return w.submissionError(ctx, "Finalize", err)
	}

	w.advance(shipment, StepCheckout)
	w.cacheDraft(ctx)
	return nil
}

// MarkPaid records a completed payment: the booking is done and the cached
// draft is dropped.
func (w *Wizard) MarkPaid(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepCheckout {
		w.mu.Unlock()
		return fmt.Errorf("cannot mark paid from step %q", w.step)
	}
	w.step = StepPaid
	id := w.shipment.ID
	w.mu.Unlock()

	if err := w.cache.DeleteDraft(ctx, id); err != nil {
		w.log(ctx, "MarkPaid", "shipment_id", id).WarnContext(ctx, "failed to drop cached draft", "error", err)
	}
	return nil
}

// DisplayTotal is the amount shown to the user: the server's total when it
// has one, otherwise the base price plus the assist fee when toggled on.
func (w *Wizard) DisplayTotal() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.shipment.TotalPrice > 0 {
		return w.shipment.TotalPrice
	}
	base, err := strconv.ParseFloat(w.shipment.BasePrice, 64)
	if err != nil {
		return 0
	}
	if w.shipment.DriverAssist {
		return base + DriverAssistFee
	}
	return base
}

func (w *Wizard) advance(shipment api.Shipment, to Step) {
	w.mu.Lock()
	w.shipment = shipment
	w.step = to
	w.mu.Unlock()
}

func (w *Wizard) cacheDraft(ctx context.Context) {
	w.mu.Lock()
	shipment := w.shipment
	step := w.step
	w.mu.Unlock()
	if shipment.ID == "" {
		return
	}

	payload, err := json.Marshal(CachedDraft{Step: step, Shipment: shipment})
	if err != nil {
		return
	}
	if err := w.cache.PutDraft(ctx, shipment.ID, payload, w.now().UTC()); err != nil {
		w.log(ctx, "cacheDraft", "shipment_id", shipment.ID).WarnContext(ctx, "failed to cache draft", "error", err)
	}
}

// submissionError translates backend rejections: field-level detail becomes
// a ValidationError on the same slots local validation uses, anything else
// passes through for the general error banner.
func (w *Wizard) submissionError(ctx context.Context, operation string, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if verr := fromAPIError(apiErr); verr != nil {
			return verr
		}
	}
	w.log(ctx, operation).ErrorContext(ctx, "submission failed", "error", err, "error_kind", api.ErrorKind(err))
	return err
}
