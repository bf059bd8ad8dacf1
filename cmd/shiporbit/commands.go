package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/autocomplete"
	"github.com/example/shiporbit-client/internal/billing"
	"github.com/example/shiporbit-client/internal/checkout"
	"github.com/example/shiporbit-client/internal/config"
	"github.com/example/shiporbit-client/internal/persistence"
	"github.com/example/shiporbit-client/internal/pricing"
	"github.com/example/shiporbit-client/internal/session"
	"github.com/example/shiporbit-client/internal/shipment"
)

// stateStore is the slice of local persistence the commands touch.
type stateStore interface {
	persistence.SessionStore
	persistence.DraftCache
	persistence.InvoiceCache
}

type app struct {
	cfg     config.Config
	client  *api.Client
	store   stateStore
	session *session.Manager
	logger  *slog.Logger
	stdout  io.Writer
}

// resumeWizard rebuilds the wizard for an existing draft. The locally cached
// copy wins when it has the step the command needs; otherwise the draft is
// refetched from the backend, which stays the source of truth.
func (a *app) resumeWizard(ctx context.Context, id string, step shipment.Step) (*shipment.Wizard, error) {
	if wizard, err := shipment.ResumeFromCache(ctx, a.client, a.store, a.logger, id); err == nil && wizard.Step() == step {
		return wizard, nil
	}

	current, err := a.client.Shipment(ctx, id)
	if err != nil {
		return nil, userFacingError(err)
	}
	return shipment.Resume(a.client, a.store, a.logger, current, step)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "shipping-needs":
		return a.shippingNeeds(ctx, args)
	case "verify-email":
		return a.verifyEmail(ctx, args)
	case "password-reset":
		return a.passwordReset(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.session.Logout(ctx)
		fmt.Fprintln(a.stdout, "Logged out.")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "cities":
		return a.cities(ctx, args)
	case "quote":
		return a.quote(ctx, args)
	case "create":
		return a.create(ctx, args)
	case "appointment":
		return a.appointment(ctx, args)
	case "finalize":
		return a.finalize(ctx, args)
	case "checkout":
		return a.checkout(ctx, args)
	case "shipments":
		return a.shipments(ctx, args)
	case "invoices":
		return a.invoices(ctx)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// requireAccess enforces the same gate the web client applies before any
// protected screen.
func (a *app) requireAccess() error {
	switch session.Check(a.session.User(), a.session.IsAuthenticated()) {
	case session.DestinationLogin:
		return errors.New("not logged in: run `shiporbit login` first")
	case session.DestinationShippingNeeds:
		return errors.New("finish onboarding first: your shipping needs are not on file")
	case session.DestinationEmailVerification:
		return errors.New("verify your email address before booking shipments")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("both -email and -password are required")
	}

	result := a.session.Login(ctx, *email, *password)
	if !result.Success {
		return errors.New(result.Message)
	}
	user := a.session.User()
	fmt.Fprintf(a.stdout, "Logged in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in")
	}
	user := a.session.User()
	fmt.Fprintf(a.stdout, "%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	if user.Company != nil {
		fmt.Fprintf(a.stdout, "Company: %s (%s)\n", user.Company.Name, user.Company.Location)
	}
	fmt.Fprintf(a.stdout, "Email verified: %t\n", user.IsEmailVerified)
	return nil
}

func (a *app) cities(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}
	if len(args) == 0 {
		return a.citiesInteractive(ctx)
	}
	if len(args) != 1 {
		return errors.New("usage: shiporbit cities [name-prefix]")
	}

	cities, err := a.client.SearchCities(ctx, args[0])
	if err != nil {
		return userFacingError(err)
	}
	if len(cities) == 0 {
		fmt.Fprintln(a.stdout, "No matches.")
		return nil
	}
	for _, city := range cities {
		fmt.Fprintf(a.stdout, "%6d  %s\n", city.ID, autocomplete.FormatCity(city))
	}
	return nil
}

// citiesInteractive reads prefixes from stdin and runs them through the same
// debounced typeahead the booking form uses, so quick edits coalesce into a
// single backend lookup.
func (a *app) citiesInteractive(ctx context.Context) error {
	searcher := autocomplete.NewSearcher(a.client.SearchCities, a.cfg.DebounceWindow, a.logger)
	settled := make(chan struct{}, 1)
	searcher.OnSettled(func() {
		select {
		case settled <- struct{}{}:
		default:
		}
	})

	fmt.Fprintln(a.stdout, "Type a city prefix and press enter (empty line to quit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		query := scanner.Text()
		if query == "" {
			return nil
		}
		searcher.OnQueryChange(ctx, query)

		// Wait for the debounced lookup to settle before printing.
		select {
		case <-settled:
		case <-time.After(a.cfg.DebounceWindow + a.cfg.RequestTimeout):
		case <-ctx.Done():
			return ctx.Err()
		}

		results := searcher.Results()
		if len(results) == 0 {
			fmt.Fprintln(a.stdout, "No matches.")
			continue
		}
		for _, city := range results {
			fmt.Fprintf(a.stdout, "%6d  %s\n", city.ID, autocomplete.FormatCity(city))
		}
	}
	return scanner.Err()
}

// resolveCity turns a free-text name into the single best city match.
func (a *app) resolveCity(ctx context.Context, name string) (api.City, error) {
	cities, err := a.client.SearchCities(ctx, name)
	if err != nil {
		return api.City{}, userFacingError(err)
	}
	if len(cities) == 0 {
		return api.City{}, fmt.Errorf("no city matches %q", name)
	}
	return cities[0], nil
}

func (a *app) quote(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}
	flags := flag.NewFlagSet("quote", flag.ContinueOnError)
	pickup := flags.String("pickup", "", "pickup city name")
	dropoff := flags.String("dropoff", "", "dropoff city name")
	equipment := flags.String("equipment", string(api.EquipmentDryVan), "equipment type (dryVan or reefer)")
	date := flags.String("date", "", "pickup date (YYYY-MM-DD)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pickup == "" || *dropoff == "" {
		return errors.New("both -pickup and -dropoff are required")
	}
	if !api.Equipment(*equipment).Valid() {
		return fmt.Errorf("unknown equipment %q", *equipment)
	}

	from, err := a.resolveCity(ctx, *pickup)
	if err != nil {
		return err
	}
	to, err := a.resolveCity(ctx, *dropoff)
	if err != nil {
		return err
	}

	quote, err := a.client.DistancePrice(ctx, api.DistancePriceParams{
		PickupLocation:  from,
		DropoffLocation: to,
		Equipment:       api.Equipment(*equipment),
	})
	if err != nil {
		return userFacingError(err)
	}

	fmt.Fprintf(a.stdout, "%s -> %s (%s)\n", autocomplete.FormatCity(from), autocomplete.FormatCity(to), *equipment)
	fmt.Fprintf(a.stdout, "Distance: %.0f miles\n", quote.Miles)
	fmt.Fprintf(a.stdout, "Base price: %s\n", checkout.FormatUSD(quote.BasePrice))
	fmt.Fprintf(a.stdout, "Minimum transit: %d day(s)\n", quote.MinTransitDays)
	if *date != "" {
		if dropoffDate := pricing.FromQuote(*date, &quote); dropoffDate != "" {
			fmt.Fprintf(a.stdout, "Earliest drop-off for %s: %s\n", *date, dropoffDate)
		}
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}
	flags := flag.NewFlagSet("create", flag.ContinueOnError)
	pickup := flags.String("pickup", "", "pickup city name")
	dropoff := flags.String("dropoff", "", "dropoff city name")
	equipment := flags.String("equipment", string(api.EquipmentDryVan), "equipment type (dryVan or reefer)")
	date := flags.String("date", "", "pickup date (YYYY-MM-DD)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pickup == "" || *dropoff == "" || *date == "" {
		return errors.New("-pickup, -dropoff and -date are required")
	}

	from, err := a.resolveCity(ctx, *pickup)
	if err != nil {
		return err
	}
	to, err := a.resolveCity(ctx, *dropoff)
	if err != nil {
		return err
	}

	quote, err := a.client.DistancePrice(ctx, api.DistancePriceParams{
		PickupLocation:  from,
		DropoffLocation: to,
		Equipment:       api.Equipment(*equipment),
	})
	if err != nil {
		return userFacingError(err)
	}
	dropoffDate := pricing.FromQuote(*date, &quote)

	wizard := shipment.NewWizard(a.client, a.store, a.logger)
	err = wizard.SubmitDates(ctx, shipment.DatesInput{
		Equipment:     api.Equipment(*equipment),
		PickupCityID:  from.ID,
		DropoffCityID: to.ID,
		PickupDate:    *date,
		DropoffDate:   dropoffDate,
	})
	if err != nil {
		return renderValidation(err)
	}

	draft := wizard.Shipment()
	fmt.Fprintf(a.stdout, "Draft %s created: %s -> %s, pickup %s, drop-off %s\n",
		draft.ID, autocomplete.FormatCity(from), autocomplete.FormatCity(to), *date, dropoffDate)
	fmt.Fprintf(a.stdout, "Base price: %s\n", checkout.FormatUSD(quote.BasePrice))
	fmt.Fprintln(a.stdout, "Next: shiporbit appointment -shipment", draft.ID)
	return nil
}

func (a *app) appointment(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}
	flags := flag.NewFlagSet("appointment", flag.ContinueOnError)
	id := flags.String("shipment", "", "shipment id")
	leg := flags.String("leg", "", "pickup or dropoff")
	name := flags.String("name", "", "facility name")
	address := flags.String("address", "", "facility address")
	zip := flags.String("zip", "", "zip code")
	pref := flags.String("scheduling", string(api.SchedulingFirstCome), "first_come, already_scheduled or to_be_scheduled")
	contact := flags.String("contact", "", "contact name")
	phone := flags.String("phone", "", "contact phone")
	email := flags.String("email", "", "contact email")
	assist := flags.Bool("driver-assist", false, "request loading assistance")
	assistOnly := flags.Bool("driver-assist-only", false, "only toggle driver assist")
	confirm := flags.Bool("confirm", false, "confirm the appointment and move on to finalizing")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-shipment is required")
	}

	wizard, err := a.resumeWizard(ctx, *id, shipment.StepAppointment)
	if err != nil {
		return err
	}

	if *confirm {
		if err := wizard.ConfirmAppointment(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Appointment confirmed.\n")
		fmt.Fprintln(a.stdout, "Next: shiporbit finalize -shipment", *id)
		return nil
	}

	if *assistOnly {
		if err := wizard.SetDriverAssist(ctx, *assist); err != nil {
			return renderValidation(err)
		}
		fmt.Fprintf(a.stdout, "Driver assist set to %t. Total: %s\n", *assist, checkout.FormatUSD(wizard.DisplayTotal()))
		return nil
	}

	side := shipment.Leg(*leg)
	if side != shipment.LegPickup && side != shipment.LegDropoff {
		return errors.New("-leg must be pickup or dropoff")
	}
	facility := api.Facility{
		FacilityName:         *name,
		FacilityAddress:      *address,
		ZipCode:              *zip,
		SchedulingPreference: api.SchedulingPreference(*pref),
		ContactName:          *contact,
		PhoneNumber:          *phone,
		Email:                *email,
	}
	if err := wizard.SubmitFacility(ctx, side, facility); err != nil {
		return renderValidation(err)
	}
	if *assist {
		if err := wizard.SetDriverAssist(ctx, true); err != nil {
			return renderValidation(err)
		}
	}
	fmt.Fprintf(a.stdout, "Saved %s facility for shipment %s. Total: %s\n",
		side, *id, checkout.FormatUSD(wizard.DisplayTotal()))
	return nil
}

func (a *app) finalize(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}
	flags := flag.NewFlagSet("finalize", flag.ContinueOnError)
	id := flags.String("shipment", "", "shipment id")
	pickupNumber := flags.String("pickup-number", "", "pickup confirmation number")
	pickupNotes := flags.String("pickup-notes", "", "pickup notes")
	dropoffNumber := flags.String("dropoff-number", "", "dropoff confirmation number")
	dropoffNotes := flags.String("dropoff-notes", "", "dropoff notes")
	reference := flags.String("reference", "", "reference number")
	commodity := flags.String("commodity", "", "commodity description")
	weight := flags.Int("weight", 0, "cargo weight in pounds")
	packaging := flags.Int("packaging", 0, "packaging unit count")
	packagingType := flags.String("packaging-type", "", "packaging type")
	save := flags.Bool("save", false, "save the details without booking, to finish later")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-shipment is required")
	}

	wizard, err := a.resumeWizard(ctx, *id, shipment.StepFinalizing)
	if err != nil {
		return err
	}

	patch := api.FinalizePatch{
		ReferenceNumber: *reference,
		Commodity:       *commodity,
		PackagingType:   *packagingType,
		PickupNumber:    *pickupNumber,
		PickupNotes:     *pickupNotes,
		DropoffNumber:   *dropoffNumber,
		DropoffNotes:    *dropoffNotes,
	}
	if *weight != 0 {
		patch.Weight = weight
	}
	if *packaging != 0 {
		patch.Packaging = packaging
	}

	if *save {
		if err := wizard.SaveFinalize(ctx, patch); err != nil {
			return renderValidation(err)
		}
		fmt.Fprintf(a.stdout, "Shipment %s saved. Finish booking with: shiporbit finalize -shipment %s\n", *id, *id)
		return nil
	}

	if err := wizard.Finalize(ctx, patch); err != nil {
		return renderValidation(err)
	}
	fmt.Fprintf(a.stdout, "Shipment %s finalized. Total due: %s\n", *id, checkout.FormatUSD(wizard.DisplayTotal()))
	fmt.Fprintln(a.stdout, "Next: shiporbit checkout -shipment", *id)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}
	flags := flag.NewFlagSet("checkout", flag.ContinueOnError)
	id := flags.String("shipment", "", "shipment id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-shipment is required")
	}

	wizard, err := a.resumeWizard(ctx, *id, shipment.StepCheckout)
	if err != nil {
		return err
	}

	if a.cfg.ProcessorKey == "" {
		fmt.Fprintln(a.stdout, "No processor key configured; using the mock card processor.")
	}
	processor := checkout.NewMockProcessor(time.Now().UnixNano())
	flow := checkout.NewFlow(a.client, processor, *id, a.logger)

	fmt.Fprintf(a.stdout, "Charging %s for shipment %s...\n", checkout.FormatUSD(wizard.DisplayTotal()), *id)
	if err := flow.Pay(ctx); err != nil {
		if message := flow.Message(); message != "" {
			return errors.New(message)
		}
		return err
	}
	if err := wizard.MarkPaid(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Payment succeeded. Your shipment is booked.")
	return nil
}

func (a *app) shipments(ctx context.Context, args []string) error {
	if err := a.requireAccess(); err != nil {
		return err
	}

	if len(args) == 1 {
		shp, err := a.client.Shipment(ctx, args[0])
		if err != nil {
			return userFacingError(err)
		}
		fmt.Fprintf(a.stdout, "%s  %-12s %s -> %s  %s\n",
			shp.ID, shp.Status, autocomplete.FormatCity(shp.Pickup.City), autocomplete.FormatCity(shp.Dropoff.City),
			checkout.FormatUSD(shp.TotalPrice))
		return nil
	}

	list, err := a.client.Shipments(ctx)
	if err != nil {
		return userFacingError(err)
	}
	if len(list.Results) == 0 {
		fmt.Fprintln(a.stdout, "No shipments yet.")
		return nil
	}
	sort.SliceStable(list.Results, func(i, j int) bool {
		return list.Results[i].CreatedAt > list.Results[j].CreatedAt
	})
	for _, shp := range list.Results {
		fmt.Fprintf(a.stdout, "%s  %-12s %s -> %s  %s\n",
			shp.ID, shp.Status, autocomplete.FormatCity(shp.Pickup.City), autocomplete.FormatCity(shp.Dropoff.City),
			checkout.FormatUSD(shp.TotalPrice))
	}
	return nil
}

func (a *app) invoices(ctx context.Context) error {
	if err := a.requireAccess(); err != nil {
		return err
	}

	service := billing.NewService(a.client, a.store, time.Now, a.logger)
	page, err := service.Load(ctx)
	if err != nil {
		return userFacingError(err)
	}

	fmt.Fprintf(a.stdout, "Total payments:      %s\n", checkout.FormatUSD(page.Summary.TotalPayments))
	fmt.Fprintf(a.stdout, "Overdue amount:      %s\n", checkout.FormatUSD(page.Summary.OverdueAmount))
	fmt.Fprintf(a.stdout, "Paid this month:     %s\n", checkout.FormatUSD(page.Summary.ThisMonthPayments))
	if page.FromCache {
		fmt.Fprintf(a.stdout, "(offline copy from %s)\n", page.FetchedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(a.stdout)
	for _, invoice := range page.Invoices {
		fmt.Fprintf(a.stdout, "%-12s %-8s %10s  shipments: %d\n",
			invoice.InvoiceNumber, invoice.Status, "$"+invoice.TotalAmount, invoice.Shipments)
	}
	return nil
}

// renderValidation flattens field errors into one line per field; anything
// else passes through the generic translation.
func renderValidation(err error) error {
	var verr *shipment.ValidationError
	if errors.As(err, &verr) {
		lines := make([]string, 0, len(verr.FieldErrors))
		for field, message := range verr.FieldErrors {
			lines = append(lines, fmt.Sprintf("%s: %s", field, message))
		}
		sort.Strings(lines)
		return errors.New(strings.Join(lines, "\n"))
	}
	return userFacingError(err)
}

func userFacingError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.HasFieldErrors() {
			lines := make([]string, 0, len(apiErr.FieldErrors))
			for field, messages := range apiErr.FieldErrors {
				if len(messages) > 0 {
					lines = append(lines, fmt.Sprintf("%s: %s", field, messages[0]))
				}
			}
			sort.Strings(lines)
			return errors.New(strings.Join(lines, "\n"))
		}
		return errors.New(apiErr.UserMessage())
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return errors.New("your session has expired; run `shiporbit login`")
	}
	if errors.Is(err, api.ErrNotFound) {
		return errors.New("not found")
	}
	return errors.New(api.FallbackMessage)
}
