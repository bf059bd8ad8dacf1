package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/example/shiporbit-client/internal/api"
)

func (a *app) register(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("register", flag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	firstName := flags.String("first-name", "", "first name")
	lastName := flags.String("last-name", "", "last name")
	phone := flags.String("phone", "", "phone number")
	company := flags.String("company", "", "company name")
	country := flags.String("ships-country", "US", "country the company primarily ships in")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" || *firstName == "" || *company == "" {
		return errors.New("-email, -password, -first-name and -company are required")
	}

	result, err := a.client.RegisterStepOne(ctx, api.RegisterStepOneParams{
		Email:               *email,
		FirstName:           *firstName,
		LastName:            *lastName,
		PhoneNumber:         *phone,
		Password:            *password,
		CompanyName:         *company,
		PrimaryShipsCountry: *country,
	})
	if err != nil {
		return renderValidation(err)
	}
	if result.Message != "" {
		fmt.Fprintln(a.stdout, result.Message)
	}
	fmt.Fprintf(a.stdout, "Account created for %s. Next: shiporbit login, then shiporbit shipping-needs.\n", result.Email)
	return nil
}

func (a *app) shippingNeeds(ctx context.Context, args []string) error {
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in: run `shiporbit login` first")
	}
	flags := flag.NewFlagSet("shipping-needs", flag.ContinueOnError)
	location := flags.String("location", "", "company location")
	modes := flags.String("modes", "ftl", "shipping modes, comma separated")
	averageFTL := flags.String("average-ftl", "", "average full truckloads per month")
	trailers := flags.String("trailers", "dryVan", "trailer types, comma separated")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *location == "" || *averageFTL == "" {
		return errors.New("-location and -average-ftl are required")
	}

	result, err := a.client.CreateShippingNeeds(ctx, api.ShippingNeedsParams{
		CompanyLocation: *location,
		Mode:            splitList(*modes),
		AverageFTL:      *averageFTL,
		TrailerType:     splitList(*trailers),
	})
	if err != nil {
		return renderValidation(err)
	}
	if result.Message != "" {
		fmt.Fprintln(a.stdout, result.Message)
	}
	if result.RedirectToVerification {
		fmt.Fprintln(a.stdout, "Check your inbox: verify your email to finish onboarding.")
	}

	// The gate keys off the stored user; pick up the onboarding change.
	if err := a.session.RefreshUser(ctx); err != nil {
		a.logger.Warn("failed to refresh user after shipping needs", "error", err)
	}
	return nil
}

func (a *app) verifyEmail(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("verify-email", flag.ContinueOnError)
	token := flags.String("token", "", "verification token from the email link")
	resend := flags.String("resend", "", "resend the verification email to this address")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *resend != "" {
		result, err := a.client.ResendVerificationEmail(ctx, *resend)
		if err != nil {
			return userFacingError(err)
		}
		fmt.Fprintln(a.stdout, messageOr(result, "Verification email sent."))
		return nil
	}
	if *token == "" {
		return errors.New("either -token or -resend is required")
	}

	result, err := a.client.VerifyEmail(ctx, *token)
	if err != nil {
		return userFacingError(err)
	}
	fmt.Fprintln(a.stdout, messageOr(result, "Email verified."))

	if a.session.IsAuthenticated() {
		if err := a.session.RefreshUser(ctx); err != nil {
			a.logger.Warn("failed to refresh user after verification", "error", err)
		}
	}
	return nil
}

func (a *app) passwordReset(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("password-reset", flag.ContinueOnError)
	email := flags.String("email", "", "request a reset link for this address")
	token := flags.String("token", "", "reset token from the email link")
	password := flags.String("password", "", "new password, used with -token")
	if err := flags.Parse(args); err != nil {
		return err
	}

	switch {
	case *email != "":
		result, err := a.client.PasswordResetRequest(ctx, *email)
		if err != nil {
			return userFacingError(err)
		}
		fmt.Fprintln(a.stdout, messageOr(result, "If that address exists, a reset link is on its way."))
		return nil
	case *token != "" && *password != "":
		result, err := a.client.PasswordResetConfirm(ctx, *token, *password)
		if err != nil {
			return renderValidation(err)
		}
		fmt.Fprintln(a.stdout, messageOr(result, "Password updated. Log in with the new password."))
		return nil
	default:
		return errors.New("use -email to request a link, or -token with -password to set a new password")
	}
}

func messageOr(result api.MessageResult, fallback string) string {
	if result.Message != "" {
		return result.Message
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
