package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/observability"
)

// Policy decides, per ride-state transition, whether the caregiver channel
// gets a message. Every decision checks contact presence first: a cleared
// contact makes the per-kind flags inert regardless of their value.
type Policy struct {
	Courier      Courier
	TrackingLink string
	Logger       *slog.Logger
}

func NewPolicy(courier Courier, trackingLink string, logger *slog.Logger) *Policy {
	return &Policy{Courier: courier, TrackingLink: trackingLink, Logger: logger}
}

// RideStarted notifies the caregiver that the ride is in progress.
func (p *Policy) RideStarted(ctx context.Context, profile models.PassengerProfile, ride models.RideStatus) {
	if profile.CaregiverContact == "" || !profile.CaregiverNotifications.RideStartEnd {
		return
	}
	msg := fmt.Sprintf("Ride Update: %s's ride to %s is now in progress.", profile.Name, ride.Destination)
	if p.TrackingLink != "" {
		msg += " Track live: " + p.TrackingLink
	}
	p.send(ctx, profile.CaregiverContact, msg, "ride_start")
}

// Arrived notifies the caregiver that the passenger reached the destination.
func (p *Policy) Arrived(ctx context.Context, profile models.PassengerProfile, ride models.RideStatus) {
	if profile.CaregiverContact == "" || !profile.CaregiverNotifications.RideStartEnd {
		return
	}
	msg := fmt.Sprintf("Ride Update: %s has successfully arrived at %s.", profile.Name, ride.Destination)
	p.send(ctx, profile.CaregiverContact, msg, "ride_end")
}

// Halfway sends the single mid-ride ETA update. The once-per-ride latch
// lives in the session; this only applies the contact/flag gate.
func (p *Policy) Halfway(ctx context.Context, profile models.PassengerProfile, etaMinutes int) {
	if profile.CaregiverContact == "" || !profile.CaregiverNotifications.ETAUpdates {
		return
	}
	msg := fmt.Sprintf("ETA Update: %s is about halfway to their destination. New ETA: %d minutes.", profile.Name, etaMinutes)
	p.send(ctx, profile.CaregiverContact, msg, "eta_update")
}

// Emergency sends the urgent caregiver alert.
func (p *Policy) Emergency(ctx context.Context, profile models.PassengerProfile, ride models.RideStatus) {
	if profile.CaregiverContact == "" || !profile.CaregiverNotifications.EmergencyAlerts {
		return
	}
	msg := fmt.Sprintf("Emergency Alert: %s has activated the SOS button during their ride to %s. Please check on them immediately.", profile.Name, ride.Destination)
	p.send(ctx, profile.CaregiverContact, msg, "emergency")
}

func (p *Policy) send(ctx context.Context, to, msg, kind string) {
	if err := p.Courier.Send(ctx, to, msg); err != nil {
		// best-effort channel: log only, never retried or surfaced
		p.Logger.Warn("courier send failed", "kind", kind, "error", err)
		return
	}
	observability.NotificationsTotal.WithLabelValues(kind).Inc()
	p.Logger.Info("caregiver notified", "kind", kind)
}
