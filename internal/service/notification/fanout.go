package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/oshworks/osh-api/internal/email"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/sms"
	"github.com/oshworks/osh-api/pkg/logger"
)

// Scenario selects the channel combination and message set for an
// appointment fan-out.
type Scenario string

const (
	ScenarioCreation     Scenario = "CREATION"
	ScenarioStatusUpdate Scenario = "STATUS_UPDATE"
	ScenarioConfirmation Scenario = "CONFIRMATION"
	ScenarioReschedule   Scenario = "RESCHEDULE"
	ScenarioCancel       Scenario = "CANCEL"
	ScenarioObligatory   Scenario = "OBLIGATORY"
)

const relatedAppointment = "APPOINTMENT"

// Fanout pushes one appointment event to every recipient across the
// in-app, email and SMS channels. Email and SMS delivery is
// best-effort: failures are logged and never returned. In-app
// persistence failures are aggregated and returned so callers can log
// them, but by then the appointment mutation has already committed.
type Fanout struct {
	inApp  Service
	email  email.Service
	sms    sms.Service
	logger *logger.Logger
}

func NewFanout(inApp Service, emailSvc email.Service, smsSvc sms.Service, logger *logger.Logger) *Fanout {
	return &Fanout{
		inApp:  inApp,
		email:  emailSvc,
		sms:    smsSvc,
		logger: logger,
	}
}

// Notify fans an appointment event out to recipients. Nil recipients
// are skipped; an unknown scenario is logged and skipped without error.
func (f *Fanout) Notify(ctx context.Context, recipients []*model.User, appointment *model.Appointment, scenario Scenario, extra string) error {
	var result *multierror.Error
	for _, user := range recipients {
		if user == nil {
			continue
		}
		switch scenario {
		case ScenarioCreation:
			result = multierror.Append(result, f.sendCreation(ctx, user, appointment))
		case ScenarioStatusUpdate, ScenarioConfirmation, ScenarioCancel:
			result = multierror.Append(result, f.sendStatusUpdate(ctx, user, appointment))
		case ScenarioReschedule:
			result = multierror.Append(result, f.sendReschedule(ctx, user, appointment, extra))
		case ScenarioObligatory:
			result = multierror.Append(result, f.sendObligatory(ctx, user, appointment))
		default:
			f.logger.Warn("unknown notification scenario", "scenario", string(scenario))
		}
	}
	return result.ErrorOrNil()
}

// NotifyManagersOfProposal sends the advisory message managers get
// when a slot is proposed, so they can flag an unavailability.
func (f *Fanout) NotifyManagersOfProposal(ctx context.Context, managers []*model.User, appointment *model.Appointment, employee *model.Employee) error {
	message := fmt.Sprintf(
		"Un créneau médical a été proposé pour %s. Vous pouvez signaler une indisponibilité si nécessaire.",
		employee.FullName(),
	)

	var result *multierror.Error
	for _, manager := range managers {
		if manager == nil {
			continue
		}
		err := f.inApp.Notify(ctx, manager.ID, "Proposition de créneau médical", message,
			model.NotificationTypeValidation, &model.RelatedEntity{Type: relatedAppointment, ID: appointment.ID})
		result = multierror.Append(result, err)

		f.sendEmail(ctx, manager, "Mise à jour du rendez-vous médical", statusEmailBody(manager, appointment))
	}
	return result.ErrorOrNil()
}

func (f *Fanout) sendCreation(ctx context.Context, user *model.User, appointment *model.Appointment) error {
	date, clock := displayDate(appointment)
	message := fmt.Sprintf("Vous avez un nouveau rendez-vous le %s à %s", date, clock)

	err := f.inApp.Notify(ctx, user.ID, "Nouveau rendez-vous", message,
		model.NotificationTypeAppointment, &model.RelatedEntity{Type: relatedAppointment, ID: appointment.ID})

	f.sendEmail(ctx, user, "Nouveau rendez-vous médical", creationEmailBody(user, appointment))
	f.sendSMS(ctx, user, fmt.Sprintf("OSH: Nouveau RDV médical le %s à %s. Lieu: %s. Type: %s",
		date, clock, displayLocation(appointment), appointment.Type))
	return err
}

func (f *Fanout) sendStatusUpdate(ctx context.Context, user *model.User, appointment *model.Appointment) error {
	err := f.inApp.Notify(ctx, user.ID, "Mise à jour du rendez-vous", statusMessage(appointment.Status),
		model.NotificationTypeAppointment, &model.RelatedEntity{Type: relatedAppointment, ID: appointment.ID})

	date, clock := displayDate(appointment)
	f.sendEmail(ctx, user, "Mise à jour du rendez-vous médical", statusEmailBody(user, appointment))
	f.sendSMS(ctx, user, fmt.Sprintf("OSH: RDV médical %s le %s à %s. Lieu: %s",
		statusShort(appointment.Status), date, clock, displayLocation(appointment)))
	return err
}

func (f *Fanout) sendReschedule(ctx context.Context, user *model.User, appointment *model.Appointment, motif string) error {
	message := fmt.Sprintf("Votre rendez-vous médical a été reporté. Motif: %s", motif)
	err := f.inApp.Notify(ctx, user.ID, "Rendez-vous reporté", message,
		model.NotificationTypeAppointment, &model.RelatedEntity{Type: relatedAppointment, ID: appointment.ID})

	date, clock := displayDate(appointment)
	f.sendEmail(ctx, user, "Mise à jour du rendez-vous médical", statusEmailBody(user, appointment))
	f.sendSMS(ctx, user, fmt.Sprintf("OSH: RDV médical %s le %s à %s. Lieu: %s",
		statusShort(appointment.Status), date, clock, displayLocation(appointment)))
	return err
}

func (f *Fanout) sendObligatory(ctx context.Context, user *model.User, appointment *model.Appointment) error {
	err := f.inApp.Notify(ctx, user.ID, "Visite médicale obligatoire",
		"Une visite médicale obligatoire a été programmée pour vous. Veuillez confirmer votre disponibilité.",
		model.NotificationTypeAppointment, &model.RelatedEntity{Type: relatedAppointment, ID: appointment.ID})

	date, clock := displayDate(appointment)
	f.sendEmail(ctx, user, "Visite médicale obligatoire", obligatoryEmailBody(user, appointment))
	f.sendSMS(ctx, user, fmt.Sprintf("OSH: Visite médicale OBLIGATOIRE le %s à %s. Lieu: %s. Type: %s. Confirmez votre disponibilité.",
		date, clock, displayLocation(appointment), appointment.Type))
	return err
}

func (f *Fanout) sendEmail(ctx context.Context, user *model.User, subject, body string) {
	if err := f.email.SendAppointmentNotification(ctx, user.Email, subject, body); err != nil {
		f.logger.Error(err, "failed to send appointment email", "user_id", user.ID.String())
	}
}

func (f *Fanout) sendSMS(ctx context.Context, user *model.User, message string) {
	if user.Phone == nil || *user.Phone == "" {
		return
	}
	if err := f.sms.Send(ctx, *user.Phone, message); err != nil {
		f.logger.Error(err, "failed to send appointment sms", "user_id", user.ID.String())
	}
}

func statusMessage(status model.AppointmentStatus) string {
	switch status {
	case model.AppointmentStatusConfirme:
		return "Votre rendez-vous a été confirmé"
	case model.AppointmentStatusAnnule:
		return "Votre rendez-vous a été annulé"
	case model.AppointmentStatusTermine:
		return "Votre rendez-vous a été marqué comme terminé"
	case model.AppointmentStatusReporte:
		return "Votre rendez-vous a été reporté"
	case model.AppointmentStatusPropose:
		return "Un nouveau créneau vous a été proposé"
	case model.AppointmentStatusDemande:
		return "Votre demande de rendez-vous a été reçue"
	default:
		return "Le statut de votre rendez-vous a été mis à jour"
	}
}

func statusShort(status model.AppointmentStatus) string {
	switch status {
	case model.AppointmentStatusConfirme:
		return "confirmé"
	case model.AppointmentStatusAnnule:
		return "annulé"
	case model.AppointmentStatusTermine:
		return "terminé"
	case model.AppointmentStatusReporte:
		return "reporté"
	case model.AppointmentStatusPropose:
		return "proposé"
	case model.AppointmentStatusDemande:
		return "reçu"
	default:
		return "mis à jour"
	}
}

// displayDate picks the most definitive date the appointment carries.
// Appointments in early states have no confirmed date yet.
func displayDate(appointment *model.Appointment) (string, string) {
	for _, t := range []*time.Time{appointment.AppointmentDate, appointment.ProposedDate, appointment.RequestedDate} {
		if t != nil {
			return t.Format("02/01/2006"), t.Format("15:04")
		}
	}
	return "à définir", "à définir"
}

func displayLocation(appointment *model.Appointment) string {
	if appointment.Location == nil || *appointment.Location == "" {
		return "à définir"
	}
	return *appointment.Location
}

func creationEmailBody(user *model.User, appointment *model.Appointment) string {
	date, clock := displayDate(appointment)
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", user.Name)
	b.WriteString("Un nouveau rendez-vous médical a été créé pour vous.\n\n")
	b.WriteString("Détails du rendez-vous :\n")
	fmt.Fprintf(&b, "- Date : %s\n", date)
	fmt.Fprintf(&b, "- Heure : %s\n", clock)
	fmt.Fprintf(&b, "- Lieu : %s\n", displayLocation(appointment))
	fmt.Fprintf(&b, "- Type : %s\n\n", appointment.Type)
	b.WriteString("Vous recevrez une notification dans l'application dès qu'un créneau vous sera proposé.\n\n")
	b.WriteString("Cordialement,\nL'équipe Santé au travail")
	return b.String()
}

func statusEmailBody(user *model.User, appointment *model.Appointment) string {
	date, clock := displayDate(appointment)
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", user.Name)
	fmt.Fprintf(&b, "%s.\n\n", statusMessage(appointment.Status))
	b.WriteString("Détails du rendez-vous :\n")
	fmt.Fprintf(&b, "- Date : %s\n", date)
	fmt.Fprintf(&b, "- Heure : %s\n", clock)
	fmt.Fprintf(&b, "- Lieu : %s\n", displayLocation(appointment))
	fmt.Fprintf(&b, "- Type : %s\n", appointment.Type)
	fmt.Fprintf(&b, "- Statut : %s\n\n", appointment.Status)
	if appointment.Notes != "" {
		fmt.Fprintf(&b, "Notes : %s\n\n", appointment.Notes)
	}
	b.WriteString("Cordialement,\nL'équipe Santé au travail")
	return b.String()
}

func obligatoryEmailBody(user *model.User, appointment *model.Appointment) string {
	date, clock := displayDate(appointment)
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", user.Name)
	b.WriteString("Une visite médicale obligatoire a été programmée pour vous.\n\n")
	b.WriteString("Détails de la visite :\n")
	fmt.Fprintf(&b, "- Date : %s\n", date)
	fmt.Fprintf(&b, "- Heure : %s\n", clock)
	fmt.Fprintf(&b, "- Lieu : %s\n", displayLocation(appointment))
	fmt.Fprintf(&b, "- Type : %s\n\n", appointment.Type)
	b.WriteString("IMPORTANT : Cette visite est obligatoire. Veuillez confirmer votre disponibilité ou justifier un éventuel report via l'application.\n\n")
	b.WriteString("Cordialement,\nL'équipe Santé au travail")
	return b.String()
}
