package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/booking-api/pkg/civildate"
)

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCanceled  AppointmentStatus = "CANCELED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCanceled:
		return true
	}
	return false
}

type Appointment struct {
	Base
	BookingID       string              `db:"booking_id" json:"booking_id"`
	RequestID       string              `db:"request_id" json:"request_id"`
	PaymentOrderID  string              `db:"payment_order_id" json:"payment_order_id"`
	ClientName      string              `db:"client_name" json:"client_name"`
	Email           string              `db:"email" json:"email"`
	Phone           string              `db:"phone" json:"phone"`
	Address         string              `db:"address" json:"address"`
	AppointmentDate civildate.Date      `db:"appointment_date" json:"appointment_date"`
	Time            Slot                `db:"time_slot" json:"time"`
	Service         ServiceType         `db:"service" json:"service"`
	Notes           string              `db:"notes" json:"notes,omitempty"`
	Status          AppointmentStatus   `db:"status" json:"status"`
	ChargedAmount   decimal.Decimal     `db:"charged_amount" json:"charged_amount"`
	ApplicationFee  decimal.Decimal     `db:"application_fee" json:"application_fee"`
	PaypalFee       decimal.Decimal     `db:"paypal_fee" json:"paypal_fee"`
	CancelReason    *string             `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CanceledAt      *time.Time          `db:"canceled_at" json:"canceled_at,omitempty"`
	RefundAmount    decimal.NullDecimal `db:"refund_amount" json:"refund_amount,omitempty"`
}

func (a *Appointment) Ref() SlotRef {
	return SlotRef{Date: a.AppointmentDate, Slot: a.Time}
}

// EffectiveStatus derives COMPLETED for confirmed appointments whose date has
// passed. Nothing writes COMPLETED to storage.
func (a *Appointment) EffectiveStatus(today civildate.Date) AppointmentStatus {
	if a.Status == AppointmentStatusConfirmed && a.AppointmentDate.Before(today) {
		return AppointmentStatusCompleted
	}
	return a.Status
}

// OwnedBy compares emails case-insensitively.
func (a *Appointment) OwnedBy(email string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(email))
}

// View renders the appointment for API responses with money at two decimals
// and the derived status.
func (a *Appointment) View(today civildate.Date) *AppointmentView {
	v := &AppointmentView{
		BookingID:       a.BookingID,
		ClientName:      a.ClientName,
		Email:           a.Email,
		Phone:           a.Phone,
		Address:         a.Address,
		AppointmentDate: a.AppointmentDate,
		Time:            a.Time,
		Service:         a.Service,
		Notes:           a.Notes,
		Status:          a.EffectiveStatus(today),
		ChargedAmount:   a.ChargedAmount.StringFixed(2),
		ApplicationFee:  a.ApplicationFee.StringFixed(2),
		PaypalFee:       a.PaypalFee.StringFixed(2),
		CancelReason:    a.CancelReason,
		CanceledAt:      a.CanceledAt,
		CreatedAt:       a.CreatedAt,
	}
	if a.RefundAmount.Valid {
		refund := a.RefundAmount.Decimal.StringFixed(2)
		v.RefundAmount = &refund
	}
	return v
}

type AppointmentView struct {
	BookingID       string            `json:"booking_id"`
	ClientName      string            `json:"client_name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Address         string            `json:"address"`
	AppointmentDate civildate.Date    `json:"appointment_date"`
	Time            Slot              `json:"time"`
	Service         ServiceType       `json:"service"`
	Notes           string            `json:"notes,omitempty"`
	Status          AppointmentStatus `json:"status"`
	ChargedAmount   string            `json:"charged_amount"`
	ApplicationFee  string            `json:"application_fee"`
	PaypalFee       string            `json:"paypal_fee"`
	CancelReason    *string           `json:"cancel_reason,omitempty"`
	CanceledAt      *time.Time        `json:"canceled_at,omitempty"`
	RefundAmount    *string           `json:"refund_amount,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// PaymentConfirmation is the gateway's proof of capture. It is taken at face value.
type PaymentConfirmation struct {
	OrderID        string          `json:"order_id" validate:"required,max=128"`
	ChargedAmount  decimal.Decimal `json:"charged_amount" validate:"money"`
	ApplicationFee decimal.Decimal `json:"application_fee" validate:"money"`
	PaypalFee      decimal.Decimal `json:"paypal_fee" validate:"money"`
}

// BookingDraft is what the customer picked in the booking flow.
type BookingDraft struct {
	Date       civildate.Date `json:"date" validate:"required,datekey"`
	Slot       Slot           `json:"slot" validate:"required,slot"`
	Service    ServiceType    `json:"service" validate:"required,servicetype"`
	ClientName string         `json:"client_name" validate:"required,max=120"`
	Email      string         `json:"email" validate:"required,email,max=254"`
	Phone      string         `json:"phone" validate:"required,max=32"`
	Address    string         `json:"address" validate:"required,max=255"`
	Notes      string         `json:"notes" validate:"max=1000"`
}

type AppointmentFilters struct {
	From   civildate.Date
	To     civildate.Date
	Status AppointmentStatus
	Limit  int
}
