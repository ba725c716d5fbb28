package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/backend"
	"github.com/tapcard/storefront/internal/database"
	"github.com/tapcard/storefront/internal/enum"
	"github.com/tapcard/storefront/internal/wizard"
)

// Errors returned by the submission adapter.
var (
	ErrCompanyOrderInvalid = errors.New("invalid company order")
)

// DefaultSubmitMessage is shown when the backend gives no usable reason.
const DefaultSubmitMessage = wizard.DefaultSubmitError

var validate = validator.New()

// --- Payloads ---

// OrderPayload is the body of POST /orders.
type OrderPayload struct {
	PersonalInfo     PersonalInfoPayload `json:"personalInfo"`
	CardDesign       CardDesignPayload   `json:"cardDesign"`
	DeliveryInfo     DeliveryInfoPayload `json:"deliveryInfo"`
	PaymentMethod    string              `json:"paymentMethod"`
	Product          string              `json:"product"`
	CustomerFullName string              `json:"customerFullName"`
	FullAddress      string              `json:"fullAddress"`
	Total            json.Number         `json:"total"`
	Currency         string              `json:"currency"`
}

type PersonalInfoPayload struct {
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Position     string   `json:"position"`
	Organization string   `json:"organization"`
	PhoneNumbers []string `json:"phoneNumbers"`
	Email        string   `json:"email"`
	LinkedinURL  string   `json:"linkedinUrl,omitempty"`
}

type CardDesignPayload struct {
	NameOnCard         string `json:"nameOnCard"`
	Color              string `json:"color"`
	IncludePrintedLogo bool   `json:"includePrintedLogo"`
}

// DeliveryInfoPayload carries the effective courier contact: with
// useSameContact the personal phone and email are filled in here.
type DeliveryInfoPayload struct {
	Country        string      `json:"country"`
	CityID         string      `json:"cityId,omitempty"`
	City           string      `json:"city"`
	AddressLine1   string      `json:"addressLine1"`
	AddressLine2   string      `json:"addressLine2,omitempty"`
	UseSameContact bool        `json:"useSameContact"`
	DeliveryPhone  string      `json:"deliveryPhone"`
	DeliveryEmail  string      `json:"deliveryEmail"`
	DeliveryFee    json.Number `json:"deliveryFee"`
}

// CompanyOrderDraft is the bulk order intake form.
type CompanyOrderDraft struct {
	CompanyName   string `json:"companyName" validate:"required"`
	ContactPerson string `json:"contactPerson" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	EmployeeCount int    `json:"employeeCount" validate:"required,min=1"`
	Message       string `json:"message"`
}

// CustomOrderPayload is the body of POST /custom-orders.
type CustomOrderPayload struct {
	CompanyInfo  CompanyInfoPayload  `json:"companyInfo"`
	OrderDetails OrderDetailsPayload `json:"orderDetails"`
}

type CompanyInfoPayload struct {
	CompanyName   string `json:"companyName"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

type OrderDetailsPayload struct {
	EmployeeCount int    `json:"employeeCount"`
	Message       string `json:"message"`
}

// --- Mapping ---

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// MapOrder builds the backend order from a draft. Every payload field is
// set explicitly; nothing is copied by reflection.
func MapOrder(d wizard.OrderDraft, productID string) OrderPayload {
	phone, email := d.EffectiveContact()

	var phones []string
	for _, p := range d.PersonalInfo.PhoneNumbers {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}

	quote := d.Quote()
	return OrderPayload{
		PersonalInfo: PersonalInfoPayload{
			FirstName:    strings.TrimSpace(d.PersonalInfo.FirstName),
			LastName:     strings.TrimSpace(d.PersonalInfo.LastName),
			Position:     strings.TrimSpace(d.PersonalInfo.Position),
			Organization: strings.TrimSpace(d.PersonalInfo.Organization),
			PhoneNumbers: phones,
			Email:        strings.TrimSpace(d.PersonalInfo.Email),
			LinkedinURL:  strings.TrimSpace(d.PersonalInfo.LinkedinURL),
		},
		CardDesign: CardDesignPayload{
			NameOnCard:         strings.TrimSpace(d.CardDesign.NameOnCard),
			Color:              d.CardDesign.Color,
			IncludePrintedLogo: d.CardDesign.IncludePrintedLogo,
		},
		DeliveryInfo: DeliveryInfoPayload{
			Country:        d.DeliveryInfo.Country,
			CityID:         d.DeliveryInfo.CityID,
			City:           strings.TrimSpace(d.DeliveryInfo.City),
			AddressLine1:   strings.TrimSpace(d.DeliveryInfo.AddressLine1),
			AddressLine2:   strings.TrimSpace(d.DeliveryInfo.AddressLine2),
			UseSameContact: d.DeliveryInfo.UseSameContact,
			DeliveryPhone:  phone,
			DeliveryEmail:  email,
			DeliveryFee:    money(quote.CityFee),
		},
		PaymentMethod:    d.PaymentMethod,
		Product:          productID,
		CustomerFullName: d.FullName(),
		FullAddress:      d.FullAddress(),
		Total:            money(quote.Total),
		Currency:         quote.Currency,
	}
}

// MapCustomOrder validates a company draft and builds the backend payload.
func MapCustomOrder(d CompanyOrderDraft) (CustomOrderPayload, error) {
	d = CompanyOrderDraft{
		CompanyName:   strings.TrimSpace(d.CompanyName),
		ContactPerson: strings.TrimSpace(d.ContactPerson),
		Email:         strings.TrimSpace(d.Email),
		Phone:         strings.TrimSpace(d.Phone),
		EmployeeCount: d.EmployeeCount,
		Message:       strings.TrimSpace(d.Message),
	}
	if err := validate.Struct(d); err != nil {
		return CustomOrderPayload{}, fmt.Errorf("%w: %s", ErrCompanyOrderInvalid, describeValidation(err))
	}
	return CustomOrderPayload{
		CompanyInfo: CompanyInfoPayload{
			CompanyName:   d.CompanyName,
			ContactPerson: d.ContactPerson,
			Email:         d.Email,
			Phone:         d.Phone,
		},
		OrderDetails: OrderDetailsPayload{
			EmployeeCount: d.EmployeeCount,
			Message:       d.Message,
		},
	}, nil
}

// describeValidation lists the failing fields by their JSON-ish names.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields = append(fields, strings.ToLower(name[:1])+name[1:])
	}
	return strings.Join(fields, ", ")
}

// --- Errors ---

// SubmitError is a failed backend submission. It carries the backend's own
// message when there is one.
type SubmitError struct {
	Status  int
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit order: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the customer.
func (e *SubmitError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return DefaultSubmitMessage
}

func newSubmitError(err error) *SubmitError {
	se := &SubmitError{Err: err}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		se.Status = apiErr.Status
		se.Message = apiErr.Message
	}
	return se
}

// --- Service ---

// OrderBackend creates orders in the backend.
// Satisfied by *backend.Client; narrow interface for testability.
type OrderBackend interface {
	CreateOrder(ctx context.Context, payload any) (backend.CreatedOrder, error)
	CreateCustomOrder(ctx context.Context, payload any) (backend.CreatedOrder, error)
}

// Journal records submission attempts.
// Satisfied by *database.Queries; narrow interface for testability.
type Journal interface {
	CreateSubmission(ctx context.Context, arg database.CreateSubmissionParams) (database.Submission, error)
}

// SubmissionService sends orders to the backend and journals every attempt.
type SubmissionService struct {
	backend   OrderBackend
	journal   Journal
	productID string
}

// NewSubmissionService creates a SubmissionService. journal may be nil.
func NewSubmissionService(b OrderBackend, journal Journal, productID string) *SubmissionService {
	return &SubmissionService{backend: b, journal: journal, productID: productID}
}

// ForSession returns a wizard.Submitter that tags journal rows with the
// checkout session id.
func (s *SubmissionService) ForSession(sessionID uuid.UUID) wizard.Submitter {
	return sessionSubmitter{svc: s, sessionID: sessionID}
}

type sessionSubmitter struct {
	svc       *SubmissionService
	sessionID uuid.UUID
}

func (ss sessionSubmitter) SubmitOrder(ctx context.Context, d wizard.OrderDraft) (wizard.Receipt, error) {
	return ss.svc.submitOrder(ctx, d, pgtype.UUID{Bytes: ss.sessionID, Valid: true})
}

// SubmitOrder sends a draft that is not tied to a wizard session.
func (s *SubmissionService) SubmitOrder(ctx context.Context, d wizard.OrderDraft) (wizard.Receipt, error) {
	return s.submitOrder(ctx, d, pgtype.UUID{})
}

func (s *SubmissionService) submitOrder(ctx context.Context, d wizard.OrderDraft, sessionID pgtype.UUID) (wizard.Receipt, error) {
	payload := MapOrder(d, s.productID)
	total := d.Quote().Total

	created, err := s.backend.CreateOrder(ctx, payload)
	entry := database.CreateSubmissionParams{
		Kind:         enum.JournalKindOrder,
		SessionID:    sessionID,
		CustomerName: payload.CustomerFullName,
		Email:        payload.PersonalInfo.Email,
		Total:        decimalToNumeric(total),
	}
	if err != nil {
		se := newSubmitError(err)
		s.record(ctx, entry, payload, "", se)
		return wizard.Receipt{}, se
	}
	s.record(ctx, entry, payload, created.ID, nil)
	return wizard.Receipt{OrderID: created.ID, Total: total}, nil
}

// SubmitCustomOrder validates and sends a bulk company order. It returns
// ErrCompanyOrderInvalid before any backend call when the form is incomplete.
func (s *SubmissionService) SubmitCustomOrder(ctx context.Context, d CompanyOrderDraft) (backend.CreatedOrder, error) {
	payload, err := MapCustomOrder(d)
	if err != nil {
		return backend.CreatedOrder{}, err
	}

	created, err := s.backend.CreateCustomOrder(ctx, payload)
	entry := database.CreateSubmissionParams{
		Kind:         enum.JournalKindCustomOrder,
		CustomerName: payload.CompanyInfo.CompanyName,
		Email:        payload.CompanyInfo.Email,
	}
	if err != nil {
		se := newSubmitError(err)
		s.record(ctx, entry, payload, "", se)
		return backend.CreatedOrder{}, se
	}
	s.record(ctx, entry, payload, created.ID, nil)
	return created, nil
}

// record writes one journal row. Journal failures are logged and dropped;
// they never change the outcome seen by the customer.
func (s *SubmissionService) record(ctx context.Context, entry database.CreateSubmissionParams, payload any, orderID string, failure *SubmitError) {
	if s.journal == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: encode journal payload: %v", err)
		return
	}
	entry.Payload = raw
	entry.Status = enum.JournalStatusSucceeded
	if orderID != "" {
		entry.BackendOrderID = pgtype.Text{String: orderID, Valid: true}
	}
	if failure != nil {
		entry.Status = enum.JournalStatusFailed
		entry.ErrorMessage = pgtype.Text{String: failure.Err.Error(), Valid: true}
	}

	// The request may already be cancelled; the journal row is still wanted.
	if _, err := s.journal.CreateSubmission(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("ERROR: record %s submission: %v", entry.Kind, err)
	}
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}
	}
	return n
}
