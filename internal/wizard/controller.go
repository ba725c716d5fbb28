package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/enum"
	"github.com/tapcard/storefront/internal/pricing"
)

// Errors returned by controller transitions.
var (
	ErrStepIncomplete   = errors.New("fill in all required fields")
	ErrFirstStep        = errors.New("already at the first step")
	ErrNotTerminalStep  = errors.New("orders can only be submitted from the summary step")
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrClosed           = errors.New("wizard session closed")
)

// DefaultSubmitError is shown when a failed submission carries no message
// worth showing to the customer.
const DefaultSubmitError = "There was an error placing your order. Please try again."

// StepError reports a failed step gate. It matches ErrStepIncomplete.
type StepError struct {
	Verdict Verdict
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s: %v", int(e.Verdict.Step), e.Verdict.Step, ErrStepIncomplete, e.Verdict.Missing)
}

func (e *StepError) Unwrap() error { return ErrStepIncomplete }

// FeeResolver resolves the delivery fee for a city.
type FeeResolver interface {
	ResolveCityFee(ctx context.Context, cityID string) (decimal.Decimal, error)
}

// Receipt identifies an accepted order.
type Receipt struct {
	OrderID string          `json:"orderId"`
	Total   decimal.Decimal `json:"total"`
}

// Submitter sends a finished draft to the backend.
type Submitter interface {
	SubmitOrder(ctx context.Context, draft OrderDraft) (Receipt, error)
}

// Notification is a customer-facing message raised by a transition.
type Notification struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Destructive bool     `json:"destructive"`
	Missing     []string `json:"missing,omitempty"`
}

// Notifier receives controller notifications. Implementations must not
// call back into the controller.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Submission is the state of the last submit attempt.
type Submission struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// State is an immutable snapshot of a wizard session.
type State struct {
	CurrentStep Step          `json:"currentStep"`
	StepName    string        `json:"stepName"`
	StepCount   int           `json:"stepCount"`
	Draft       OrderDraft    `json:"draft"`
	Quote       pricing.Quote `json:"quote"`
	FeePending  bool          `json:"feePending"`
	Submission  Submission    `json:"submission"`
}

// FieldUpdate is one path/value pair for UpdateFields.
type FieldUpdate struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Controller drives one checkout session through the wizard steps. All
// transitions are serialized on mu; fee lookups run on their own goroutines
// and re-enter through mu when they finish.
type Controller struct {
	mu         sync.Mutex
	step       Step
	draft      OrderDraft
	submission Submission

	// feeFor is the city id whose fee is currently in the draft.
	feeFor     string
	feePending bool
	closed     bool

	fees      FeeResolver
	submitter Submitter
	notifier  Notifier

	ctx     context.Context
	cancel  context.CancelFunc
	lookups sync.WaitGroup
}

// NewController creates a controller at step 1 with a default draft.
// fees and notifier may be nil: without a resolver the fee stays zero.
func NewController(fees FeeResolver, submitter Submitter, notifier Notifier) *Controller {
	if submitter == nil {
		panic("wizard.NewController: nil submitter")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		step:       StepPersonalInfo,
		draft:      NewDraft(),
		submission: Submission{Status: enum.SubmissionStatusIdle},
		fees:       fees,
		submitter:  submitter,
		notifier:   notifier,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// State returns a snapshot of the session, with the total priced from the
// current draft.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		CurrentStep: c.step,
		StepName:    c.step.String(),
		StepCount:   StepCount,
		Draft:       c.draft.Clone(),
		Quote:       c.draft.Quote(),
		FeePending:  c.feePending,
		Submission:  c.submission,
	}
}

// UpdateField merges one value into the draft. No step gate runs here.
func (c *Controller) UpdateField(path string, value any) error {
	return c.UpdateFields([]FieldUpdate{{Path: path, Value: value}})
}

// UpdateFields applies updates in order. Either all of them are applied or,
// on the first rejected update, none are.
func (c *Controller) UpdateFields(updates []FieldUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	next := c.draft.Clone()
	for _, u := range updates {
		prevCountry := next.DeliveryInfo.Country
		if err := setField(&next, u.Path, u.Value); err != nil {
			return err
		}
		// Cities are listed per country.
		if u.Path == PathCountry && next.DeliveryInfo.Country != prevCountry {
			next.DeliveryInfo.CityID = ""
			next.DeliveryInfo.City = ""
		}
	}

	cityChanged := next.DeliveryInfo.CityID != c.draft.DeliveryInfo.CityID
	c.draft = next

	if cityChanged {
		c.draft.DeliveryInfo.CityFee = decimal.Zero
		c.feeFor = ""
		c.feePending = false
		if c.draft.DeliveryInfo.CityID != "" {
			c.startLookupLocked(c.draft.DeliveryInfo.CityID)
		}
	}
	return nil
}

// Next advances one step when the current step's gate passes. At the
// terminal step it is a no-op.
func (c *Controller) Next() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	verdict, err := ValidateStep(c.step, &c.draft)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !verdict.Valid {
		c.mu.Unlock()
		c.notify(missingInfo(verdict))
		return &StepError{Verdict: verdict}
	}

	if c.step < StepSummary {
		c.step++
	}
	if c.step == StepDelivery {
		c.refreshFeeLocked()
	}
	c.mu.Unlock()
	return nil
}

// Previous moves back one step.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.step <= StepPersonalInfo {
		return ErrFirstStep
	}
	c.step--
	return nil
}

// Submit sends the draft from the summary step. A call made while another
// submission is in flight returns ErrSubmitInProgress without contacting the
// backend. On failure the draft is kept and the wizard returns to the
// summary step so the customer can retry.
func (c *Controller) Submit(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Receipt{}, ErrClosed
	}
	if c.submission.Status == enum.SubmissionStatusSubmitting {
		c.mu.Unlock()
		return Receipt{}, ErrSubmitInProgress
	}
	if c.step != StepSummary {
		c.mu.Unlock()
		return Receipt{}, ErrNotTerminalStep
	}
	if verdict := ValidateAll(&c.draft); !verdict.Valid {
		c.mu.Unlock()
		c.notify(missingInfo(verdict))
		return Receipt{}, &StepError{Verdict: verdict}
	}

	c.submission = Submission{Status: enum.SubmissionStatusSubmitting}
	draft := c.draft.Clone()
	c.mu.Unlock()

	receipt, err := c.submitter.SubmitOrder(ctx, draft)

	c.mu.Lock()
	if err != nil {
		msg := UserMessage(err)
		c.submission = Submission{Status: enum.SubmissionStatusFailed, Error: msg}
		// The customer may have navigated away while this was in flight.
		c.step = StepSummary
		c.mu.Unlock()
		log.Printf("WARN: order submission failed: %v", err)
		c.notify(Notification{
			Kind:        enum.NotificationSubmission,
			Title:       "Order Failed",
			Message:     msg,
			Destructive: true,
		})
		return Receipt{}, err
	}

	c.submission = Submission{Status: enum.SubmissionStatusSuccess, OrderID: receipt.OrderID}
	c.draft = NewDraft()
	c.step = StepPersonalInfo
	c.feeFor = ""
	c.feePending = false
	c.mu.Unlock()

	c.notify(Notification{
		Kind:    enum.NotificationSubmission,
		Title:   "Order Placed Successfully!",
		Message: "We'll contact you within 24 hours to confirm your order.",
	})
	return receipt, nil
}

// Wait blocks until every fee lookup started so far has settled.
func (c *Controller) Wait() {
	c.lookups.Wait()
}

// Close cancels in-flight lookups and rejects further transitions.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// refreshFeeLocked starts a lookup for a selected city whose fee has not
// been resolved yet.
func (c *Controller) refreshFeeLocked() {
	city := c.draft.DeliveryInfo.CityID
	if city == "" || city == c.feeFor || c.feePending {
		return
	}
	c.startLookupLocked(city)
}

// startLookupLocked resolves the fee for cityID in the background. The
// response is applied only if cityID is still the selected city.
func (c *Controller) startLookupLocked(cityID string) {
	if c.fees == nil {
		return
	}
	c.feePending = true
	c.lookups.Add(1)
	go func() {
		defer c.lookups.Done()
		fee, err := c.fees.ResolveCityFee(c.ctx, cityID)

		c.mu.Lock()
		if c.closed || c.draft.DeliveryInfo.CityID != cityID {
			c.mu.Unlock()
			return
		}
		c.feePending = false
		if err != nil {
			// Left unresolved so re-entering Delivery retries.
			c.feeFor = ""
			c.draft.DeliveryInfo.CityFee = decimal.Zero
			c.mu.Unlock()
			log.Printf("WARN: resolve fee for city %s: %v", cityID, err)
			c.notify(Notification{
				Kind:    enum.NotificationFee,
				Title:   "Delivery fee unavailable",
				Message: "We could not load the delivery fee for this city. It will be confirmed with your order.",
			})
			return
		}
		if fee.IsNegative() {
			fee = decimal.Zero
		}
		c.feeFor = cityID
		c.draft.DeliveryInfo.CityFee = fee
		c.mu.Unlock()
	}()
}

func (c *Controller) notify(n Notification) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func missingInfo(v Verdict) Notification {
	return Notification{
		Kind:        enum.NotificationValidation,
		Title:       "Missing Information",
		Message:     "Please fill in all required fields before continuing.",
		Destructive: true,
		Missing:     v.Missing,
	}
}

// UserMessage turns a submission error into text safe to show a customer.
// Errors that carry their own customer message expose it via
// UserMessage() string; anything else gets DefaultSubmitError.
func UserMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return DefaultSubmitError
}
