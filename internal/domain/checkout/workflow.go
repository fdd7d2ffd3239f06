package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/checkout-flow/internal/domain/cart"
)

// Routes the workflow navigates to. Navigation resolves precondition
// violations; it is never used for recoverable input errors.
const (
	RouteLogin           = "/login"
	RouteLoginToCheckout = "/login?redirect=/place-order"
	RouteCollections     = "/collections"
	RouteCart            = "/cart"
	RouteOrders          = "/orders"
)

// DefaultConfirmDelay is how long the confirmation acknowledgment stays up
// before the workflow navigates to order history.
const DefaultConfirmDelay = 7 * time.Second

// Precondition and concurrency errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
)

// RejectedError is an application-level rejection from a backend
// collaborator: the request was delivered and refused, with a reason meant
// for the customer. Transport failures are any other error.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// ValidationError reports that submission was not attempted because the form
// failed validation.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "shipping form failed validation"
}

// State enumerates the order submission lifecycle. orderPlaced latches
// separately: once an order is placed, cart emptiness no longer means
// "nothing to check out".
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePlaced
	StateThankYouShown
)

// User identifies the authenticated customer.
type User struct {
	ID    string
	Name  string
	Email string
}

// AuthContext exposes the current user identity, or nil when unauthenticated.
type AuthContext interface {
	CurrentUser() *User
}

// PriceCalculator returns authoritative totals for a set of cart lines. The
// workflow never computes money values itself.
type PriceCalculator interface {
	Calculate(ctx context.Context, items []cart.LineItem) (*Totals, error)
}

// OrderRequest is the order-creation payload: normalized shipping fields,
// the cart lines, and the last known authoritative tax and shipping figures.
type OrderRequest struct {
	Form        ShippingForm
	Items       []cart.LineItem
	Taxes       decimal.Decimal
	ShippingFee decimal.Decimal
}

// OrderConfirmation is the accepted order's identity.
type OrderConfirmation struct {
	OrderID string
}

// OrderPlacer submits the order-creation request.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error)
}

// ProofUploader attaches a proof-of-payment image to an already placed order.
type ProofUploader interface {
	UploadProof(ctx context.Context, orderID string, proof Proof) error
}

// Navigator performs route transitions on behalf of the workflow. Replace
// swaps the current history entry so "back" cannot return to checkout.
type Navigator interface {
	Go(route string)
	Replace(route string)
}

// Notifier surfaces transient, non-blocking user notifications.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Deps are the workflow's injected collaborators. Everything of consequence
// lives behind these interfaces so the sequencer is testable in isolation.
type Deps struct {
	Auth    AuthContext
	Cart    cart.Store
	Pricing PriceCalculator
	Orders  OrderPlacer
	Proofs  ProofUploader
	Nav     Navigator
	Notify  Notifier
	Logger  *zap.Logger
}

// Config holds non-dependency workflow configuration.
type Config struct {
	// ConfirmDelay overrides DefaultConfirmDelay when positive.
	ConfirmDelay time.Duration
}

/// Workflow orchestrates one checkout attempt end to end: cart snapshot,
// authoritative pricing, form validation, payment method selection, and the
// strictly sequential order submission with optimistic cart clearing.
type Workflow struct {
	deps  Deps
	delay time.Duration
	lg    *zap.Logger

	mu             sync.Mutex
	form           ShippingForm
	fieldErrs      FieldErrors
	selector       *Selector
	totals         Totals
	state          State
	orderPlaced    bool
	submitting     bool
	started        bool
	initialCartLen int
	priceSeq       uint64
	confirmTimer   *time.Timer
}

// New creates a Workflow with the given collaborators.
func New(cfg Config, deps Deps) *Workflow {
	delay := cfg.ConfirmDelay
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}
	lg := deps.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Workflow{
		deps:      deps,
		delay:     delay,
		lg:        lg,
		form:      NewShippingForm(),
		fieldErrs: FieldErrors{},
		selector:  NewSelector(),
	}
}

// Start runs the entry preconditions and the initial pricing refresh. The
// cart length is captured exactly once here: it distinguishes "cart was
// empty before checkout" from "cart was cleared by a successful checkout".
func (w *Workflow) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.deps.Auth.CurrentUser() == nil {
		w.mu.Unlock()
		w.deps.Nav.Go(RouteLogin)
		return ErrNotAuthenticated
	}

	if !w.started {
		w.started = true
		w.initialCartLen = len(w.deps.Cart.Items())
	}

	if w.initialCartLen == 0 && !w.orderPlaced {
		w.mu.Unlock()
		w.deps.Nav.Go(RouteCollections)
		return ErrEmptyCart
	}
	w.mu.Unlock()

	w.refreshTotals(ctx)
	return nil
}

// CartChanged tells the workflow the cart contents materially changed. An
// empty cart routes back to the cart page unless an order was just placed;
// otherwise fresh totals are requested.
func (w *Workflow) CartChanged(ctx context.Context) {
	if len(w.deps.Cart.Items()) == 0 {
		w.mu.Lock()
		placed := w.orderPlaced
		w.mu.Unlock()
		if !placed {
			w.deps.Nav.Go(RouteCart)
		}
		return
	}
	w.refreshTotals(ctx)
}

// refreshTotals asks the pricing collaborator for fresh totals. The call is
// best-effort display data: on failure the last known totals stay. A
// monotonic sequence number guards against an out-of-order response for a
// superseded cart overwriting a fresher one.
func (w *Workflow) refreshTotals(ctx context.Context) {
	items := w.deps.Cart.Items()
	if len(items) == 0 {
		return
	}

	w.mu.Lock()
	w.priceSeq++
	seq := w.priceSeq
	w.mu.Unlock()

	totals, err := w.deps.Pricing.Calculate(ctx, items)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.lg.Warn("price calculation failed", zap.Error(err))
		return
	}
	if seq < w.priceSeq {
		return
	}
	w.totals = *totals
}

// Totals returns the last known authoritative totals.
func (w *Workflow) Totals() Totals {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totals
}

// State returns the current submission state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// OrderPlaced reports whether an order has been placed in this session.
func (w *Workflow) OrderPlaced() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orderPlaced
}

// Form returns a copy of the current shipping form with the payment fields
// reflecting the selector state.
func (w *Workflow) Form() ShippingForm {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := w.form
	f.PaymentMethod = w.selector.Method()
	f.OnlinePaymentOption = w.selector.Option()
	return f
}

// SetForm replaces the shipping fields. Payment method and online option are
// owned by the selector and ignored here.
func (w *Workflow) SetForm(f ShippingForm) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f.PaymentMethod = w.form.PaymentMethod
	f.OnlinePaymentOption = w.form.OnlinePaymentOption
	w.form = f
}

// FieldEdited records an edit to the named field, optimistically clearing
// just that field's error while the rest of the error set stays.
func (w *Workflow) FieldEdited(field string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fieldErrs.Clear(field)
}

// FieldErrors returns a copy of the current validation errors.
func (w *Workflow) FieldErrors() FieldErrors {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(FieldErrors, len(w.fieldErrs))
	for k, v := range w.fieldErrs {
		out[k] = v
	}
	return out
}

// PaymentState returns the payment method chooser state.
func (w *Workflow) PaymentState() SelectorState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selector.State()
}

// ChoosePaymentMethod switches the payment method. Choosing online shows the
// blocking manual-transfer confirmation; choosing cod resets the online
// option and pending proof.
func (w *Workflow) ChoosePaymentMethod(m PaymentMethod) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fieldErrs.Clear("paymentMethod")
	switch m {
	case PaymentOnline:
		w.selector.ChooseOnline()
	case PaymentCOD:
		w.selector.ChooseCOD()
	}
}

// ConfirmOnlinePayment answers the blocking online-payment confirmation.
func (w *Workflow) ConfirmOnlinePayment(confirm bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if confirm {
		w.selector.ConfirmOnline()
	} else {
		w.selector.CancelOnline()
	}
}

// SelectOnlineOption picks a manual transfer channel and clears that field's
// pending validation error.
func (w *Workflow) SelectOnlineOption(opt OnlineOption) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selector.SelectOption(opt)
	w.fieldErrs.Clear("onlinePaymentOption")
}

// PaymentInstructions returns the static payment-destination details for the
// selected online option.
func (w *Workflow) PaymentInstructions() (Instructions, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selector.Instructions()
}

// AttachProof validates and stores the proof-of-payment file. Rejected files
// are surfaced immediately and never stored.
func (w *Workflow) AttachProof(p Proof) error {
	w.mu.Lock()
	err := w.selector.AttachProof(p)
	if err == nil {
		w.fieldErrs.Clear("paymentProof")
	}
	w.mu.Unlock()

	if err != nil {
		w.deps.Notify.Error(err.Error())
		return err
	}
	return nil
}

// Submit runs the order placement sequence. Preconditions produce terminal
// redirects; validation failures surface inline and skip submission. On
// acceptance the cart is cleared optimistically and the remaining steps run
// to completion; on rejection or transport failure the cart is rolled back
// to its pre-submission contents and the workflow stays retry-ready.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}

	if w.deps.Auth.CurrentUser() == nil {
		w.mu.Unlock()
		w.deps.Notify.Error("Please log in to place an order")
		w.deps.Nav.Go(RouteLoginToCheckout)
		return ErrNotAuthenticated
	}

	items := w.deps.Cart.Items()
	if len(items) == 0 {
		w.mu.Unlock()
		w.deps.Notify.Error("Your cart is empty. Please add items before checkout.")
		w.deps.Nav.Go(RouteCollections)
		return ErrEmptyCart
	}

	form := w.form
	form.PaymentMethod = w.selector.Method()
	form.OnlinePaymentOption = w.selector.Option()
	proof := w.selector.Proof()

	fieldErrs := Validate(form, proof != nil)
	if !fieldErrs.Valid() {
		w.fieldErrs = fieldErrs
		w.mu.Unlock()
		for _, msg := range fieldErrs.Messages() {
			w.deps.Notify.Error(msg)
		}
		return &ValidationError{Fields: fieldErrs}
	}

	w.submitting = true
	w.state = StateSubmitting
	taxes := w.totals.Taxes
	shipping := w.totals.ShippingFee
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	txn := cart.Begin(w.deps.Cart)

	conf, err := w.deps.Orders.PlaceOrder(ctx, OrderRequest{
		Form:        form.Normalized(),
		Items:       items,
		Taxes:       taxes,
		ShippingFee: shipping,
	})
	if err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) && rej.Message != "" {
			w.deps.Notify.Error(rej.Message)
		} else {
			w.deps.Notify.Error("Network error. Please check your connection and try again.")
		}
		if rbErr := txn.Rollback(ctx); rbErr != nil {
			w.lg.Warn("cart rollback failed", zap.Error(rbErr))
		}
		w.mu.Lock()
		w.state = StateIdle
		w.mu.Unlock()
		return errors.Wrap(err, "place order")
	}

	// Latch before any further step so an empty-cart render cannot bounce
	// the customer back to the cart page.
	w.mu.Lock()
	w.orderPlaced = true
	w.state = StatePlaced
	w.mu.Unlock()
	w.deps.Notify.Info("Order placed successfully")

	if clearErr := txn.Clear(ctx); clearErr != nil {
		w.lg.Warn("cart clear degraded", zap.Error(clearErr))
	}
	txn.Commit()

	if form.PaymentMethod == PaymentOnline && proof != nil {
		// The order already stands; a failed upload only degrades the proof
		// attachment and never rolls anything back.
		if upErr := w.deps.Proofs.UploadProof(ctx, conf.OrderID, *proof); upErr != nil {
			var rej *RejectedError
			if errors.As(upErr, &rej) && rej.Message != "" {
				w.deps.Notify.Error(rej.Message)
			} else {
				w.deps.Notify.Error("Failed to upload payment proof")
			}
			w.lg.Warn("proof upload failed",
				zap.String("order_id", conf.OrderID),
				zap.Error(upErr),
			)
		} else {
			w.deps.Notify.Info("Payment proof uploaded successfully")
		}
	}

	w.mu.Lock()
	w.state = StateThankYouShown
	w.confirmTimer = time.AfterFunc(w.delay, func() {
		w.deps.Nav.Replace(RouteOrders)
	})
	w.mu.Unlock()

	return nil
}

// Close cancels the pending confirmation redirect, if any. Call it when the
// workflow instance is torn down early so a stray late navigation cannot
// fire.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.confirmTimer != nil {
		w.confirmTimer.Stop()
		w.confirmTimer = nil
	}
}
