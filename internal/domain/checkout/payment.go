package checkout

import (
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

// MaxProofSize is the upper bound for a proof-of-payment image.
const MaxProofSize = 250 * 1024

// Proof file rejection errors. Both are local and immediate: a rejected file
// never reaches the network and is never stored as the pending proof.
var (
	ErrProofType     = errors.New("proof must be a jpeg, jpg, png, or webp image")
	ErrProofTooLarge = errors.New("proof file size must be less than 250KB")
)

// Proof is a pending proof-of-payment image, held in memory until it is
// attached to a placed order.
type Proof struct {
	Filename    string
	ContentType string
	Data        []byte
}

var (
	proofExts = map[string]bool{
		".jpeg": true,
		".jpg":  true,
		".png":  true,
		".webp": true,
	}
	proofMIMEs = map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
	}
)

// CheckProof validates a candidate proof file against the type allow-list
// and the size cap.
func CheckProof(p Proof) error {
	ext := strings.ToLower(filepath.Ext(p.Filename))
	if !proofExts[ext] || !proofMIMEs[strings.ToLower(p.ContentType)] {
		return ErrProofType
	}
	if len(p.Data) > MaxProofSize {
		return ErrProofTooLarge
	}
	return nil
}

// SelectorState enumerates the payment method chooser states.
type SelectorState int

const (
	// SelectorCOD: cash on delivery selected, no online fields active.
	SelectorCOD SelectorState = iota
	// SelectorOnlinePending: "online" chosen, the blocking confirmation is
	// shown and awaiting an answer.
	SelectorOnlinePending
	// SelectorOnlineConfirmed: the customer acknowledged that only manual
	// transfer is supported; online fields are active.
	SelectorOnlineConfirmed
)

// Selector owns the payment method choice, the blocking online-payment
// confirmation, and the pending proof file. Reverting to cash on delivery,
// by whatever path, always clears the online option and the pending proof.
type Selector struct {
	state  SelectorState
	option OnlineOption
	proof  *Proof
}

// NewSelector returns a Selector in the cash-on-delivery state.
func NewSelector() *Selector {
	return &Selector{state: SelectorCOD}
}

// State returns the current chooser state.
func (s *Selector) State() SelectorState {
	return s.state
}

// Method maps the chooser state onto the form's payment method value.
func (s *Selector) Method() PaymentMethod {
	if s.state == SelectorCOD {
		return PaymentCOD
	}
	return PaymentOnline
}

// Option returns the selected online transfer channel, if any.
func (s *Selector) Option() OnlineOption {
	return s.option
}

// Proof returns the pending proof file, or nil.
func (s *Selector) Proof() *Proof {
	return s.proof
}

// ChooseOnline switches from cash on delivery to online payment, entering the
// pending state until the confirmation is answered. A no-op outside COD.
func (s *Selector) ChooseOnline() {
	if s.state == SelectorCOD {
		s.state = SelectorOnlinePending
	}
}

// ConfirmOnline acknowledges the manual-transfer notice and activates the
// online fields. A no-op unless the confirmation is pending.
func (s *Selector) ConfirmOnline() {
	if s.state == SelectorOnlinePending {
		s.state = SelectorOnlineConfirmed
	}
}

// CancelOnline dismisses the pending confirmation, reverting to cash on
// delivery and resetting the online fields.
func (s *Selector) CancelOnline() {
	if s.state == SelectorOnlinePending {
		s.reset()
	}
}

// ChooseCOD switches back to cash on delivery from any state, resetting the
// online option and pending proof. Idempotent.
func (s *Selector) ChooseCOD() {
	s.reset()
}

// SelectOption picks a transfer channel. Only meaningful once the online
// notice has been confirmed.
func (s *Selector) SelectOption(opt OnlineOption) {
	if s.state != SelectorOnlineConfirmed {
		return
	}
	s.option = opt
}

// AttachProof validates and stores the pending proof file. On rejection the
// previously attached proof, if any, is discarded.
func (s *Selector) AttachProof(p Proof) error {
	if err := CheckProof(p); err != nil {
		s.proof = nil
		return err
	}
	s.proof = &p
	return nil
}

func (s *Selector) reset() {
	s.state = SelectorCOD
	s.option = OnlineOptionNone
	s.proof = nil
}

// Instructions are static payment-destination details displayed for a
// selected online option. Payments are verified out-of-band by store staff.
type Instructions struct {
	Title   string
	Payee   string
	Account string
	Bank    string
	Notice  string
}

var optionInstructions = map[OnlineOption]Instructions{
	OnlineJazzCash: {
		Title:   "JazzCash Payment",
		Payee:   "Adeel Rehman",
		Account: "03090005634",
		Notice:  "Ensure the payment is sent to the correct number. We are not responsible for incorrect payments.",
	},
	OnlineEasyPaisa: {
		Title:   "EasyPaisa Payment",
		Payee:   "Adeel Rehman",
		Account: "03090005634",
		Notice:  "Ensure the payment is sent to the correct number. We are not responsible for incorrect payments.",
	},
	OnlineBankTransfer: {
		Title:   "Bank Transfer",
		Payee:   "Adeel Rehman",
		Account: "PK11JSBL9999903090005634",
		Bank:    "JS Bank",
		Notice:  "Ensure the payment is sent to the correct IBAN. We are not responsible for incorrect payments.",
	},
}

// Instructions returns the payment-destination details for the currently
// selected online option. ok is false when no option is selected.
func (s *Selector) Instructions() (Instructions, bool) {
	ins, ok := optionInstructions[s.option]
	return ins, ok
}
