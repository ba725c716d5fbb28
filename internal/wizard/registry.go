package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tapcard/storefront/internal/enum"
)

// Step identifies one page of the order wizard. Steps are 1-based.
type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepCardDesign
	StepDelivery
	StepPayment
	StepSummary
)

// StepCount is the number of wizard steps; StepSummary is terminal.
const StepCount = int(StepSummary)

var stepNames = map[Step]string{
	StepPersonalInfo: "Personal Info",
	StepCardDesign:   "Card Design",
	StepDelivery:     "Delivery",
	StepPayment:      "Payment Method",
	StepSummary:      "Order Summary",
}

func (s Step) Valid() bool { return s >= StepPersonalInfo && s <= StepSummary }

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// FieldType is the input kind of a draft field.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldEmail  FieldType = "email"
	FieldTel    FieldType = "tel"
	FieldURL    FieldType = "url"
	FieldNumber FieldType = "number"
	FieldEnum   FieldType = "enum"
	FieldBool   FieldType = "bool"
)

// Field paths, as the storefront form names them.
const (
	PathFirstName      = "personalInfo.firstName"
	PathLastName       = "personalInfo.lastName"
	PathPosition       = "personalInfo.position"
	PathOrganization   = "personalInfo.organization"
	PathPhoneNumbers   = "personalInfo.phoneNumbers"
	PathEmail          = "personalInfo.email"
	PathLinkedinURL    = "personalInfo.linkedinUrl"
	PathNameOnCard     = "cardDesign.nameOnCard"
	PathColor          = "cardDesign.color"
	PathPrintedLogo    = "cardDesign.includePrintedLogo"
	PathCountry        = "deliveryInfo.country"
	PathCityID         = "deliveryInfo.cityId"
	PathCity           = "deliveryInfo.city"
	PathAddressLine1   = "deliveryInfo.addressLine1"
	PathAddressLine2   = "deliveryInfo.addressLine2"
	PathUseSameContact = "deliveryInfo.useSameContact"
	PathDeliveryPhone  = "deliveryInfo.deliveryPhone"
	PathDeliveryEmail  = "deliveryInfo.deliveryEmail"
	PathCityFee        = "deliveryInfo.cityFee"
	PathPaymentMethod  = "paymentMethod"
)

// Errors returned when a field update is rejected.
var (
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is not editable")
	ErrInvalidValue  = errors.New("invalid field value")
)

// Option is one value of an enum field.
type Option struct {
	Value    string
	Disabled bool
}

// Field describes one draft field: its type, owning step and requirement
// rule, together with typed access into the draft.
type Field struct {
	Path     string
	Type     FieldType
	Step     Step
	Repeated bool
	Computed bool
	Options  []Option

	// RequiredWhen reports whether the field must be filled for the
	// current draft. Nil means optional.
	RequiredWhen func(d *OrderDraft) bool

	get func(d *OrderDraft) any
	set func(d *OrderDraft, v any) error
}

// Required evaluates RequiredWhen against d.
func (f Field) Required(d *OrderDraft) bool {
	return f.RequiredWhen != nil && f.RequiredWhen(d)
}

// Value reads the field from d.
func (f Field) Value(d *OrderDraft) any { return f.get(d) }

// Option returns the enum option matching v.
func (f Field) Option(v string) (Option, bool) {
	for _, o := range f.Options {
		if o.Value == v {
			return o, true
		}
	}
	return Option{}, false
}

func always(*OrderDraft) bool { return true }

func whenSeparateContact(d *OrderDraft) bool { return !d.DeliveryInfo.UseSameContact }

// registry lists every draft field in form order.
var registry = []Field{
	textField(PathFirstName, FieldText, StepPersonalInfo, always, func(d *OrderDraft) *string { return &d.PersonalInfo.FirstName }),
	textField(PathLastName, FieldText, StepPersonalInfo, always, func(d *OrderDraft) *string { return &d.PersonalInfo.LastName }),
	textField(PathPosition, FieldText, StepPersonalInfo, nil, func(d *OrderDraft) *string { return &d.PersonalInfo.Position }),
	textField(PathOrganization, FieldText, StepPersonalInfo, nil, func(d *OrderDraft) *string { return &d.PersonalInfo.Organization }),
	{
		Path:         PathPhoneNumbers,
		Type:         FieldTel,
		Step:         StepPersonalInfo,
		Repeated:     true,
		RequiredWhen: always,
		get:          func(d *OrderDraft) any { return d.PersonalInfo.PhoneNumbers },
		set: func(d *OrderDraft, v any) error {
			phones, err := toStrings(v)
			if err != nil {
				return err
			}
			d.PersonalInfo.PhoneNumbers = phones
			return nil
		},
	},
	textField(PathEmail, FieldEmail, StepPersonalInfo, always, func(d *OrderDraft) *string { return &d.PersonalInfo.Email }),
	textField(PathLinkedinURL, FieldURL, StepPersonalInfo, nil, func(d *OrderDraft) *string { return &d.PersonalInfo.LinkedinURL }),

	textField(PathNameOnCard, FieldText, StepCardDesign, always, func(d *OrderDraft) *string { return &d.CardDesign.NameOnCard }),
	enumField(PathColor, StepCardDesign, []Option{
		{Value: enum.CardColorBlack},
		{Value: enum.CardColorWhite},
	}, func(d *OrderDraft) *string { return &d.CardDesign.Color }),
	boolField(PathPrintedLogo, StepCardDesign, func(d *OrderDraft) *bool { return &d.CardDesign.IncludePrintedLogo }),

	textField(PathCountry, FieldText, StepDelivery, always, func(d *OrderDraft) *string { return &d.DeliveryInfo.Country }),
	textField(PathCityID, FieldText, StepDelivery, nil, func(d *OrderDraft) *string { return &d.DeliveryInfo.CityID }),
	textField(PathCity, FieldText, StepDelivery, always, func(d *OrderDraft) *string { return &d.DeliveryInfo.City }),
	textField(PathAddressLine1, FieldText, StepDelivery, always, func(d *OrderDraft) *string { return &d.DeliveryInfo.AddressLine1 }),
	textField(PathAddressLine2, FieldText, StepDelivery, nil, func(d *OrderDraft) *string { return &d.DeliveryInfo.AddressLine2 }),
	boolField(PathUseSameContact, StepDelivery, func(d *OrderDraft) *bool { return &d.DeliveryInfo.UseSameContact }),
	textField(PathDeliveryPhone, FieldTel, StepDelivery, whenSeparateContact, func(d *OrderDraft) *string { return &d.DeliveryInfo.DeliveryPhone }),
	textField(PathDeliveryEmail, FieldEmail, StepDelivery, whenSeparateContact, func(d *OrderDraft) *string { return &d.DeliveryInfo.DeliveryEmail }),
	{
		Path:     PathCityFee,
		Type:     FieldNumber,
		Step:     StepDelivery,
		Computed: true,
		get:      func(d *OrderDraft) any { return d.DeliveryInfo.CityFee },
	},

	enumField(PathPaymentMethod, StepPayment, []Option{
		{Value: enum.PaymentMethodCash},
		{Value: enum.PaymentMethodOnline, Disabled: true},
	}, func(d *OrderDraft) *string { return &d.PaymentMethod }),
}

var fieldsByPath = indexRegistry(registry)

func indexRegistry(fields []Field) map[string]Field {
	idx := make(map[string]Field, len(fields))
	for _, f := range fields {
		if !f.Step.Valid() {
			panic(fmt.Sprintf("wizard: field %q has invalid step %d", f.Path, f.Step))
		}
		if f.Type == FieldEnum && len(f.Options) == 0 {
			panic(fmt.Sprintf("wizard: enum field %q has no options", f.Path))
		}
		if f.get == nil || (f.set == nil && !f.Computed) {
			panic(fmt.Sprintf("wizard: field %q is missing an accessor", f.Path))
		}
		if _, dup := idx[f.Path]; dup {
			panic(fmt.Sprintf("wizard: duplicate field %q", f.Path))
		}
		idx[f.Path] = f
	}
	return idx
}

// Lookup returns the registry entry for path.
func Lookup(path string) (Field, bool) {
	f, ok := fieldsByPath[path]
	return f, ok
}

// Fields returns the fields owned by step, in form order.
func Fields(step Step) []Field {
	var out []Field
	for _, f := range registry {
		if f.Step == step {
			out = append(out, f)
		}
	}
	return out
}

// Paths returns every registered path, sorted.
func Paths() []string {
	out := make([]string, 0, len(fieldsByPath))
	for p := range fieldsByPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// setField applies one update through the registry.
func setField(d *OrderDraft, path string, v any) error {
	f, ok := fieldsByPath[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	if f.Computed {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, path)
	}
	if err := f.set(d, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// --- Field constructors ---

func textField(path string, typ FieldType, step Step, req func(*OrderDraft) bool, ptr func(*OrderDraft) *string) Field {
	return Field{
		Path:         path,
		Type:         typ,
		Step:         step,
		RequiredWhen: req,
		get:          func(d *OrderDraft) any { return *ptr(d) },
		set: func(d *OrderDraft, v any) error {
			s, ok := v.(string)
			if !ok {
				return ErrInvalidValue
			}
			*ptr(d) = s
			return nil
		},
	}
}

// enumField stores any string; whether the value is an enabled option is
// decided by the step gate, not at input time.
func enumField(path string, step Step, opts []Option, ptr func(*OrderDraft) *string) Field {
	f := textField(path, FieldEnum, step, always, ptr)
	f.Options = opts
	return f
}

func boolField(path string, step Step, ptr func(*OrderDraft) *bool) Field {
	return Field{
		Path: path,
		Type: FieldBool,
		Step: step,
		get:  func(d *OrderDraft) any { return *ptr(d) },
		set: func(d *OrderDraft, v any) error {
			switch b := v.(type) {
			case bool:
				*ptr(d) = b
			case string:
				switch strings.ToLower(b) {
				case "true", "on", "1":
					*ptr(d) = true
				case "false", "off", "0", "":
					*ptr(d) = false
				default:
					return ErrInvalidValue
				}
			default:
				return ErrInvalidValue
			}
			return nil
		},
	}
}

func toStrings(v any) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...), nil
	case []any:
		out := make([]string, len(vv))
		for i, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, ErrInvalidValue
			}
			out[i] = s
		}
		return out, nil
	case string:
		return []string{vv}, nil
	}
	return nil, ErrInvalidValue
}
