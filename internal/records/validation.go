package records

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Input is a submitted purchase before it becomes a record. Pointer numbers
// distinguish "not supplied" from zero.
type Input struct {
	ItemName        string   `json:"itemName" validate:"required"`
	Weight          *float64 `json:"weight" validate:"required,gte=0"`
	PricePerKg      *float64 `json:"pricePerKg" validate:"omitempty,gte=0"`
	Amount          *float64 `json:"amount" validate:"omitempty,gte=0"`
	SupplierName    string   `json:"supplierName" validate:"required"`
	TransactionDate string   `json:"transactionDate" validate:"omitempty,datetime=2006-01-02"`
}

// ValidationError lists the rejected fields of an Input with a message each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validatePriceField, Input{})
	return v
}

// validatePriceField requires the active price field: amount for the Pot
// variant, pricePerKg for everything else.
func validatePriceField(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if domain.IsPot(in.ItemName) {
		if in.Amount == nil {
			sl.ReportError(in.Amount, "amount", "Amount", "required", "")
		}
		return
	}
	if in.PricePerKg == nil {
		sl.ReportError(in.PricePerKg, "pricePerKg", "PricePerKg", "required", "")
	}
}

// Validate rejects an incomplete or malformed submission.
func (in Input) Validate() error {
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.SupplierName = strings.TrimSpace(in.SupplierName)

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must not be negative"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// Prepare turns a valid input into a record without an id. The Pot variant
// keeps amount as its total and zeroes pricePerKg; every other item zeroes
// amount and totals weight times pricePerKg. A missing transaction date
// becomes the calendar date of now.
func (in Input) Prepare(now time.Time) domain.Record {
	rec := domain.Record{
		ItemName:        strings.TrimSpace(in.ItemName),
		Weight:          deref(in.Weight),
		SupplierName:    strings.TrimSpace(in.SupplierName),
		TransactionDate: strings.TrimSpace(in.TransactionDate),
	}
	if rec.TransactionDate == "" {
		rec.TransactionDate = now.Format(domain.DateLayout)
	}

	if domain.IsPot(rec.ItemName) {
		rec.ItemName = domain.PotItem
		rec.Amount = deref(in.Amount)
		rec.TotalAmount = rec.Amount
	} else {
		rec.PricePerKg = deref(in.PricePerKg)
		rec.TotalAmount = rec.Weight * rec.PricePerKg
	}
	return rec
}

// InputFromMap reads a submission in either naming convention. Numbers may
// arrive as JSON numbers or strings; blank or non-numeric values are left
// unset so validation reports them.
func InputFromMap(raw map[string]any) Input {
	return Input{
		ItemName:        lookupString(raw, itemNameKeys),
		Weight:          optionalFloat(lookup(raw, weightKeys)),
		PricePerKg:      optionalFloat(lookup(raw, pricePerKgKeys)),
		Amount:          optionalFloat(lookup(raw, amountKeys)),
		SupplierName:    lookupString(raw, supplierNameKeys),
		TransactionDate: lookupDate(raw, transactionDateKeys),
	}
}

func optionalFloat(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || Finite(f) != f {
			return nil
		}
		return &f
	case bool:
		return nil
	default:
		f := ToFloat(x)
		return &f
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return Finite(*f)
}
