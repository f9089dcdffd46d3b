package core

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// moneyPlaces is the number of decimal places every monetary output is rounded to.
const moneyPlaces = 2

// roundMoney rounds half away from zero. Line amounts are never negative,
// so for every value the calculator emits this is round-half-up.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// ComputeLine calculates net, VAT and gross amounts for one document line.
//
//  1. lineAmount = quantity × unitPrice − discount, floored at zero
//  2. zero-rated lines carry no VAT whatever the method
//  3. Inclusive: VAT is backed out of lineAmount, net is the remainder
//     Exclusive: VAT is added on top, net is lineAmount
//  4. Results are rounded to 2 places only at output; gross = net + vat
func ComputeLine(input LineInput, method CalculationMethod) (LineResult, error) {
	if err := checkLineInput(-1, input, method); err != nil {
		return LineResult{}, err
	}
	return computeLine(input, method), nil
}

func checkLineInput(index int, input LineInput, method CalculationMethod) error {
	if !method.Valid() {
		return &LineInputError{Index: index, Field: "calculation method", Value: fmt.Sprintf("%q is not inclusive or exclusive", method)}
	}
	if input.Quantity.IsNegative() {
		return &LineInputError{Index: index, Field: "quantity", Value: "must not be negative, got " + input.Quantity.String()}
	}
	if input.UnitPrice.IsNegative() {
		return &LineInputError{Index: index, Field: "unit price", Value: "must not be negative, got " + input.UnitPrice.String()}
	}
	if input.Discount.IsNegative() {
		return &LineInputError{Index: index, Field: "discount", Value: "must not be negative, got " + input.Discount.String()}
	}
	if input.VATType.Rate.IsNegative() {
		return &LineInputError{Index: index, Field: "vat rate", Value: "must not be negative, got " + input.VATType.Rate.String()}
	}
	return nil
}

func computeLine(input LineInput, method CalculationMethod) LineResult {
	lineAmount := input.Quantity.Mul(input.UnitPrice).Sub(input.Discount)
	if lineAmount.IsNegative() {
		// Discount above quantity × price: the line shows zero value.
		lineAmount = decimal.Zero
	}

	rate := input.VATType.Rate
	vat := decimal.Zero
	net := lineAmount

	if !input.VATType.ZeroRated() {
		switch method {
		case Inclusive:
			vat = lineAmount.Mul(rate).Div(hundred.Add(rate))
			net = lineAmount.Sub(vat)
		case Exclusive:
			vat = lineAmount.Mul(rate).Div(hundred)
		}
	}

	net = roundMoney(net)
	vat = roundMoney(vat)

	return LineResult{
		LineAmount:  roundMoney(lineAmount),
		NetAmount:   net,
		VATAmount:   vat,
		GrossAmount: net.Add(vat),
		Rate:        rate,
	}
}

// DocumentLine is a line as it arrives from an editing surface: the VAT type is
// referenced by ID and resolved through a VATTypeRegistry. VATTypeID 0 means "no VAT".
type DocumentLine struct {
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	VATTypeID   int             `json:"vat_type_id"`
}

// DocumentCalculation is the output of a full recompute: one result per input line, in order, plus totals.
type DocumentCalculation struct {
	Method   CalculationMethod `json:"method"`
	Lines    []LineResult      `json:"lines"`
	Totals   DocumentTotals    `json:"totals"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Recompute calculates every line and aggregates them.
// It is the explicit replacement for keeping running totals in editor state:
// callers invoke it with the full current line set whenever any input changes.
func Recompute(lines []LineInput, method CalculationMethod) (DocumentCalculation, error) {
	results := make([]LineResult, 0, len(lines))
	for i, in := range lines {
		if err := checkLineInput(i, in, method); err != nil {
			return DocumentCalculation{}, err
		}
		results = append(results, computeLine(in, method))
	}
	return DocumentCalculation{
		Method: method,
		Lines:  results,
		Totals: Aggregate(results),
	}, nil
}

// Calculator resolves VAT types for document lines and runs the shared line math.
// Every document type (invoice, bill, estimate) goes through the same Calculator.
type Calculator struct {
	registry VATTypeRegistry
	log      zerolog.Logger
}

// NewCalculator builds a Calculator. A nil registry treats every VAT type as unknown.
func NewCalculator(registry VATTypeRegistry, log zerolog.Logger) *Calculator {
	if registry == nil {
		registry = NewVATTable()
	}
	return &Calculator{registry: registry, log: log}
}

// ResolveLine turns a DocumentLine into a LineInput. An unknown VAT type is treated
// as rate 0 and reported in the returned warning; no rate is ever invented.
func (c *Calculator) ResolveLine(line DocumentLine) (LineInput, string) {
	in := LineInput{
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
		Discount:  line.Discount,
	}
	if line.VATTypeID == 0 {
		return in, ""
	}
	vt, ok := c.registry.FindVATType(line.VATTypeID)
	if !ok {
		c.log.Warn().Int("vat_type_id", line.VATTypeID).Msg("VAT type not found, treating line as zero-rated")
		in.VATType = VATType{ID: line.VATTypeID}
		return in, fmt.Sprintf("VAT type %d not found; line treated as zero-rated", line.VATTypeID)
	}
	in.VATType = vt
	return in, ""
}

// Recompute resolves and calculates every line, then aggregates.
func (c *Calculator) Recompute(lines []DocumentLine, method CalculationMethod) (DocumentCalculation, error) {
	results := make([]LineResult, 0, len(lines))
	var warnings []string
	for i, line := range lines {
		in, warning := c.ResolveLine(line)
		if err := checkLineInput(i, in, method); err != nil {
			return DocumentCalculation{}, err
		}
		res := computeLine(in, method)
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
			warnings = append(warnings, fmt.Sprintf("line %d: %s", i+1, warning))
		}
		results = append(results, res)
	}
	return DocumentCalculation{
		Method:   method,
		Lines:    results,
		Totals:   Aggregate(results),
		Warnings: warnings,
	}, nil
}
