package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finance-dashboard-backend/internal/models"
)

const bom = "\ufeff"

// amountScale matches the numeric(14,2) money columns.
const amountScale = 2

// Result splits a parsed file into importable rows and rejected rows, both in
// file order.
type Result struct {
	Accepted []models.TransactionInput
	Rejected []RowError
}

func (r Result) Total() int {
	return len(r.Accepted) + len(r.Rejected)
}

// Parse reads a German bank CSV export. A bad header fails the whole file;
// a bad data row is reported in Result.Rejected and the rest of the file is
// still parsed.
func Parse(r io.Reader) (Result, error) {
	var res Result

	data, err := io.ReadAll(r)
	if err != nil {
		return res, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(bom))
	if len(bytes.TrimSpace(data)) == 0 {
		return res, nil
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(firstLine(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("reading CSV header: %w", err)
	}
	index, err := indexHeader(header)
	if err != nil {
		return res, err
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Rejected = append(res.Rejected, RowError{
					Line: perr.StartLine,
					Err:  fmt.Errorf("%w: %v", ErrMalformedRow, perr.Err),
				})
				continue
			}
			return res, fmt.Errorf("reading CSV: %w", err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := cr.FieldPos(0)
		input, rowErr := mapRow(row{values: record, index: index, line: line})
		if rowErr != nil {
			res.Rejected = append(res.Rejected, *rowErr)
			continue
		}
		res.Accepted = append(res.Accepted, input)
	}

	return res, nil
}

type row struct {
	values []string
	index  map[string]int
	line   int
}

func (r row) get(col string) (string, bool) {
	i := r.index[col]
	if i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

func (r row) text(col string) string {
	v, _ := r.get(col)
	return v
}

func (r row) date(col string) (time.Time, *RowError) {
	v, ok := r.get(col)
	if !ok {
		return time.Time{}, r.fail(col, fmt.Errorf("%w: %w", ErrMalformedDate, ErrMissingField))
	}
	t, err := ParseDate(v)
	if err != nil {
		return time.Time{}, r.fail(col, err)
	}
	return t, nil
}

func (r row) amount(col string) (decimal.Decimal, *RowError) {
	v, ok := r.get(col)
	if !ok {
		return decimal.Zero, r.fail(col, fmt.Errorf("%w: %w", ErrMalformedAmount, ErrMissingField))
	}
	d, err := ParseAmount(v)
	if err != nil {
		return decimal.Zero, r.fail(col, err)
	}
	return d, nil
}

func (r row) fail(col string, err error) *RowError {
	return &RowError{Line: r.line, Column: col, Err: err}
}

func mapRow(r row) (models.TransactionInput, *RowError) {
	var in models.TransactionInput
	var rowErr *RowError

	if in.TransactionBookingDate, rowErr = r.date(ColBookingDate); rowErr != nil {
		return in, rowErr
	}
	if in.TransactionValueDate, rowErr = r.date(ColValueDate); rowErr != nil {
		return in, rowErr
	}
	if in.TransactionAmount, rowErr = r.amount(ColAmount); rowErr != nil {
		return in, rowErr
	}
	if in.BalanceAfterTransaction, rowErr = r.amount(ColBalanceAfter); rowErr != nil {
		return in, rowErr
	}
	currency, ok := r.get(ColCurrency)
	if !ok {
		return in, r.fail(ColCurrency, ErrMissingField)
	}

	in.TransactionCurrency = NormalizeCurrency(currency)
	in.AccountName = r.text(ColAccountName)
	in.AccountIBAN = r.text(ColAccountIBAN)
	in.AccountBIC = r.text(ColAccountBIC)
	in.AccountBankName = r.text(ColAccountBankName)
	in.CounterpartyName = r.text(ColCounterpartyName)
	in.CounterpartyIBAN = r.text(ColCounterpartyIBAN)
	in.CounterpartyBIC = r.text(ColCounterpartyBIC)
	in.TransactionDescription = r.text(ColDescription)
	in.TransactionPurpose = r.text(ColPurpose)
	in.AdditionalInformation = r.text(ColRemark)
	in.TransactionCategory = r.text(ColCategory)
	in.TaxRelevantIndicator = r.text(ColTaxRelevant)
	in.CreditorIdentifier = r.text(ColCreditorID)
	in.MandateReference = r.text(ColMandateReference)

	return in, nil
}

// ParseDate parses DD.MM.YYYY into UTC midnight of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedDate, ErrMissingField)
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31.02 into March; such dates are rejected instead.
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrMalformedDate, s)
	}
	return t, nil
}

// ParseAmount parses a comma-decimal amount such as "-1.234,56". Without a
// comma the dot is read as the decimal separator. Only digits, a sign and the
// two separators are accepted, with at most two decimal places.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrMalformedAmount, ErrMissingField)
	}
	if strings.IndexFunc(s, notAmountRune) >= 0 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}

	normalized := s
	if strings.Contains(normalized, ",") {
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects amounts the store cannot hold exactly.
func ValidateAmount(d decimal.Decimal) error {
	if !d.Equal(d.Round(amountScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrMalformedAmount, d, amountScale)
	}
	return nil
}

// NormalizeCurrency returns the trimmed, uppercased ISO code.
func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func notAmountRune(r rune) bool {
	return (r < '0' || r > '9') && !strings.ContainsRune("+-.,", r)
}

func indexHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(Columns))
	var herr HeaderError

	for i, name := range header {
		name = strings.Trim(strings.TrimSpace(name), `"`)
		if name == "" && i == len(header)-1 {
			// trailing delimiter
			continue
		}
		if !knownColumns[name] {
			herr.Unknown = append(herr.Unknown, name)
			continue
		}
		if _, dup := index[name]; dup {
			herr.Duplicated = append(herr.Duplicated, name)
			continue
		}
		index[name] = i
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			herr.Missing = append(herr.Missing, col)
		}
	}

	if len(herr.Missing) > 0 || len(herr.Unknown) > 0 || len(herr.Duplicated) > 0 {
		return nil, &herr
	}
	return index, nil
}

func sniffDelimiter(line string) rune {
	best, count := ';', 0
	for _, d := range []rune{';', ',', '\t'} {
		if n := strings.Count(line, string(d)); n > count {
			best, count = d, n
		}
	}
	return best
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
