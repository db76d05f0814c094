package importer

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// csvFile builds a semicolon export with the full header. Each row maps
// column name to value; missing columns are left empty.
func csvFile(rows ...map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(Columns, ";"))
	b.WriteString("\n")
	for _, r := range rows {
		values := make([]string, len(Columns))
		for i, col := range Columns {
			values[i] = r[col]
		}
		b.WriteString(strings.Join(values, ";"))
		b.WriteString("\n")
	}
	return b.String()
}

func validRow() map[string]string {
	return map[string]string{
		ColAccountName:      "Girokonto",
		ColBookingDate:      "05.01.2025",
		ColValueDate:        "06.01.2025",
		ColCounterpartyName: "Stadtwerke",
		ColAmount:           "123,45",
		ColCurrency:         "eur",
		ColBalanceAfter:     "1.000,00",
		ColCategory:         "Energie",
	}
}

func TestParse_Fixture(t *testing.T) {
	f, err := os.Open("testdata/export.csv")
	require.NoError(t, err)
	defer f.Close()

	res, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, res.Accepted, 4)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 6, res.Total())

	salary := res.Accepted[0]
	assert.Equal(t, "ACME GmbH", salary.CounterpartyName)
	assert.Equal(t, "2500", salary.TransactionAmount.String())
	assert.Equal(t, "3120.5", salary.BalanceAfterTransaction.String())
	assert.Equal(t, "EUR", salary.TransactionCurrency)
	assert.Equal(t, "Einkommen", salary.TransactionCategory)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), salary.TransactionValueDate)

	rent := res.Accepted[1]
	assert.Equal(t, "-950", rent.TransactionAmount.String())
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), rent.TransactionBookingDate)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), rent.TransactionValueDate)
	assert.Equal(t, "DE98ZZZ09999999999", rent.CreditorIdentifier)
	assert.Equal(t, "MANDAT-001", rent.MandateReference)

	groceries := res.Accepted[2]
	assert.Equal(t, "Einkauf; Filiale 12", groceries.TransactionPurpose)
	assert.Equal(t, "-45.67", groceries.TransactionAmount.String())

	fee := res.Accepted[3]
	assert.True(t, fee.TransactionAmount.IsZero())
	assert.Equal(t, "Gebuehrenfrei", fee.AdditionalInformation)
	assert.Equal(t, "ja", fee.TaxRelevantIndicator)

	assert.Equal(t, 5, res.Rejected[0].Line)
	assert.Equal(t, ColBookingDate, res.Rejected[0].Column)
	assert.ErrorIs(t, res.Rejected[0], ErrMalformedDate)

	assert.Equal(t, 6, res.Rejected[1].Line)
	assert.Equal(t, ColAmount, res.Rejected[1].Column)
	assert.ErrorIs(t, res.Rejected[1], ErrMalformedAmount)
}

func TestParse_SingleRowAmount(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want string
	}{
		{"123,45", "123.45"},
		{"-123,45", "-123.45"},
		{"0,01", "0.01"},
		{"-1.234,56", "-1234.56"},
		{"42", "42"},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			r := validRow()
			r[ColAmount] = tc.raw

			res, err := Parse(strings.NewReader(csvFile(r)))
			require.NoError(t, err)
			require.Len(t, res.Accepted, 1)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(res.Accepted[0].TransactionAmount),
				"got %s", res.Accepted[0].TransactionAmount)
		})
	}
}

func TestParse_DropsBadDates(t *testing.T) {
	good := validRow()
	missing := validRow()
	delete(missing, ColBookingDate)
	letters := validRow()
	letters[ColBookingDate] = "aa.01.2025"
	shortYear := validRow()
	shortYear[ColValueDate] = "01.01.25"
	badMonth := validRow()
	badMonth[ColValueDate] = "01.13.2025"

	res, err := Parse(strings.NewReader(csvFile(good, missing, letters, good, shortYear, badMonth)))
	require.NoError(t, err)

	assert.Len(t, res.Accepted, 2)
	require.Len(t, res.Rejected, 4)
	for _, rej := range res.Rejected {
		assert.ErrorIs(t, rej, ErrMalformedDate)
	}
	assert.ErrorIs(t, res.Rejected[0], ErrMissingField)
	assert.Equal(t, []int{3, 4, 6, 7}, []int{
		res.Rejected[0].Line, res.Rejected[1].Line, res.Rejected[2].Line, res.Rejected[3].Line,
	})
}

func TestParse_DropsBadBalance(t *testing.T) {
	r := validRow()
	r[ColBalanceAfter] = ""

	res, err := Parse(strings.NewReader(csvFile(r)))
	require.NoError(t, err)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, ColBalanceAfter, res.Rejected[0].Column)
	assert.True(t, errors.Is(res.Rejected[0], ErrMalformedAmount))
	assert.True(t, errors.Is(res.Rejected[0], ErrMissingField))
}

func TestParse_ShortRow(t *testing.T) {
	data := strings.Join(Columns, ";") + "\n" + "Girokonto;DE1;BIC;Bank;01.01.2025;01.01.2025\n"

	res, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, ColAmount, res.Rejected[0].Column)
	assert.ErrorIs(t, res.Rejected[0], ErrMissingField)
}

func TestParse_PreservesOrder(t *testing.T) {
	var rows []map[string]string
	for _, name := range []string{"a", "b", "c", "d"} {
		r := validRow()
		r[ColCounterpartyName] = name
		rows = append(rows, r)
	}

	res, err := Parse(strings.NewReader(csvFile(rows...)))
	require.NoError(t, err)
	require.Len(t, res.Accepted, 4)
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, res.Accepted[i].CounterpartyName)
	}
}

func TestParse_EmptyAndHeaderOnly(t *testing.T) {
	for name, data := range map[string]string{
		"empty":       "",
		"whitespace":  "\n\n",
		"bom only":    bom,
		"header only": csvFile(),
		"blank rows":  csvFile() + ";;;;\n\n",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(data))
			require.NoError(t, err)
			assert.Empty(t, res.Accepted)
			assert.Empty(t, res.Rejected)
		})
	}
}

func TestParse_HeaderVariants(t *testing.T) {
	t.Run("bom and trailing delimiter", func(t *testing.T) {
		header := bom + strings.Join(Columns, ";") + ";\n"
		body := strings.TrimPrefix(csvFile(validRow()), strings.Join(Columns, ";")+"\n")

		res, err := Parse(strings.NewReader(header + body))
		require.NoError(t, err)
		assert.Len(t, res.Accepted, 1)
	})

	t.Run("comma delimited", func(t *testing.T) {
		r := validRow()
		r[ColAmount] = `"123,45"`
		r[ColBalanceAfter] = `"1.000,00"`
		data := strings.ReplaceAll(csvFile(r), ";", ",")

		res, err := Parse(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, res.Accepted, 1)
		assert.Equal(t, "123.45", res.Accepted[0].TransactionAmount.String())
	})

	t.Run("reordered columns", func(t *testing.T) {
		cols := append([]string{}, Columns...)
		cols[0], cols[11] = cols[11], cols[0]
		values := make([]string, len(cols))
		r := validRow()
		for i, c := range cols {
			values[i] = r[c]
		}
		data := strings.Join(cols, ";") + "\n" + strings.Join(values, ";") + "\n"

		res, err := Parse(strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, res.Accepted, 1)
		assert.Equal(t, "Girokonto", res.Accepted[0].AccountName)
		assert.Equal(t, "123.45", res.Accepted[0].TransactionAmount.String())
	})
}

func TestParse_HeaderErrors(t *testing.T) {
	withoutAmount := make([]string, 0, len(Columns))
	for _, c := range Columns {
		if c != ColAmount {
			withoutAmount = append(withoutAmount, c)
		}
	}

	t.Run("missing column", func(t *testing.T) {
		_, err := Parse(strings.NewReader(strings.Join(withoutAmount, ";") + "\n"))
		var herr *HeaderError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, []string{ColAmount}, herr.Missing)
		assert.Contains(t, err.Error(), "missing columns: Betrag")
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := Parse(strings.NewReader(strings.Join(Columns, ";") + ";Notiz\n"))
		var herr *HeaderError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, []string{"Notiz"}, herr.Unknown)
	})

	t.Run("duplicated column", func(t *testing.T) {
		_, err := Parse(strings.NewReader(strings.Join(Columns, ";") + ";Betrag\n"))
		var herr *HeaderError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, []string{ColAmount}, herr.Duplicated)
	})
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 29.02.2024 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("1.2.2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "29.02.2025", "2025-01-01", "01.01", "xx.01.2025", "00.01.2025"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrMalformedDate, bad)
	}
}

func TestParseAmount(t *testing.T) {
	for _, bad := range []string{"", "abc", "1,2,3", "12,a", "1e3", "1,5e2", "0x10", "12,345", "1.005", "EUR 12,00"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrMalformedAmount, bad)
	}

	d, err := ParseAmount("+1.500,50")
	require.NoError(t, err)
	assert.Equal(t, "1500.5", d.String())
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("-12.30")))
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("7")))
	assert.ErrorIs(t, ValidateAmount(decimal.RequireFromString("0.001")), ErrMalformedAmount)
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "EUR", NormalizeCurrency(" eur "))
}

func TestRowError_JSON(t *testing.T) {
	rej := RowError{Line: 4, Column: ColAmount, Err: ErrMalformedAmount}
	b, err := rej.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"line":4,"column":"Betrag","reason":"malformed amount"}`, string(b))
	assert.Equal(t, `line 4, column "Betrag": malformed amount`, rej.Error())
}
