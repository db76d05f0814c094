package importer

// Header names of the German bank CSV export.
const (
	ColAccountName      = "Bezeichnung Auftragskonto"
	ColAccountIBAN      = "IBAN Auftragskonto"
	ColAccountBIC       = "BIC Auftragskonto"
	ColAccountBankName  = "Bankname Auftragskonto"
	ColBookingDate      = "Buchungstag"
	ColValueDate        = "Valutadatum"
	ColCounterpartyName = "Name Zahlungsbeteiligter"
	ColCounterpartyIBAN = "IBAN Zahlungsbeteiligter"
	ColCounterpartyBIC  = "BIC (SWIFT-Code) Zahlungsbeteiligter"
	ColDescription      = "Buchungstext"
	ColPurpose          = "Verwendungszweck"
	ColAmount           = "Betrag"
	ColCurrency         = "Waehrung"
	ColBalanceAfter     = "Saldo nach Buchung"
	ColRemark           = "Bemerkung"
	ColCategory         = "Kategorie"
	ColTaxRelevant      = "Steuerrelevant"
	ColCreditorID       = "Glaeubiger ID"
	ColMandateReference = "Mandatsreferenz"
)

// Columns is the full header in export order.
var Columns = []string{
	ColAccountName,
	ColAccountIBAN,
	ColAccountBIC,
	ColAccountBankName,
	ColBookingDate,
	ColValueDate,
	ColCounterpartyName,
	ColCounterpartyIBAN,
	ColCounterpartyBIC,
	ColDescription,
	ColPurpose,
	ColAmount,
	ColCurrency,
	ColBalanceAfter,
	ColRemark,
	ColCategory,
	ColTaxRelevant,
	ColCreditorID,
	ColMandateReference,
}

var knownColumns = func() map[string]bool {
	m := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		m[c] = true
	}
	return m
}()
