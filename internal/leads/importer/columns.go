package importer

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/platform/phone"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoLabelColumn    = errors.New("no stage label column (\"Etapa do lead\")")
	ErrNoIdentityColumn = errors.New("no identity column (id or phone)")
)

// PhoneIdentityPrefix marks external ids derived from a phone number.
const PhoneIdentityPrefix = "phone:"

type column int

const (
	colExternalID column = iota
	colLabel
	colPaymentMethod
	colLossReason
	colName
	colPhone
	colEmail
	colCourse
	colProposedValue
	colEnrollmentValue
	colUnit
	colFollowUp
	colAppointment
)

// headerAliases are compared against folded header cells.
var headerAliases = map[column][]string{
	colExternalID:      {"id", "id do lead", "lead id", "external id", "externalid", "codigo", "codigo do lead"},
	colLabel:           {"etapa do lead", "etapa", "status", "stage", "fase"},
	colPaymentMethod:   {"forma de pagamento", "pagamento", "payment method"},
	colLossReason:      {"motivo de insucesso", "motivo da perda", "motivo perda", "loss reason"},
	colName:            {"nome", "nome do lead", "nome completo", "name"},
	colPhone:           {"telefone", "celular", "whatsapp", "fone", "phone"},
	colEmail:           {"email", "e-mail"},
	colCourse:          {"curso", "curso de interesse", "interesse"},
	colProposedValue:   {"valor proposto", "valor da proposta", "proposta"},
	colEnrollmentValue: {"valor da matricula", "valor matricula", "valor pago"},
	colUnit:            {"unidade", "franquia", "unit"},
	colFollowUp:        {"follow up", "follow-up", "followup", "observacao", "observacoes", "obs"},
	colAppointment:     {"data da reuniao", "data da entrevista", "data do agendamento", "agendamento"},
}

// "Resultado 1ª tentativa", "resultado da 2 tentativa", "Resultado3".
var attemptHeader = regexp.MustCompile(`^resultado\D{0,8}?([1-9])`)

// Mapping locates the known columns of a sheet by header.
type Mapping struct {
	index    map[column]int
	attempts [reconcile.MaxImportedAttempts]int
}

// MapHeader resolves header cells to columns. The first matching cell wins.
// A sheet needs a stage label column and an id or phone column.
func MapHeader(header []string) (Mapping, error) {
	m := mapColumns(header)

	if _, ok := m.index[colLabel]; !ok {
		return Mapping{}, ErrNoLabelColumn
	}
	_, hasID := m.index[colExternalID]
	_, hasPhone := m.index[colPhone]
	if !hasID && !hasPhone {
		return Mapping{}, ErrNoIdentityColumn
	}
	return m, nil
}

// RecordFromColumns maps a single column/value record, as webhooks send
// them. Missing columns are allowed; an explicit externalID wins over any
// id column.
func RecordFromColumns(externalID string, columns map[string]string) Record {
	header := make([]string, 0, len(columns))
	for name := range columns {
		header = append(header, name)
	}
	sort.Strings(header)

	row := make([]string, len(header))
	for i, name := range header {
		row[i] = columns[name]
	}

	record, _ := mapColumns(header).Record(0, row)
	if id := strings.TrimSpace(externalID); id != "" {
		record.ExternalID = id
	}
	return record
}

func mapColumns(header []string) Mapping {
	m := Mapping{index: make(map[column]int)}
	for i := range m.attempts {
		m.attempts[i] = -1
	}

	for i, cell := range header {
		key := domain.Fold(strings.Trim(cell, " :*"))
		if key == "" {
			continue
		}
		if match := attemptHeader.FindStringSubmatch(key); match != nil {
			n, _ := strconv.Atoi(match[1])
			if n <= reconcile.MaxImportedAttempts && m.attempts[n-1] < 0 {
				m.attempts[n-1] = i
			}
			continue
		}
		if col, ok := lookupAlias(key); ok {
			if _, seen := m.index[col]; !seen {
				m.index[col] = i
			}
		}
	}
	return m
}

func lookupAlias(key string) (column, bool) {
	for col, aliases := range headerAliases {
		for _, alias := range aliases {
			if key == alias {
				return col, true
			}
		}
	}
	return 0, false
}

// Record is one sheet row in reconciler terms.
type Record struct {
	// Line is the 1-based sheet row.
	Line       int
	ExternalID string
	Label      string
	Fields     reconcile.Fields
}

// Record extracts row. Rows whose cells are all blank return false.
func (m Mapping) Record(line int, row []string) (Record, bool) {
	if isBlank(row) {
		return Record{}, false
	}

	fields := reconcile.Fields{
		UnitID:          m.cell(row, colUnit),
		Name:            m.cell(row, colName),
		Phone:           m.cell(row, colPhone),
		Email:           m.cell(row, colEmail),
		CourseInterest:  m.cell(row, colCourse),
		ProposedValue:   m.cell(row, colProposedValue),
		EnrollmentValue: m.cell(row, colEnrollmentValue),
		PaymentMethod:   m.cell(row, colPaymentMethod),
		LossReason:      m.cell(row, colLossReason),
		AppointmentDate: spreadsheetDate(m.cell(row, colAppointment)),
		FollowUp:        m.cell(row, colFollowUp),
	}

	last := -1
	for i, idx := range m.attempts {
		if idx >= 0 && cellAt(row, idx) != "" {
			last = i
		}
	}
	if last >= 0 {
		fields.AttemptResults = make([]string, last+1)
		for i := 0; i <= last; i++ {
			fields.AttemptResults[i] = cellAt(row, m.attempts[i])
		}
	}

	return Record{
		Line:       line,
		ExternalID: identity(m.cell(row, colExternalID), fields.Phone),
		Label:      m.cell(row, colLabel),
		Fields:     fields,
	}, true
}

// Records maps every data row below the header.
func (m Mapping) Records(rows [][]string) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if record, ok := m.Record(i+2, row); ok {
			records = append(records, record)
		}
	}
	return records
}

// identity prefers the sheet's id and falls back to the E.164 phone.
func identity(externalID, rawPhone string) string {
	if externalID != "" {
		return externalID
	}
	if normalized, ok := phone.Parse(rawPhone); ok {
		return PhoneIdentityPrefix + normalized
	}
	return ""
}

// spreadsheetDate turns an Excel date serial into RFC 3339. Other values
// pass through for the reconciler to parse.
func spreadsheetDate(value string) string {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < 30000 || serial > 80000 {
		return value
	}
	at, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return at.UTC().Format(time.RFC3339)
}

func (m Mapping) cell(row []string, col column) string {
	idx, ok := m.index[col]
	if !ok {
		return ""
	}
	return cellAt(row, idx)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
