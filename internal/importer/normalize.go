package importer

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/consiglab/importer/internal/domain"
)

// Row rejection reasons. Each mandatory field gets its own reason so
// operators can tell a bad CPF column from a bad export at a glance.
var (
	ErrMissingCPF  = errors.New("row has no valid cpf")
	ErrMissingNB   = errors.New("row has no beneficio (nb) identifier")
	ErrMissingNome = errors.New("row has no nome")
)

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
}

// excelEpoch is day zero of the 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Every coercion below is total: garbage input degrades to nil, never to an
// error or a panic. A single mangled cell must not take down a 500k row file.

func coerceText(cell Cell) *string {
	switch cell.Kind {
	case CellEmpty:
		return nil
	case CellText, CellNumber:
		value := strings.TrimSpace(cell.Text)
		if value == "" {
			return nil
		}
		return &value
	default:
		return nil
	}
}

func coerceUpper(cell Cell) *string {
	value := coerceText(cell)
	if value == nil {
		return nil
	}
	upper := strings.ToUpper(*value)
	return &upper
}

func coerceLower(cell Cell) *string {
	value := coerceText(cell)
	if value == nil {
		return nil
	}
	lower := strings.ToLower(*value)
	return &lower
}

func coerceDigits(cell Cell) *string {
	switch cell.Kind {
	case CellEmpty:
		return nil
	case CellText, CellNumber:
		var b strings.Builder
		for _, r := range cell.Text {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			return nil
		}
		digits := b.String()
		return &digits
	default:
		return nil
	}
}

func coerceDate(cell Cell) *time.Time {
	switch cell.Kind {
	case CellEmpty:
		return nil
	case CellNumber:
		// Spreadsheet date serial; the fractional part is time of day and
		// is dropped. Serials outside a sane range are treated as garbage.
		serial := int(cell.Number)
		if serial <= 0 || serial > 219511 { // 219511 = 2500-12-31
			return nil
		}
		date := excelEpoch.AddDate(0, 0, serial)
		return &date
	case CellText:
		raw := strings.TrimSpace(cell.Text)
		for _, layout := range dateLayouts {
			if date, err := time.Parse(layout, raw); err == nil {
				return &date
			}
		}
		return nil
	default:
		return nil
	}
}

func coerceFloat(cell Cell) *float64 {
	switch cell.Kind {
	case CellEmpty:
		return nil
	case CellNumber:
		value := cell.Number
		return &value
	case CellText:
		var b strings.Builder
		for _, r := range cell.Text {
			if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
				b.WriteRune(r)
			}
		}
		cleaned := b.String()
		if strings.Contains(cleaned, ",") {
			// pt-BR format: dots are thousand separators, comma is decimal.
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
		value, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &value
	default:
		return nil
	}
}

func coerceInt(cell Cell) *int {
	value := coerceFloat(cell)
	if value == nil {
		return nil
	}
	truncated := int(*value)
	return &truncated
}

// NormalizeRow turns one data row into a client record and, when the row
// carries both a contract number and a lender bank, a contract record.
// Rejected rows return a reason error and nothing else.
func NormalizeRow(hm HeaderMap, row []Cell, importadoPor string) (domain.Cliente, *domain.Contrato, error) {
	fields := make(map[string]Cell, len(hm))
	for idx, name := range hm {
		if idx >= len(row) {
			continue
		}
		fields[name] = row[idx]
	}

	cpfRaw := coerceDigits(fields[fieldCPF])
	if cpfRaw == nil {
		return domain.Cliente{}, nil, ErrMissingCPF
	}
	cpf, ok := domain.ParseCPF(*cpfRaw)
	if !ok {
		return domain.Cliente{}, nil, ErrMissingCPF
	}

	nb := coerceText(fields[fieldNB])
	if nb == nil {
		return domain.Cliente{}, nil, ErrMissingNB
	}

	nome := coerceText(fields[fieldNome])
	if nome == nil {
		return domain.Cliente{}, nil, ErrMissingNome
	}

	cliente := domain.Cliente{
		CPF:  cpf,
		NB:   *nb,
		Nome: *nome,

		DataNascimento: coerceDate(fields[fieldDataNascimento]),
		RG:             coerceText(fields[fieldRG]),
		NomeMae:        coerceText(fields[fieldNomeMae]),
		Sexo:           coerceUpper(fields[fieldSexo]),
		EstadoCivil:    coerceText(fields[fieldEstadoCivil]),

		Endereco:    coerceText(fields[fieldEndereco]),
		Numero:      coerceText(fields[fieldNumero]),
		Complemento: coerceText(fields[fieldComplemento]),
		Bairro:      coerceText(fields[fieldBairro]),
		Cidade:      coerceText(fields[fieldCidade]),
		UF:          coerceUpper(fields[fieldUF]),
		CEP:         coerceDigits(fields[fieldCEP]),

		Telefone1: coerceDigits(fields[fieldTelefone1]),
		Telefone2: coerceDigits(fields[fieldTelefone2]),
		Telefone3: coerceDigits(fields[fieldTelefone3]),
		Email:     coerceLower(fields[fieldEmail]),

		Especie:           coerceText(fields[fieldEspecie]),
		SituacaoBeneficio: coerceText(fields[fieldSituacaoBeneficio]),
		DIB:               coerceDate(fields[fieldDIB]),
		DDB:               coerceDate(fields[fieldDDB]),
		ValorBeneficio:    coerceFloat(fields[fieldValorBeneficio]),
		ValorRMC:          coerceFloat(fields[fieldValorRMC]),
		MargemDisponivel:  coerceFloat(fields[fieldMargemDisponivel]),

		BancoPagamento: coerceText(fields[fieldBancoPagamento]),
		Agencia:        coerceText(fields[fieldAgencia]),
		ContaPagamento: coerceText(fields[fieldContaPagamento]),
		MeioPagamento:  coerceText(fields[fieldMeioPagamento]),

		ImportadoPor: importadoPor,
	}

	var contrato *domain.Contrato
	numero := coerceText(fields[fieldContrato])
	banco := coerceText(fields[fieldBancoEmprestimo])
	if numero != nil && banco != nil {
		contrato = &domain.Contrato{
			CPF:    cpf,
			Numero: *numero,
			Banco:  *banco,

			ValorEmprestimo:    coerceFloat(fields[fieldValorEmprestimo]),
			ValorParcela:       coerceFloat(fields[fieldValorParcela]),
			QuantidadeParcelas: coerceInt(fields[fieldQtdParcelas]),
			ParcelasRestantes:  coerceInt(fields[fieldParcelasRestantes]),
			Taxa:               coerceFloat(fields[fieldTaxa]),

			DataAverbacao:  coerceDate(fields[fieldDataAverbacao]),
			InicioDesconto: coerceDate(fields[fieldInicioDesconto]),
			FimDesconto:    coerceDate(fields[fieldFimDesconto]),
			Situacao:       coerceText(fields[fieldSituacaoEmprestimo]),
		}
	}

	return cliente, contrato, nil
}
