package importer

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// Canonical field names resolved from spreadsheet headers.
const (
	fieldCPF  = "cpf"
	fieldNB   = "nb"
	fieldNome = "nome"

	fieldDataNascimento = "data_nascimento"
	fieldRG             = "rg"
	fieldNomeMae        = "nome_mae"
	fieldSexo           = "sexo"
	fieldEstadoCivil    = "estado_civil"

	fieldEndereco    = "endereco"
	fieldNumero      = "numero"
	fieldComplemento = "complemento"
	fieldBairro      = "bairro"
	fieldCidade      = "cidade"
	fieldUF          = "uf"
	fieldCEP         = "cep"

	fieldTelefone1 = "telefone1"
	fieldTelefone2 = "telefone2"
	fieldTelefone3 = "telefone3"
	fieldEmail     = "email"

	fieldEspecie           = "especie"
	fieldSituacaoBeneficio = "situacao_beneficio"
	fieldDIB               = "dib"
	fieldDDB               = "ddb"
	fieldValorBeneficio    = "valor_beneficio"
	fieldValorRMC          = "valor_rmc"
	fieldMargemDisponivel  = "margem_disponivel"

	fieldBancoPagamento = "banco_pagamento"
	fieldAgencia        = "agencia"
	fieldContaPagamento = "conta_pagamento"
	fieldMeioPagamento  = "meio_pagamento"

	fieldContrato           = "contrato"
	fieldBancoEmprestimo    = "banco_emprestimo"
	fieldValorEmprestimo    = "valor_emprestimo"
	fieldValorParcela       = "valor_parcela"
	fieldQtdParcelas        = "quantidade_parcelas"
	fieldParcelasRestantes  = "parcelas_restantes"
	fieldTaxa               = "taxa"
	fieldDataAverbacao      = "data_averbacao"
	fieldInicioDesconto     = "inicio_desconto"
	fieldFimDesconto        = "fim_desconto"
	fieldSituacaoEmprestimo = "situacao_emprestimo"
)

// HeaderMap resolves a column index to a canonical field name. Columns whose
// header did not match any alias are simply absent.
type HeaderMap map[int]string

// ErrNoRecognizedHeaders aborts the import: the header row matched nothing,
// which almost always means the wrong file was uploaded.
var ErrNoRecognizedHeaders = errors.New("no recognized columns in header row")

// headerAliases maps every historical header spelling seen in partner files
// to its canonical field. Many to one on purpose.
var headerAliases = map[string]string{
	"CPF":         fieldCPF,
	"NR_CPF":      fieldCPF,
	"NU_CPF":      fieldCPF,
	"CPF_CLIENTE": fieldCPF,

	"NB":               fieldNB,
	"BENEFICIO":        fieldNB,
	"NU_BENEFICIO":     fieldNB,
	"NUM_BENEFICIO":    fieldNB,
	"NUMERO_BENEFICIO": fieldNB,
	"MATRICULA":        fieldNB,

	"NOME":         fieldNome,
	"NOME_CLIENTE": fieldNome,
	"NM_CLIENTE":   fieldNome,
	"CLIENTE":      fieldNome,

	"DTNASCIMENTO":       fieldDataNascimento,
	"DT_NASCIMENTO":      fieldDataNascimento,
	"DATA_NASCIMENTO":    fieldDataNascimento,
	"DATA_DE_NASCIMENTO": fieldDataNascimento,
	"NASCIMENTO":         fieldDataNascimento,

	"RG":    fieldRG,
	"NR_RG": fieldRG,

	"NOME_MAE": fieldNomeMae,
	"NM_MAE":   fieldNomeMae,

	"SEXO":   fieldSexo,
	"GENERO": fieldSexo,

	"ESTADO_CIVIL": fieldEstadoCivil,

	"ENDERECO":   fieldEndereco,
	"LOGRADOURO": fieldEndereco,

	"NUMERO":      fieldNumero,
	"NR_ENDERECO": fieldNumero,

	"COMPLEMENTO": fieldComplemento,

	"BAIRRO": fieldBairro,

	"CIDADE":    fieldCidade,
	"MUNICIPIO": fieldCidade,

	"UF":       fieldUF,
	"ESTADO":   fieldUF,
	"SIGLA_UF": fieldUF,

	"CEP":    fieldCEP,
	"NR_CEP": fieldCEP,

	"TELEFONE":   fieldTelefone1,
	"TELEFONE1":  fieldTelefone1,
	"TELEFONE_1": fieldTelefone1,
	"FONE1":      fieldTelefone1,
	"CELULAR":    fieldTelefone1,

	"TELEFONE2":  fieldTelefone2,
	"TELEFONE_2": fieldTelefone2,
	"FONE2":      fieldTelefone2,

	"TELEFONE3":  fieldTelefone3,
	"TELEFONE_3": fieldTelefone3,
	"FONE3":      fieldTelefone3,

	"EMAIL":  fieldEmail,
	"E_MAIL": fieldEmail,
	"E-MAIL": fieldEmail,

	"ESPECIE":    fieldEspecie,
	"CD_ESPECIE": fieldEspecie,

	"SITUACAO":           fieldSituacaoBeneficio,
	"SITUACAO_BENEFICIO": fieldSituacaoBeneficio,
	"SIT_BENEFICIO":      fieldSituacaoBeneficio,

	"DIB":      fieldDIB,
	"DT_DIB":   fieldDIB,
	"DATA_DIB": fieldDIB,

	"DDB":      fieldDDB,
	"DT_DDB":   fieldDDB,
	"DATA_DDB": fieldDDB,

	"VALOR_BENEFICIO": fieldValorBeneficio,
	"VL_BENEFICIO":    fieldValorBeneficio,
	"VLR_BENEFICIO":   fieldValorBeneficio,

	"VL_RMC":    fieldValorRMC,
	"VLR_RMC":   fieldValorRMC,
	"VALOR_RMC": fieldValorRMC,
	"RMC":       fieldValorRMC,

	"MARGEM":            fieldMargemDisponivel,
	"MARGEM_DISPONIVEL": fieldMargemDisponivel,
	"VL_MARGEM":         fieldMargemDisponivel,
	"DISPONIVEL":        fieldMargemDisponivel,

	"BANCO_PAGAMENTO": fieldBancoPagamento,
	"BCO_PAGTO":       fieldBancoPagamento,
	"BANCO_PAGTO":     fieldBancoPagamento,

	"AGENCIA":       fieldAgencia,
	"AGENCIA_PAGTO": fieldAgencia,

	"CONTA":           fieldContaPagamento,
	"CONTA_CORRENTE":  fieldContaPagamento,
	"CONTA_PAGAMENTO": fieldContaPagamento,

	"MEIO_PAGAMENTO": fieldMeioPagamento,
	"MEIO_PAGTO":     fieldMeioPagamento,
	"TIPO_PAGAMENTO": fieldMeioPagamento,

	"CONTRATO":     fieldContrato,
	"NR_CONTRATO":  fieldContrato,
	"NUM_CONTRATO": fieldContrato,

	"BANCO":            fieldBancoEmprestimo,
	"COD_BANCO":        fieldBancoEmprestimo,
	"BANCO_EMPRESTIMO": fieldBancoEmprestimo,
	"BCO_EMPRESTIMO":   fieldBancoEmprestimo,

	"VALOR_EMPRESTIMO": fieldValorEmprestimo,
	"VL_EMPRESTIMO":    fieldValorEmprestimo,
	"VLR_EMPRESTIMO":   fieldValorEmprestimo,

	"VALOR_PARCELA": fieldValorParcela,
	"VL_PARCELA":    fieldValorParcela,
	"PARCELA":       fieldValorParcela,

	"QTD_PARCELAS":        fieldQtdParcelas,
	"QT_PARCELAS":         fieldQtdParcelas,
	"QUANTIDADE_PARCELAS": fieldQtdParcelas,
	"PRAZO":               fieldQtdParcelas,

	"PARCELAS_RESTANTES":     fieldParcelasRestantes,
	"QTD_PARCELAS_RESTANTES": fieldParcelasRestantes,

	"TAXA":       fieldTaxa,
	"TX_JUROS":   fieldTaxa,
	"TAXA_JUROS": fieldTaxa,

	"DATA_AVERBACAO": fieldDataAverbacao,
	"DT_AVERBACAO":   fieldDataAverbacao,
	"AVERBACAO":      fieldDataAverbacao,

	"INICIO_DESCONTO":    fieldInicioDesconto,
	"DT_INICIO_DESCONTO": fieldInicioDesconto,
	"COMPETENCIA_INICIO": fieldInicioDesconto,

	"FIM_DESCONTO":    fieldFimDesconto,
	"DT_FIM_DESCONTO": fieldFimDesconto,
	"COMPETENCIA_FIM": fieldFimDesconto,

	"SITUACAO_EMPRESTIMO": fieldSituacaoEmprestimo,
	"SIT_EMPRESTIMO":      fieldSituacaoEmprestimo,
	"STATUS_CONTRATO":     fieldSituacaoEmprestimo,
}

// strippedAliases is the fallback lookup with underscores removed, built once
// from headerAliases. Sorted iteration keeps collisions deterministic.
var strippedAliases = buildStrippedAliases()

func buildStrippedAliases() map[string]string {
	keys := make([]string, 0, len(headerAliases))
	for alias := range headerAliases {
		keys = append(keys, alias)
	}
	sort.Strings(keys)

	stripped := make(map[string]string, len(keys))
	for _, alias := range keys {
		key := strings.ReplaceAll(alias, "_", "")
		if _, exists := stripped[key]; !exists {
			stripped[key] = headerAliases[alias]
		}
	}
	return stripped
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeHeaderToken(cell Cell) string {
	switch cell.Kind {
	case CellEmpty:
		return ""
	case CellText, CellNumber:
		token := strings.ToUpper(strings.TrimSpace(cell.Text))
		return whitespaceRun.ReplaceAllString(token, "_")
	default:
		return ""
	}
}

// BuildHeaderMap resolves the first row of a file into column to field
// bindings. Unrecognized columns are dropped silently; partner files carry
// plenty of descriptive columns the import does not care about.
func BuildHeaderMap(header []Cell) (HeaderMap, error) {
	hm := make(HeaderMap)
	for idx, cell := range header {
		token := normalizeHeaderToken(cell)
		if token == "" {
			continue
		}
		if field, ok := headerAliases[token]; ok {
			hm[idx] = field
			continue
		}
		if field, ok := strippedAliases[strings.ReplaceAll(token, "_", "")]; ok {
			hm[idx] = field
		}
	}
	if len(hm) == 0 {
		return nil, ErrNoRecognizedHeaders
	}
	return hm, nil
}
