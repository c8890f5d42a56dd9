package records

import (
	"strconv"
	"time"

	"esic-scraper/lib/timezone"
)

// layouts used by the export's data dictionary, times are brasilia local time
const (
	timestampLayout = "02/01/2006 15:04:05"
	dateLayout      = "02/01/2006"
)

type view struct {
	raw RawRecord
}

func (v view) Raw() RawRecord {
	return v.raw
}

func (v view) integer(name string) int {
	n, err := strconv.Atoi(v.raw.Get(name))
	if err != nil {
		return 0
	}
	return n
}

// the export writes "SIM" / "NÃO" (upper case)
func (v view) flag(name string) bool {
	return v.raw.Get(name) == "SIM"
}

func (v view) timestamp(name string) (time.Time, error) {
	return timezone.Parse(timestampLayout, v.raw.Get(name))
}

// Pedido is a read-only view over a request record.
type Pedido struct{ view }

func AsPedido(r RawRecord) (Pedido, bool) {
	if r.Kind() != KindPedido {
		return Pedido{}, false
	}
	return Pedido{view{raw: r}}, true
}

func (p Pedido) IdPedido() int { return p.integer("IdPedido") }
func (p Pedido) ProtocoloPedido() string { return p.raw.Get("ProtocoloPedido") }
func (p Pedido) OrgaoSuperior() string { return p.raw.Get("OrgaoSuperiorAssociadoaoDestinatario") }
func (p Pedido) OrgaoDestinatario() string { return p.raw.Get("OrgaoDestinatario") }
func (p Pedido) Situacao() string { return p.raw.Get("Situacao") }
func (p Pedido) ResumoSolicitacao() string { return p.raw.Get("ResumoSolicitacao") }
func (p Pedido) DetalhamentoSolicitacao() string {
	return p.raw.Get("DetalhamentoSolicitacao")
}
func (p Pedido) FoiProrrogado() bool { return p.flag("FoiProrrogado") }
func (p Pedido) FoiReencaminhado() bool { return p.flag("FoiReencaminhado") }
func (p Pedido) FormaResposta() string { return p.raw.Get("FormaResposta") }
func (p Pedido) OrigemSolicitacao() string { return p.raw.Get("OrigemSolicitacao") }
func (p Pedido) IdSolicitante() int { return p.integer("IdSolicitante") }
func (p Pedido) CategoriaPedido() string { return p.raw.Get("CategoriaPedido") }
func (p Pedido) SubCategoriaPedido() string { return p.raw.Get("SubCategoriaPedido") }
func (p Pedido) NumeroPerguntas() int { return p.integer("NumeroPerguntas") }
func (p Pedido) Resposta() string { return p.raw.Get("Resposta") }
func (p Pedido) TipoResposta() string { return p.raw.Get("TipoResposta") }
func (p Pedido) ClassificacaoResposta() string {
	return p.raw.Get("ClassificacaoTipoResposta")
}

func (p Pedido) DataRegistro() (time.Time, error) { return p.timestamp("DataRegistro") }
func (p Pedido) PrazoAtendimento() (time.Time, error) { return p.timestamp("PrazoAtendimento") }
func (p Pedido) DataResposta() (time.Time, error) { return p.timestamp("DataResposta") }

// Recurso is a read-only view over an appeal record.
type Recurso struct{ view }

func AsRecurso(r RawRecord) (Recurso, bool) {
	if r.Kind() != KindRecurso {
		return Recurso{}, false
	}
	return Recurso{view{raw: r}}, true
}

func (r Recurso) IdRecurso() int { return r.integer("IdRecurso") }
func (r Recurso) IdRecursoPrecedente() int { return r.integer("IdRecursoPrecedente") }
func (r Recurso) DescRecurso() string { return r.raw.Get("DescRecurso") }
func (r Recurso) IdPedido() int { return r.integer("IdPedido") }
func (r Recurso) IdSolicitante() int { return r.integer("IdSolicitante") }
func (r Recurso) ProtocoloPedido() string { return r.raw.Get("ProtocoloPedido") }
func (r Recurso) OrgaoSuperior() string { return r.raw.Get("OrgaoSuperiorAssociadoaoDestinatario") }
func (r Recurso) OrgaoDestinatario() string { return r.raw.Get("OrgaoDestinatario") }
func (r Recurso) Instancia() string { return r.raw.Get("Instancia") }
func (r Recurso) Situacao() string { return r.raw.Get("Situacao") }
func (r Recurso) OrigemSolicitacao() string { return r.raw.Get("OrigemSolicitacao") }
func (r Recurso) TipoRecurso() string { return r.raw.Get("TipoRecurso") }
func (r Recurso) RespostaRecurso() string { return r.raw.Get("RespostaRecurso") }
func (r Recurso) TipoResposta() string { return r.raw.Get("TipoResposta") }

func (r Recurso) DataRegistro() (time.Time, error) { return r.timestamp("DataRegistro") }
func (r Recurso) PrazoAtendimento() (time.Time, error) { return r.timestamp("PrazoAtendimento") }
func (r Recurso) DataResposta() (time.Time, error) { return r.timestamp("DataResposta") }

// Solicitante is a read-only view over a requester record.
type Solicitante struct{ view }

func AsSolicitante(r RawRecord) (Solicitante, bool) {
	if r.Kind() != KindSolicitante {
		return Solicitante{}, false
	}
	return Solicitante{view{raw: r}}, true
}

func (s Solicitante) IdSolicitante() int { return s.integer("IdSolicitante") }
func (s Solicitante) TipoDemandante() string { return s.raw.Get("TipoDemandante") }
func (s Solicitante) Sexo() string { return s.raw.Get("Sexo") }
func (s Solicitante) Escolaridade() string { return s.raw.Get("Escolaridade") }
func (s Solicitante) Profissao() string { return s.raw.Get("Profissao") }
func (s Solicitante) TipoPessoaJuridica() string { return s.raw.Get("TipoPessoaJuridica") }
func (s Solicitante) Pais() string { return s.raw.Get("Pais") }
func (s Solicitante) UF() string { return s.raw.Get("UF") }
func (s Solicitante) Municipio() string { return s.raw.Get("Municipio") }

func (s Solicitante) DataNascimento() (time.Time, error) {
	return timezone.Parse(dateLayout, s.raw.Get("DataNascimento"))
}
