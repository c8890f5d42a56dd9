package records

import (
	"testing"
	"time"

	"esic-scraper/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestRawRecordImmutable(t *testing.T) {
	attrs := map[string]string{"IdPedido": "1"}
	record := NewRawRecord(KindPedido, attrs)

	attrs["IdPedido"] = "2"
	require.Equal(t, "1", record.Get("IdPedido"))

	copied := record.Attributes()
	copied["IdPedido"] = "3"
	require.Equal(t, "1", record.Get("IdPedido"))

	_, ok := record.Lookup("Situacao")
	require.False(t, ok)
	require.Equal(t, "", record.Get("Situacao"))
	require.Equal(t, 1, record.Len())
	require.Equal(t, "1", record.Id())
}

func TestKind(t *testing.T) {
	require.Equal(t, "Pedido", KindPedido.Tag())
	require.Equal(t, "Recurso", KindRecurso.Tag())
	require.Equal(t, "Solicitante", KindSolicitante.Tag())
	require.Equal(t, "IdSolicitante", KindSolicitante.IdAttribute())
	require.Equal(t, "Kind(9)", Kind(9).String())
}

func TestPedidoView(t *testing.T) {
	record := NewRawRecord(KindPedido, map[string]string{
		"IdPedido":         "1234",
		"ProtocoloPedido":  "00075000123201611",
		"Situacao":         "Respondido",
		"DataRegistro":     "31/01/2016 14:05:09",
		"FoiProrrogado":    "SIM",
		"FoiReencaminhado": "NÃO",
		"IdSolicitante":    "not a number",
	})

	_, ok := AsRecurso(record)
	require.False(t, ok)

	pedido, ok := AsPedido(record)
	require.True(t, ok)
	require.Equal(t, 1234, pedido.IdPedido())
	require.Equal(t, "00075000123201611", pedido.ProtocoloPedido())
	require.Equal(t, "Respondido", pedido.Situacao())
	require.True(t, pedido.FoiProrrogado())
	require.False(t, pedido.FoiReencaminhado())
	require.Equal(t, 0, pedido.IdSolicitante())
	require.Equal(t, record, pedido.Raw())

	registered, err := pedido.DataRegistro()
	require.NoError(t, err)
	require.Equal(t, time.Date(2016, 1, 31, 14, 5, 9, 0, timezone.Location), registered)

	_, err = pedido.DataResposta()
	require.Error(t, err)
}

func TestRecursoView(t *testing.T) {
	recurso, ok := AsRecurso(NewRawRecord(KindRecurso, map[string]string{
		"IdRecurso":           "9",
		"IdRecursoPrecedente": "8",
		"Instancia":           "Primeira Instância",
		"PrazoAtendimento":    "01/03/2017 00:00:00",
	}))
	require.True(t, ok)
	require.Equal(t, 9, recurso.IdRecurso())
	require.Equal(t, 8, recurso.IdRecursoPrecedente())
	require.Equal(t, "Primeira Instância", recurso.Instancia())

	deadline, err := recurso.PrazoAtendimento()
	require.NoError(t, err)
	require.Equal(t, time.March, deadline.Month())
}

func TestSolicitanteView(t *testing.T) {
	solicitante, ok := AsSolicitante(NewRawRecord(KindSolicitante, map[string]string{
		"IdSolicitante":  "5",
		"DataNascimento": "24/12/1980",
		"UF":             "MG",
	}))
	require.True(t, ok)
	require.Equal(t, 5, solicitante.IdSolicitante())
	require.Equal(t, "MG", solicitante.UF())

	born, err := solicitante.DataNascimento()
	require.NoError(t, err)
	require.Equal(t, time.Date(1980, 12, 24, 0, 0, 0, 0, timezone.Location), born)
}
