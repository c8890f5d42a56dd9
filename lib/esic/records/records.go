package records

import "fmt"

type Kind int

const (
	KindPedido Kind = iota
	KindRecurso
	KindSolicitante
)

func (k Kind) String() string {
	switch k {
	case KindPedido:
		return "Pedido"
	case KindRecurso:
		return "Recurso"
	case KindSolicitante:
		return "Solicitante"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Tag is the xml element name that holds records of this kind.
func (k Kind) Tag() string {
	return k.String()
}

// IdAttribute is the attribute that identifies a record of this kind.
func (k Kind) IdAttribute() string {
	switch k {
	case KindPedido:
		return "IdPedido"
	case KindRecurso:
		return "IdRecurso"
	case KindSolicitante:
		return "IdSolicitante"
	}
	return ""
}

// Kinds lists every exported entity kind in a stable order.
var Kinds = []Kind{KindPedido, KindRecurso, KindSolicitante}

// RawRecord is a single exported entity: the attributes of its xml element
// copied verbatim, tagged with the kind of the file it came from.
//
// The attribute map is never handed out, so a RawRecord cannot change after
// NewRawRecord returns.
type RawRecord struct {
	kind  Kind
	attrs map[string]string
}

func NewRawRecord(kind Kind, attrs map[string]string) RawRecord {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return RawRecord{kind: kind, attrs: copied}
}

func (r RawRecord) Kind() Kind {
	return r.kind
}

// Get returns the attribute value or "" when it is absent.
func (r RawRecord) Get(name string) string {
	return r.attrs[name]
}

func (r RawRecord) Lookup(name string) (string, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

func (r RawRecord) Len() int {
	return len(r.attrs)
}

// Attributes returns a copy of the attribute map.
func (r RawRecord) Attributes() map[string]string {
	out := make(map[string]string, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Id returns the value of the kind's identifying attribute.
func (r RawRecord) Id() string {
	return r.attrs[r.kind.IdAttribute()]
}
