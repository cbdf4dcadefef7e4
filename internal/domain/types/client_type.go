package types

// ClientType distingue clientes que pueden guardar un secreto de los que no.
type ClientType string

const (
	ClientTypePublic       ClientType = "public"
	ClientTypeConfidential ClientType = "confidential"
)

// IsValid retorna true si el tipo es public o confidential.
func (t ClientType) IsValid() bool {
	return t == ClientTypePublic || t == ClientTypeConfidential
}
