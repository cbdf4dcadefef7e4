package oauth

// DecisionState es el estado del motor de /connect/authorize.
type DecisionState int

const (
	StateUnauthenticated DecisionState = iota
	StateAuthenticatedNoConsent
	StateConsentSatisfied
	StateConsentRequired
	StateDenied
	StateSignedIn
)

func (s DecisionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticatedNoConsent:
		return "authenticated_no_consent"
	case StateConsentSatisfied:
		return "consent_satisfied"
	case StateConsentRequired:
		return "consent_required"
	case StateDenied:
		return "denied"
	case StateSignedIn:
		return "signed_in"
	default:
		return "unknown"
	}
}

// Valores de prompt (OIDC Core §3.1.2.1).
const (
	promptNone          = "none"
	promptLogin         = "login"
	promptConsent       = "consent"
	promptSelectAccount = "select_account"
)

// promptSet es el parámetro prompt parseado.
type promptSet map[string]struct{}

func (p promptSet) Has(v string) bool {
	_, ok := p[v]
	return ok
}
